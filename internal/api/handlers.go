package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"fcc-clone/internal/cascade"
	"fcc-clone/internal/config"
	"fcc-clone/internal/database"
	"fcc-clone/internal/scoring"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// ApiHandler хранит пул соединений и компоненты ядра
type ApiHandler struct {
	DB      *sql.DB
	Scoring *scoring.Engine
	Cascade *cascade.Coordinator

	jwtKey    []byte
	tokenTTL  time.Duration
	dbTimeout time.Duration
	validate  *validator.Validate
}

// NewApiHandler создает обработчик поверх пула db
func NewApiHandler(db *sql.DB, cfg *config.Config) *ApiHandler {
	v := validator.New()
	// в сообщениях об ошибках используем имена полей из JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &ApiHandler{
		DB:        db,
		Scoring:   scoring.NewEngine(db, cfg.DBTimeout),
		Cascade:   cascade.NewCoordinator(db, cfg.DBTimeout),
		jwtKey:    cfg.JWTSecret,
		tokenTTL:  cfg.TokenTTL,
		dbTimeout: cfg.DBTimeout,
		validate:  v,
	}
}

// Home - проверка, что сервер жив
func (h *ApiHandler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("FCC Clone Backend Running!"))
}

// dbContext ограничивает время обращений к базе в рамках одного запроса
func (h *ApiHandler) dbContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.dbTimeout)
}

// decodeAndValidate читает JSON в dst и проверяет теги validate.
// При ошибке сам пишет ответ 400 и возвращает false.
func (h *ApiHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			respondWithError(w, http.StatusBadRequest, "Missing or invalid fields: "+strings.Join(fields, ", "))
			return false
		}
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// pathID достаёт числовой параметр пути (маршрут уже ограничен [0-9]+)
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", strings.ReplaceAll(name, "_", " ")))
		return 0, false
	}
	return id, true
}

// writeError переводит ошибку ядра или базы в HTTP-ответ
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, scoring.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, scoring.ErrQuestionNotFound):
		respondWithError(w, http.StatusNotFound, "Question not found")
	case database.IsTimeout(err):
		log.Printf("[%s] %s: timeout: %v", RequestID(r.Context()), op, err)
		respondWithError(w, http.StatusInternalServerError, "Database timeout, please retry")
	default:
		log.Printf("[%s] %s: %v", RequestID(r.Context()), op, err)
		respondWithError(w, http.StatusInternalServerError, "Database error")
	}
}

// --- Вспомогательные функции ---

// respondWithJSON - вспомогательная функция для отправки JSON-ответов
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to encode response: %v", err)
		code = http.StatusInternalServerError
		response = []byte(`{"error":"Failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithMessage(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"message": message})
}
