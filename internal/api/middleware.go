package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"fcc-clone/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	ContextClaimsKey    contextKey = "claims"
	ContextRequestIDKey contextKey = "requestID"
)

// ClaimsFromContext возвращает данные токена, положенные AuthMiddleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ContextClaimsKey).(*Claims)
	return claims, ok
}

// RequestID - идентификатор запроса для логов ("-" вне запроса).
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextRequestIDKey).(string); ok {
		return id
	}
	return "-"
}

// parseBearer разбирает заголовок "Authorization: Bearer <token>".
func (h *ApiHandler) parseBearer(r *http.Request) (*Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errMissingToken
	}
	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || headerParts[0] != "Bearer" {
		return nil, errBadAuthHeader
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(headerParts[1], claims, func(token *jwt.Token) (interface{}, error) {
		return h.jwtKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

var (
	errMissingToken  = errors.New("missing authorization header")
	errBadAuthHeader = errors.New("malformed authorization header")
)

// AuthMiddleware пропускает запрос только с валидным токеном и кладёт claims в контекст.
func (h *ApiHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.parseBearer(r)
		switch {
		case err == nil:
		case errors.Is(err, errMissingToken):
			respondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		case errors.Is(err, errBadAuthHeader):
			respondWithError(w, http.StatusUnauthorized, "Invalid Authorization header format")
			return
		case errors.Is(err, jwt.ErrTokenExpired):
			respondWithError(w, http.StatusUnauthorized, "Token has expired")
			return
		default:
			respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ContextClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin ставится после AuthMiddleware: все изменения контента и удаления - только для админов.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}
		if claims.Role != models.RoleAdmin {
			respondWithError(w, http.StatusForbidden, "Only admins can perform this action")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger присваивает запросу id (или берёт X-Request-ID клиента) и пишет строку в лог.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := context.WithValue(r.Context(), ContextRequestIDKey, id)
		next.ServeHTTP(rec, r.WithContext(ctx))

		log.Printf("[%s] %s %s %s %d %v", id, r.RemoteAddr, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
