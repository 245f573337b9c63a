package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"fcc-clone/internal/database"
	"fcc-clone/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

// Claims - данные внутри JWT-токена
type Claims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// issueToken подписывает токен для пользователя
func (h *ApiHandler) issueToken(userID int, username, role string) (string, error) {
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtKey)
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=student admin"`
}

const adminBootstrapLockID int64 = 7310022

var errAdminExists = errors.New("admin already exists")

// RegisterUser создаёт пользователя. Админа может создать только админ;
// исключение - самый первый админ, пока в системе нет ни одного.
func (h *ApiHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = models.RoleStudent
	}

	// первого админа может создать кто угодно, дальше нужен токен админа
	bootstrap := false
	if req.Role == models.RoleAdmin {
		claims, err := h.parseBearer(r)
		bootstrap = err != nil || claims.Role != models.RoleAdmin
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	ctx, cancel := h.dbContext(r)
	defer cancel()

	err = database.WithTx(ctx, h.DB, func(tx *sql.Tx) error {
		if bootstrap {
			// одновременные регистрации первого админа проверяются по очереди
			if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", adminBootstrapLockID); err != nil {
				return err
			}
			var hasAdmin bool
			if err := tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE role = 'admin')").Scan(&hasAdmin); err != nil {
				return err
			}
			if hasAdmin {
				return errAdminExists
			}
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3)",
			req.Username, string(hashedPassword), req.Role,
		)
		return err
	})
	if errors.Is(err, errAdminExists) {
		respondWithError(w, http.StatusForbidden, "Only admins can create admin accounts")
		return
	}
	if database.IsUniqueViolation(err) {
		respondWithError(w, http.StatusConflict, "Username already exists")
		return
	}
	if err != nil {
		writeError(w, r, "register", err)
		return
	}

	respondWithMessage(w, http.StatusCreated, "User registered successfully!")
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginUser проверяет пароль и выдаёт токен
func (h *ApiHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := h.dbContext(r)
	defer cancel()

	var (
		userID       int
		role         string
		passwordHash string
	)
	err := h.DB.QueryRowContext(ctx,
		"SELECT id, role, password_hash FROM users WHERE username = $1", req.Username,
	).Scan(&userID, &role, &passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		respondWithError(w, http.StatusNotFound, "Username does not exist.")
		return
	}
	if err != nil {
		writeError(w, r, "login", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		respondWithError(w, http.StatusUnauthorized, "Incorrect password.")
		return
	}

	token, err := h.issueToken(userID, req.Username, role)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create token")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Login successful!",
		"token":   token,
		"role":    role,
	})
}

// AllUsers - список пользователей с ролями и очками
func (h *ApiHandler) AllUsers(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, "SELECT username, role, total_points FROM users ORDER BY username", true)
}

// Leaderboard - пользователи по убыванию очков
func (h *ApiHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, "SELECT username, role, total_points FROM users ORDER BY total_points DESC, username", false)
}

func (h *ApiHandler) listUsers(w http.ResponseWriter, r *http.Request, query string, withRole bool) {
	ctx, cancel := h.dbContext(r)
	defer cancel()

	rows, err := h.DB.QueryContext(ctx, query)
	if err != nil {
		writeError(w, r, "list users", err)
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.Username, &u.Role, &u.TotalPoints); err != nil {
			writeError(w, r, "scan user", err)
			return
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		writeError(w, r, "list users", err)
		return
	}

	if withRole {
		respondWithJSON(w, http.StatusOK, users)
		return
	}
	board := make([]models.LeaderboardEntry, len(users))
	for i, u := range users {
		board[i] = models.LeaderboardEntry{Username: u.Username, TotalPoints: u.TotalPoints}
	}
	respondWithJSON(w, http.StatusOK, board)
}

// UserRole возвращает роль пользователя
func (h *ApiHandler) UserRole(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.dbContext(r)
	defer cancel()

	var role string
	err := h.DB.QueryRowContext(ctx, "SELECT role FROM users WHERE username = $1", mux.Vars(r)["username"]).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(w, r, "user role", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"role": role})
}

// UserPoints возвращает очки пользователя (0 для неизвестного имени)
func (h *ApiHandler) UserPoints(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.dbContext(r)
	defer cancel()

	var points int
	err := h.DB.QueryRowContext(ctx, "SELECT total_points FROM users WHERE username = $1", mux.Vars(r)["username"]).Scan(&points)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		writeError(w, r, "user points", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"total_points": points})
}

// UserProfile - имя и полное имя
func (h *ApiHandler) UserProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.dbContext(r)
	defer cancel()

	var u models.User
	err := h.DB.QueryRowContext(ctx, "SELECT username, full_name FROM users WHERE username = $1", mux.Vars(r)["username"]).
		Scan(&u.Username, &u.FullName)
	if errors.Is(err, sql.ErrNoRows) {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(w, r, "user profile", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"username": u.Username, "full_name": u.FullName})
}

type updateProfileRequest struct {
	CurrentUsername string `json:"current_username" validate:"required"`
	NewUsername     string `json:"new_username" validate:"omitempty,max=64"`
	FullName        string `json:"full_name"`
}

// UpdateProfile меняет имя пользователя и/или полное имя
func (h *ApiHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	newUsername := req.NewUsername
	if newUsername == "" {
		newUsername = req.CurrentUsername
	}

	ctx, cancel := h.dbContext(r)
	defer cancel()

	res, err := h.DB.ExecContext(ctx,
		"UPDATE users SET username = $1, full_name = $2 WHERE username = $3",
		newUsername, req.FullName, req.CurrentUsername,
	)
	if database.IsUniqueViolation(err) {
		respondWithError(w, http.StatusConflict, "New username is already taken")
		return
	}
	if err != nil {
		writeError(w, r, "update profile", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	respondWithMessage(w, http.StatusOK, "Profile updated!")
}

type changePasswordRequest struct {
	Username    string `json:"username" validate:"required"`
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// ChangePassword меняет пароль после проверки старого
func (h *ApiHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := h.dbContext(r)
	defer cancel()

	var storedHash string
	err := h.DB.QueryRowContext(ctx, "SELECT password_hash FROM users WHERE username = $1", req.Username).Scan(&storedHash)
	if errors.Is(err, sql.ErrNoRows) {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(w, r, "change password", err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(req.OldPassword)); err != nil {
		respondWithError(w, http.StatusForbidden, "Old password is incorrect")
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	// сравниваем со старым хэшем, чтобы не затереть параллельную смену пароля
	res, err := h.DB.ExecContext(ctx,
		"UPDATE users SET password_hash = $1 WHERE username = $2 AND password_hash = $3",
		string(newHash), req.Username, storedHash,
	)
	if err != nil {
		writeError(w, r, "change password", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		respondWithError(w, http.StatusConflict, "Password was changed concurrently, please retry")
		return
	}
	respondWithMessage(w, http.StatusOK, "Password changed successfully!")
}

// DeleteUser (только админ) удаляет пользователя вместе с его попытками и прогрессом
func (h *ApiHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	target := mux.Vars(r)["username"]
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authorization header required")
		return
	}
	if claims.Username == target {
		respondWithError(w, http.StatusForbidden, "You cannot delete yourself")
		return
	}

	deleted, err := h.Cascade.DeleteUser(r.Context(), target)
	if err != nil {
		writeError(w, r, "delete user", err)
		return
	}
	if deleted {
		log.Printf("[%s] user %q deleted by %q", RequestID(r.Context()), target, claims.Username)
	}
	respondWithMessage(w, http.StatusOK, fmt.Sprintf("User '%s' has been deleted.", target))
}
