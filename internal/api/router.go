package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter регистрирует все маршруты. Создание контента и любые удаления
// закрыты AuthMiddleware + RequireAdmin; остальное открыто.
func NewRouter(h *ApiHandler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", h.Home).Methods("GET")

	// --- 1. Пользователи ---
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", h.RegisterUser).Methods("POST")
	auth.HandleFunc("/login", h.LoginUser).Methods("POST")
	auth.HandleFunc("/all-users", h.AllUsers).Methods("GET")
	auth.HandleFunc("/leaderboard", h.Leaderboard).Methods("GET")
	auth.HandleFunc("/role/{username}", h.UserRole).Methods("GET")
	auth.HandleFunc("/points/{username}", h.UserPoints).Methods("GET")
	auth.HandleFunc("/user-attempts/{username}", h.GetUserAttempts).Methods("GET")
	auth.HandleFunc("/user/{username}", h.UserProfile).Methods("GET")
	auth.HandleFunc("/update-profile", h.UpdateProfile).Methods("PUT")
	auth.HandleFunc("/change-password", h.ChangePassword).Methods("PUT")

	// --- 2. Открытые маршруты контента и квизов ---
	r.HandleFunc("/courses", h.GetCourses).Methods("GET")
	r.HandleFunc("/courses/{course_id:[0-9]+}/lessons", h.GetLessonsByCourse).Methods("GET")
	r.HandleFunc("/questions/{question_id:[0-9]+}/answers", h.GetAnswersForQuestion).Methods("GET")
	r.HandleFunc("/quiz/{lesson_id:[0-9]+}", h.GetQuizByLesson).Methods("GET")
	r.HandleFunc("/user-progress/{username}", h.GetUserProgress).Methods("GET")
	r.HandleFunc("/submit-answer", h.SubmitAnswer).Methods("POST")
	r.HandleFunc("/comments", h.PostComment).Methods("POST")
	r.HandleFunc("/comments/{lesson_id:[0-9]+}", h.GetComments).Methods("GET")

	// --- 3. Только для админов ---
	admin := r.NewRoute().Subrouter()
	admin.Use(h.AuthMiddleware, RequireAdmin)
	admin.HandleFunc("/courses", h.AddCourse).Methods("POST")
	admin.HandleFunc("/lessons", h.AddLesson).Methods("POST")
	admin.HandleFunc("/questions", h.AddQuestion).Methods("POST")
	admin.HandleFunc("/answers", h.AddAnswers).Methods("POST")
	admin.HandleFunc("/courses/{course_id:[0-9]+}", h.DeleteCourse).Methods("DELETE")
	admin.HandleFunc("/lessons/{lesson_id:[0-9]+}", h.DeleteLesson).Methods("DELETE")
	admin.HandleFunc("/questions/{question_id:[0-9]+}/delete", h.DeleteQuestion).Methods("DELETE")
	admin.HandleFunc("/auth/delete-user/{username}", h.DeleteUser).Methods("DELETE")

	return r
}

// NewServerHandler - роутер, обёрнутый логированием запросов и CORS
func NewServerHandler(h *ApiHandler, allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	})
	return c.Handler(RequestLogger(NewRouter(h)))
}
