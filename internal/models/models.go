package models

import "time"

// Роли пользователей
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User - публичное представление пользователя (без хэша пароля)
type User struct {
	ID          int    `json:"id,omitempty"`
	Username    string `json:"username"`
	FullName    string `json:"full_name,omitempty"`
	Role        string `json:"role"`
	TotalPoints int    `json:"total_points"`
}

// Course - курс, владеет уроками
type Course struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

// Lesson принадлежит ровно одному курсу
type Lesson struct {
	ID         int    `json:"id"`
	CourseID   int    `json:"course_id"`
	Title      string `json:"title"`
	VideoURL   string `json:"video_url"`
	LessonText string `json:"lesson_text"`
}

// Question - вопрос урока с вариантами ответа. Правильный ответ наружу не отдаётся.
type Question struct {
	ID       int      `json:"id"`
	LessonID int      `json:"lesson_id"`
	Text     string   `json:"question"`
	Answers  []Answer `json:"answers"`
}

// Answer - вариант ответа. Правильный ответ клиенту не раскрывается.
type Answer struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// UserAttempt - попытки пользователя по одному вопросу.
type UserAttempt struct {
	QuestionID  int    `json:"question_id"`
	Attempts    int    `json:"attempts"`
	IsCorrect   bool   `json:"is_correct"`
	LessonTitle string `json:"lesson_title,omitempty"`
}

// Comment к уроку; время ставит сервер
type Comment struct {
	ID        int       `json:"id"`
	LessonID  int       `json:"lesson_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// LeaderboardEntry - строка таблицы лидеров
type LeaderboardEntry struct {
	Username    string `json:"username"`
	TotalPoints int    `json:"total_points"`
}
