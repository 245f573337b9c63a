package api

import (
	"fmt"
	"net/http"

	"fcc-clone/internal/database"
	"fcc-clone/internal/models"
)

type courseRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

// AddCourse (только админ)
func (h *ApiHandler) AddCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Language == "" {
		req.Language = "General"
	}

	ctx, cancel := h.dbContext(r)
	defer cancel()

	var id int
	err := h.DB.QueryRowContext(ctx,
		"INSERT INTO courses (title, description, language) VALUES ($1, $2, $3) RETURNING id",
		req.Title, req.Description, req.Language,
	).Scan(&id)
	if err != nil {
		writeError(w, r, "add course", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{"message": "Course added successfully", "course_id": id})
}

// GetCourses - все курсы
func (h *ApiHandler) GetCourses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.dbContext(r)
	defer cancel()

	rows, err := h.DB.QueryContext(ctx, "SELECT id, title, description, language FROM courses ORDER BY id")
	if err != nil {
		writeError(w, r, "list courses", err)
		return
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Language); err != nil {
			writeError(w, r, "scan course", err)
			return
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		writeError(w, r, "list courses", err)
		return
	}
	respondWithJSON(w, http.StatusOK, courses)
}

type lessonRequest struct {
	CourseID   int    `json:"course_id" validate:"required,gt=0"`
	Title      string `json:"title" validate:"required"`
	VideoURL   string `json:"video_url" validate:"omitempty,max=2048"`
	LessonText string `json:"lesson_text"`
}

// AddLesson (только админ)
func (h *ApiHandler) AddLesson(w http.ResponseWriter, r *http.Request) {
	var req lessonRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := h.dbContext(r)
	defer cancel()

	var id int
	err := h.DB.QueryRowContext(ctx,
		"INSERT INTO lessons (course_id, title, video_url, lesson_text) VALUES ($1, $2, $3, $4) RETURNING id",
		req.CourseID, req.Title, req.VideoURL, req.LessonText,
	).Scan(&id)
	if database.IsForeignKeyViolation(err) {
		respondWithError(w, http.StatusNotFound, "Course not found")
		return
	}
	if err != nil {
		writeError(w, r, "add lesson", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{"message": "Lesson added successfully", "lesson_id": id})
}

// GetLessonsByCourse - уроки курса
func (h *ApiHandler) GetLessonsByCourse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "course_id")
	if !ok {
		return
	}

	ctx, cancel := h.dbContext(r)
	defer cancel()

	rows, err := h.DB.QueryContext(ctx,
		"SELECT id, course_id, title, video_url, lesson_text FROM lessons WHERE course_id = $1 ORDER BY id", courseID)
	if err != nil {
		writeError(w, r, "list lessons", err)
		return
	}
	defer rows.Close()

	lessons := []models.Lesson{}
	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.VideoURL, &l.LessonText); err != nil {
			writeError(w, r, "scan lesson", err)
			return
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		writeError(w, r, "list lessons", err)
		return
	}
	respondWithJSON(w, http.StatusOK, lessons)
}

// DeleteCourse (только админ) - каскадно, повторный вызов не ошибка
func (h *ApiHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "course_id")
	if !ok {
		return
	}
	if err := h.Cascade.DeleteCourse(r.Context(), courseID); err != nil {
		writeError(w, r, "delete course", err)
		return
	}
	respondWithMessage(w, http.StatusOK, fmt.Sprintf("Course %d and related data deleted", courseID))
}

// DeleteLesson (только админ) - каскадно, повторный вызов не ошибка
func (h *ApiHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := pathID(w, r, "lesson_id")
	if !ok {
		return
	}
	if err := h.Cascade.DeleteLesson(r.Context(), lessonID); err != nil {
		writeError(w, r, "delete lesson", err)
		return
	}
	respondWithMessage(w, http.StatusOK, fmt.Sprintf("Lesson %d and its related data deleted", lessonID))
}
