package api

import (
	"net/http"

	"fcc-clone/internal/database"
	"fcc-clone/internal/models"
)

type commentRequest struct {
	LessonID int    `json:"lesson_id" validate:"required,gt=0"`
	Username string `json:"username" validate:"required"`
	Text     string `json:"text" validate:"required,max=5000"`
}

// PostComment добавляет комментарий к уроку; время ставит база
func (h *ApiHandler) PostComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := h.dbContext(r)
	defer cancel()

	_, err := h.DB.ExecContext(ctx,
		"INSERT INTO comments (lesson_id, username, text) VALUES ($1, $2, $3)",
		req.LessonID, req.Username, req.Text,
	)
	if database.IsForeignKeyViolation(err) {
		respondWithError(w, http.StatusNotFound, "Lesson not found")
		return
	}
	if err != nil {
		writeError(w, r, "post comment", err)
		return
	}
	respondWithMessage(w, http.StatusCreated, "Comment added successfully")
}

// GetComments - комментарии урока, новые сверху
func (h *ApiHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := pathID(w, r, "lesson_id")
	if !ok {
		return
	}

	ctx, cancel := h.dbContext(r)
	defer cancel()

	rows, err := h.DB.QueryContext(ctx,
		"SELECT id, lesson_id, username, text, timestamp FROM comments WHERE lesson_id = $1 ORDER BY timestamp DESC, id DESC",
		lessonID)
	if err != nil {
		writeError(w, r, "list comments", err)
		return
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.LessonID, &c.Username, &c.Text, &c.Timestamp); err != nil {
			writeError(w, r, "scan comment", err)
			return
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		writeError(w, r, "list comments", err)
		return
	}
	respondWithJSON(w, http.StatusOK, comments)
}
