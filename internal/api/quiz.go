package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"fcc-clone/internal/database"
	"fcc-clone/internal/models"
	"fcc-clone/internal/store"

	"github.com/gorilla/mux"
)

type questionRequest struct {
	LessonID     int    `json:"lesson_id" validate:"required,gt=0"`
	QuestionText string `json:"question_text" validate:"required"`
}

// AddQuestion (только админ). Правильный ответ задаётся позже через AddAnswers.
func (h *ApiHandler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := h.dbContext(r)
	defer cancel()

	var id int
	err := h.DB.QueryRowContext(ctx,
		"INSERT INTO questions (lesson_id, question_text) VALUES ($1, $2) RETURNING id",
		req.LessonID, req.QuestionText,
	).Scan(&id)
	if database.IsForeignKeyViolation(err) {
		respondWithError(w, http.StatusNotFound, "Lesson not found")
		return
	}
	if err != nil {
		writeError(w, r, "add question", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{"message": "Question added", "question_id": id})
}

type answerInput struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type answersRequest struct {
	QuestionID int           `json:"question_id" validate:"required,gt=0"`
	Answers    []answerInput `json:"answers" validate:"required,min=1,dive"`
}

var errQuestionMissing = errors.New("question missing")

// AddAnswers (только админ) добавляет варианты ответа. Ровно один из них должен быть
// правильным; вопрос начинает указывать на него в той же транзакции.
func (h *ApiHandler) AddAnswers(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	correct := 0
	for _, a := range req.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		respondWithError(w, http.StatusBadRequest, "Exactly one answer must be marked correct")
		return
	}

	ctx, cancel := h.dbContext(r)
	defer cancel()

	err := database.WithTx(ctx, h.DB, func(tx *sql.Tx) error {
		var locked int
		err := tx.QueryRowContext(ctx, "SELECT id FROM questions WHERE id = $1 FOR UPDATE", req.QuestionID).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return errQuestionMissing
		}
		if err != nil {
			return err
		}

		var correctID int
		for _, a := range req.Answers {
			var id int
			if err := tx.QueryRowContext(ctx,
				"INSERT INTO answers (question_id, answer_text) VALUES ($1, $2) RETURNING id",
				req.QuestionID, a.Text,
			).Scan(&id); err != nil {
				return err
			}
			if a.IsCorrect {
				correctID = id
			}
		}
		_, err = tx.ExecContext(ctx, "UPDATE questions SET correct_answer_id = $1 WHERE id = $2", correctID, req.QuestionID)
		return err
	})
	if errors.Is(err, errQuestionMissing) {
		respondWithError(w, http.StatusNotFound, "Question not found")
		return
	}
	if err != nil {
		writeError(w, r, "add answers", err)
		return
	}
	respondWithMessage(w, http.StatusCreated, "Answers added")
}

type submitAnswerRequest struct {
	Username   string `json:"username" validate:"required"`
	QuestionID int    `json:"question_id" validate:"required,gt=0"`
	AnswerID   int    `json:"answer_id" validate:"required,gt=0"`
}

// SubmitAnswer засчитывает ответ и начисляет очки
func (h *ApiHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.Scoring.SubmitAnswer(r.Context(), req.Username, req.QuestionID, req.AnswerID)
	if err != nil {
		writeError(w, r, "submit answer", err)
		return
	}

	switch {
	case res.AlreadyAnswered:
		respondWithJSON(w, http.StatusOK, map[string]any{"correct": true, "message": res.Message})
	case res.Correct:
		respondWithJSON(w, http.StatusOK, map[string]any{
			"correct":        true,
			"message":        res.Message,
			"points_awarded": res.PointsAwarded,
		})
	default:
		respondWithJSON(w, http.StatusOK, map[string]any{
			"correct":  false,
			"message":  res.Message,
			"attempts": res.Attempts,
		})
	}
}

// GetAnswersForQuestion - варианты ответа без отметки правильного
func (h *ApiHandler) GetAnswersForQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathID(w, r, "question_id")
	if !ok {
		return
	}

	ctx, cancel := h.dbContext(r)
	defer cancel()

	answers, err := answersOf(ctx, h.DB, questionID)
	if err != nil {
		writeError(w, r, "list answers", err)
		return
	}
	respondWithJSON(w, http.StatusOK, answers)
}

func answersOf(ctx context.Context, q store.Querier, questionID int) ([]models.Answer, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, answer_text FROM answers WHERE question_id = $1 ORDER BY id", questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []models.Answer{}
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.Text); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// GetQuizByLesson - вопросы урока вместе с вариантами ответа, одним запросом
func (h *ApiHandler) GetQuizByLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := pathID(w, r, "lesson_id")
	if !ok {
		return
	}

	ctx, cancel := h.dbContext(r)
	defer cancel()

	sqlQuery := `
		SELECT q.id, q.question_text, a.id, a.answer_text
		FROM questions q
		LEFT JOIN answers a ON a.question_id = q.id
		WHERE q.lesson_id = $1
		ORDER BY q.id, a.id`

	rows, err := h.DB.QueryContext(ctx, sqlQuery, lessonID)
	if err != nil {
		writeError(w, r, "quiz", err)
		return
	}
	defer rows.Close()

	quiz := []models.Question{}
	for rows.Next() {
		var (
			qid        int
			text       string
			answerID   sql.NullInt64
			answerText sql.NullString
		)
		if err := rows.Scan(&qid, &text, &answerID, &answerText); err != nil {
			writeError(w, r, "scan quiz", err)
			return
		}
		if len(quiz) == 0 || quiz[len(quiz)-1].ID != qid {
			quiz = append(quiz, models.Question{ID: qid, LessonID: lessonID, Text: text, Answers: []models.Answer{}})
		}
		if answerID.Valid {
			last := &quiz[len(quiz)-1]
			last.Answers = append(last.Answers, models.Answer{ID: int(answerID.Int64), Text: answerText.String})
		}
	}
	if err := rows.Err(); err != nil {
		writeError(w, r, "quiz", err)
		return
	}
	respondWithJSON(w, http.StatusOK, quiz)
}

// GetUserAttempts - попытки пользователя по всем вопросам ([] для неизвестного имени)
func (h *ApiHandler) GetUserAttempts(w http.ResponseWriter, r *http.Request) {
	h.listAttempts(w, r, `
		SELECT ua.question_id, ua.attempts, ua.is_correct, ''
		FROM user_attempts ua
		JOIN users u ON u.id = ua.user_id
		WHERE u.username = $1
		ORDER BY ua.question_id`)
}

// GetUserProgress - то же, с названием урока
func (h *ApiHandler) GetUserProgress(w http.ResponseWriter, r *http.Request) {
	h.listAttempts(w, r, `
		SELECT ua.question_id, ua.attempts, ua.is_correct, l.title
		FROM user_attempts ua
		JOIN users u ON u.id = ua.user_id
		JOIN questions q ON q.id = ua.question_id
		JOIN lessons l ON l.id = q.lesson_id
		WHERE u.username = $1
		ORDER BY ua.question_id`)
}

func (h *ApiHandler) listAttempts(w http.ResponseWriter, r *http.Request, query string) {
	ctx, cancel := h.dbContext(r)
	defer cancel()

	rows, err := h.DB.QueryContext(ctx, query, mux.Vars(r)["username"])
	if err != nil {
		writeError(w, r, "list attempts", err)
		return
	}
	defer rows.Close()

	attempts := []models.UserAttempt{}
	for rows.Next() {
		var a models.UserAttempt
		if err := rows.Scan(&a.QuestionID, &a.Attempts, &a.IsCorrect, &a.LessonTitle); err != nil {
			writeError(w, r, "scan attempt", err)
			return
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		writeError(w, r, "list attempts", err)
		return
	}
	respondWithJSON(w, http.StatusOK, attempts)
}

// DeleteQuestion (только админ) - вместе с ответами и попытками
func (h *ApiHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathID(w, r, "question_id")
	if !ok {
		return
	}
	if err := h.Cascade.DeleteQuestion(r.Context(), questionID); err != nil {
		writeError(w, r, "delete question", err)
		return
	}
	respondWithMessage(w, http.StatusOK, "Question deleted successfully!")
}
