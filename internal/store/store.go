// Package store содержит общие запросы-поиски, которыми пользуются
// движок начисления очков, каскадное удаление и обработчики.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound - строка не найдена.
var ErrNotFound = errors.New("not found")

// Querier реализуют и *sql.DB, и *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserRef - то, что ядру нужно знать о пользователе.
type UserRef struct {
	ID   int
	Role string
}

// QuestionRef - то, что ядру нужно знать о вопросе.
type QuestionRef struct {
	ID              int
	LessonID        int
	CorrectAnswerID sql.NullInt64
}

// UserByUsername ищет пользователя по имени.
func UserByUsername(ctx context.Context, q Querier, username string) (UserRef, error) {
	var u UserRef
	err := q.QueryRowContext(ctx, "SELECT id, role FROM users WHERE username = $1", username).Scan(&u.ID, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRef{}, ErrNotFound
	}
	if err != nil {
		return UserRef{}, fmt.Errorf("lookup user %q: %w", username, err)
	}
	return u, nil
}

// QuestionByID ищет вопрос и его правильный ответ.
func QuestionByID(ctx context.Context, q Querier, id int) (QuestionRef, error) {
	qr := QuestionRef{ID: id}
	err := q.QueryRowContext(ctx, "SELECT lesson_id, correct_answer_id FROM questions WHERE id = $1", id).
		Scan(&qr.LessonID, &qr.CorrectAnswerID)
	if errors.Is(err, sql.ErrNoRows) {
		return QuestionRef{}, ErrNotFound
	}
	if err != nil {
		return QuestionRef{}, fmt.Errorf("lookup question %d: %w", id, err)
	}
	return qr, nil
}

// LessonIDsByCourse перечисляет уроки курса.
func LessonIDsByCourse(ctx context.Context, q Querier, courseID int) ([]int, error) {
	return ids(ctx, q, "SELECT id FROM lessons WHERE course_id = $1 ORDER BY id", courseID)
}

// QuestionIDsByLesson перечисляет вопросы урока.
func QuestionIDsByLesson(ctx context.Context, q Querier, lessonID int) ([]int, error) {
	return ids(ctx, q, "SELECT id FROM questions WHERE lesson_id = $1 ORDER BY id", lessonID)
}

func ids(ctx context.Context, q Querier, query string, arg int) ([]int, error) {
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
