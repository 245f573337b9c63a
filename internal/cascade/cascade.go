// Package cascade удаляет курсы, уроки, вопросы и пользователей вместе со всеми
// зависимыми строками, в порядке, безопасном для внешних ключей.
//
// Каждый вызов Coordinator - одна транзакция: либо удалено всё, либо ничего.
// Удаление несуществующего id - не ошибка.
package cascade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fcc-clone/internal/database"
	"fcc-clone/internal/store"
)

type Coordinator struct {
	db      *sql.DB
	timeout time.Duration
}

func NewCoordinator(db *sql.DB, timeout time.Duration) *Coordinator {
	return &Coordinator{db: db, timeout: timeout}
}

func (c *Coordinator) run(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return database.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		return fn(ctx, tx)
	})
}

// DeleteCourse удаляет курс, все его уроки и всё, что к ним привязано.
func (c *Coordinator) DeleteCourse(ctx context.Context, courseID int) error {
	return c.run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return DeleteCourseTx(ctx, tx, courseID)
	})
}

// DeleteLesson удаляет урок с вопросами, прогрессом, очками и комментариями.
func (c *Coordinator) DeleteLesson(ctx context.Context, lessonID int) error {
	return c.run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return DeleteLessonTx(ctx, tx, lessonID)
	})
}

// DeleteQuestion удаляет вопрос с ответами и попытками.
func (c *Coordinator) DeleteQuestion(ctx context.Context, questionID int) error {
	return c.run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return DeleteQuestionTx(ctx, tx, questionID)
	})
}

// DeleteUser удаляет пользователя и его попытки, прогресс и очки.
// Комментарии хранят имя автора текстом и остаются.
func (c *Coordinator) DeleteUser(ctx context.Context, username string) (deleted bool, err error) {
	err = c.run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		deleted, err = DeleteUserTx(ctx, tx, username)
		return err
	})
	return deleted, err
}

// DeleteCourseTx - то же, что DeleteCourse, внутри чужой транзакции.
func DeleteCourseTx(ctx context.Context, q store.Querier, courseID int) error {
	lessonIDs, err := store.LessonIDsByCourse(ctx, q, courseID)
	if err != nil {
		return fmt.Errorf("list lessons of course %d: %w", courseID, err)
	}
	for _, id := range lessonIDs {
		if err := DeleteLessonTx(ctx, q, id); err != nil {
			return err
		}
	}
	return exec(ctx, q, "DELETE FROM courses WHERE id = $1", courseID)
}

// DeleteLessonTx - то же, что DeleteLesson, внутри чужой транзакции.
func DeleteLessonTx(ctx context.Context, q store.Querier, lessonID int) error {
	questionIDs, err := store.QuestionIDsByLesson(ctx, q, lessonID)
	if err != nil {
		return fmt.Errorf("list questions of lesson %d: %w", lessonID, err)
	}
	for _, id := range questionIDs {
		if err := DeleteQuestionTx(ctx, q, id); err != nil {
			return err
		}
	}
	for _, stmt := range []string{
		"DELETE FROM user_progress WHERE lesson_id = $1",
		"DELETE FROM user_points WHERE lesson_id = $1",
		"DELETE FROM comments WHERE lesson_id = $1",
		"DELETE FROM lessons WHERE id = $1",
	} {
		if err := exec(ctx, q, stmt, lessonID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteQuestionTx - то же, что DeleteQuestion, внутри чужой транзакции.
func DeleteQuestionTx(ctx context.Context, q store.Querier, questionID int) error {
	for _, stmt := range []string{
		"DELETE FROM answers WHERE question_id = $1",
		"DELETE FROM user_attempts WHERE question_id = $1",
		"DELETE FROM questions WHERE id = $1",
	} {
		if err := exec(ctx, q, stmt, questionID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteUserTx - то же, что DeleteUser, внутри чужой транзакции.
func DeleteUserTx(ctx context.Context, q store.Querier, username string) (bool, error) {
	var userID int
	err := q.QueryRowContext(ctx, "SELECT id FROM users WHERE username = $1 FOR UPDATE", username).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup user %q: %w", username, err)
	}
	for _, stmt := range []string{
		"DELETE FROM user_attempts WHERE user_id = $1",
		"DELETE FROM user_progress WHERE user_id = $1",
		"DELETE FROM user_points WHERE user_id = $1",
		"DELETE FROM users WHERE id = $1",
	} {
		if err := exec(ctx, q, stmt, userID); err != nil {
			return false, err
		}
	}
	return true, nil
}

func exec(ctx context.Context, q store.Querier, stmt string, id int) error {
	if _, err := q.ExecContext(ctx, stmt, id); err != nil {
		return fmt.Errorf("%s [%d]: %w", stmt, id, err)
	}
	return nil
}
