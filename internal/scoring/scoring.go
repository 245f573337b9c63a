// Package scoring принимает ответы на вопросы, считает попытки и начисляет очки.
package scoring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fcc-clone/internal/database"
	"fcc-clone/internal/store"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrQuestionNotFound = errors.New("question not found")
)

const (
	MsgCorrect         = "Correct answer!"
	MsgIncorrect       = "Incorrect. Try again."
	MsgAlreadyAnswered = "Already answered correctly"
)

// pointsSchedule[n-1] - очки за правильный ответ с n-й попытки; дальше 0.
var pointsSchedule = []int{10, 7, 5}

// PointsForAttempt возвращает очки за правильный ответ, данный с попытки attempt (с 1).
func PointsForAttempt(attempt int) int {
	if attempt < 1 || attempt > len(pointsSchedule) {
		return 0
	}
	return pointsSchedule[attempt-1]
}

// Result - итог одной отправки ответа.
type Result struct {
	Correct         bool
	AlreadyAnswered bool
	Attempts        int
	PointsAwarded   int
	Message         string
}

// Engine обрабатывает отправки ответов. Каждая отправка - одна транзакция.
type Engine struct {
	db      *sql.DB
	timeout time.Duration
}

func NewEngine(db *sql.DB, timeout time.Duration) *Engine {
	return &Engine{db: db, timeout: timeout}
}

// см. database/schema.go
const userFKConstraint = "user_attempts_user_id_fkey"

// Вставка или инкремент одним оператором. Блокировка строки держится до конца
// транзакции, поэтому параллельные отправки одной пары (user, question) идут по очереди.
// Если ответ уже засчитан, WHERE не пропускает обновление и RETURNING ничего не отдаёт.
const bumpAttemptSQL = `
	INSERT INTO user_attempts (user_id, question_id, attempts, is_correct)
	VALUES ($1, $2, 1, FALSE)
	ON CONFLICT (user_id, question_id)
	DO UPDATE SET attempts = user_attempts.attempts + 1
	WHERE user_attempts.is_correct = FALSE
	RETURNING attempts`

// SubmitAnswer засчитывает ответ answerID пользователя username на вопрос questionID.
func (e *Engine) SubmitAnswer(ctx context.Context, username string, questionID, answerID int) (Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var res Result
	err := database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		user, err := store.UserByUsername(ctx, tx, username)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		question, err := store.QuestionByID(ctx, tx, questionID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrQuestionNotFound
		}
		if err != nil {
			return err
		}

		var attempts int
		err = tx.QueryRowContext(ctx, bumpAttemptSQL, user.ID, questionID).Scan(&attempts)
		if errors.Is(err, sql.ErrNoRows) {
			res = Result{Correct: true, AlreadyAnswered: true, Message: MsgAlreadyAnswered}
			return nil
		}
		// вопрос или пользователь удалены параллельным каскадом
		if database.IsForeignKeyViolation(err) {
			if database.ViolatedConstraint(err) == userFKConstraint {
				return ErrUserNotFound
			}
			return ErrQuestionNotFound
		}
		if err != nil {
			return fmt.Errorf("record attempt: %w", err)
		}

		if !question.CorrectAnswerID.Valid || int(question.CorrectAnswerID.Int64) != answerID {
			res = Result{Correct: false, Attempts: attempts, Message: MsgIncorrect}
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE user_attempts SET is_correct = TRUE WHERE user_id = $1 AND question_id = $2",
			user.ID, questionID,
		); err != nil {
			return fmt.Errorf("mark attempt correct: %w", err)
		}

		points := PointsForAttempt(attempts)
		if points > 0 {
			if _, err := tx.ExecContext(ctx,
				"UPDATE users SET total_points = total_points + $1 WHERE id = $2",
				points, user.ID,
			); err != nil {
				return fmt.Errorf("credit points: %w", err)
			}
		}

		res = Result{Correct: true, Attempts: attempts, PointsAwarded: points, Message: MsgCorrect}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}
