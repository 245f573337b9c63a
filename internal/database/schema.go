package database

import (
	"context"
	"database/sql"
	"fmt"
)

const migrateLockID int64 = 7310021

// Порядок важен: таблицы создаются после тех, на которые ссылаются.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            SERIAL PRIMARY KEY,
		username      TEXT UNIQUE NOT NULL,
		full_name     TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('student', 'admin')),
		total_points  INTEGER NOT NULL DEFAULT 0 CHECK (total_points >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id          SERIAL PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		language    TEXT NOT NULL DEFAULT 'General'
	)`,
	`CREATE TABLE IF NOT EXISTS lessons (
		id          SERIAL PRIMARY KEY,
		course_id   INTEGER NOT NULL REFERENCES courses(id),
		title       TEXT NOT NULL,
		video_url   TEXT NOT NULL DEFAULT '',
		lesson_text TEXT NOT NULL DEFAULT ''
	)`,
	// correct_answer_id без FK: answers ссылается на questions, указатель ставится после вставки ответов
	`CREATE TABLE IF NOT EXISTS questions (
		id                SERIAL PRIMARY KEY,
		lesson_id         INTEGER NOT NULL REFERENCES lessons(id),
		question_text     TEXT NOT NULL,
		correct_answer_id INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS answers (
		id          SERIAL PRIMARY KEY,
		question_id INTEGER NOT NULL REFERENCES questions(id),
		answer_text TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_progress (
		user_id      INTEGER NOT NULL REFERENCES users(id),
		lesson_id    INTEGER NOT NULL REFERENCES lessons(id),
		is_completed BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS user_points (
		user_id   INTEGER NOT NULL REFERENCES users(id),
		lesson_id INTEGER NOT NULL REFERENCES lessons(id),
		points    INTEGER NOT NULL DEFAULT 0,
		badge     TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS user_attempts (
		user_id     INTEGER NOT NULL CONSTRAINT user_attempts_user_id_fkey REFERENCES users(id),
		question_id INTEGER NOT NULL CONSTRAINT user_attempts_question_id_fkey REFERENCES questions(id),
		attempts    INTEGER NOT NULL CHECK (attempts >= 1),
		is_correct  BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (user_id, question_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id        SERIAL PRIMARY KEY,
		lesson_id INTEGER NOT NULL REFERENCES lessons(id),
		username  TEXT NOT NULL,
		text      TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lessons_course_id ON lessons (course_id)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_lesson_id ON questions (lesson_id)`,
	`CREATE INDEX IF NOT EXISTS idx_answers_question_id ON answers (question_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_attempts_question_id ON user_attempts (question_id)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_lesson_id ON comments (lesson_id)`,
}

// Migrate создаёт таблицы, если их ещё нет. Повторный вызов ничего не меняет.
func Migrate(ctx context.Context, db *sql.DB) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		// несколько экземпляров сервера могут стартовать одновременно
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", migrateLockID); err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		for i, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}
