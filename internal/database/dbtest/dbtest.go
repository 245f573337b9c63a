// Package dbtest поднимает изолированную схему Postgres для тестов.
// Тесты пропускаются, если TEST_DATABASE_URL не задан.
package dbtest

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"fcc-clone/internal/database"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open создаёт отдельную схему, применяет миграции и удаляет схему по окончании теста.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	baseURL := os.Getenv("TEST_DATABASE_URL")
	if baseURL == "" {
		t.Skip("set TEST_DATABASE_URL to run database tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	admin, err := sql.Open("pgx", baseURL)
	if err != nil {
		t.Fatalf("open admin connection: %v", err)
	}
	t.Cleanup(func() { admin.Close() })

	schemaName := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schemaName); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = admin.ExecContext(context.Background(), "DROP SCHEMA "+schemaName+" CASCADE")
	})

	db, err := sql.Open("pgx", withSearchPath(t, baseURL, schemaName))
	if err != nil {
		t.Fatalf("open test connection: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func withSearchPath(t *testing.T, dsn, schemaName string) string {
	t.Helper()
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return dsn + " search_path=" + schemaName
	}
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse TEST_DATABASE_URL: %v", err)
	}
	q := u.Query()
	q.Set("search_path", schemaName)
	u.RawQuery = q.Encode()
	return u.String()
}

// CreateUser вставляет пользователя с заглушкой вместо хэша пароля.
func CreateUser(t *testing.T, db *sql.DB, username, role string) int {
	t.Helper()
	var id int
	err := db.QueryRow(
		"INSERT INTO users (username, password_hash, role) VALUES ($1, 'dummy_hash', $2) RETURNING id",
		username, role,
	).Scan(&id)
	if err != nil {
		t.Fatalf("insert user %s: %v", username, err)
	}
	return id
}

func CreateCourse(t *testing.T, db *sql.DB, title string) int {
	t.Helper()
	var id int
	if err := db.QueryRow("INSERT INTO courses (title) VALUES ($1) RETURNING id", title).Scan(&id); err != nil {
		t.Fatalf("insert course: %v", err)
	}
	return id
}

func CreateLesson(t *testing.T, db *sql.DB, courseID int, title string) int {
	t.Helper()
	var id int
	err := db.QueryRow("INSERT INTO lessons (course_id, title) VALUES ($1, $2) RETURNING id", courseID, title).Scan(&id)
	if err != nil {
		t.Fatalf("insert lesson: %v", err)
	}
	return id
}

// CreateQuestion вставляет вопрос с ответами; ответ с индексом correct становится правильным.
// Возвращает id вопроса и id ответов в порядке answers.
func CreateQuestion(t *testing.T, db *sql.DB, lessonID int, text string, answers []string, correct int) (int, []int) {
	t.Helper()
	var qid int
	if err := db.QueryRow("INSERT INTO questions (lesson_id, question_text) VALUES ($1, $2) RETURNING id", lessonID, text).Scan(&qid); err != nil {
		t.Fatalf("insert question: %v", err)
	}
	ids := make([]int, len(answers))
	for i, a := range answers {
		if err := db.QueryRow("INSERT INTO answers (question_id, answer_text) VALUES ($1, $2) RETURNING id", qid, a).Scan(&ids[i]); err != nil {
			t.Fatalf("insert answer: %v", err)
		}
	}
	if correct >= 0 && correct < len(ids) {
		if _, err := db.Exec("UPDATE questions SET correct_answer_id = $1 WHERE id = $2", ids[correct], qid); err != nil {
			t.Fatalf("set correct answer: %v", err)
		}
	}
	return qid, ids
}

func CreateComment(t *testing.T, db *sql.DB, lessonID int, username, text string) int {
	t.Helper()
	var id int
	err := db.QueryRow("INSERT INTO comments (lesson_id, username, text) VALUES ($1, $2, $3) RETURNING id",
		lessonID, username, text).Scan(&id)
	if err != nil {
		t.Fatalf("insert comment: %v", err)
	}
	return id
}

// Count возвращает результат запроса вида SELECT COUNT(*) ...
func Count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}
