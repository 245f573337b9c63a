package cascade_test

import (
	"context"
	"database/sql"
	"testing"

	"fcc-clone/internal/cascade"
	"fcc-clone/internal/database/dbtest"
	"fcc-clone/internal/scoring"
)

type seeded struct {
	db       *sql.DB
	course   int
	lesson   int
	other    int
	qids     []int
	comments []int
}

// seed: курс с двумя уроками; у первого два вопроса с попытками и два комментария.
func seed(t *testing.T) seeded {
	t.Helper()
	db := dbtest.Open(t)
	uid := dbtest.CreateUser(t, db, "alice", "student")

	s := seeded{db: db}
	s.course = dbtest.CreateCourse(t, db, "Go")
	s.lesson = dbtest.CreateLesson(t, db, s.course, "Basics")
	s.other = dbtest.CreateLesson(t, db, s.course, "Types")

	engine := scoring.NewEngine(db, 0)
	for _, text := range []string{"q1", "q2"} {
		qid, answers := dbtest.CreateQuestion(t, db, s.lesson, text, []string{"a", "b"}, 0)
		s.qids = append(s.qids, qid)
		if _, err := engine.SubmitAnswer(context.Background(), "alice", qid, answers[1]); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	for _, text := range []string{"nice", "thanks"} {
		s.comments = append(s.comments, dbtest.CreateComment(t, db, s.lesson, "alice", text))
	}
	if _, err := db.Exec("INSERT INTO user_progress (user_id, lesson_id, is_completed) VALUES ($1, $2, TRUE)", uid, s.lesson); err != nil {
		t.Fatalf("insert progress: %v", err)
	}
	if _, err := db.Exec("INSERT INTO user_points (user_id, lesson_id, points, badge) VALUES ($1, $2, 10, 'bronze')", uid, s.lesson); err != nil {
		t.Fatalf("insert points: %v", err)
	}
	dbtest.CreateQuestion(t, db, s.other, "q3", []string{"c"}, 0)
	return s
}

func TestDeleteLessonRemovesEverything(t *testing.T) {
	s := seed(t)
	c := cascade.NewCoordinator(s.db, 0)

	if err := c.DeleteLesson(context.Background(), s.lesson); err != nil {
		t.Fatalf("DeleteLesson: %v", err)
	}

	checks := map[string]int{
		"SELECT COUNT(*) FROM lessons WHERE id = $1":              0,
		"SELECT COUNT(*) FROM questions WHERE lesson_id = $1":     0,
		"SELECT COUNT(*) FROM comments WHERE lesson_id = $1":      0,
		"SELECT COUNT(*) FROM user_progress WHERE lesson_id = $1": 0,
		"SELECT COUNT(*) FROM user_points WHERE lesson_id = $1":   0,
	}
	for query, want := range checks {
		if got := dbtest.Count(t, s.db, query, s.lesson); got != want {
			t.Errorf("%s = %d, want %d", query, got, want)
		}
	}
	for _, qid := range s.qids {
		if n := dbtest.Count(t, s.db, "SELECT COUNT(*) FROM answers WHERE question_id = $1", qid); n != 0 {
			t.Errorf("answers of question %d = %d", qid, n)
		}
		if n := dbtest.Count(t, s.db, "SELECT COUNT(*) FROM user_attempts WHERE question_id = $1", qid); n != 0 {
			t.Errorf("attempts of question %d = %d", qid, n)
		}
	}

	// соседний урок не тронут
	if n := dbtest.Count(t, s.db, "SELECT COUNT(*) FROM questions WHERE lesson_id = $1", s.other); n != 1 {
		t.Errorf("questions of other lesson = %d, want 1", n)
	}
}

func TestDeleteCourseRemovesEverything(t *testing.T) {
	s := seed(t)
	keep := dbtest.CreateCourse(t, s.db, "Rust")
	keepLesson := dbtest.CreateLesson(t, s.db, keep, "Ownership")

	if err := cascade.NewCoordinator(s.db, 0).DeleteCourse(context.Background(), s.course); err != nil {
		t.Fatalf("DeleteCourse: %v", err)
	}

	for query, want := range map[string]int{
		"SELECT COUNT(*) FROM courses":       1,
		"SELECT COUNT(*) FROM lessons":       1,
		"SELECT COUNT(*) FROM questions":     0,
		"SELECT COUNT(*) FROM answers":       0,
		"SELECT COUNT(*) FROM user_attempts": 0,
		"SELECT COUNT(*) FROM comments":      0,
		"SELECT COUNT(*) FROM user_progress": 0,
		"SELECT COUNT(*) FROM user_points":   0,
	} {
		if got := dbtest.Count(t, s.db, query); got != want {
			t.Errorf("%s = %d, want %d", query, got, want)
		}
	}
	if n := dbtest.Count(t, s.db, "SELECT COUNT(*) FROM lessons WHERE id = $1", keepLesson); n != 1 {
		t.Errorf("unrelated lesson was deleted")
	}
	// пользователь и его очки остаются
	if n := dbtest.Count(t, s.db, "SELECT COUNT(*) FROM users"); n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
}

func TestDeleteMissingIsNoOp(t *testing.T) {
	s := seed(t)
	c := cascade.NewCoordinator(s.db, 0)
	ctx := context.Background()

	before := dbtest.Count(t, s.db, "SELECT (SELECT COUNT(*) FROM courses) + (SELECT COUNT(*) FROM lessons) + (SELECT COUNT(*) FROM questions) + (SELECT COUNT(*) FROM answers)")

	if err := c.DeleteCourse(ctx, 99999); err != nil {
		t.Errorf("DeleteCourse(missing): %v", err)
	}
	if err := c.DeleteLesson(ctx, 99999); err != nil {
		t.Errorf("DeleteLesson(missing): %v", err)
	}
	if err := c.DeleteQuestion(ctx, 99999); err != nil {
		t.Errorf("DeleteQuestion(missing): %v", err)
	}
	deleted, err := c.DeleteUser(ctx, "nobody")
	if err != nil || deleted {
		t.Errorf("DeleteUser(missing) = %v, %v", deleted, err)
	}

	after := dbtest.Count(t, s.db, "SELECT (SELECT COUNT(*) FROM courses) + (SELECT COUNT(*) FROM lessons) + (SELECT COUNT(*) FROM questions) + (SELECT COUNT(*) FROM answers)")
	if before != after {
		t.Fatalf("row count changed: %d -> %d", before, after)
	}

	// повторное удаление того же урока тоже не ошибка
	if err := c.DeleteLesson(ctx, s.lesson); err != nil {
		t.Fatalf("DeleteLesson: %v", err)
	}
	if err := c.DeleteLesson(ctx, s.lesson); err != nil {
		t.Fatalf("second DeleteLesson: %v", err)
	}
}

func TestDeleteQuestion(t *testing.T) {
	s := seed(t)
	if err := cascade.NewCoordinator(s.db, 0).DeleteQuestion(context.Background(), s.qids[0]); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}
	if n := dbtest.Count(t, s.db, "SELECT COUNT(*) FROM questions WHERE lesson_id = $1", s.lesson); n != 1 {
		t.Fatalf("remaining questions = %d, want 1", n)
	}
	if n := dbtest.Count(t, s.db, "SELECT COUNT(*) FROM user_attempts WHERE question_id = $1", s.qids[0]); n != 0 {
		t.Fatalf("attempts left behind: %d", n)
	}
}

func TestDeleteUser(t *testing.T) {
	s := seed(t)
	deleted, err := cascade.NewCoordinator(s.db, 0).DeleteUser(context.Background(), "alice")
	if err != nil || !deleted {
		t.Fatalf("DeleteUser = %v, %v", deleted, err)
	}
	for _, table := range []string{"users", "user_attempts", "user_progress", "user_points"} {
		if n := dbtest.Count(t, s.db, "SELECT COUNT(*) FROM "+table); n != 0 {
			t.Errorf("%s = %d, want 0", table, n)
		}
	}
	if n := dbtest.Count(t, s.db, "SELECT COUNT(*) FROM comments"); n != 2 {
		t.Errorf("comments = %d, want 2", n)
	}
}

func TestDeleteLessonRollsBackOnFailure(t *testing.T) {
	s := seed(t)
	// комментарии удаляются после вопросов: сбой здесь должен откатить и вопросы
	for _, stmt := range []string{
		`CREATE FUNCTION refuse_delete() RETURNS trigger AS $$
		BEGIN RAISE EXCEPTION 'comments are locked'; END;
		$$ LANGUAGE plpgsql`,
		`CREATE TRIGGER comments_locked BEFORE DELETE ON comments
		FOR EACH ROW EXECUTE FUNCTION refuse_delete()`,
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			t.Fatalf("install trigger: %v", err)
		}
	}

	if err := cascade.NewCoordinator(s.db, 0).DeleteLesson(context.Background(), s.lesson); err == nil {
		t.Fatal("DeleteLesson succeeded, want error")
	}

	if n := dbtest.Count(t, s.db, "SELECT COUNT(*) FROM questions WHERE lesson_id = $1", s.lesson); n != len(s.qids) {
		t.Fatalf("questions after failed cascade = %d, want %d", n, len(s.qids))
	}
	if n := dbtest.Count(t, s.db, "SELECT COUNT(*) FROM user_attempts"); n != len(s.qids) {
		t.Fatalf("attempts after failed cascade = %d, want %d", n, len(s.qids))
	}
	if n := dbtest.Count(t, s.db, "SELECT COUNT(*) FROM lessons WHERE id = $1", s.lesson); n != 1 {
		t.Fatalf("lesson was deleted despite failure")
	}
}
