package store_test

import (
	"context"
	"errors"
	"testing"

	"fcc-clone/internal/database/dbtest"
	"fcc-clone/internal/store"
)

func TestLookups(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	uid := dbtest.CreateUser(t, db, "alice", "admin")
	course := dbtest.CreateCourse(t, db, "Go")
	l1 := dbtest.CreateLesson(t, db, course, "Basics")
	l2 := dbtest.CreateLesson(t, db, course, "Types")
	qid, answers := dbtest.CreateQuestion(t, db, l1, "2+2?", []string{"3", "4"}, 1)

	u, err := store.UserByUsername(ctx, db, "alice")
	if err != nil || u.ID != uid || u.Role != "admin" {
		t.Fatalf("UserByUsername = %+v, %v", u, err)
	}
	if _, err := store.UserByUsername(ctx, db, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing user err = %v, want ErrNotFound", err)
	}

	q, err := store.QuestionByID(ctx, db, qid)
	if err != nil {
		t.Fatalf("QuestionByID: %v", err)
	}
	if q.LessonID != l1 || !q.CorrectAnswerID.Valid || int(q.CorrectAnswerID.Int64) != answers[1] {
		t.Fatalf("QuestionByID = %+v", q)
	}
	if _, err := store.QuestionByID(ctx, db, qid+1000); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing question err = %v, want ErrNotFound", err)
	}

	lessons, err := store.LessonIDsByCourse(ctx, db, course)
	if err != nil || len(lessons) != 2 || lessons[0] != l1 || lessons[1] != l2 {
		t.Fatalf("LessonIDsByCourse = %v, %v", lessons, err)
	}
	questions, err := store.QuestionIDsByLesson(ctx, db, l2)
	if err != nil || len(questions) != 0 {
		t.Fatalf("QuestionIDsByLesson(empty) = %v, %v", questions, err)
	}
}
