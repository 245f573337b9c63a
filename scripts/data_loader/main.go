package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"fcc-clone/internal/cascade"
	"fcc-clone/internal/config"
	"fcc-clone/internal/database"
	"fcc-clone/internal/store"
)

// Структура для сортировки файлов
type lessonFile struct {
	Path        string
	Language    string // "Python", "Go"
	LessonNum   int    // 1, 2, 10
	LessonTitle string // "Go - Lesson 1"
}

// <Language>_lesson_<N>.csv
var fileNameRegex = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+#]*)_lesson_([0-9]+)\.csv$`)

func main() {
	dir := flag.String("dir", "scripts", "directory with <Language>_lesson_<N>.csv files")
	flag.Parse()

	log.Println("Starting quiz loader...")
	startTime := time.Now()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("DB connect error: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("DB migrate error: %v", err)
	}

	lessonFiles, err := findAndSortFiles(*dir)
	if err != nil {
		log.Fatalf("Failed to scan %s: %v", *dir, err)
	}
	log.Printf("Found %d lesson files", len(lessonFiles))

	// Всё в одной транзакции: если что-то пойдёт не так, изменения откатятся
	total := 0
	err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
		for _, lf := range lessonFiles {
			n, err := loadLessonFile(ctx, tx, lf)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(lf.Path), err)
			}
			total += n
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Load failed, changes rolled back: %v", err)
	}

	log.Printf("Done: %d questions loaded in %v", total, time.Since(startTime))
}

// findAndSortFiles находит, парсит и сортирует CSV
func findAndSortFiles(dir string) ([]lessonFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var lessonFiles []lessonFile
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		matches := fileNameRegex.FindStringSubmatch(file.Name())
		if len(matches) != 3 {
			continue
		}
		lessonNum, err := strconv.Atoi(matches[2])
		if err != nil {
			return nil, fmt.Errorf("bad lesson number in %s: %w", file.Name(), err)
		}
		lessonFiles = append(lessonFiles, lessonFile{
			Path:        filepath.Join(dir, file.Name()),
			Language:    matches[1],
			LessonNum:   lessonNum,
			LessonTitle: fmt.Sprintf("%s - Lesson %d", matches[1], lessonNum),
		})
	}

	// Сначала по языку, потом по номеру урока (1, 2, 10)
	sort.Slice(lessonFiles, func(i, j int) bool {
		if lessonFiles[i].Language != lessonFiles[j].Language {
			return lessonFiles[i].Language < lessonFiles[j].Language
		}
		return lessonFiles[i].LessonNum < lessonFiles[j].LessonNum
	})
	return lessonFiles, nil
}

// loadLessonFile заменяет вопросы урока содержимым файла
func loadLessonFile(ctx context.Context, tx *sql.Tx, lf lessonFile) (int, error) {
	log.Printf("Processing %s (course %s, lesson %d)", filepath.Base(lf.Path), lf.Language, lf.LessonNum)

	courseID, err := getOrInsert(ctx, tx,
		"SELECT id FROM courses WHERE title = $1 ORDER BY id LIMIT 1",
		"INSERT INTO courses (title, language) VALUES ($1, $1) RETURNING id",
		lf.Language)
	if err != nil {
		return 0, fmt.Errorf("course %s: %w", lf.Language, err)
	}

	lessonID, err := getOrInsert(ctx, tx,
		"SELECT id FROM lessons WHERE course_id = $1 AND title = $2 ORDER BY id LIMIT 1",
		"INSERT INTO lessons (course_id, title) VALUES ($1, $2) RETURNING id",
		courseID, lf.LessonTitle)
	if err != nil {
		return 0, fmt.Errorf("lesson %s: %w", lf.LessonTitle, err)
	}

	// старые вопросы удаляем вместе с ответами и попытками
	oldIDs, err := store.QuestionIDsByLesson(ctx, tx, lessonID)
	if err != nil {
		return 0, err
	}
	for _, id := range oldIDs {
		if err := cascade.DeleteQuestionTx(ctx, tx, id); err != nil {
			return 0, err
		}
	}

	file, err := os.Open(lf.Path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return loadQuestions(ctx, tx, lessonID, file)
}

// getOrInsert находит id или создаёт строку
func getOrInsert(ctx context.Context, tx *sql.Tx, selectSQL, insertSQL string, args ...any) (int, error) {
	var id int
	err := tx.QueryRowContext(ctx, selectSQL, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		if err := tx.QueryRowContext(ctx, insertSQL, args...).Scan(&id); err != nil {
			return 0, err
		}
		log.Printf(" -> created %v (ID: %d)", args, id)
		return id, nil
	}
	return id, err
}

// loadQuestions читает CSV: question, correct answer, wrong answers...
// Первая строка - заголовок.
func loadQuestions(ctx context.Context, tx *sql.Tx, lessonID int, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err == io.EOF {
		return 0, nil // Файл пустой
	} else if err != nil {
		return 0, err
	}

	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}

		fields := trimAll(record)
		if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
			log.Printf("   ! Skipping row (need question and correct answer): %v", record)
			continue
		}

		var questionID int
		if err := tx.QueryRowContext(ctx,
			"INSERT INTO questions (lesson_id, question_text) VALUES ($1, $2) RETURNING id",
			lessonID, fields[0],
		).Scan(&questionID); err != nil {
			return count, err
		}

		var correctID int
		for i, text := range fields[1:] {
			if text == "" {
				continue
			}
			var answerID int
			if err := tx.QueryRowContext(ctx,
				"INSERT INTO answers (question_id, answer_text) VALUES ($1, $2) RETURNING id",
				questionID, text,
			).Scan(&answerID); err != nil {
				return count, err
			}
			if i == 0 {
				correctID = answerID
			}
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE questions SET correct_answer_id = $1 WHERE id = $2", correctID, questionID,
		); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func trimAll(record []string) []string {
	out := make([]string, len(record))
	for i, f := range record {
		out[i] = strings.TrimSpace(f)
	}
	return out
}
