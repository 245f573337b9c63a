package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"fcc-clone/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib" // Анонимный импорт PostgreSQL драйвера
)

const (
	maxRetries    = 10
	retryInterval = 3 * time.Second
)

// Connect открывает пул соединений по cfg.DatabaseURL и ждёт, пока база ответит.
// Пул принадлежит процессу: соединения берутся на время запроса и возвращаются.
func Connect(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	// sql.Open не устанавливает соединение, а только готовит пул
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection (driver error): %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	var pingErr error
	for i := 1; i <= maxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.DBTimeout)
		pingErr = db.PingContext(pingCtx)
		cancel()
		if pingErr == nil {
			return db, nil
		}

		log.Printf("DB not ready (attempt %d/%d). Retrying in %v...", i, maxRetries, retryInterval)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	db.Close()
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, pingErr)
}
