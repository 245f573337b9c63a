package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// devJWTSecret используется только при APP_ENV=development.
const devJWTSecret = "my_very_secret_and_long_key_32_bytes"

// Config - настройки процесса, собранные из окружения (и .env, если он есть).
type Config struct {
	DatabaseURL    string
	Port           string
	JWTSecret      []byte
	TokenTTL       time.Duration
	DBTimeout      time.Duration
	DBMaxOpenConns int
	AllowedOrigins []string
}

// Load читает .env (если найден) и переменные окружения.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env не обязателен: в контейнере всё приходит из окружения
		log.Println("config: .env not found, using process environment")
	}
	return FromEnv()
}

// FromEnv собирает Config только из переменных окружения.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        getEnv("PORT", "8080"),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("APP_ENV") != "development" {
			return nil, fmt.Errorf("JWT_SECRET environment variable is not set")
		}
		secret = devJWTSecret
	}
	cfg.JWTSecret = []byte(secret)

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 72*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DBTimeout, err = getDuration("DB_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.DBMaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 10); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration like 5s", key, v)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, v)
	}
	return n, nil
}
