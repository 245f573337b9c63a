package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fcc-clone/internal/api"
	"fcc-clone/internal/config"
	"fcc-clone/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("DB connect error: %v", err)
	}
	log.Println("DB connected!")
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("DB migrate error: %v", err)
	}
	log.Println("Schema is up to date")

	apiHandler := api.NewApiHandler(db, cfg)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServerHandler(apiHandler, cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	idle := make(chan struct{})
	go func() {
		defer close(idle)
		<-ctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Starting server on port %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server start error: %v", err)
	}
	// ждём, пока текущие запросы вернут соединения в пул
	<-idle
}
