package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gatherly/gatherly/internal/config"
	"github.com/gatherly/gatherly/internal/database"
	"github.com/gatherly/gatherly/internal/server"
)

func main() {
	// Load .env file (ignore error if the file doesn't exist)
	if err := godotenv.Overload(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func(db *database.DB) {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}(db)

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	srv := server.New(cfg, db)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting server", "addr", ":"+port)
	if err := srv.Start(ctx, ":"+port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
