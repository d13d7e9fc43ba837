package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	// Database
	DatabaseDriver string
	DatabaseURL    string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Anonymous RSVP cookie
	SessionSecret string

	// App
	BaseURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite3"),
		DatabaseURL:    getEnv("DATABASE_URL", "file:gatherly.db?_foreign_keys=on"),
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		SessionSecret:  getEnv("SESSION_SECRET", "change-me-in-production"),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
	}

	// Parse token lifetime
	ttlStr := getEnv("TOKEN_TTL", "24h")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL format: %w", err)
	}
	cfg.TokenTTL = ttl

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
