package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound marks a lookup that matched no row.
var ErrNotFound = errors.New("not found")

type DB struct {
	*sql.DB
	driver string
}

// New opens a database connection ("postgres" or "sqlite3") and verifies it
// with a retried ping, so the server survives a database that is still
// coming up.
func New(driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close() // Ignore close error, we're already returning ping error
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, driver: driver}, nil
}

func (db *DB) Migrate() error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(db.driver); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// nullString maps "" to SQL NULL for optional text columns.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullTime maps a nil pointer to SQL NULL for optional timestamp columns.
func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
