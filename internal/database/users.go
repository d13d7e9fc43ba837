package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateUser marks a registration whose username or email is taken.
var ErrDuplicateUser = errors.New("username or email taken")

// CreateUser inserts a new user. Emails are stored lowercased so login by
// email is case-insensitive.
func (db *DB) CreateUser(username, email, passwordHash string) (*User, error) {
	email = strings.ToLower(email)

	var exists bool
	err := db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)`,
		username, email,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check user uniqueness: %w", err)
	}
	if exists {
		return nil, ErrDuplicateUser
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, username, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by id.
func (db *DB) GetUserByID(id string) (*User, error) {
	return db.getUser(`SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

// GetUserByLogin retrieves a user by username or email.
func (db *DB) GetUserByLogin(identifier string) (*User, error) {
	return db.getUser(
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1 OR email = $2`,
		identifier, strings.ToLower(identifier),
	)
}

func (db *DB) getUser(query string, args ...interface{}) (*User, error) {
	user := &User{}
	err := db.QueryRow(query, args...).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
