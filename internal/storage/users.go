package storage

import (
	"context"
	"fmt"
	"time"

	"bankly/internal/models"
)

// CreateUser creates a new user with the given username, email and password hash.
// A taken username yields ErrDuplicate.
func (db *DB) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(`
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id, username, email, password_hash, created_at`),
		username, email, passwordHash, time.Now().UTC(),
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", classify(err))
	}
	return u, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?"),
		id,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, classify(err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?"),
		username,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, classify(err)
	}
	return u, nil
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
