package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	// Import database drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type dialect int

const (
	sqliteDialect dialect = iota
	postgresDialect
)

// DB wraps a sql.DB connection to the ledger database.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// querier is the subset of *sql.DB and *sql.Tx the query helpers need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewDB opens a SQLite database and runs migrations.
//
// The pool is pinned to a single connection: SQLite allows one writer at a
// time, and ":memory:" databases exist per connection.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	db := &DB{conn: conn, dialect: sqliteDialect}
	if err := db.migrate(sqliteMigrations); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

// NewPostgres opens a PostgreSQL database through the pgx driver and runs migrations.
func NewPostgres(url string, maxConns int) (*DB, error) {
	conn, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if maxConns > 0 {
		conn.SetMaxOpenConns(maxConns)
	}
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(30 * time.Minute)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	db := &DB{conn: conn, dialect: postgresDialect}
	if err := db.migrate(postgresMigrations); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		account_type TEXT NOT NULL DEFAULT 'individual',
		balance TEXT NOT NULL DEFAULT '0.00',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		message TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		recipient_id INTEGER REFERENCES accounts(id) ON DELETE SET NULL,
		transaction_type TEXT NOT NULL DEFAULT 'withdraw',
		amount TEXT NOT NULL,
		sender_notification_id INTEGER REFERENCES notifications(id) ON DELETE SET NULL,
		recipient_notification_id INTEGER REFERENCES notifications(id) ON DELETE SET NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_recipient ON transactions(recipient_id)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id, is_read)`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		account_type VARCHAR(50) NOT NULL DEFAULT 'individual',
		balance NUMERIC(10, 2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		message TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		sender_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		recipient_id BIGINT REFERENCES accounts(id) ON DELETE SET NULL,
		transaction_type VARCHAR(50) NOT NULL DEFAULT 'withdraw',
		amount NUMERIC(10, 2) NOT NULL,
		sender_notification_id BIGINT REFERENCES notifications(id) ON DELETE SET NULL,
		recipient_notification_id BIGINT REFERENCES notifications(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_recipient ON transactions(recipient_id)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id, is_read)`,
}

func (db *DB) migrate(migrations []string) error {
	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (db *DB) rebind(query string) string {
	return rebind(db.dialect, query)
}

func rebind(d dialect, query string) string {
	if d != postgresDialect {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
