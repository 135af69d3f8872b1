package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bankly/internal/models"

	"github.com/shopspring/decimal"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// fixed renders a decimal the way the schema stores it: two fraction digits.
func fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	var kind string
	if err := row.Scan(&a.ID, &a.UserID, &kind, &a.Balance, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Kind = models.AccountKind(kind)
	return &a, nil
}

// CreateAccount opens a new zero-balance account for userID.
func (db *DB) CreateAccount(ctx context.Context, userID int64, kind models.AccountKind) (*models.Account, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(`
		INSERT INTO accounts (user_id, account_type, balance, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id, user_id, account_type, balance, created_at`),
		userID, string(kind), fixed(decimal.Zero), time.Now().UTC(),
	)
	a, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("error creating account: %w", classify(err))
	}
	return a, nil
}

// GetAccount retrieves a single account by ID.
func (db *DB) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("SELECT id, user_id, account_type, balance, created_at FROM accounts WHERE id = ?"),
		id,
	)
	a, err := scanAccount(row)
	if err != nil {
		return nil, classify(err)
	}
	return a, nil
}

// ListAccounts retrieves the accounts owned by userID in creation order.
func (db *DB) ListAccounts(ctx context.Context, userID int64) ([]models.Account, error) {
	rows, err := db.conn.QueryContext(ctx,
		db.rebind("SELECT id, user_id, account_type, balance, created_at FROM accounts WHERE user_id = ? ORDER BY id"),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("error fetching accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning account: %w", err)
		}
		accounts = append(accounts, *a)
	}

	return accounts, rows.Err()
}

// AccountOwnedBy reports whether accountID exists and belongs to userID.
func (db *DB) AccountOwnedBy(ctx context.Context, accountID, userID int64) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx,
		db.rebind("SELECT 1 FROM accounts WHERE id = ? AND user_id = ?"),
		accountID, userID,
	).Scan(&one)
	if err != nil {
		if errors.Is(classify(err), ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error checking account owner: %w", err)
	}
	return true, nil
}

// SetBalance overwrites an account balance outside of any transfer. It is
// the operator override used by cmd/setbalance.
func (db *DB) SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	return setBalance(ctx, db.conn, db.dialect, accountID, balance)
}

func setBalance(ctx context.Context, q querier, d dialect, accountID int64, balance decimal.Decimal) error {
	res, err := q.ExecContext(ctx,
		rebind(d, "UPDATE accounts SET balance = ? WHERE id = ?"),
		fixed(balance), accountID,
	)
	if err != nil {
		return fmt.Errorf("error updating balance: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking rows affected for balance update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
