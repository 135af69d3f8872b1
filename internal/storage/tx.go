package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"bankly/internal/models"

	"github.com/shopspring/decimal"
)

// Tx is a single ledger transaction. Every method runs on the same
// underlying database transaction, so either all writes commit or none do.
type Tx struct {
	tx      *sql.Tx
	dialect dialect
}

// InTx runs fn inside a database transaction at the driver's default
// isolation (read committed on PostgreSQL). The transaction commits when fn
// returns nil and rolls back otherwise. Driver errors are classified, so
// callers can test the result against ErrConflict.
func (db *DB) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", classify(err))
	}

	tx := &Tx{tx: sqlTx, dialect: db.dialect}
	if err := fn(tx); err != nil {
		rollback(sqlTx)
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", classify(err))
	}
	return nil
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		slog.Error("error rolling back transaction", "error", err)
	}
}

func (t *Tx) rebind(query string) string {
	return rebind(t.dialect, query)
}

// LockAccounts loads the given accounts for update. Rows are locked in
// ascending id order so two transactions touching the same pair of accounts
// cannot deadlock each other. Ids that do not exist are absent from the map.
func (t *Tx) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error) {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	query := "SELECT id, user_id, account_type, balance, created_at FROM accounts WHERE id = ?"
	if t.dialect == postgresDialect {
		query += " FOR UPDATE"
	}
	query = t.rebind(query)

	out := make(map[int64]*models.Account, len(ordered))
	for _, id := range ordered {
		a, err := scanAccount(t.tx.QueryRowContext(ctx, query, id))
		if err != nil {
			err = classify(err)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("error locking account %d: %w", id, err)
		}
		out[id] = a
	}
	return out, nil
}

// SetBalance overwrites an account balance.
func (t *Tx) SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	return setBalance(ctx, t.tx, t.dialect, accountID, balance)
}

// CreateNotification inserts a notification for userID.
func (t *Tx) CreateNotification(ctx context.Context, n *models.Notification) error {
	return insertNotification(ctx, t.tx, t.dialect, n)
}

// CreateTransaction inserts the transaction record and fills in its id.
func (t *Tx) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	query := t.rebind(`
		INSERT INTO transactions
			(sender_id, recipient_id, transaction_type, amount, sender_notification_id, recipient_notification_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := t.tx.QueryRowContext(ctx, query,
		txn.SenderID, txn.RecipientID, string(txn.Kind), fixed(txn.Amount),
		txn.SenderNotificationID, txn.RecipientNotificationID, txn.CreatedAt,
	).Scan(&txn.ID)
	if err != nil {
		return fmt.Errorf("error inserting transaction: %w", classify(err))
	}
	return nil
}
