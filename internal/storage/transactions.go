package storage

import (
	"context"
	"database/sql"
	"fmt"

	"bankly/internal/models"
)

const transactionColumns = `id, transaction_type, amount, sender_id, recipient_id,
	sender_notification_id, recipient_notification_id, created_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	var kind string
	var recipient, senderNote, recipientNote sql.NullInt64
	err := row.Scan(&t.ID, &kind, &t.Amount, &t.SenderID, &recipient, &senderNote, &recipientNote, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Kind = models.TransactionKind(kind)
	t.RecipientID = nullableID(recipient)
	t.SenderNotificationID = nullableID(senderNote)
	t.RecipientNotificationID = nullableID(recipientNote)
	return &t, nil
}

func nullableID(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	id := n.Int64
	return &id
}

// GetTransaction retrieves a single transaction by ID.
func (db *DB) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("SELECT "+transactionColumns+" FROM transactions WHERE id = ?"),
		id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, classify(err)
	}
	return t, nil
}

// ListStatement retrieves every transaction in which accountID is the sender
// or the recipient, newest first.
func (db *DB) ListStatement(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE sender_id = ? OR recipient_id = ?
		ORDER BY created_at DESC, id DESC`),
		accountID, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("error fetching statement: %w", err)
	}
	defer rows.Close()

	statement := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction: %w", err)
		}
		statement = append(statement, *t)
	}

	return statement, rows.Err()
}
