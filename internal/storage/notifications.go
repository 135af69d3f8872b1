package storage

import (
	"context"
	"fmt"

	"bankly/internal/models"
)

func insertNotification(ctx context.Context, q querier, d dialect, n *models.Notification) error {
	err := q.QueryRowContext(ctx,
		rebind(d, "INSERT INTO notifications (user_id, message, is_read, created_at) VALUES (?, ?, ?, ?) RETURNING id"),
		n.UserID, n.Message, n.IsRead, n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("error inserting notification: %w", classify(err))
	}
	return nil
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNotification inserts a standalone notification and fills in its id.
func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	return insertNotification(ctx, db.conn, db.dialect, n)
}

// GetNotification retrieves a notification owned by userID.
func (db *DB) GetNotification(ctx context.Context, userID, id int64) (*models.Notification, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("SELECT id, user_id, message, is_read, created_at FROM notifications WHERE id = ? AND user_id = ?"),
		id, userID,
	)
	n, err := scanNotification(row)
	if err != nil {
		return nil, classify(err)
	}
	return n, nil
}

// ListUnreadNotifications retrieves the unread notifications of userID, oldest first.
func (db *DB) ListUnreadNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT id, user_id, message, is_read, created_at
		FROM notifications
		WHERE user_id = ? AND is_read = ?
		ORDER BY id`),
		userID, false,
	)
	if err != nil {
		return nil, fmt.Errorf("error fetching notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning notification: %w", err)
		}
		notifications = append(notifications, *n)
	}

	return notifications, rows.Err()
}

// MarkNotificationRead sets is_read on a notification owned by userID.
// Marking an already-read notification succeeds without changes.
func (db *DB) MarkNotificationRead(ctx context.Context, userID, id int64) error {
	res, err := db.conn.ExecContext(ctx,
		db.rebind("UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?"),
		true, id, userID,
	)
	if err != nil {
		return fmt.Errorf("error marking notification read: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking rows affected for notification update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteNotification removes a notification owned by userID. Transactions
// that link to it keep existing with the link cleared.
func (db *DB) DeleteNotification(ctx context.Context, userID, id int64) error {
	return db.InTx(ctx, func(tx *Tx) error {
		clears := []string{
			"UPDATE transactions SET sender_notification_id = NULL WHERE sender_notification_id = ?",
			"UPDATE transactions SET recipient_notification_id = NULL WHERE recipient_notification_id = ?",
		}
		for _, q := range clears {
			if _, err := tx.tx.ExecContext(ctx, tx.rebind(q), id); err != nil {
				return fmt.Errorf("error clearing notification link: %w", classify(err))
			}
		}

		res, err := tx.tx.ExecContext(ctx,
			tx.rebind("DELETE FROM notifications WHERE id = ? AND user_id = ?"),
			id, userID,
		)
		if err != nil {
			return fmt.Errorf("error deleting notification: %w", classify(err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("error checking rows affected for notification delete: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
