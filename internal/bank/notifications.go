package bank

import (
	"context"
	"errors"
	"time"

	"bankly/internal/models"
	"bankly/internal/storage"
)

// NotificationService creates and reads per-user notifications.
type NotificationService struct {
	db  *storage.DB
	now func() time.Time
}

func NewNotificationService(db *storage.DB) *NotificationService {
	return &NotificationService{db: db, now: time.Now}
}

// Create stores a new unread notification for userID.
func (s *NotificationService) Create(ctx context.Context, userID int64, message string) (*models.Notification, error) {
	n := newNotification(userID, message, s.now())
	if err := s.db.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// MarkAsRead marks a notification owned by userID as read. It is idempotent.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id int64) error {
	return notFound(s.db.MarkNotificationRead(ctx, userID, id))
}

// ListUnread returns the unread notifications of userID, oldest first.
func (s *NotificationService) ListUnread(ctx context.Context, userID int64) ([]models.Notification, error) {
	return s.db.ListUnreadNotifications(ctx, userID)
}

// Delete removes a notification owned by userID. Transactions that point at
// it lose the link and are otherwise untouched.
func (s *NotificationService) Delete(ctx context.Context, userID, id int64) error {
	return notFound(s.db.DeleteNotification(ctx, userID, id))
}

// newNotification builds an unread notification. The engine uses it for the
// notifications it writes inside a ledger transaction.
func newNotification(userID int64, message string, at time.Time) *models.Notification {
	return &models.Notification{UserID: userID, Message: message, CreatedAt: at.UTC()}
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNoNotification
	}
	return err
}
