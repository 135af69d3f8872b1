package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bankly/internal/models"
	"bankly/internal/storage"
)

const defaultMaxAttempts = 3

// Engine validates and applies money movements. Each transaction locks the
// accounts it touches, re-validates against their current balances and
// writes the record, both notifications and both balances in one database
// transaction.
type Engine struct {
	db          *storage.DB
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
	log         *slog.Logger

	// attempt runs one try of a transaction; apply unless replaced in tests.
	attempt func(ctx context.Context, userID int64, req TransactionRequest) (*models.Transaction, error)
}

// NewEngine creates an Engine that retries conflicting transactions up to
// maxAttempts times in total. Values below 1 fall back to the default.
func NewEngine(db *storage.DB, maxAttempts int, log *slog.Logger) *Engine {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		db:          db,
		maxAttempts: maxAttempts,
		backoff:     10 * time.Millisecond,
		now:         time.Now,
		log:         log,
	}
	e.attempt = e.apply
	return e
}

// CreateTransaction validates req on behalf of userID and applies it.
//
// It returns a *ValidationError, *PermissionError or *NotFoundError when the
// request is rejected, in which case nothing was written. Ownership of the
// sender is checked before the shape of the request, so a foreign sender is
// always a *PermissionError. ErrLedgerBusy means the retry budget was
// exhausted by concurrent updates.
func (e *Engine) CreateTransaction(ctx context.Context, userID int64, req TransactionRequest) (*models.Transaction, error) {
	for attempt := 1; ; attempt++ {
		txn, err := e.attempt(ctx, userID, req)
		if err == nil {
			return txn, nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			return nil, err
		}
		if attempt >= e.maxAttempts {
			e.log.Warn("transaction retry budget exhausted",
				"sender", req.SenderID, "attempts", attempt, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrLedgerBusy, err)
		}

		e.log.Debug("retrying conflicting transaction", "sender", req.SenderID, "attempt", attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.backoff * time.Duration(attempt)):
		}
	}
}

func (e *Engine) apply(ctx context.Context, userID int64, req TransactionRequest) (*models.Transaction, error) {
	var txn *models.Transaction
	err := e.db.InTx(ctx, func(tx *storage.Tx) error {
		ids := []int64{req.SenderID}
		if req.RecipientID != nil {
			ids = append(ids, *req.RecipientID)
		}
		accounts, err := tx.LockAccounts(ctx, ids...)
		if err != nil {
			return err
		}

		sender, ok := accounts[req.SenderID]
		if !ok {
			return accountNotFound("sender", req.SenderID)
		}
		if sender.UserID != userID {
			return ErrSenderNotOwned
		}
		if err := req.Normalize(); err != nil {
			return err
		}
		var recipient *models.Account
		if req.RecipientID != nil {
			if recipient, ok = accounts[*req.RecipientID]; !ok {
				return accountNotFound("recipient", *req.RecipientID)
			}
		}

		intent, err := Validate(userID, req.Kind, req.Amount, sender, recipient)
		if err != nil {
			return err
		}

		txn, err = e.write(ctx, tx, intent)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (e *Engine) write(ctx context.Context, tx *storage.Tx, intent Intent) (*models.Transaction, error) {
	now := e.now().UTC()
	txn := &models.Transaction{
		Kind:      intent.Kind,
		Amount:    intent.Amount,
		SenderID:  intent.Sender.ID,
		CreatedAt: now,
	}

	sent := newNotification(intent.Sender.UserID, intent.SentMessage(), now)
	if err := tx.CreateNotification(ctx, sent); err != nil {
		return nil, err
	}
	txn.SenderNotificationID = &sent.ID

	if intent.Recipient != nil {
		received := newNotification(intent.Recipient.UserID, intent.ReceivedMessage(), now)
		if err := tx.CreateNotification(ctx, received); err != nil {
			return nil, err
		}
		txn.RecipientID = &intent.Recipient.ID
		txn.RecipientNotificationID = &received.ID
	}

	if err := tx.SetBalance(ctx, intent.Sender.ID, intent.SenderBalance); err != nil {
		return nil, err
	}
	if intent.Recipient != nil {
		if err := tx.SetBalance(ctx, intent.Recipient.ID, intent.RecipientBalance); err != nil {
			return nil, err
		}
	}

	if err := tx.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}
