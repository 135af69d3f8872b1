package handlers

import (
	"time"

	"bankly/internal/models"

	"github.com/shopspring/decimal"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type accessResponse struct {
	Access string `json:"access"`
}

type accountRequest struct {
	AccountType models.AccountKind `json:"account_type"`
}

type accountCreatedResponse struct {
	ID          int64              `json:"id"`
	AccountType models.AccountKind `json:"account_type"`
}

type accountResponse struct {
	ID          int64              `json:"id"`
	User        int64              `json:"user"`
	Balance     string             `json:"balance"`
	AccountType models.AccountKind `json:"account_type"`
}

func newAccountResponse(a models.Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		User:        a.UserID,
		Balance:     a.Balance.StringFixed(2),
		AccountType: a.Kind,
	}
}

// transactionRequest uses pointers so absent fields can be told apart from zero values.
type transactionRequest struct {
	Sender          *int64                 `json:"sender"`
	Recipient       *int64                 `json:"recipient"`
	TransactionType models.TransactionKind `json:"transaction_type"`
	Amount          *decimal.Decimal       `json:"amount"`
}

type transactionResponse struct {
	ID              int64                  `json:"id"`
	TransactionType models.TransactionKind `json:"transaction_type"`
	Amount          string                 `json:"amount"`
	Recipient       *int64                 `json:"recipient"`
	Sender          int64                  `json:"sender"`
}

func newTransactionResponse(t models.Transaction) transactionResponse {
	return transactionResponse{
		ID:              t.ID,
		TransactionType: t.Kind,
		Amount:          t.Amount.StringFixed(2),
		Recipient:       t.RecipientID,
		Sender:          t.SenderID,
	}
}

type notificationResponse struct {
	ID        int64     `json:"id"`
	User      int64     `json:"user"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	Timestamp time.Time `json:"timestamp"`
}

func newNotificationResponse(n models.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		User:      n.UserID,
		Message:   n.Message,
		IsRead:    n.IsRead,
		Timestamp: n.CreatedAt,
	}
}
