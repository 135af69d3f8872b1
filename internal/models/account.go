package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind distinguishes personal accounts from accounts that can receive bill payments.
type AccountKind string

const (
	Individual AccountKind = "individual"
	Company    AccountKind = "company"
)

// Valid reports whether k is one of the known account kinds.
func (k AccountKind) Valid() bool {
	return k == Individual || k == Company
}

// TransactionKind is the kind of money movement a transaction performs.
type TransactionKind string

const (
	Withdraw TransactionKind = "withdraw"
	PayBill  TransactionKind = "pay_bill"
	Transfer TransactionKind = "transfer"
)

// Valid reports whether k is one of the known transaction kinds.
func (k TransactionKind) Valid() bool {
	switch k {
	case Withdraw, PayBill, Transfer:
		return true
	}
	return false
}

// Account is a balance-holding entity owned by exactly one user.
type Account struct {
	ID        int64
	UserID    int64
	Kind      AccountKind
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// Transaction is an immutable record of a balance movement.
// RecipientID is nil for withdrawals. The notification links are weak:
// they are cleared when the referenced notification is deleted.
type Transaction struct {
	ID                      int64
	Kind                    TransactionKind
	Amount                  decimal.Decimal
	SenderID                int64
	RecipientID             *int64
	SenderNotificationID    *int64
	RecipientNotificationID *int64
	CreatedAt               time.Time
}

// Notification is a per-user message created as a side effect of a transaction.
type Notification struct {
	ID        int64
	UserID    int64
	Message   string
	IsRead    bool
	CreatedAt time.Time
}
