package bank

import (
	"fmt"

	"bankly/internal/models"

	"github.com/shopspring/decimal"
)

// balanceLimit is the first value a NUMERIC(10,2) column cannot hold.
var balanceLimit = decimal.New(1, 8)

// TransactionRequest is a proposed money movement as submitted by a user.
type TransactionRequest struct {
	SenderID    int64
	RecipientID *int64
	Kind        models.TransactionKind
	Amount      decimal.Decimal
}

// Normalize applies defaults and checks the request shape: a known kind
// (withdraw when empty) and a positive amount with at most two fraction
// digits and eight integer digits.
func (r *TransactionRequest) Normalize() error {
	if r.Kind == "" {
		r.Kind = models.Withdraw
	}
	if !r.Kind.Valid() {
		return invalidChoice("transaction_type", string(r.Kind))
	}
	return CheckAmount(r.Amount)
}

// CheckAmount validates an amount against decimal(10,2) field semantics.
func CheckAmount(amount decimal.Decimal) error {
	switch {
	case !amount.IsPositive():
		return ErrAmountNotPositive
	case !amount.Equal(amount.Truncate(2)):
		return ErrAmountPlaces
	case amount.GreaterThanOrEqual(balanceLimit):
		return ErrAmountDigits
	}
	return nil
}

// CheckBalance validates a balance an operator sets directly: non-negative,
// at most two fraction digits and below the account limit.
func CheckBalance(balance decimal.Decimal) error {
	switch {
	case balance.IsNegative():
		return ErrBalanceNegative
	case !balance.Equal(balance.Truncate(2)):
		return ErrBalancePlaces
	case balance.GreaterThanOrEqual(balanceLimit):
		return ErrBalanceDigits
	}
	return nil
}

// Intent is a validated transaction, ready to be applied. It carries the
// balances both accounts will hold once it commits.
type Intent struct {
	Kind             models.TransactionKind
	Amount           decimal.Decimal
	Sender           *models.Account
	Recipient        *models.Account
	SenderBalance    decimal.Decimal
	RecipientBalance decimal.Decimal
}

// Validate checks a transaction against the current state of its accounts.
// recipient is nil when the request names none. The rules run in order and
// the first failure is returned:
//
//  1. the sender belongs to userID
//  2. the recipient fits the kind (withdraw: none, pay_bill: a company, transfer: any)
//  3. the sender balance covers the amount
//  4. sender and recipient differ
//
// Validate touches no storage.
func Validate(userID int64, kind models.TransactionKind, amount decimal.Decimal, sender, recipient *models.Account) (Intent, error) {
	if sender.UserID != userID {
		return Intent{}, ErrSenderNotOwned
	}

	switch kind {
	case models.Withdraw:
		if recipient != nil {
			return Intent{}, ErrWithdrawRecipient
		}
	case models.PayBill:
		if recipient == nil || recipient.Kind != models.Company {
			return Intent{}, ErrPayBillRecipient
		}
	case models.Transfer:
		if recipient == nil {
			return Intent{}, ErrTransferRecipient
		}
	default:
		return Intent{}, invalidChoice("transaction_type", string(kind))
	}

	senderBalance := sender.Balance.Sub(amount)
	if senderBalance.IsNegative() {
		return Intent{}, ErrInsufficientFunds
	}

	intent := Intent{
		Kind:          kind,
		Amount:        amount,
		Sender:        sender,
		SenderBalance: senderBalance,
	}
	if recipient == nil {
		return intent, nil
	}

	if recipient.ID == sender.ID {
		return Intent{}, ErrSelfTransaction
	}
	intent.Recipient = recipient
	intent.RecipientBalance = recipient.Balance.Add(amount)
	if intent.RecipientBalance.GreaterThanOrEqual(balanceLimit) {
		return Intent{}, ErrBalanceLimit
	}
	return intent, nil
}

// SentMessage is the notification text for the sending side.
func (i Intent) SentMessage() string {
	return fmt.Sprintf("You sent %s EGP in a transaction.", i.Amount.StringFixed(2))
}

// ReceivedMessage is the notification text for the receiving side.
func (i Intent) ReceivedMessage() string {
	return fmt.Sprintf("You received %s EGP in a transaction.", i.Amount.StringFixed(2))
}
