package bank

import (
	"errors"
	"fmt"
)

// ValidationError is a rejected input, reported against the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// PermissionError is an authorization failure: the caller may not act on
// the referenced resource.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string {
	return e.Message
}

// NotFoundError reports a referenced id that does not exist.
type NotFoundError struct {
	Field   string
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Field + ": " + e.Message
}

func accountNotFound(field string, id int64) *NotFoundError {
	return &NotFoundError{
		Field:   field,
		Message: fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id),
	}
}

// Rule violations. Each is returned as-is so callers can match with errors.Is.
var (
	ErrSenderNotOwned = &PermissionError{Message: "sender account does not belong to the authenticated user."}

	ErrWithdrawRecipient = &ValidationError{Field: "recipient", Message: "recipient must be empty for withdraw transactions."}
	ErrPayBillRecipient  = &ValidationError{Field: "recipient", Message: "recipient must be a company account for pay_bill transactions."}
	ErrTransferRecipient = &ValidationError{Field: "recipient", Message: "recipient must be specified for transfer transactions."}
	ErrInsufficientFunds = &ValidationError{Field: "amount", Message: "sender must have sufficient balance to perform the transaction."}
	ErrSelfTransaction   = &ValidationError{Field: "recipient", Message: "self transactions are not allowed."}
	ErrBalanceLimit      = &ValidationError{Field: "amount", Message: "recipient balance would exceed the account limit."}

	ErrAmountNotPositive = &ValidationError{Field: "amount", Message: "amount must be greater than zero."}
	ErrAmountPlaces      = &ValidationError{Field: "amount", Message: "Ensure that there are no more than 2 decimal places."}
	ErrAmountDigits      = &ValidationError{Field: "amount", Message: "Ensure that there are no more than 8 digits before the decimal point."}

	ErrBalanceNegative = &ValidationError{Field: "balance", Message: "balance must be non-negative."}
	ErrBalancePlaces   = &ValidationError{Field: "balance", Message: "Ensure that there are no more than 2 decimal places."}
	ErrBalanceDigits   = &ValidationError{Field: "balance", Message: "Ensure that there are no more than 8 digits before the decimal point."}

	ErrStatementForbidden = &PermissionError{Message: "You do not have permission to perform this action."}
	ErrNoNotification     = &NotFoundError{Field: "notification", Message: "Not found."}
)

// ErrLedgerBusy is returned when a transaction kept conflicting with
// concurrent updates until the retry budget ran out.
var ErrLedgerBusy = errors.New("ledger is busy, try again")

func invalidChoice(field, value string) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("%q is not a valid choice.", value)}
}
