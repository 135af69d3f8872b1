package bank

import (
	"context"
	"errors"

	"bankly/internal/models"
	"bankly/internal/storage"
)

// Authorizer answers whether an account belongs to a user.
type Authorizer interface {
	AccountOwnedBy(ctx context.Context, accountID, userID int64) (bool, error)
}

// Queries serves the read side: accounts and statements. It also opens
// accounts, the one write that needs no ledger rules.
type Queries struct {
	db    *storage.DB
	authz Authorizer
}

// NewQueries creates the query layer. A nil authz checks ownership against db.
func NewQueries(db *storage.DB, authz Authorizer) *Queries {
	if authz == nil {
		authz = db
	}
	return &Queries{db: db, authz: authz}
}

// OpenAccount creates a zero-balance account of the given kind for userID.
// An empty kind opens an individual account.
func (q *Queries) OpenAccount(ctx context.Context, userID int64, kind models.AccountKind) (*models.Account, error) {
	if kind == "" {
		kind = models.Individual
	}
	if !kind.Valid() {
		return nil, invalidChoice("account_type", string(kind))
	}
	return q.db.CreateAccount(ctx, userID, kind)
}

// ListAccounts returns the accounts owned by userID. The result is empty,
// not nil, when there are none.
func (q *Queries) ListAccounts(ctx context.Context, userID int64) ([]models.Account, error) {
	return q.db.ListAccounts(ctx, userID)
}

// Account returns a single account owned by userID.
func (q *Queries) Account(ctx context.Context, userID, accountID int64) (*models.Account, error) {
	a, err := q.db.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrStatementForbidden
		}
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrStatementForbidden
	}
	return a, nil
}

// Statement returns every transaction the account sent or received, newest
// first. Accounts userID does not own, including ones that do not exist,
// yield ErrStatementForbidden.
func (q *Queries) Statement(ctx context.Context, userID, accountID int64) ([]models.Transaction, error) {
	owned, err := q.authz.AccountOwnedBy(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrStatementForbidden
	}
	return q.db.ListStatement(ctx, accountID)
}
