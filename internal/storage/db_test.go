package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"bankly/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite exercises the ledger store against an in-memory SQLite database.
type DBTestSuite struct {
	suite.Suite
	db   *DB
	ctx  context.Context
	user *models.User
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()

	user, err := suite.db.CreateUser(suite.ctx, "alice", "alice@example.com", "hash")
	require.NoError(suite.T(), err, "failed to create test user")
	suite.user = user
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) TestCreateUserDuplicate() {
	_, err := suite.db.CreateUser(suite.ctx, "alice", "", "other")
	assert.ErrorIs(suite.T(), err, ErrDuplicate)
}

func (suite *DBTestSuite) TestGetUser() {
	byName, err := suite.db.GetUserByUsername(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.user.ID, byName.ID)
	assert.Equal(suite.T(), "alice@example.com", byName.Email)

	byID, err := suite.db.GetUserByID(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "alice", byID.Username)

	_, err = suite.db.GetUserByUsername(suite.ctx, "nobody")
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	count, err := suite.db.UserCount(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *DBTestSuite) TestCreateAccountStartsAtZero() {
	a, err := suite.db.CreateAccount(suite.ctx, suite.user.ID, models.Company)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.Company, a.Kind)
	assert.True(suite.T(), a.Balance.IsZero(), "new account balance should be zero")

	got, err := suite.db.GetAccount(suite.ctx, a.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.user.ID, got.UserID)
}

func (suite *DBTestSuite) TestListAccountsScopedToOwner() {
	other, err := suite.db.CreateUser(suite.ctx, "bob", "", "hash")
	require.NoError(suite.T(), err)

	first, err := suite.db.CreateAccount(suite.ctx, suite.user.ID, models.Individual)
	require.NoError(suite.T(), err)
	second, err := suite.db.CreateAccount(suite.ctx, suite.user.ID, models.Company)
	require.NoError(suite.T(), err)
	_, err = suite.db.CreateAccount(suite.ctx, other.ID, models.Individual)
	require.NoError(suite.T(), err)

	accounts, err := suite.db.ListAccounts(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	if assert.Len(suite.T(), accounts, 2) {
		assert.Equal(suite.T(), first.ID, accounts[0].ID)
		assert.Equal(suite.T(), second.ID, accounts[1].ID)
	}

	none, err := suite.db.ListAccounts(suite.ctx, 9999)
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), none)
	assert.Empty(suite.T(), none)
}

func (suite *DBTestSuite) TestAccountOwnedBy() {
	a, err := suite.db.CreateAccount(suite.ctx, suite.user.ID, models.Individual)
	require.NoError(suite.T(), err)

	owned, err := suite.db.AccountOwnedBy(suite.ctx, a.ID, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), owned)

	owned, err = suite.db.AccountOwnedBy(suite.ctx, a.ID, suite.user.ID+1)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), owned)

	owned, err = suite.db.AccountOwnedBy(suite.ctx, a.ID+100, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), owned)
}

func (suite *DBTestSuite) TestSetBalanceKeepsTwoDecimals() {
	a, err := suite.db.CreateAccount(suite.ctx, suite.user.ID, models.Individual)
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.db.SetBalance(suite.ctx, a.ID, decimal.RequireFromString("1000.5")))

	got, err := suite.db.GetAccount(suite.ctx, a.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "1000.50", got.Balance.StringFixed(2))

	err = suite.db.SetBalance(suite.ctx, a.ID+100, decimal.NewFromInt(1))
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestInTxRollsBackOnError() {
	a, err := suite.db.CreateAccount(suite.ctx, suite.user.ID, models.Individual)
	require.NoError(suite.T(), err)

	boom := errors.New("boom")
	err = suite.db.InTx(suite.ctx, func(tx *Tx) error {
		if err := tx.SetBalance(suite.ctx, a.ID, decimal.NewFromInt(50)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(suite.T(), err, boom)

	got, err := suite.db.GetAccount(suite.ctx, a.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), got.Balance.IsZero(), "balance change should have been rolled back")
}

func (suite *DBTestSuite) TestLockAccountsSkipsMissing() {
	a, err := suite.db.CreateAccount(suite.ctx, suite.user.ID, models.Individual)
	require.NoError(suite.T(), err)

	err = suite.db.InTx(suite.ctx, func(tx *Tx) error {
		locked, err := tx.LockAccounts(suite.ctx, a.ID, a.ID+100, a.ID)
		if err != nil {
			return err
		}
		assert.Len(suite.T(), locked, 1)
		assert.Contains(suite.T(), locked, a.ID)
		return nil
	})
	require.NoError(suite.T(), err)
}

// recordTransfer writes a transfer with both notifications the way the ledger does.
func (suite *DBTestSuite) recordTransfer(sender, recipient *models.Account, amount string, at time.Time) *models.Transaction {
	var txn *models.Transaction
	err := suite.db.InTx(suite.ctx, func(tx *Tx) error {
		sent := &models.Notification{UserID: sender.UserID, Message: "sent", CreatedAt: at}
		if err := tx.CreateNotification(suite.ctx, sent); err != nil {
			return err
		}
		received := &models.Notification{UserID: recipient.UserID, Message: "received", CreatedAt: at}
		if err := tx.CreateNotification(suite.ctx, received); err != nil {
			return err
		}
		txn = &models.Transaction{
			Kind:                    models.Transfer,
			Amount:                  decimal.RequireFromString(amount),
			SenderID:                sender.ID,
			RecipientID:             &recipient.ID,
			SenderNotificationID:    &sent.ID,
			RecipientNotificationID: &received.ID,
			CreatedAt:               at,
		}
		return tx.CreateTransaction(suite.ctx, txn)
	})
	require.NoError(suite.T(), err)
	return txn
}

func (suite *DBTestSuite) TestStatementNewestFirst() {
	a, err := suite.db.CreateAccount(suite.ctx, suite.user.ID, models.Individual)
	require.NoError(suite.T(), err)
	b, err := suite.db.CreateAccount(suite.ctx, suite.user.ID, models.Individual)
	require.NoError(suite.T(), err)
	c, err := suite.db.CreateAccount(suite.ctx, suite.user.ID, models.Individual)
	require.NoError(suite.T(), err)

	base := time.Now().UTC()
	outgoing := suite.recordTransfer(a, b, "10.00", base)
	incoming := suite.recordTransfer(b, a, "2.50", base.Add(time.Minute))
	suite.recordTransfer(b, c, "1.00", base.Add(2*time.Minute))

	statement, err := suite.db.ListStatement(suite.ctx, a.ID)
	require.NoError(suite.T(), err)
	if assert.Len(suite.T(), statement, 2) {
		assert.Equal(suite.T(), incoming.ID, statement[0].ID)
		assert.Equal(suite.T(), outgoing.ID, statement[1].ID)
		assert.Equal(suite.T(), "2.50", statement[0].Amount.StringFixed(2))
		require.NotNil(suite.T(), statement[1].RecipientID)
		assert.Equal(suite.T(), b.ID, *statement[1].RecipientID)
	}

	empty, err := suite.db.ListStatement(suite.ctx, a.ID+100)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), empty)
}

func (suite *DBTestSuite) TestUnreadNotificationsAndMarkRead() {
	for _, msg := range []string{"first", "second"} {
		n := &models.Notification{UserID: suite.user.ID, Message: msg, CreatedAt: time.Now().UTC()}
		require.NoError(suite.T(), suite.db.CreateNotification(suite.ctx, n))
	}

	unread, err := suite.db.ListUnreadNotifications(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), unread, 2)
	assert.Equal(suite.T(), "first", unread[0].Message)

	require.NoError(suite.T(), suite.db.MarkNotificationRead(suite.ctx, suite.user.ID, unread[0].ID))
	// Marking twice is not an error.
	require.NoError(suite.T(), suite.db.MarkNotificationRead(suite.ctx, suite.user.ID, unread[0].ID))

	unread, err = suite.db.ListUnreadNotifications(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	if assert.Len(suite.T(), unread, 1) {
		assert.Equal(suite.T(), "second", unread[0].Message)
	}

	err = suite.db.MarkNotificationRead(suite.ctx, suite.user.ID+1, unread[0].ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestDeleteNotificationClearsTransactionLink() {
	other, err := suite.db.CreateUser(suite.ctx, "bob", "", "hash")
	require.NoError(suite.T(), err)
	a, err := suite.db.CreateAccount(suite.ctx, suite.user.ID, models.Individual)
	require.NoError(suite.T(), err)
	b, err := suite.db.CreateAccount(suite.ctx, other.ID, models.Individual)
	require.NoError(suite.T(), err)

	txn := suite.recordTransfer(a, b, "5.00", time.Now().UTC())

	// Only the owner may delete.
	err = suite.db.DeleteNotification(suite.ctx, other.ID, *txn.SenderNotificationID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	require.NoError(suite.T(), suite.db.DeleteNotification(suite.ctx, suite.user.ID, *txn.SenderNotificationID))

	got, err := suite.db.GetTransaction(suite.ctx, txn.ID)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), got.SenderNotificationID)
	require.NotNil(suite.T(), got.RecipientNotificationID)
	assert.Equal(suite.T(), *txn.RecipientNotificationID, *got.RecipientNotificationID)

	_, err = suite.db.GetNotification(suite.ctx, suite.user.ID, *txn.SenderNotificationID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func TestRebind(t *testing.T) {
	q := "SELECT 1 FROM accounts WHERE id = ? AND user_id = ?"
	assert.Equal(t, q, rebind(sqliteDialect, q))
	assert.Equal(t, "SELECT 1 FROM accounts WHERE id = $1 AND user_id = $2", rebind(postgresDialect, q))
}

// Test suite runner
func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}
