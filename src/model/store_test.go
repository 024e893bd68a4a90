// backend/src/model/store_test.go
package model

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/username/contazen/backend/src/models"
)

const testSchema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL DEFAULT '',
	auth_provider TEXT DEFAULT 'local',
	login_count INTEGER NOT NULL DEFAULT 0,
	last_login_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	token TEXT NOT NULL UNIQUE,
	refresh_token TEXT NOT NULL UNIQUE,
	expires_at TIMESTAMP NOT NULL,
	refresh_expires_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE accounts (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	bank_name TEXT NOT NULL DEFAULT '',
	initial_balance TEXT NOT NULL DEFAULT '0',
	current_balance TEXT NOT NULL DEFAULT '0',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE categories (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	budget_limit TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (user_id, name)
);
CREATE TABLE transactions (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	date TIMESTAMP NOT NULL,
	due_date TIMESTAMP,
	description TEXT NOT NULL,
	amount TEXT NOT NULL,
	type TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	is_paid BOOLEAN NOT NULL,
	source TEXT NOT NULL,
	recurrence TEXT,
	account_id TEXT,
	destination_account_id TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAccountRoundTrip(t *testing.T) {
	db := newTestDB(t)

	acc := models.Account{
		ID:             uuid.New().String(),
		UserID:         1,
		Name:           "Conta Corrente",
		BankName:       "Banco do Brasil",
		InitialBalance: decimal.RequireFromString("-150.25"),
		CurrentBalance: decimal.RequireFromString("-150.25"),
	}
	require.NoError(t, CreateAccount(db, &acc))

	got, err := GetAccountByID(db, 1, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, acc.Name, got.Name)
	assert.True(t, got.InitialBalance.Equal(acc.InitialBalance), "negative starting balances survive the round trip")

	got.Name = "Conta Principal"
	require.NoError(t, UpdateAccount(db, &got))

	listed, err := ListAccounts(db, 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Conta Principal", listed[0].Name)

	require.NoError(t, RefreshAccountBalanceCache(db, 1, acc.ID, decimal.RequireFromString("999")))
	got, err = GetAccountByID(db, 1, acc.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(decimal.RequireFromString("999")))

	require.NoError(t, DeleteAccount(db, 1, acc.ID))
	assert.ErrorIs(t, DeleteAccount(db, 1, acc.ID), sql.ErrNoRows)
}

func TestAccountOwnershipScoping(t *testing.T) {
	db := newTestDB(t)

	acc := models.Account{ID: uuid.New().String(), UserID: 1, Name: "Mine"}
	require.NoError(t, CreateAccount(db, &acc))

	_, err := GetAccountByID(db, 2, acc.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, DeleteAccount(db, 2, acc.ID), sql.ErrNoRows)
}

func TestTransactionFilters(t *testing.T) {
	db := newTestDB(t)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mk := func(desc string, txType models.TransactionType, category string, isPaid bool, date time.Time, accountID string) {
		tx := models.Transaction{
			ID: uuid.New().String(), UserID: 1, Date: date, Description: desc,
			Amount: decimal.RequireFromString("10"), Type: txType, Category: category,
			Status: models.StatusConfirmed, IsPaid: isPaid, Source: models.SourceManual,
			AccountID: accountID,
		}
		require.NoError(t, CreateTransaction(db, &tx))
	}

	mk("paid groceries", models.TypeExpense, "Groceries", true, base, "acc-1")
	mk("unpaid groceries", models.TypeExpense, "Groceries", false, base.AddDate(0, 0, 1), "acc-1")
	mk("salary", models.TypeIncome, "Salary", true, base.AddDate(0, 0, 2), "acc-2")
	mk("old expense", models.TypeExpense, "Groceries", true, base.AddDate(0, -2, 0), "acc-1")

	all, err := ListTransactions(db, 1, TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	byCategory, err := ListTransactions(db, 1, TransactionFilter{Category: "Groceries"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 3)

	paid := true
	paidOnly, err := ListTransactions(db, 1, TransactionFilter{IsPaid: &paid})
	require.NoError(t, err)
	assert.Len(t, paidOnly, 3)

	byAccount, err := ListTransactions(db, 1, TransactionFilter{AccountID: "acc-2"})
	require.NoError(t, err)
	require.Len(t, byAccount, 1)
	assert.Equal(t, "salary", byAccount[0].Description)

	windowed, err := ListTransactions(db, 1, TransactionFilter{
		From: base.AddDate(0, 0, -1),
		To:   base.AddDate(0, 0, 2), // exclusive: salary on day +2 is out
	})
	require.NoError(t, err)
	assert.Len(t, windowed, 2)

	none, err := ListTransactions(db, 2, TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTransactionPaidAndStatusUpdates(t *testing.T) {
	db := newTestDB(t)

	due := time.Now().AddDate(0, 0, 7)
	tx := models.Transaction{
		ID: uuid.New().String(), UserID: 1, Date: time.Now(), DueDate: &due,
		Description: "Cartão de crédito", Amount: decimal.RequireFromString("830.12"),
		Type: models.TypeExpense, Category: "Card", Status: models.StatusPendingAudit,
		IsPaid: false, Source: models.SourceManual,
	}
	require.NoError(t, CreateTransaction(db, &tx))

	require.NoError(t, MarkTransactionPaid(db, 1, tx.ID, true))
	got, err := GetTransactionByID(db, 1, tx.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	assert.Equal(t, models.StatusPendingAudit, got.Status, "settlement must not touch the audit status")

	require.NoError(t, SetTransactionStatus(db, 1, tx.ID, models.StatusRejected))
	got, err = GetTransactionByID(db, 1, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.True(t, got.IsPaid, "audit review must not touch settlement")

	assert.ErrorIs(t, MarkTransactionPaid(db, 2, tx.ID, false), sql.ErrNoRows)
	assert.ErrorIs(t, SetTransactionStatus(db, 1, "missing", models.StatusConfirmed), sql.ErrNoRows)
}

func TestCategoryBudgetLimitRoundTrip(t *testing.T) {
	db := newTestDB(t)

	unbudgeted := models.Category{
		ID: uuid.New().String(), UserID: 1, Name: "Salary", Type: models.CategoryIncome,
	}
	require.NoError(t, CreateCategory(db, &unbudgeted))

	budgeted := models.Category{
		ID: uuid.New().String(), UserID: 1, Name: "Dining", Type: models.CategoryExpense,
		BudgetLimit: decimal.NewNullDecimal(decimal.RequireFromString("600")),
	}
	require.NoError(t, CreateCategory(db, &budgeted))

	got, err := GetCategoryByID(db, 1, budgeted.ID)
	require.NoError(t, err)
	require.True(t, got.BudgetLimit.Valid)
	assert.True(t, got.BudgetLimit.Decimal.Equal(decimal.RequireFromString("600")))

	got, err = GetCategoryByID(db, 1, unbudgeted.ID)
	require.NoError(t, err)
	assert.False(t, got.BudgetLimit.Valid)

	// Clearing the limit persists as NULL, not zero.
	budgeted.BudgetLimit = decimal.NullDecimal{}
	require.NoError(t, UpdateCategory(db, &budgeted))
	got, err = GetCategoryByID(db, 1, budgeted.ID)
	require.NoError(t, err)
	assert.False(t, got.BudgetLimit.Valid)

	dup := models.Category{ID: uuid.New().String(), UserID: 1, Name: "Dining", Type: models.CategoryExpense}
	assert.Error(t, CreateCategory(db, &dup), "category names are unique per user")
}

func TestDeleteCategoryKeepsTransactions(t *testing.T) {
	db := newTestDB(t)

	cat := models.Category{ID: uuid.New().String(), UserID: 1, Name: "Hobby", Type: models.CategoryExpense}
	require.NoError(t, CreateCategory(db, &cat))

	tx := models.Transaction{
		ID: uuid.New().String(), UserID: 1, Date: time.Now(), Description: "Tinta",
		Amount: decimal.RequireFromString("40"), Type: models.TypeExpense, Category: "Hobby",
		Status: models.StatusConfirmed, IsPaid: true, Source: models.SourceManual,
	}
	require.NoError(t, CreateTransaction(db, &tx))

	require.NoError(t, DeleteCategory(db, 1, cat.ID))

	got, err := GetTransactionByID(db, 1, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hobby", got.Category, "the label stays on the transaction after the category is gone")
}

func TestSessionLifecycle(t *testing.T) {
	db := newTestDB(t)

	u := User{Username: "ana", Email: "ana@example.com"}
	require.NoError(t, u.HashPassword("segredo1"))
	require.NoError(t, u.CreateUser(db))
	require.NotZero(t, u.ID)

	session := &Session{
		UserID:           u.ID,
		Token:            "tok-1",
		RefreshToken:     "ref-1",
		ExpiresAt:        time.Now().Add(15 * time.Minute),
		RefreshExpiresAt: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, CreateSession(db, session))

	byToken, err := GetSessionByToken(db, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byToken.UserID)

	byRefresh, err := GetSessionByRefreshToken(db, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, byToken.ID, byRefresh.ID)

	require.NoError(t, DeleteSessionsByUserID(db, u.ID))
	_, err = GetSessionByToken(db, "tok-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
