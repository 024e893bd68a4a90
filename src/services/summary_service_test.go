// backend/src/services/summary_service_test.go
package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/contazen/backend/src/model"
	"github.com/username/contazen/backend/src/models"
)

func seedAccount(t *testing.T, db *sql.DB, userID int64, name, initial string) models.Account {
	t.Helper()
	acc := models.Account{
		ID:             uuid.New().String(),
		UserID:         userID,
		Name:           name,
		InitialBalance: decimal.RequireFromString(initial),
		CurrentBalance: decimal.RequireFromString(initial),
	}
	require.NoError(t, model.CreateAccount(db, &acc))
	return acc
}

func seedTransaction(t *testing.T, db *sql.DB, tx models.Transaction) models.Transaction {
	t.Helper()
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Date.IsZero() {
		tx.Date = time.Now()
	}
	if tx.Status == "" {
		tx.Status = models.StatusConfirmed
	}
	if tx.Source == "" {
		tx.Source = models.SourceManual
	}
	require.NoError(t, model.CreateTransaction(db, &tx))
	return tx
}

func newSummaryService(t *testing.T, db *sql.DB) SummaryService {
	t.Helper()
	return NewSummaryService(db, cache.New(DefaultCacheExpiration, CacheCleanupInterval))
}

func TestGetSummaryBalancesAndMonthTotals(t *testing.T) {
	db := newTestDB(t)
	acc := seedAccount(t, db, 1, "Corrente", "1000")

	seedTransaction(t, db, models.Transaction{
		UserID: 1, Description: "Salário", Amount: decimal.RequireFromString("3000"),
		Type: models.TypeIncome, Category: "Salary", IsPaid: true, AccountID: acc.ID,
	})
	seedTransaction(t, db, models.Transaction{
		UserID: 1, Description: "Mercado", Amount: decimal.RequireFromString("450.50"),
		Type: models.TypeExpense, Category: "Groceries", IsPaid: true, AccountID: acc.ID,
	})
	// Unpaid expenses never count toward balances or month totals.
	seedTransaction(t, db, models.Transaction{
		UserID: 1, Description: "Fatura futura", Amount: decimal.RequireFromString("200"),
		Type: models.TypeExpense, Category: "Groceries", IsPaid: false, AccountID: acc.ID,
	})

	summary, err := newSummaryService(t, db).GetSummary(1)
	require.NoError(t, err)

	assert.True(t, summary.GlobalBalance.Equal(decimal.RequireFromString("3549.50")),
		"got %s", summary.GlobalBalance)
	assert.True(t, summary.AccountBalances[acc.ID].Equal(decimal.RequireFromString("3549.50")))
	assert.True(t, summary.MonthIncome.Equal(decimal.RequireFromString("3000")))
	assert.True(t, summary.MonthExpense.Equal(decimal.RequireFromString("450.50")))
	assert.True(t, summary.SpendByCategory[models.UncategorizedLabel].Equal(decimal.RequireFromString("450.50")),
		"a label without a matching category aggregates under the display bucket")
}

func TestGetSummarySpendBucketsAndPendingObligations(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, model.CreateCategory(db, &models.Category{
		ID: uuid.New().String(), UserID: 1, Name: "Groceries", Type: models.CategoryExpense,
	}))

	seedTransaction(t, db, models.Transaction{
		UserID: 1, Description: "Mercado", Amount: decimal.RequireFromString("300"),
		Type: models.TypeExpense, Category: "Groceries", IsPaid: true,
	})
	seedTransaction(t, db, models.Transaction{
		UserID: 1, Description: "Categoria apagada", Amount: decimal.RequireFromString("80"),
		Type: models.TypeExpense, Category: "Ghost", IsPaid: true,
	})

	due := time.Now().AddDate(0, 0, 5)
	seedTransaction(t, db, models.Transaction{
		UserID: 1, Description: "Conta de luz", Amount: decimal.RequireFromString("210"),
		Type: models.TypeExpense, Category: "Utilities", IsPaid: false, DueDate: &due,
	})

	summary, err := newSummaryService(t, db).GetSummary(1)
	require.NoError(t, err)

	assert.True(t, summary.SpendByCategory["Groceries"].Equal(decimal.RequireFromString("300")))
	assert.True(t, summary.SpendByCategory[models.UncategorizedLabel].Equal(decimal.RequireFromString("80")))
	assert.True(t, summary.PendingObligations.Equal(decimal.RequireFromString("210")))
}

func TestGetSummaryBudgetAlerts(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, model.CreateCategory(db, &models.Category{
		ID: uuid.New().String(), UserID: 1, Name: "Dining", Type: models.CategoryExpense,
		BudgetLimit: decimal.NewNullDecimal(decimal.RequireFromString("500")),
	}))
	require.NoError(t, model.CreateCategory(db, &models.Category{
		ID: uuid.New().String(), UserID: 1, Name: "Transport", Type: models.CategoryExpense,
		BudgetLimit: decimal.NewNullDecimal(decimal.RequireFromString("500")),
	}))

	// 92% of the Dining budget crosses the critical threshold.
	seedTransaction(t, db, models.Transaction{
		UserID: 1, Description: "Restaurantes", Amount: decimal.RequireFromString("460"),
		Type: models.TypeExpense, Category: "Dining", IsPaid: true,
	})
	// 10% of the Transport budget stays below every threshold.
	seedTransaction(t, db, models.Transaction{
		UserID: 1, Description: "Ônibus", Amount: decimal.RequireFromString("50"),
		Type: models.TypeExpense, Category: "Transport", IsPaid: true,
	})

	summary, err := newSummaryService(t, db).GetSummary(1)
	require.NoError(t, err)

	require.Len(t, summary.BudgetAlerts, 1, "only over-threshold categories alert")
	alert := summary.BudgetAlerts[0]
	assert.Equal(t, "Dining", alert.CategoryName)
	assert.Equal(t, "critical", alert.Severity)
	assert.True(t, alert.Remaining.Equal(decimal.RequireFromString("40")))
}

func TestGetSummaryCaching(t *testing.T) {
	db := newTestDB(t)
	svc := newSummaryService(t, db)
	acc := seedAccount(t, db, 1, "Corrente", "0")

	first, err := svc.GetSummary(1)
	require.NoError(t, err)
	assert.True(t, first.GlobalBalance.Equal(decimal.Zero))

	// A write that bypasses invalidation is not visible through the cache.
	seedTransaction(t, db, models.Transaction{
		UserID: 1, Description: "Venda", Amount: decimal.RequireFromString("100"),
		Type: models.TypeIncome, IsPaid: true, AccountID: acc.ID,
	})
	cached, err := svc.GetSummary(1)
	require.NoError(t, err)
	assert.True(t, cached.GlobalBalance.Equal(decimal.Zero))

	svc.InvalidateUserCache(1)
	fresh, err := svc.GetSummary(1)
	require.NoError(t, err)
	assert.True(t, fresh.GlobalBalance.Equal(decimal.RequireFromString("100")))
}

func TestGetSummaryIsolatedPerUser(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, 1, "Mine", "500")
	seedAccount(t, db, 2, "Theirs", "9000")

	summary, err := newSummaryService(t, db).GetSummary(1)
	require.NoError(t, err)

	assert.True(t, summary.GlobalBalance.Equal(decimal.RequireFromString("500")))
	assert.Len(t, summary.AccountBalances, 1)
}
