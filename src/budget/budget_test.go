package budget_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/contazen/backend/src/budget"
	"github.com/username/contazen/backend/src/models"
)

var (
	periodStart = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func expense(t *testing.T, category, amount string, date time.Time, paid bool) models.Transaction {
	t.Helper()
	return models.Transaction{
		Type: models.TypeExpense, Category: category, Amount: dec(t, amount),
		Date: date, IsPaid: paid,
	}
}

func TestEvaluate_NoSpendIsZeroPercentOK(t *testing.T) {
	p, err := budget.Evaluate("Mercado", dec(t, "500"), nil, periodStart, periodEnd)
	require.NoError(t, err)

	assert.True(t, p.Spent.IsZero())
	assert.True(t, p.Percent.IsZero())
	assert.True(t, p.Remaining.Equal(dec(t, "500")))
	assert.Equal(t, budget.SeverityOK, p.Severity)
}

func TestEvaluate_NoLimitIsNotAnEvaluation(t *testing.T) {
	_, err := budget.Evaluate("Mercado", decimal.Zero, nil, periodStart, periodEnd)
	assert.ErrorIs(t, err, budget.ErrNoBudget)

	_, err = budget.Evaluate("Mercado", dec(t, "-10"), nil, periodStart, periodEnd)
	assert.ErrorIs(t, err, budget.ErrNoBudget)
}

func TestEvaluate_OverspendClampsPercentNotRemaining(t *testing.T) {
	txs := []models.Transaction{
		expense(t, "Mercado", "700", periodStart.AddDate(0, 0, 10), true),
	}
	p, err := budget.Evaluate("Mercado", dec(t, "500"), txs, periodStart, periodEnd)
	require.NoError(t, err)

	assert.True(t, p.Percent.Equal(dec(t, "100")), "percent must clamp at 100, got %s", p.Percent)
	assert.True(t, p.Remaining.Equal(dec(t, "-200")), "overspend must surface as negative remaining, got %s", p.Remaining)
	assert.Equal(t, budget.SeverityCritical, p.Severity)
}

func TestEvaluate_SeverityBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		spent string
		want  budget.Severity
	}{
		{"exactly 75 percent is ok", "75", budget.SeverityOK},
		{"just above 75 percent warns", "75.01", budget.SeverityWarning},
		{"exactly 90 percent warns", "90", budget.SeverityWarning},
		{"just above 90 percent is critical", "90.01", budget.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := []models.Transaction{
				expense(t, "Lazer", tt.spent, periodStart, true),
			}
			p, err := budget.Evaluate("Lazer", dec(t, "100"), txs, periodStart, periodEnd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Severity, "spent=%s percent=%s", tt.spent, p.Percent)
		})
	}
}

func TestEvaluate_FiltersByCategoryPaymentAndWindow(t *testing.T) {
	txs := []models.Transaction{
		expense(t, "Mercado", "100", periodStart, true),
		// Different category, unpaid, income, and out-of-window entries must not count.
		expense(t, "Transporte", "40", periodStart, true),
		expense(t, "Mercado", "60", periodStart.AddDate(0, 0, 5), false),
		{Type: models.TypeIncome, Category: "Mercado", Amount: dec(t, "30"), Date: periodStart, IsPaid: true},
		expense(t, "Mercado", "80", periodStart.AddDate(0, 0, -1), true),
		expense(t, "Mercado", "90", periodEnd, true),
	}

	p, err := budget.Evaluate("Mercado", dec(t, "500"), txs, periodStart, periodEnd)
	require.NoError(t, err)
	assert.True(t, p.Spent.Equal(dec(t, "100")), "got %s", p.Spent)
}

func TestEvaluate_PeriodStartInclusiveEndExclusive(t *testing.T) {
	txs := []models.Transaction{
		expense(t, "Mercado", "10", periodStart, true),
		expense(t, "Mercado", "20", periodEnd.Add(-time.Second), true),
		expense(t, "Mercado", "40", periodEnd, true),
	}
	p, err := budget.Evaluate("Mercado", dec(t, "500"), txs, periodStart, periodEnd)
	require.NoError(t, err)
	assert.True(t, p.Spent.Equal(dec(t, "30")), "got %s", p.Spent)
}

func TestEvaluate_IsIdempotent(t *testing.T) {
	txs := []models.Transaction{
		expense(t, "Mercado", "123.45", periodStart, true),
	}
	first, err := budget.Evaluate("Mercado", dec(t, "500"), txs, periodStart, periodEnd)
	require.NoError(t, err)
	second, err := budget.Evaluate("Mercado", dec(t, "500"), txs, periodStart, periodEnd)
	require.NoError(t, err)

	assert.True(t, first.Spent.Equal(second.Spent))
	assert.True(t, first.Percent.Equal(second.Percent))
	assert.Equal(t, first.Severity, second.Severity)
}

func TestMonthWindow(t *testing.T) {
	ref := time.Date(2026, time.February, 14, 15, 30, 0, 0, time.UTC)
	start, end := budget.MonthWindow(ref)

	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), end)
}
