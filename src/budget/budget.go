// Package budget evaluates spend against a category's budget ceiling over a
// time window. Like the ledger engine it is pure: no I/O, idempotent, inputs
// never mutated.
package budget

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/contazen/backend/src/models"
)

// ErrNoBudget is returned when a category has no positive budget limit.
// "No budget configured" is not the same thing as "0% used" and callers must
// not conflate the two.
var ErrNoBudget = errors.New("category has no budget limit")

// Severity classifies budget consumption.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var (
	hundred           = decimal.NewFromInt(100)
	warningThreshold  = decimal.NewFromInt(75)
	criticalThreshold = decimal.NewFromInt(90)
)

// Progress is the evaluated state of one category over one period.
// Remaining goes negative on overspend; it is never clamped, because a
// negative remainder is the overspend signal. Percent, in contrast, is
// clamped to 100 for display.
type Progress struct {
	CategoryName string          `json:"category_name"`
	Limit        decimal.Decimal `json:"limit"`
	Spent        decimal.Decimal `json:"spent"`
	Percent      decimal.Decimal `json:"percent"`
	Remaining    decimal.Decimal `json:"remaining"`
	Severity     Severity        `json:"severity"`
}

// Evaluate computes spend-to-date for categoryName against limit over
// [periodStart, periodEnd). Only paid expenses labelled with the category
// count. A non-positive limit yields ErrNoBudget.
func Evaluate(categoryName string, limit decimal.Decimal, transactions []models.Transaction, periodStart, periodEnd time.Time) (Progress, error) {
	if limit.LessThanOrEqual(decimal.Zero) {
		return Progress{}, ErrNoBudget
	}

	spent := decimal.Zero
	for _, tx := range transactions {
		if tx.Type != models.TypeExpense || !tx.IsPaid || tx.Category != categoryName {
			continue
		}
		if tx.Date.Before(periodStart) || !tx.Date.Before(periodEnd) {
			continue
		}
		spent = spent.Add(tx.Amount)
	}

	percent := spent.Div(limit).Mul(hundred)
	if percent.GreaterThan(hundred) {
		percent = hundred
	}

	return Progress{
		CategoryName: categoryName,
		Limit:        limit,
		Spent:        spent,
		Percent:      percent,
		Remaining:    limit.Sub(spent),
		Severity:     severityFor(percent),
	}, nil
}

// severityFor applies the inclusive-boundary policy: 75% is still ok,
// 90% is still warning.
func severityFor(percent decimal.Decimal) Severity {
	switch {
	case percent.GreaterThan(criticalThreshold):
		return SeverityCritical
	case percent.GreaterThan(warningThreshold):
		return SeverityWarning
	default:
		return SeverityOK
	}
}

// MonthWindow returns the [start, end) bounds of the calendar month
// containing ref, in ref's location. The typical caller passes time.Now()
// for a "current month" evaluation.
func MonthWindow(ref time.Time) (time.Time, time.Time) {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	return start, start.AddDate(0, 1, 0)
}
