// backend/src/services/summary_service.go
package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/contazen/backend/src/budget"
	"github.com/username/contazen/backend/src/ledger"
	"github.com/username/contazen/backend/src/logger"
	"github.com/username/contazen/backend/src/model"
	"github.com/username/contazen/backend/src/models"
)

type summaryService struct {
	db    *sql.DB
	cache *cache.Cache
}

func NewSummaryService(db *sql.DB, reportCache *cache.Cache) SummaryService {
	return &summaryService{db: db, cache: reportCache}
}

func summaryCacheKey(userID int64) string {
	return fmt.Sprintf("summary:%d", userID)
}

func (s *summaryService) InvalidateUserCache(userID int64) {
	s.cache.Delete(summaryCacheKey(userID))
}

// GetSummary assembles the dashboard payload. Balances are always recomputed
// through the ledger engine; nothing here trusts the cached current_balance
// column.
func (s *summaryService) GetSummary(userID int64) (Summary, error) {
	if cached, found := s.cache.Get(summaryCacheKey(userID)); found {
		if summary, ok := cached.(Summary); ok {
			return summary, nil
		}
	}

	accounts, err := model.ListAccounts(s.db, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: loading accounts: %w", err)
	}
	transactions, err := model.ListTransactions(s.db, userID, model.TransactionFilter{})
	if err != nil {
		return Summary{}, fmt.Errorf("summary: loading transactions: %w", err)
	}
	categories, err := model.ListCategories(s.db, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: loading categories: %w", err)
	}

	monthStart, monthEnd := budget.MonthWindow(time.Now())

	summary := Summary{
		GlobalBalance:      ledger.GlobalBalance(accounts, transactions),
		AccountBalances:    ledger.AllBalances(accounts, transactions),
		MonthIncome:        decimal.Zero,
		MonthExpense:       decimal.Zero,
		PendingObligations: decimal.Zero,
		SpendByCategory:    map[string]decimal.Decimal{},
		BudgetAlerts:       []BudgetAlert{},
		GeneratedAt:        time.Now(),
	}

	knownCategories := make(map[string]bool, len(categories))
	for _, cat := range categories {
		knownCategories[cat.Name] = true
	}

	for _, tx := range transactions {
		inMonth := !tx.Date.Before(monthStart) && tx.Date.Before(monthEnd)

		if tx.IsPaid && inMonth {
			switch tx.Type {
			case models.TypeIncome:
				summary.MonthIncome = summary.MonthIncome.Add(tx.Amount)
			case models.TypeExpense:
				summary.MonthExpense = summary.MonthExpense.Add(tx.Amount)

				// Orphaned labels (category deleted) aggregate under a
				// display bucket instead of breaking the breakdown.
				label := tx.Category
				if label == "" || !knownCategories[label] {
					label = models.UncategorizedLabel
				}
				summary.SpendByCategory[label] = summary.SpendByCategory[label].Add(tx.Amount)
			}
		}

		if !tx.IsPaid && tx.DueDate != nil && tx.Type == models.TypeExpense {
			summary.PendingObligations = summary.PendingObligations.Add(tx.Amount)
		}
	}

	for _, cat := range categories {
		if !cat.BudgetLimit.Valid || !cat.Type.AllowsExpense() {
			continue
		}
		progress, err := budget.Evaluate(cat.Name, cat.BudgetLimit.Decimal, transactions, monthStart, monthEnd)
		if err != nil {
			// No positive limit: nothing to report for this category.
			continue
		}
		if progress.Severity == budget.SeverityOK {
			continue
		}
		summary.BudgetAlerts = append(summary.BudgetAlerts, BudgetAlert{
			CategoryName: cat.Name,
			Percent:      progress.Percent,
			Remaining:    progress.Remaining,
			Severity:     string(progress.Severity),
		})
	}

	s.cache.Set(summaryCacheKey(userID), summary, cache.DefaultExpiration)
	logger.L.Debug("Dashboard summary computed", "userID", userID,
		"accounts", len(accounts), "transactions", len(transactions))
	return summary, nil
}
