// backend/src/services/interfaces.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/contazen/backend/src/llm"
	"github.com/username/contazen/backend/src/models"
)

// Cache defaults for the dashboard summary, overridable via config.
const (
	DefaultCacheExpiration = 5 * time.Minute
	CacheCleanupInterval   = 10 * time.Minute
)

// Define common service errors
var (
	ErrClassificationBusy    = errors.New("a classification is already in flight for this session")
	ErrNothingToClassify     = errors.New("message has neither text nor attachment")
	ErrStagedNotFound        = errors.New("staged transaction not found")
	ErrAccountNotFound       = errors.New("account not found")
	ErrClassifierUnavailable = errors.New("classification service not configured")
)

// AssistantReply is what the chat surface renders after a message: the
// always-present response text plus the staged proposal, when one was made.
type AssistantReply struct {
	IsTransaction   bool                      `json:"isTransaction"`
	ResponseMessage string                    `json:"responseMessage"`
	Staged          *models.StagedTransaction `json:"staged,omitempty"`
}

// AssistantService runs the classification collaborator and manages the
// staging area. Proposals never touch the ledger without an explicit confirm.
type AssistantService interface {
	HandleMessage(ctx context.Context, userID int64, sessionID, text string, media []byte, mediaMIME string) (AssistantReply, error)
	ListStaged(userID int64) ([]models.StagedTransaction, error)
	ConfirmStaged(ctx context.Context, userID int64, stagedID, accountID string) (models.Transaction, error)
	DiscardStaged(userID int64, stagedID string) error
}

// BudgetAlert is one over-threshold category in the dashboard summary.
type BudgetAlert struct {
	CategoryName string          `json:"category_name"`
	Percent      decimal.Decimal `json:"percent"`
	Remaining    decimal.Decimal `json:"remaining"`
	Severity     string          `json:"severity"`
}

// Summary is the executive dashboard payload.
type Summary struct {
	GlobalBalance      decimal.Decimal            `json:"global_balance"`
	AccountBalances    map[string]decimal.Decimal `json:"account_balances"`
	MonthIncome        decimal.Decimal            `json:"month_income"`
	MonthExpense       decimal.Decimal            `json:"month_expense"`
	PendingObligations decimal.Decimal            `json:"pending_obligations"`
	SpendByCategory    map[string]decimal.Decimal `json:"spend_by_category"`
	BudgetAlerts       []BudgetAlert              `json:"budget_alerts"`
	GeneratedAt        time.Time                  `json:"generated_at"`
}

// SummaryService computes (and caches) the dashboard summary.
type SummaryService interface {
	GetSummary(userID int64) (Summary, error)
	InvalidateUserCache(userID int64)
}

// ensure the concrete classifier type satisfies the boundary interface
var _ llm.Classifier = (*llm.GeminiClassifier)(nil)
