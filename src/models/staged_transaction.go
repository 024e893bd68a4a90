package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StagedTransaction is an assistant proposal awaiting explicit user
// confirmation. It is never folded into balances and never becomes a ledger
// transaction without a confirm call.
type StagedTransaction struct {
	ID              string              `json:"id"`
	UserID          int64               `json:"-"`
	SessionID       string              `json:"session_id"`
	Description     string              `json:"description"`
	Amount          decimal.Decimal     `json:"amount"`
	Type            TransactionType     `json:"type"`
	Category        string              `json:"category"`
	DueDate         *time.Time          `json:"due_date,omitempty"`
	Recurrence      RecurrenceFrequency `json:"recurrence,omitempty"`
	ResponseMessage string              `json:"response_message"`
	CreatedAt       time.Time           `json:"created_at"`
}

// KeywordRule is a user-taught keyword-to-category correction. Rules take
// precedence over the classification model's own inference.
type KeywordRule struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"-"`
	Keyword   string    `json:"keyword"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}
