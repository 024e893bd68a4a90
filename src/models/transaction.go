package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType indicates the direction of the cash flow. The stored
// amount is always non-negative; direction is derived from the type at
// computation time, never from the sign of the amount.
type TransactionType string

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

func (t TransactionType) IsValid() bool {
	return t == TypeIncome || t == TypeExpense || t == TypeTransfer
}

// AuditStatus tracks the human/AI review lifecycle of a transaction
// (credit-card line-item reconciliation). It is independent of IsPaid,
// which tracks whether cash has actually moved.
type AuditStatus string

const (
	StatusPendingAudit AuditStatus = "pending_audit"
	StatusConfirmed    AuditStatus = "confirmed"
	StatusRejected     AuditStatus = "rejected"
)

func (s AuditStatus) IsValid() bool {
	return s == StatusPendingAudit || s == StatusConfirmed || s == StatusRejected
}

// TransactionSource records provenance. Informational only; it never
// affects balance or budget computation.
type TransactionSource string

const (
	SourceManual     TransactionSource = "manual"
	SourceWhatsAppAI TransactionSource = "whatsapp_ai"
)

// RecurrenceFrequency is a display label for recurring obligations.
// It does not auto-generate future transactions.
type RecurrenceFrequency string

const (
	RecurrenceDaily   RecurrenceFrequency = "daily"
	RecurrenceWeekly  RecurrenceFrequency = "weekly"
	RecurrenceMonthly RecurrenceFrequency = "monthly"
	RecurrenceYearly  RecurrenceFrequency = "yearly"
)

// Transaction is the atomic unit of financial fact. Date is the accounting
// date (competência); DueDate, when set, is when a not-yet-settled
// obligation falls due.
type Transaction struct {
	ID          string              `json:"id"`
	UserID      int64               `json:"-"`
	Date        time.Time           `json:"date"`
	DueDate     *time.Time          `json:"due_date,omitempty"`
	Description string              `json:"description"`
	Amount      decimal.Decimal     `json:"amount"`
	Type        TransactionType     `json:"type"`
	Category    string              `json:"category"`
	Status      AuditStatus         `json:"status"`
	IsPaid      bool                `json:"is_paid"`
	Source      TransactionSource   `json:"source"`
	Recurrence  RecurrenceFrequency `json:"recurrence,omitempty"`

	// AccountID is the owning account; for transfers, funds leave AccountID
	// and enter DestinationAccountID. Empty string means unlinked.
	AccountID            string `json:"account_id,omitempty"`
	DestinationAccountID string `json:"destination_account_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
