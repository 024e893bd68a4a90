package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account anchors balance computation. InitialBalance is the balance at the
// moment the ledger started tracking the account. CurrentBalance is a cached
// projection of InitialBalance plus the paid-transaction fold; it is
// recomputed on every write and re-derived on read, never patched
// incrementally.
type Account struct {
	ID             string          `json:"id"`
	UserID         int64           `json:"-"`
	Name           string          `json:"name"`
	BankName       string          `json:"bank_name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
