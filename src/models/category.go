package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryType restricts which transaction types a category may label.
type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
	CategoryBoth    CategoryType = "both"
)

func (t CategoryType) IsValid() bool {
	return t == CategoryIncome || t == CategoryExpense || t == CategoryBoth
}

// AllowsExpense reports whether the category can label expense transactions,
// which is the precondition for a budget limit to be meaningful.
func (t CategoryType) AllowsExpense() bool {
	return t == CategoryExpense || t == CategoryBoth
}

// Category is a classification bucket. Transactions reference it by name
// (soft reference); deleting a category leaves referencing transactions with
// a dangling label, surfaced in aggregates as "Uncategorized".
type Category struct {
	ID          string              `json:"id"`
	UserID      int64               `json:"-"`
	Name        string              `json:"name"`
	Type        CategoryType        `json:"type"`
	BudgetLimit decimal.NullDecimal `json:"budget_limit"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// UncategorizedLabel is the display bucket for transactions whose category
// no longer exists.
const UncategorizedLabel = "Uncategorized"
