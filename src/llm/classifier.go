// Package llm holds the AI-classification boundary: given free text and/or
// one media attachment, decide whether it encodes a transaction and extract
// its fields. The rest of the application depends only on the Classifier
// interface so the vendor can be swapped.
package llm

import (
	"context"

	"github.com/shopspring/decimal"
)

// KeywordRule is a user-taught correction passed to the classifier. Rules
// outrank the model's own inference: user rules > general heuristics >
// default inference.
type KeywordRule struct {
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
}

// ClassifyRequest carries one user message for classification.
type ClassifyRequest struct {
	Text          string
	Media         []byte
	MediaMIMEType string

	// Valid category names, partitioned by applicability.
	IncomeCategories  []string
	ExpenseCategories []string

	UserRules []KeywordRule
}

// TransactionDetails is the structured extraction for a message that does
// encode a transaction. Amount is always non-negative; negative model output
// is clamped to zero on parse.
type TransactionDetails struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"` // "income" or "expense"
	Category    string          `json:"category"`
	DueDate     string          `json:"dueDate,omitempty"` // ISO date, optional
	Recurrence  string          `json:"recurrence,omitempty"`
}

// ClassifyResult is the contract every classifier implementation must honor.
// ResponseMessage is always present, including on failure.
type ClassifyResult struct {
	IsTransaction      bool                `json:"isTransaction"`
	TransactionDetails *TransactionDetails `json:"transactionDetails,omitempty"`
	ResponseMessage    string              `json:"responseMessage"`
}

// Classifier turns a free-form message into a classification result.
// Implementations must respect ctx cancellation and deadlines.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (ClassifyResult, error)
}

// ApplyUserRules overrides the extracted category with the first rule whose
// keyword occurs in the message text or extracted description. It returns
// true when a rule fired.
func ApplyUserRules(details *TransactionDetails, text string, rules []KeywordRule) bool {
	if details == nil {
		return false
	}
	haystack := normalize(text + " " + details.Description)
	for _, rule := range rules {
		keyword := normalize(rule.Keyword)
		if keyword == "" {
			continue
		}
		if containsFold(haystack, keyword) {
			details.Category = rule.Category
			return true
		}
	}
	return false
}
