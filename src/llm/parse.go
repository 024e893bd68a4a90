package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// classifyWire mirrors the model's JSON output before validation. Amount
// arrives as a plain JSON number.
type classifyWire struct {
	IsTransaction      bool         `json:"isTransaction"`
	TransactionDetails *detailsWire `json:"transactionDetails"`
	ResponseMessage    string       `json:"responseMessage"`
}

type detailsWire struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	DueDate     string  `json:"dueDate"`
	Recurrence  string  `json:"recurrence"`
}

// parseClassifyResponse validates the raw model output against the
// classification contract. Negative amounts are clamped to zero; a
// transaction with an unusable type degrades to isTransaction=false rather
// than erroring the whole call.
func parseClassifyResponse(raw string) (ClassifyResult, error) {
	clean := cleanModelJSON(raw)

	var wire classifyWire
	if err := json.Unmarshal([]byte(clean), &wire); err != nil {
		return ClassifyResult{}, fmt.Errorf("unmarshal model output: %w", err)
	}

	result := ClassifyResult{
		IsTransaction:   wire.IsTransaction,
		ResponseMessage: strings.TrimSpace(wire.ResponseMessage),
	}
	if result.ResponseMessage == "" {
		result.ResponseMessage = "Ok."
	}

	if !wire.IsTransaction || wire.TransactionDetails == nil {
		result.IsTransaction = false
		return result, nil
	}

	d := wire.TransactionDetails
	if d.Type != "income" && d.Type != "expense" {
		result.IsTransaction = false
		return result, nil
	}

	amount := decimal.NewFromFloat(d.Amount)
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	result.TransactionDetails = &TransactionDetails{
		Description: strings.TrimSpace(d.Description),
		Amount:      amount,
		Type:        d.Type,
		Category:    strings.TrimSpace(d.Category),
		DueDate:     strings.TrimSpace(d.DueDate),
		Recurrence:  strings.TrimSpace(d.Recurrence),
	}
	return result, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the raw-JSON instruction, keeping only the outermost object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}

	return s
}

// normalize lowercases and collapses whitespace for keyword matching.
func normalize(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
