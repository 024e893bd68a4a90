// backend/src/security/validation/field_validator.go
package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

// Constants for lengths remain here
const (
	DefaultMaxStringLength = 255
	MaxCategoryNameLength  = 80
	MaxAccountNameLength   = 120
	MaxBankNameLength      = 120
	MaxDescriptionLength   = 1024
	MaxKeywordLength       = 80
	MaxSessionIDLength     = 128
)

// --- String Validators ---

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// --- Finance Field Validators ---

// ValidateAmount parses a decimal amount string and enforces the non-negative
// invariant: direction is carried by the transaction type, never by a sign.
func ValidateAmount(s, fieldName string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		// Absent numeric fields default to zero rather than erroring.
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s ('%s') is not a valid decimal amount", ErrValidationFailed, fieldName, s)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s must not be negative", ErrValidationFailed, fieldName)
	}
	return amount, nil
}

// ValidateAmountAllowNegative parses a decimal amount that may be negative.
// Used for account starting balances (overdrafts, carried credit-card debt).
func ValidateAmountAllowNegative(s, fieldName string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s ('%s') is not a valid decimal amount", ErrValidationFailed, fieldName, s)
	}
	return amount, nil
}

// ValidateISODate parses an ISO timestamp or plain date ("2006-01-02").
func ValidateISODate(s, fieldName string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", trimmed); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %s ('%s') is not an ISO date", ErrValidationFailed, fieldName, s)
}
