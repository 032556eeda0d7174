package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxAccountTypeLength = 30
	MaxDescriptionLength = 500
	MaxTransactionAmount = "1000000000000" // 1 trillion
	DefaultPageLimit     = 50
	MaxPageLimit         = 500
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"HTG": true, "USD": true, "EUR": true, "CAD": true,
	"GBP": true, "CHF": true, "DOP": true, "JPY": true,
	"MXN": true, "BRL": true, "XCD": true, "CNY": true,
}

// NormalizeCurrency upper-cases and validates a currency code.
func NormalizeCurrency(currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return "", fmt.Errorf("%w: %s is not a supported ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return currency, nil
}

// ValidateAccountType validates the free-form account type label.
func ValidateAccountType(accountType string) error {
	accountType = strings.TrimSpace(accountType)

	if accountType == "" {
		return fmt.Errorf("%w: type cannot be empty", ErrInvalidAccountType)
	}

	if len(accountType) > MaxAccountTypeLength {
		return fmt.Errorf("%w: type exceeds %d characters", ErrInvalidAccountType, MaxAccountTypeLength)
	}

	return nil
}

// ValidateAmount validates a money amount.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	maxAmount, _ := decimal.NewFromString(MaxTransactionAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxTransactionAmount)
	}

	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: at most 2 decimal places", ErrInvalidAmount)
	}

	return nil
}

// ValidateDescription validates a transaction description.
func ValidateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidRequest, MaxDescriptionLength)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	if offset < 0 {
		return 0, 0, fmt.Errorf("%w: offset cannot be negative", ErrInvalidRequest)
	}

	return limit, offset, nil
}
