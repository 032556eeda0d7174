package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// FailureRecordTimeout bounds the separate write that marks a transaction FAILED.
	FailureRecordTimeout = 5 * time.Second

	// MaxAccountNumberAttempts bounds account number regeneration on collision.
	MaxAccountNumberAttempts = 10

	// DefaultCurrency is used when an account is opened without a currency.
	DefaultCurrency = "HTG"

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)
