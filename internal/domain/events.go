package domain

import "time"

// Event types
const (
	EventTypeAccountOpened       = "account.opened"
	EventTypeAccountSuspended    = "account.suspended"
	EventTypeAccountReactivated  = "account.reactivated"
	EventTypeAccountClosed       = "account.closed"
	EventTypeGrantCreated        = "grant.created"
	EventTypeGrantRevoked        = "grant.revoked"
	EventTypePositionOpened      = "position.opened"
	EventTypePositionRedeemed    = "position.redeemed"
	EventTypePositionRevalued    = "position.revalued"
	EventTypeTransactionExecuted = "transaction.executed"
	EventTypeTransactionFailed   = "transaction.failed"
	EventTypeTransactionCanceled = "transaction.cancelled"
)

// Aggregate types
const (
	AggregateTypeAccount     = "account"
	AggregateTypeGrant       = "grant"
	AggregateTypePosition    = "position"
	AggregateTypeTransaction = "transaction"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}
