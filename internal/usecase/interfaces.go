package usecase

//go:generate mockgen -destination=mocks/mock_interfaces.go -package=mocks github.com/iho/fundledger/internal/usecase InstrumentCatalog,Retrier

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
)

// Read methods that take a Transaction read through it when tx is non-nil
// and from the connection pool otherwise.

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	// GetByIDsForUpdate locks the accounts in ascending id order.
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	ExistsByNumber(ctx context.Context, tx Transaction, number string) (bool, error)
	UpdateBalances(ctx context.Context, tx Transaction, account *domain.Account) error
	UpdateStatus(ctx context.Context, tx Transaction, account *domain.Account) error
	ListByActor(ctx context.Context, actorID string, limit, offset int) ([]*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// ActorRepository defines read access to actors owned by the identity service.
type ActorRepository interface {
	Create(ctx context.Context, actor *domain.Actor) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.Actor, error)
}

// GrantRepository defines data access for role grants.
type GrantRepository interface {
	Create(ctx context.Context, tx Transaction, grant *domain.RoleGrant) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.RoleGrant, error)
	// ListActive returns active grants on the account, for every actor when
	// actorID is empty.
	ListActive(ctx context.Context, tx Transaction, accountID, actorID string) ([]*domain.RoleGrant, error)
	Deactivate(ctx context.Context, tx Transaction, grant *domain.RoleGrant) error
}

// InstrumentCatalog is the read-only view of the instrument catalog.
type InstrumentCatalog interface {
	GetByID(ctx context.Context, id string) (*domain.Instrument, error)
	ListAvailable(ctx context.Context) ([]*domain.Instrument, error)
}

// PositionRepository defines data access for positions.
type PositionRepository interface {
	Create(ctx context.Context, tx Transaction, position *domain.Position) error
	GetByID(ctx context.Context, id string) (*domain.Position, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Position, error)
	Update(ctx context.Context, tx Transaction, position *domain.Position) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Position, error)
}

// TransactionRepository defines data access for transaction records.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, record *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx Transaction, record *domain.Transaction) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error)
}

// EntryRepository defines data access for balance entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
	// SumByAccount returns the summed total and available deltas.
	SumByAccount(ctx context.Context, accountID string) (total, available decimal.Decimal, err error)
}

// LedgerRepository defines data access for ledger-wide checks.
type LedgerRepository interface {
	// CheckConsistency returns the sum of all account total balances and the
	// sum of all entry total deltas.
	CheckConsistency(ctx context.Context) (balances, entries decimal.Decimal, err error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier retries an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// AccountNumberGenerator produces candidate account numbers.
type AccountNumberGenerator interface {
	Generate(now time.Time) string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request did not complete successfully.
	Release(ctx context.Context, key string) error
}
