package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
)

// AccountUseCase opens accounts and manages their lifecycle.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	entryRepo   EntryRepository
	access      *AccessUseCase
	outbox      outbox
	idGen       IDGenerator
	numbers     AccountNumberGenerator
	metrics     *metrics.Metrics
	currency    string
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	access *AccessUseCase,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	numbers AccountNumberGenerator,
	metrics *metrics.Metrics,
) *AccountUseCase {
	if numbers == nil {
		numbers = NewRandomAccountNumbers(DefaultAccountNumberPrefix)
	}
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		access:      access,
		outbox:      outbox{repo: outboxRepo, idGen: idGen},
		idGen:       idGen,
		numbers:     numbers,
		metrics:     metrics,
		currency:    DefaultCurrency,
	}
}

// WithDefaultCurrency sets the currency used when Open is given none.
func (uc *AccountUseCase) WithDefaultCurrency(currency string) *AccountUseCase {
	if currency != "" {
		uc.currency = currency
	}
	return uc
}

// OpenAccountInput is the input for opening an account.
type OpenAccountInput struct {
	OwnerActorID string
	Number       string
	Type         string
	Currency     string
}

// Open creates an account with zero balances and grants the owner the
// PRIMARY_HOLDER role in the same storage transaction.
func (uc *AccountUseCase) Open(ctx context.Context, input OpenAccountInput) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "AccountUseCase.Open")
	defer span.End()

	if input.OwnerActorID == "" {
		return nil, fmt.Errorf("%w: owner actor is required", domain.ErrInvalidRequest)
	}
	if err := domain.ValidateAccountType(input.Type); err != nil {
		return nil, err
	}
	currency := input.Currency
	if currency == "" {
		currency = uc.currency
	}
	currency, err := domain.NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	requested := strings.TrimSpace(input.Number)
	var account *domain.Account
	for attempt := 1; ; attempt++ {
		account, err = uc.openOnce(ctx, input, requested, currency)
		if err == nil {
			break
		}
		// A concurrent Open can take a generated number between the existence
		// check and the insert. The insert aborts the storage transaction, so
		// retry from the start with a fresh number.
		if requested != "" || !errors.Is(err, domain.ErrAccountNumberTaken) || attempt >= MaxAccountNumberAttempts {
			return nil, err
		}
	}

	span.SetAttributes(attribute.String("account.id", account.ID))
	if uc.metrics != nil {
		uc.metrics.AccountsOpened.Inc()
	}

	return account, nil
}

func (uc *AccountUseCase) openOnce(ctx context.Context, input OpenAccountInput, requested, currency string) (*domain.Account, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := time.Now().UTC()

	number, err := uc.resolveNumber(txCtx, tx, requested, now)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:        uc.idGen.Generate(),
		Number:    number,
		Type:      strings.TrimSpace(input.Type),
		Currency:  currency,
		Status:    domain.AccountStatusActive,
		OpenedAt:  now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := uc.accountRepo.Create(txCtx, tx, account); err != nil {
		return nil, err
	}

	if _, err := uc.access.grantInTx(txCtx, tx, account.ID, input.OwnerActorID, domain.RolePrimaryHolder, now); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"account_id": account.ID,
		"number":     account.Number,
		"currency":   account.Currency,
		"owner_id":   input.OwnerActorID,
	}
	if err := uc.outbox.emit(txCtx, tx, domain.AggregateTypeAccount, account.ID, domain.EventTypeAccountOpened, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}
	return account, nil
}

func (uc *AccountUseCase) resolveNumber(ctx context.Context, tx Transaction, requested string, now time.Time) (string, error) {
	if requested != "" {
		exists, err := uc.accountRepo.ExistsByNumber(ctx, tx, requested)
		if err != nil {
			return "", err
		}
		if exists {
			return "", fmt.Errorf("%w: %s", domain.ErrAccountNumberTaken, requested)
		}
		return requested, nil
	}

	for range MaxAccountNumberAttempts {
		candidate := uc.numbers.Generate(now)
		exists, err := uc.accountRepo.ExistsByNumber(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("could not allocate a unique account number after %d attempts", MaxAccountNumberAttempts)
}

// Suspend moves an ACTIVE account to SUSPENDED. Only a primary holder may
// suspend.
func (uc *AccountUseCase) Suspend(ctx context.Context, accountID, actorID string) (*domain.Account, error) {
	return uc.changeStatus(ctx, accountID, actorID, domain.EventTypeAccountSuspended, func(a *domain.Account, now time.Time) error {
		return a.Suspend(now)
	})
}

// Reactivate moves a SUSPENDED account back to ACTIVE.
func (uc *AccountUseCase) Reactivate(ctx context.Context, accountID, actorID string) (*domain.Account, error) {
	return uc.changeStatus(ctx, accountID, actorID, domain.EventTypeAccountReactivated, func(a *domain.Account, now time.Time) error {
		return a.Reactivate(now)
	})
}

// Close closes an account whose total balance is zero. Only a primary holder
// may close.
func (uc *AccountUseCase) Close(ctx context.Context, accountID, actorID string) (*domain.Account, error) {
	return uc.changeStatus(ctx, accountID, actorID, domain.EventTypeAccountClosed, func(a *domain.Account, now time.Time) error {
		return a.Close(now)
	})
}

func (uc *AccountUseCase) changeStatus(
	ctx context.Context,
	accountID, actorID, eventType string,
	transition func(*domain.Account, time.Time) error,
) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "AccountUseCase.changeStatus", trace.WithAttributes(
		attribute.String("account.id", accountID),
		attribute.String("event.type", eventType),
	))
	defer span.End()

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, accountID)
	if err != nil {
		return nil, err
	}

	if err := uc.access.authorize(txCtx, tx, accountID, actorID, domain.PermissionManage); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := transition(account, now); err != nil {
		return nil, err
	}

	if err := uc.accountRepo.UpdateStatus(txCtx, tx, account); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"account_id": account.ID,
		"status":     string(account.Status),
		"actor_id":   actorID,
	}
	if err := uc.outbox.emit(txCtx, tx, domain.AggregateTypeAccount, account.ID, eventType, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccountStatusChanges.WithLabelValues(string(account.Status)).Inc()
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// ListAccountsForActor lists the accounts the actor holds an active role on.
func (uc *AccountUseCase) ListAccountsForActor(ctx context.Context, actorID string, limit, offset int) ([]*domain.Account, error) {
	limit, offset, err := domain.ValidatePagination(limit, offset)
	if err != nil {
		return nil, err
	}
	return uc.accountRepo.ListByActor(ctx, actorID, limit, offset)
}

// ListEntries lists the balance entries of an account, newest first.
func (uc *AccountUseCase) ListEntries(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	limit, offset, err := domain.ValidatePagination(limit, offset)
	if err != nil {
		return nil, err
	}
	return uc.entryRepo.ListByAccount(ctx, accountID, limit, offset)
}
