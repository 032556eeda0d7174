package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
)

// TransactionUseCase is the transaction engine. It creates PENDING records
// and executes them as a single storage transaction.
type TransactionUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	txRepo      TransactionRepository
	access      *AccessUseCase
	ledger      *Ledger
	outbox      outbox
	idGen       IDGenerator
	retrier     Retrier
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewTransactionUseCase creates a new TransactionUseCase.
func NewTransactionUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	txRepo TransactionRepository,
	access *AccessUseCase,
	ledger *Ledger,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	retrier Retrier,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *TransactionUseCase {
	return &TransactionUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		access:      access,
		ledger:      ledger,
		outbox:      outbox{repo: outboxRepo, idGen: idGen},
		idGen:       idGen,
		retrier:     retrier,
		metrics:     metrics,
		logger:      logger.With().Str("component", "transaction_engine").Logger(),
	}
}

// CreateTransactionInput is the input for creating a transaction.
type CreateTransactionInput struct {
	Kind             domain.TransactionKind
	Currency         string
	SourceAccountID  string
	DestAccountID    string
	Description      string
	LinkedPositionID string
	ActorID          string
	Amount           decimal.Decimal
}

// Create validates the input and persists a PENDING transaction. Position
// linked kinds are issued by PositionUseCase only.
func (uc *TransactionUseCase) Create(ctx context.Context, input CreateTransactionInput) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionUseCase.Create", trace.WithAttributes(
		attribute.String("transaction.kind", string(input.Kind)),
	))
	defer span.End()

	if input.Kind.PositionLinked() {
		return nil, fmt.Errorf("%w: %s transactions are issued by position operations", domain.ErrInvalidRequest, input.Kind)
	}

	record, err := uc.newRecord(input)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	accounts, err := uc.lockAccounts(txCtx, tx, record)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		if err := requireCurrency(account, record.Currency); err != nil {
			return nil, err
		}
	}

	if !record.IsAutomatic {
		if err := uc.access.authorize(txCtx, tx, authorizationAccount(record), record.InitiatedBy, record.Kind.Permission()); err != nil {
			return nil, err
		}
	}

	if err := uc.createInTx(txCtx, tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("transaction.id", record.ID))

	return record, nil
}

func (uc *TransactionUseCase) newRecord(input CreateTransactionInput) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}
	currency, err := domain.NormalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	automatic := input.Kind.Automatic()
	if !automatic && input.ActorID == "" {
		return nil, fmt.Errorf("%w: %s requires an initiating actor", domain.ErrInvalidRequest, input.Kind)
	}

	record := &domain.Transaction{
		ID:               uc.idGen.Generate(),
		Kind:             input.Kind,
		SourceAccountID:  domain.StringPtr(input.SourceAccountID),
		DestAccountID:    domain.StringPtr(input.DestAccountID),
		LinkedPositionID: domain.StringPtr(input.LinkedPositionID),
		Amount:           input.Amount,
		Currency:         currency,
		Description:      input.Description,
		Status:           domain.TransactionStatusPending,
		IsAutomatic:      automatic,
		CreatedAt:        time.Now().UTC(),
	}
	if !automatic {
		record.InitiatedBy = input.ActorID
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	return record, nil
}

// createInTx persists a PENDING record inside the caller's transaction.
func (uc *TransactionUseCase) createInTx(ctx context.Context, tx Transaction, record *domain.Transaction) error {
	if err := record.Validate(); err != nil {
		return err
	}
	return uc.txRepo.Create(ctx, tx, record)
}

// Submit creates and executes a transaction in one call.
func (uc *TransactionUseCase) Submit(ctx context.Context, input CreateTransactionInput) (*domain.Transaction, error) {
	record, err := uc.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	return uc.Execute(ctx, record.ID)
}

// Execute applies a PENDING transaction. Every balance mutation happens in one
// storage transaction; on failure nothing is applied and the record is marked
// FAILED in a separate write. The FAILED record is returned with the error.
func (uc *TransactionUseCase) Execute(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionUseCase.Execute", trace.WithAttributes(
		attribute.String("transaction.id", transactionID),
	))
	defer span.End()

	start := time.Now()

	record, markable, err := uc.execute(ctx, transactionID)
	if err == nil {
		uc.observe(record, start)
		return record, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if !markable {
		return record, err
	}

	failed, markErr := uc.recordFailure(ctx, transactionID, err)
	if markErr != nil {
		uc.logger.Error().
			Err(markErr).
			Str("transaction_id", transactionID).
			AnErr("cause", err).
			Msg("failed to record transaction failure")
		return failed, errors.Join(err, markErr)
	}

	uc.logger.Warn().
		Err(err).
		Str("transaction_id", transactionID).
		Str("kind", string(failed.Kind)).
		Msg("transaction failed")

	if uc.metrics != nil {
		uc.metrics.TransactionFailures.WithLabelValues(string(domain.KindOf(err))).Inc()
	}
	uc.observe(failed, start)

	return failed, err
}

// execute runs the whole dispatch. markable is false when the failure must not
// move the record to FAILED.
func (uc *TransactionUseCase) execute(ctx context.Context, transactionID string) (*domain.Transaction, bool, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, true, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	record, err := uc.txRepo.GetByIDForUpdate(txCtx, tx, transactionID)
	if err != nil {
		return nil, !errors.Is(err, domain.ErrNotFound), err
	}

	if record.Status.IsTerminal() {
		return record, false, fmt.Errorf("%w: %s is %s", domain.ErrAlreadyProcessed, record.ID, record.Status)
	}
	if record.Kind.PositionLinked() {
		return record, false, fmt.Errorf("%w: %s transactions are settled by their position", domain.ErrInvalidRequest, record.Kind)
	}

	accounts, err := uc.lockAccounts(txCtx, tx, record)
	if err != nil {
		return record, true, err
	}

	if !record.IsAutomatic {
		if err := uc.access.authorize(txCtx, tx, authorizationAccount(record), record.InitiatedBy, record.Kind.Permission()); err != nil {
			return record, true, err
		}
	}

	if err := uc.dispatch(txCtx, tx, record, accounts); err != nil {
		return record, true, err
	}

	if err := uc.settle(txCtx, tx, record); err != nil {
		return record, true, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return record, true, err
	}

	return record, true, nil
}

// lockAccounts locks every account the record touches in ascending id order.
func (uc *TransactionUseCase) lockAccounts(ctx context.Context, tx Transaction, record *domain.Transaction) (map[string]*domain.Account, error) {
	ids := record.AccountIDs()

	locked, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	accounts := make(map[string]*domain.Account, len(locked))
	for _, a := range locked {
		accounts[a.ID] = a
	}
	for _, id := range ids {
		if _, ok := accounts[id]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}
	}

	return accounts, nil
}

func (uc *TransactionUseCase) dispatch(ctx context.Context, tx Transaction, record *domain.Transaction, accounts map[string]*domain.Account) error {
	ref := entryRef{transactionID: record.ID}
	if record.LinkedPositionID != nil {
		ref.positionID = *record.LinkedPositionID
	}

	switch record.Kind {
	case domain.KindDeposit:
		dest := accounts[*record.DestAccountID]
		if err := requireUsable(dest, record.Currency); err != nil {
			return err
		}
		return uc.ledger.credit(ctx, tx, dest, record.Amount, ref)

	case domain.KindWithdrawal:
		source := accounts[*record.SourceAccountID]
		if err := requireUsable(source, record.Currency); err != nil {
			return err
		}
		return uc.ledger.debit(ctx, tx, source, record.Amount, ref)

	case domain.KindTransfer:
		source := accounts[*record.SourceAccountID]
		dest := accounts[*record.DestAccountID]
		if err := requireUsable(source, record.Currency); err != nil {
			return err
		}
		if err := requireUsable(dest, record.Currency); err != nil {
			return err
		}
		if err := uc.ledger.debit(ctx, tx, source, record.Amount, ref); err != nil {
			return err
		}
		return uc.ledger.credit(ctx, tx, dest, record.Amount, ref)

	case domain.KindInterestPayment, domain.KindMaturityRepayment:
		dest := accounts[*record.DestAccountID]
		if dest.Status == domain.AccountStatusClosed {
			return fmt.Errorf("%w: %s", domain.ErrAccountClosed, dest.ID)
		}
		if err := requireCurrency(dest, record.Currency); err != nil {
			return err
		}
		return uc.ledger.credit(ctx, tx, dest, record.Amount, ref)

	default:
		return fmt.Errorf("%w: unknown transaction kind %q", domain.ErrInvalidRequest, record.Kind)
	}
}

// settle marks the record EXECUTED inside the caller's transaction.
func (uc *TransactionUseCase) settle(ctx context.Context, tx Transaction, record *domain.Transaction) error {
	now := time.Now().UTC()
	if err := record.MarkExecuted(now); err != nil {
		return err
	}
	if err := uc.txRepo.UpdateStatus(ctx, tx, record); err != nil {
		return err
	}
	return uc.outbox.emit(ctx, tx, domain.AggregateTypeTransaction, record.ID, domain.EventTypeTransactionExecuted, transactionPayload(record), now)
}

// recordFailure marks the record FAILED in its own storage transaction. It
// survives cancellation of ctx and is retried on transient storage errors.
func (uc *TransactionUseCase) recordFailure(ctx context.Context, transactionID string, cause error) (*domain.Transaction, error) {
	ctx = context.WithoutCancel(ctx)

	var record *domain.Transaction
	op := func() error {
		r, err := uc.markFailed(ctx, transactionID, cause.Error())
		if err != nil {
			return err
		}
		record = r
		return nil
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, op)
	} else {
		err = op()
	}

	return record, err
}

func (uc *TransactionUseCase) markFailed(ctx context.Context, transactionID, reason string) (*domain.Transaction, error) {
	txCtx, cancel := context.WithTimeout(ctx, FailureRecordTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	record, err := uc.txRepo.GetByIDForUpdate(txCtx, tx, transactionID)
	if err != nil {
		return nil, err
	}

	// A concurrent executor already finished it.
	if record.Status.IsTerminal() {
		return record, nil
	}

	if err := record.MarkFailed(reason); err != nil {
		return nil, err
	}
	if err := uc.txRepo.UpdateStatus(txCtx, tx, record); err != nil {
		return nil, err
	}

	payload := transactionPayload(record)
	payload["reason"] = reason
	if err := uc.outbox.emit(txCtx, tx, domain.AggregateTypeTransaction, record.ID, domain.EventTypeTransactionFailed, payload, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return record, nil
}

// Cancel moves a PENDING transaction to CANCELLED.
func (uc *TransactionUseCase) Cancel(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionUseCase.Cancel", trace.WithAttributes(
		attribute.String("transaction.id", transactionID),
	))
	defer span.End()

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	record, err := uc.txRepo.GetByIDForUpdate(txCtx, tx, transactionID)
	if err != nil {
		return nil, err
	}

	if err := record.Cancel(); err != nil {
		return nil, err
	}
	if err := uc.txRepo.UpdateStatus(txCtx, tx, record); err != nil {
		return nil, err
	}
	if err := uc.outbox.emit(txCtx, tx, domain.AggregateTypeTransaction, record.ID, domain.EventTypeTransactionCanceled, transactionPayload(record), time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsTotal.WithLabelValues(string(record.Kind), string(record.Status)).Inc()
	}

	return record, nil
}

// GetTransaction retrieves a transaction by ID.
func (uc *TransactionUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.txRepo.GetByID(ctx, id)
}

// ListTransactions lists transactions touching an account, newest first.
func (uc *TransactionUseCase) ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	limit, offset, err := domain.ValidatePagination(limit, offset)
	if err != nil {
		return nil, err
	}
	return uc.txRepo.ListByAccount(ctx, accountID, limit, offset)
}

func (uc *TransactionUseCase) observe(record *domain.Transaction, start time.Time) {
	if uc.metrics == nil || record == nil {
		return
	}
	kind := string(record.Kind)
	uc.metrics.TransactionsTotal.WithLabelValues(kind, string(record.Status)).Inc()
	uc.metrics.TransactionDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if record.Status == domain.TransactionStatusExecuted {
		uc.metrics.TransactionAmount.WithLabelValues(kind).Observe(record.Amount.InexactFloat64())
	}
}

// authorizationAccount is the account whose roles govern the record.
func authorizationAccount(record *domain.Transaction) string {
	if record.Kind == domain.KindDeposit || record.SourceAccountID == nil {
		return *record.DestAccountID
	}
	return *record.SourceAccountID
}

func requireUsable(account *domain.Account, currency string) error {
	if err := account.RequireActive(); err != nil {
		return err
	}
	return requireCurrency(account, currency)
}

func requireCurrency(account *domain.Account, currency string) error {
	if account.Currency != currency {
		return fmt.Errorf("%w: account %s holds %s, not %s", domain.ErrCurrencyMismatch, account.ID, account.Currency, currency)
	}
	return nil
}

func transactionPayload(record *domain.Transaction) map[string]any {
	payload := map[string]any{
		"transaction_id": record.ID,
		"kind":           string(record.Kind),
		"status":         string(record.Status),
		"amount":         record.Amount.String(),
		"currency":       record.Currency,
	}
	if record.SourceAccountID != nil {
		payload["source_account_id"] = *record.SourceAccountID
	}
	if record.DestAccountID != nil {
		payload["dest_account_id"] = *record.DestAccountID
	}
	if record.LinkedPositionID != nil {
		payload["position_id"] = *record.LinkedPositionID
	}
	return payload
}
