package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
)

// PositionUseCase manages investment positions on top of the ledger and the
// instrument catalog.
type PositionUseCase struct {
	txManager    TransactionManager
	accountRepo  AccountRepository
	positionRepo PositionRepository
	catalog      InstrumentCatalog
	access       *AccessUseCase
	ledger       *Ledger
	engine       *TransactionUseCase
	outbox       outbox
	idGen        IDGenerator
	metrics      *metrics.Metrics
}

// NewPositionUseCase creates a new PositionUseCase.
func NewPositionUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	positionRepo PositionRepository,
	catalog InstrumentCatalog,
	access *AccessUseCase,
	ledger *Ledger,
	engine *TransactionUseCase,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *PositionUseCase {
	return &PositionUseCase{
		txManager:    txManager,
		accountRepo:  accountRepo,
		positionRepo: positionRepo,
		catalog:      catalog,
		access:       access,
		ledger:       ledger,
		engine:       engine,
		outbox:       outbox{repo: outboxRepo, idGen: idGen},
		idGen:        idGen,
		metrics:      metrics,
	}
}

// OpenPositionInput is the input for opening a position.
type OpenPositionInput struct {
	AccountID    string
	InstrumentID string
	ActorID      string
	Amount       decimal.Decimal
}

// SubscriptionResult is the outcome of a subscription purchase.
type SubscriptionResult struct {
	Position    *domain.Position
	Transaction *domain.Transaction
}

// RedemptionResult is the outcome of a redemption. Transaction is nil when the
// payout is zero.
type RedemptionResult struct {
	Position    *domain.Position
	Transaction *domain.Transaction
	Payout      decimal.Decimal
}

// RecordValuationInput carries a valuation computed by the external
// valuation process.
type RecordValuationInput struct {
	PositionID      string
	CurrentValue    decimal.Decimal
	AccruedInterest decimal.Decimal
	Mature          bool
}

// Open reserves funds and creates an ACTIVE position without a linked
// transaction record.
func (uc *PositionUseCase) Open(ctx context.Context, input OpenPositionInput) (*domain.Position, error) {
	ctx, span := tracer.Start(ctx, "PositionUseCase.Open", trace.WithAttributes(
		attribute.String("account.id", input.AccountID),
		attribute.String("instrument.id", input.InstrumentID),
	))
	defer span.End()

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	instrument, err := uc.catalog.GetByID(ctx, input.InstrumentID)
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

	position, _, err := uc.openInTx(txCtx, tx, input, instrument, "")
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PositionsOpened.Inc()
	}

	return position, nil
}

// Subscribe opens a position and records its SUBSCRIPTION transaction in one
// storage transaction. Either both persist or neither does.
func (uc *PositionUseCase) Subscribe(ctx context.Context, input OpenPositionInput) (*SubscriptionResult, error) {
	ctx, span := tracer.Start(ctx, "PositionUseCase.Subscribe", trace.WithAttributes(
		attribute.String("account.id", input.AccountID),
		attribute.String("instrument.id", input.InstrumentID),
	))
	defer span.End()

	start := time.Now()

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	instrument, err := uc.catalog.GetByID(ctx, input.InstrumentID)
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

	transactionID := uc.idGen.Generate()

	position, account, err := uc.openInTx(txCtx, tx, input, instrument, transactionID)
	if err != nil {
		return nil, err
	}

	record := &domain.Transaction{
		ID:               transactionID,
		Kind:             domain.KindSubscription,
		SourceAccountID:  domain.StringPtr(account.ID),
		LinkedPositionID: domain.StringPtr(position.ID),
		Amount:           input.Amount,
		Currency:         account.Currency,
		Description:      "Subscription " + instrument.Code,
		InitiatedBy:      input.ActorID,
		Status:           domain.TransactionStatusPending,
		CreatedAt:        position.SubscribedAt,
	}
	if err := uc.engine.createInTx(txCtx, tx, record); err != nil {
		return nil, err
	}
	if err := uc.engine.settle(txCtx, tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("position.id", position.ID),
		attribute.String("transaction.id", record.ID),
	)
	if uc.metrics != nil {
		uc.metrics.PositionsOpened.Inc()
	}
	uc.engine.observe(record, start)

	return &SubscriptionResult{Position: position, Transaction: record}, nil
}

// openInTx runs the checks and mutations of a position purchase inside tx.
// The instrument is read outside tx since the catalog is not transactional.
func (uc *PositionUseCase) openInTx(
	ctx context.Context,
	tx Transaction,
	input OpenPositionInput,
	instrument *domain.Instrument,
	transactionID string,
) (*domain.Position, *domain.Account, error) {
	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, input.AccountID)
	if err != nil {
		return nil, nil, err
	}

	if err := uc.access.authorize(ctx, tx, account.ID, input.ActorID, domain.PermissionSubscribe); err != nil {
		return nil, nil, err
	}
	if err := account.RequireActive(); err != nil {
		return nil, nil, err
	}

	if !instrument.IsAvailable() {
		return nil, nil, fmt.Errorf("%w: %s is %s", domain.ErrInstrumentUnavailable, instrument.Code, instrument.Status)
	}
	if !instrument.MeetsMinimum(input.Amount) {
		return nil, nil, fmt.Errorf("%w: %s requires at least %s", domain.ErrBelowMinimum, instrument.Code, instrument.MinAmount)
	}
	if instrument.Currency != account.Currency {
		return nil, nil, fmt.Errorf("%w: instrument %s is in %s, account %s holds %s",
			domain.ErrCurrencyMismatch, instrument.Code, instrument.Currency, account.ID, account.Currency)
	}

	now := time.Now().UTC()
	position := domain.NewPosition(uc.idGen.Generate(), account.ID, instrument, input.Amount, now)

	ref := entryRef{transactionID: transactionID, positionID: position.ID}
	if err := uc.ledger.reserve(ctx, tx, account, input.Amount, ref); err != nil {
		return nil, nil, err
	}

	if err := uc.positionRepo.Create(ctx, tx, position); err != nil {
		return nil, nil, err
	}

	payload := map[string]any{
		"position_id":     position.ID,
		"account_id":      account.ID,
		"instrument_id":   instrument.ID,
		"invested_amount": position.InvestedAmount.String(),
	}
	if err := uc.outbox.emit(ctx, tx, domain.AggregateTypePosition, position.ID, domain.EventTypePositionOpened, payload, now); err != nil {
		return nil, nil, err
	}

	return position, account, nil
}

// Redeem releases the payout of an ACTIVE position to its account and marks
// it REDEEMED. A positive payout is recorded as a REDEMPTION transaction.
func (uc *PositionUseCase) Redeem(ctx context.Context, positionID, actorID string) (*RedemptionResult, error) {
	ctx, span := tracer.Start(ctx, "PositionUseCase.Redeem", trace.WithAttributes(
		attribute.String("position.id", positionID),
	))
	defer span.End()

	start := time.Now()

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	position, err := uc.positionRepo.GetByIDForUpdate(txCtx, tx, positionID)
	if err != nil {
		return nil, err
	}
	if position.Status != domain.PositionStatusActive {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrPositionNotActive, position.ID, position.Status)
	}

	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, position.AccountID)
	if err != nil {
		return nil, err
	}
	if err := uc.access.authorize(txCtx, tx, account.ID, actorID, domain.PermissionRedeem); err != nil {
		return nil, err
	}
	if err := account.RequireActive(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payout := position.Payout()

	var record *domain.Transaction
	if payout.IsPositive() {
		record = &domain.Transaction{
			ID:               uc.idGen.Generate(),
			Kind:             domain.KindRedemption,
			DestAccountID:    domain.StringPtr(account.ID),
			LinkedPositionID: domain.StringPtr(position.ID),
			Amount:           payout,
			Currency:         account.Currency,
			Description:      "Redemption of position " + position.ID,
			InitiatedBy:      actorID,
			Status:           domain.TransactionStatusPending,
			CreatedAt:        now,
		}
		if err := uc.engine.createInTx(txCtx, tx, record); err != nil {
			return nil, err
		}

		ref := entryRef{transactionID: record.ID, positionID: position.ID}
		if err := uc.ledger.release(txCtx, tx, account, payout, ref); err != nil {
			return nil, err
		}
	}

	if err := position.Redeem(now); err != nil {
		return nil, err
	}
	if err := uc.positionRepo.Update(txCtx, tx, position); err != nil {
		return nil, err
	}

	if record != nil {
		if err := uc.engine.settle(txCtx, tx, record); err != nil {
			return nil, err
		}
	}

	payload := map[string]any{
		"position_id": position.ID,
		"account_id":  account.ID,
		"payout":      payout.String(),
	}
	if err := uc.outbox.emit(txCtx, tx, domain.AggregateTypePosition, position.ID, domain.EventTypePositionRedeemed, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PositionsRedeemed.Inc()
		uc.metrics.RedemptionPayout.Observe(payout.InexactFloat64())
	}
	if record != nil {
		uc.engine.observe(record, start)
	}

	return &RedemptionResult{Position: position, Transaction: record, Payout: payout}, nil
}

// RecordValuation stores a valuation of an ACTIVE position. Mature moves it
// to MATURE.
func (uc *PositionUseCase) RecordValuation(ctx context.Context, input RecordValuationInput) (*domain.Position, error) {
	ctx, span := tracer.Start(ctx, "PositionUseCase.RecordValuation", trace.WithAttributes(
		attribute.String("position.id", input.PositionID),
	))
	defer span.End()

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	position, err := uc.positionRepo.GetByIDForUpdate(txCtx, tx, input.PositionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := position.Revalue(input.CurrentValue, input.AccruedInterest, input.Mature, now); err != nil {
		return nil, err
	}
	if err := uc.positionRepo.Update(txCtx, tx, position); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"position_id":      position.ID,
		"current_value":    position.CurrentValue.String(),
		"accrued_interest": position.AccruedInterest.String(),
		"status":           string(position.Status),
	}
	if err := uc.outbox.emit(txCtx, tx, domain.AggregateTypePosition, position.ID, domain.EventTypePositionRevalued, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return position, nil
}

// GetPosition retrieves a position by ID.
func (uc *PositionUseCase) GetPosition(ctx context.Context, id string) (*domain.Position, error) {
	return uc.positionRepo.GetByID(ctx, id)
}

// ListPositions lists the positions of an account.
func (uc *PositionUseCase) ListPositions(ctx context.Context, accountID string, limit, offset int) ([]*domain.Position, error) {
	limit, offset, err := domain.ValidatePagination(limit, offset)
	if err != nil {
		return nil, err
	}
	return uc.positionRepo.ListByAccount(ctx, accountID, limit, offset)
}

// Portfolio sums the open positions across every account the actor can see.
func (uc *PositionUseCase) Portfolio(ctx context.Context, actorID string) (*domain.Portfolio, error) {
	ctx, span := tracer.Start(ctx, "PositionUseCase.Portfolio")
	defer span.End()

	open := make([]*domain.Position, 0)
	for offset := 0; ; offset += domain.MaxPageLimit {
		accounts, err := uc.accountRepo.ListByActor(ctx, actorID, domain.MaxPageLimit, offset)
		if err != nil {
			return nil, err
		}

		for _, account := range accounts {
			positions, err := uc.openPositions(ctx, account.ID)
			if err != nil {
				return nil, err
			}
			open = append(open, positions...)
		}

		if len(accounts) < domain.MaxPageLimit {
			break
		}
	}

	return domain.NewPortfolio(open), nil
}

// openPositions pages through every position of an account and keeps the
// ones not yet redeemed.
func (uc *PositionUseCase) openPositions(ctx context.Context, accountID string) ([]*domain.Position, error) {
	open := make([]*domain.Position, 0)
	for offset := 0; ; offset += domain.MaxPageLimit {
		positions, err := uc.positionRepo.ListByAccount(ctx, accountID, domain.MaxPageLimit, offset)
		if err != nil {
			return nil, err
		}

		for _, p := range positions {
			if p.Status != domain.PositionStatusRedeemed {
				open = append(open, p)
			}
		}

		if len(positions) < domain.MaxPageLimit {
			return open, nil
		}
	}
}

// GetInstrument looks up a catalog entry.
func (uc *PositionUseCase) GetInstrument(ctx context.Context, id string) (*domain.Instrument, error) {
	return uc.catalog.GetByID(ctx, id)
}

// ListAvailableInstruments lists the instruments open for subscription.
func (uc *PositionUseCase) ListAvailableInstruments(ctx context.Context) ([]*domain.Instrument, error) {
	return uc.catalog.ListAvailable(ctx)
}
