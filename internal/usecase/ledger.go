package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
)

// Ledger applies balance primitives to accounts the caller has locked in its
// storage transaction. Each primitive persists the new balances and an entry.
type Ledger struct {
	accountRepo AccountRepository
	entryRepo   EntryRepository
	idGen       IDGenerator
	metrics     *metrics.Metrics
}

// NewLedger creates a new Ledger.
func NewLedger(accountRepo AccountRepository, entryRepo EntryRepository, idGen IDGenerator, metrics *metrics.Metrics) *Ledger {
	return &Ledger{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		idGen:       idGen,
		metrics:     metrics,
	}
}

// entryRef links an entry to the record that caused it.
type entryRef struct {
	transactionID string
	positionID    string
}

func (l *Ledger) credit(ctx context.Context, tx Transaction, account *domain.Account, amount decimal.Decimal, ref entryRef) error {
	return l.apply(ctx, tx, account, domain.EntryCredit, amount, ref, account.Credit)
}

func (l *Ledger) debit(ctx context.Context, tx Transaction, account *domain.Account, amount decimal.Decimal, ref entryRef) error {
	return l.apply(ctx, tx, account, domain.EntryDebit, amount, ref, account.Debit)
}

func (l *Ledger) reserve(ctx context.Context, tx Transaction, account *domain.Account, amount decimal.Decimal, ref entryRef) error {
	return l.apply(ctx, tx, account, domain.EntryReserve, amount, ref, account.Reserve)
}

func (l *Ledger) release(ctx context.Context, tx Transaction, account *domain.Account, amount decimal.Decimal, ref entryRef) error {
	return l.apply(ctx, tx, account, domain.EntryRelease, amount, ref, account.Release)
}

func (l *Ledger) apply(
	ctx context.Context,
	tx Transaction,
	account *domain.Account,
	op domain.EntryOperation,
	amount decimal.Decimal,
	ref entryRef,
	mutate func(decimal.Decimal) error,
) error {
	before := *account
	if err := mutate(amount); err != nil {
		*account = before
		return err
	}

	now := time.Now().UTC()
	account.Version++
	account.UpdatedAt = now

	if err := l.accountRepo.UpdateBalances(ctx, tx, account); err != nil {
		return err
	}

	entry := &domain.Entry{
		ID:              l.idGen.Generate(),
		AccountID:       account.ID,
		TransactionID:   domain.StringPtr(ref.transactionID),
		PositionID:      domain.StringPtr(ref.positionID),
		Operation:       op,
		Amount:          amount,
		TotalBefore:     before.TotalBalance,
		TotalAfter:      account.TotalBalance,
		AvailableBefore: before.AvailableBalance,
		AvailableAfter:  account.AvailableBalance,
		AccountVersion:  account.Version,
		CreatedAt:       now,
	}
	if err := l.entryRepo.Create(ctx, tx, entry); err != nil {
		return err
	}

	if l.metrics != nil {
		l.metrics.LedgerOperations.WithLabelValues(string(op)).Inc()
	}

	return nil
}
