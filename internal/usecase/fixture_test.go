package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
	"github.com/iho/fundledger/internal/usecase"
	"github.com/iho/fundledger/internal/usecase/mocks"
)

type fixture struct {
	store        *mocks.Store
	txManager    *mocks.MockTransactionManager
	accounts     *mocks.MockAccountRepository
	actors       *mocks.MockActorRepository
	grants       *mocks.MockGrantRepository
	instruments  *mocks.MockInstrumentRepository
	positions    *mocks.MockPositionRepository
	transactions *mocks.MockTransactionRepository
	entries      *mocks.MockEntryRepository
	outbox       *mocks.MockOutboxRepository
	idGen        *mocks.MockIDGenerator
	numbers      *mocks.MockAccountNumbers
	metrics      *metrics.Metrics

	access         *usecase.AccessUseCase
	ledger         *usecase.Ledger
	accountUC      *usecase.AccountUseCase
	engine         *usecase.TransactionUseCase
	positionUC     *usecase.PositionUseCase
	reconciliation *usecase.ReconciliationUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil, nil)
}

func newFixtureWith(t *testing.T, catalog usecase.InstrumentCatalog, retrier usecase.Retrier) *fixture {
	t.Helper()

	store := mocks.NewStore()
	f := &fixture{
		store:        store,
		txManager:    mocks.NewMockTransactionManager(store),
		accounts:     mocks.NewMockAccountRepository(store),
		actors:       mocks.NewMockActorRepository(store),
		grants:       mocks.NewMockGrantRepository(store),
		instruments:  mocks.NewMockInstrumentRepository(store),
		positions:    mocks.NewMockPositionRepository(store),
		transactions: mocks.NewMockTransactionRepository(store),
		entries:      mocks.NewMockEntryRepository(store),
		outbox:       mocks.NewMockOutboxRepository(store),
		idGen:        mocks.NewMockIDGenerator(),
		numbers:      mocks.NewMockAccountNumbers(),
		metrics:      metrics.NewWithRegisterer(prometheus.NewRegistry()),
	}
	if catalog == nil {
		catalog = f.instruments
	}

	f.access = usecase.NewAccessUseCase(f.txManager, f.accounts, f.actors, f.grants, f.outbox, f.idGen, f.metrics)
	f.ledger = usecase.NewLedger(f.accounts, f.entries, f.idGen, f.metrics)
	f.accountUC = usecase.NewAccountUseCase(f.txManager, f.accounts, f.entries, f.access, f.outbox, f.idGen, f.numbers, f.metrics)
	f.engine = usecase.NewTransactionUseCase(f.txManager, f.accounts, f.transactions, f.access, f.ledger, f.outbox, f.idGen, retrier, f.metrics, zerolog.Nop())
	f.positionUC = usecase.NewPositionUseCase(f.txManager, f.accounts, f.positions, catalog, f.access, f.ledger, f.engine, f.outbox, f.idGen, f.metrics)
	f.reconciliation = usecase.NewReconciliationUseCase(f.accounts, f.entries, mocks.NewMockLedgerRepository(store))

	return f
}

func (f *fixture) seedActor(id string) {
	f.store.PutActor(&domain.Actor{
		ID:          id,
		DisplayName: id,
		Kind:        domain.ActorKindIndividual,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	})
}

// seedAccount stores an ACTIVE HTG account whose owner holds PRIMARY_HOLDER.
func (f *fixture) seedAccount(id, owner string, total, available int64) {
	f.seedActor(owner)
	now := time.Now().UTC()
	f.store.PutAccount(&domain.Account{
		ID:               id,
		Number:           "INV-20260101-" + id,
		Type:             "INVESTMENT",
		Currency:         "HTG",
		Status:           domain.AccountStatusActive,
		TotalBalance:     decimal.NewFromInt(total),
		AvailableBalance: decimal.NewFromInt(available),
		OpenedAt:         now,
		UpdatedAt:        now,
		Version:          1,
	})
	f.seedGrant("grant-"+id+"-"+owner, id, owner, domain.RolePrimaryHolder)
}

// deposit funds an account through the engine so the ledger carries a
// matching credit entry.
func (f *fixture) deposit(t *testing.T, accountID, actorID string, value int64) *domain.Transaction {
	t.Helper()
	record, err := f.engine.Submit(context.Background(), usecase.CreateTransactionInput{
		Kind:          domain.KindDeposit,
		Amount:        decimal.NewFromInt(value),
		Currency:      "HTG",
		DestAccountID: accountID,
		ActorID:       actorID,
	})
	if err != nil {
		t.Fatalf("deposit into %s: %v", accountID, err)
	}
	return record
}

func (f *fixture) seedGrant(grantID, accountID, actorID string, role domain.Role) {
	f.seedActor(actorID)
	f.store.PutGrant(&domain.RoleGrant{
		ID:        grantID,
		AccountID: accountID,
		ActorID:   actorID,
		Role:      role,
		Active:    true,
		StartedAt: time.Now().UTC(),
	})
}

func (f *fixture) seedInstrument(id string, minAmount int64, status domain.InstrumentStatus) {
	maturity := time.Now().UTC().AddDate(1, 0, 0)
	f.store.PutInstrument(&domain.Instrument{
		ID:           id,
		Code:         "BON-" + id,
		Name:         "Bon du Tresor " + id,
		Issuer:       "BRH",
		Currency:     "HTG",
		Status:       status,
		AnnualRate:   decimal.RequireFromString("0.085"),
		FaceValue:    decimal.NewFromInt(100),
		MinAmount:    decimal.NewFromInt(minAmount),
		MaturityDate: &maturity,
	})
}

func (f *fixture) setStatus(accountID string, status domain.AccountStatus) {
	a := f.store.Account(accountID)
	a.Status = status
	f.store.PutAccount(a)
}

func requireBalances(t *testing.T, f *fixture, accountID string, total, available int64) {
	t.Helper()
	a := f.store.Account(accountID)
	if a == nil {
		t.Fatalf("account %s not found", accountID)
	}
	if !a.TotalBalance.Equal(decimal.NewFromInt(total)) || !a.AvailableBalance.Equal(decimal.NewFromInt(available)) {
		t.Fatalf("account %s balances = (%s, %s), want (%d, %d)",
			accountID, a.TotalBalance, a.AvailableBalance, total, available)
	}
}

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
