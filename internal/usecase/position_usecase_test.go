package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
	"github.com/iho/fundledger/internal/usecase/mocks"
)

func TestPositionUseCase_SubscribeAndRedeem_HTGScenario(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("acc-1", "alice", 0, 0)
	f.deposit(t, "acc-1", "alice", 1000)
	requireBalances(t, f, "acc-1", 1000, 1000)
	f.seedInstrument("inst-1", 100, domain.InstrumentStatusAvailable)

	result, err := f.positionUC.Subscribe(context.Background(), usecase.OpenPositionInput{
		AccountID:    "acc-1",
		InstrumentID: "inst-1",
		ActorID:      "alice",
		Amount:       amount(400),
	})
	require.NoError(t, err)

	position := result.Position
	assert.Equal(t, domain.PositionStatusActive, position.Status)
	assert.True(t, position.CurrentValue.Equal(amount(400)))
	assert.True(t, position.AccruedInterest.IsZero())
	require.NotNil(t, position.Units)
	assert.True(t, position.Units.Equal(amount(4)))
	requireBalances(t, f, "acc-1", 1000, 600)

	record := result.Transaction
	assert.Equal(t, domain.KindSubscription, record.Kind)
	assert.Equal(t, domain.TransactionStatusExecuted, record.Status)
	assert.Equal(t, position.ID, *record.LinkedPositionID)
	assert.Equal(t, "Subscription BON-inst-1", record.Description)
	assert.Equal(t, domain.TransactionStatusExecuted, f.store.Transaction(record.ID).Status)

	entries := f.store.Entries("acc-1")
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryCredit, entries[0].Operation)
	assert.Equal(t, domain.EntryReserve, entries[1].Operation)
	assert.Equal(t, record.ID, *entries[1].TransactionID)
	assert.Equal(t, position.ID, *entries[1].PositionID)

	redeemed, err := f.positionUC.Redeem(context.Background(), position.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.PositionStatusRedeemed, redeemed.Position.Status)
	require.NotNil(t, redeemed.Position.RedeemedAt)
	assert.True(t, redeemed.Payout.Equal(amount(400)))
	require.NotNil(t, redeemed.Transaction)
	assert.Equal(t, domain.KindRedemption, redeemed.Transaction.Kind)
	assert.Equal(t, domain.TransactionStatusExecuted, redeemed.Transaction.Status)
	requireBalances(t, f, "acc-1", 1400, 1000)
	assert.Equal(t, domain.PositionStatusRedeemed, f.store.Position(position.ID).Status)

	_, err = f.positionUC.Redeem(context.Background(), position.ID, "alice")
	require.ErrorIs(t, err, domain.ErrPositionNotActive)
	assert.True(t, errors.Is(err, domain.ErrBusinessRule))
	requireBalances(t, f, "acc-1", 1400, 1000)

	report, err := f.reconciliation.GenerateReconciliationReport(context.Background())
	require.NoError(t, err)
	assert.True(t, report.LedgerConsistent)
	assert.Empty(t, report.Discrepancies)
}

func TestPositionUseCase_Open_ExactAvailable(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("acc-1", "alice", 900, 250)
	f.seedInstrument("inst-1", 0, domain.InstrumentStatusAvailable)

	position, err := f.positionUC.Open(context.Background(), usecase.OpenPositionInput{
		AccountID:    "acc-1",
		InstrumentID: "inst-1",
		ActorID:      "alice",
		Amount:       amount(250),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PositionStatusActive, position.Status)
	assert.True(t, position.CurrentValue.Equal(amount(250)))
	assert.True(t, position.Rate.Equal(decimal.RequireFromString("0.085")))
	require.NotNil(t, position.MaturityDate)
	requireBalances(t, f, "acc-1", 900, 0)
	assert.Empty(t, f.store.Transactions())
	assert.Len(t, f.store.Events(domain.EventTypePositionOpened), 1)
}

func TestPositionUseCase_Subscribe_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		instStatus domain.InstrumentStatus
		minAmount  int64
		actorID    string
		amount     int64
		setup      func(f *fixture)
		wantErr    error
	}{
		{
			name:       "instrument unavailable",
			instStatus: domain.InstrumentStatusExhausted,
			actorID:    "alice",
			amount:     100,
			wantErr:    domain.ErrInstrumentUnavailable,
		},
		{
			name:       "below minimum",
			instStatus: domain.InstrumentStatusAvailable,
			minAmount:  500,
			actorID:    "alice",
			amount:     400,
			wantErr:    domain.ErrBelowMinimum,
		},
		{
			name:       "insufficient funds",
			instStatus: domain.InstrumentStatusAvailable,
			actorID:    "alice",
			amount:     1500,
			wantErr:    domain.ErrInsufficientFunds,
		},
		{
			name:       "observer cannot subscribe",
			instStatus: domain.InstrumentStatusAvailable,
			actorID:    "olivier",
			amount:     100,
			setup: func(f *fixture) {
				f.seedGrant("g-obs", "acc-1", "olivier", domain.RoleObserver)
			},
			wantErr: domain.ErrAccessDenied,
		},
		{
			name:       "suspended account",
			instStatus: domain.InstrumentStatusAvailable,
			actorID:    "alice",
			amount:     100,
			setup: func(f *fixture) {
				f.setStatus("acc-1", domain.AccountStatusSuspended)
			},
			wantErr: domain.ErrAccountNotActive,
		},
		{
			name:       "position write fails",
			instStatus: domain.InstrumentStatusAvailable,
			actorID:    "alice",
			amount:     100,
			setup: func(f *fixture) {
				f.positions.CreateFunc = func(context.Context, usecase.Transaction, *domain.Position) error {
					return errors.New("constraint violation")
				}
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedAccount("acc-1", "alice", 1000, 1000)
			f.seedInstrument("inst-1", tt.minAmount, tt.instStatus)
			if tt.setup != nil {
				tt.setup(f)
			}

			result, err := f.positionUC.Subscribe(context.Background(), usecase.OpenPositionInput{
				AccountID:    "acc-1",
				InstrumentID: "inst-1",
				ActorID:      tt.actorID,
				Amount:       amount(tt.amount),
			})
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			assert.Nil(t, result)

			requireBalances(t, f, "acc-1", 1000, 1000)
			assert.Empty(t, f.store.Positions())
			assert.Empty(t, f.store.Transactions())
			assert.Empty(t, f.store.Entries("acc-1"))
		})
	}
}

func TestPositionUseCase_Subscribe_CurrencyMismatch(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("acc-1", "alice", 1000, 1000)
	f.seedInstrument("inst-1", 0, domain.InstrumentStatusAvailable)

	usd, err := f.instruments.GetByID(context.Background(), "inst-1")
	require.NoError(t, err)
	usd.ID = "inst-usd"
	usd.Currency = "USD"
	f.store.PutInstrument(usd)

	_, err = f.positionUC.Subscribe(context.Background(), usecase.OpenPositionInput{
		AccountID:    "acc-1",
		InstrumentID: "inst-usd",
		ActorID:      "alice",
		Amount:       amount(100),
	})
	require.ErrorIs(t, err, domain.ErrCurrencyMismatch)
	requireBalances(t, f, "acc-1", 1000, 1000)
}

func TestPositionUseCase_Subscribe_UnknownInstrument(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockInstrumentCatalog(ctrl)
	catalog.EXPECT().
		GetByID(gomock.Any(), "inst-404").
		Return(nil, domain.ErrInstrumentNotFound)

	f := newFixtureWith(t, catalog, nil)
	f.seedAccount("acc-1", "alice", 1000, 1000)

	_, err := f.positionUC.Subscribe(context.Background(), usecase.OpenPositionInput{
		AccountID:    "acc-1",
		InstrumentID: "inst-404",
		ActorID:      "alice",
		Amount:       amount(100),
	})
	require.ErrorIs(t, err, domain.ErrInstrumentNotFound)
	assert.Zero(t, f.txManager.Begins)
}

func TestPositionUseCase_RedeemWithValuation(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("acc-1", "alice", 1000, 1000)
	f.seedGrant("g-sec", "acc-1", "sophie", domain.RoleSecondaryHolder)
	f.seedInstrument("inst-1", 100, domain.InstrumentStatusAvailable)

	result, err := f.positionUC.Subscribe(context.Background(), usecase.OpenPositionInput{
		AccountID:    "acc-1",
		InstrumentID: "inst-1",
		ActorID:      "sophie",
		Amount:       amount(400),
	})
	require.NoError(t, err)

	valued, err := f.positionUC.RecordValuation(context.Background(), usecase.RecordValuationInput{
		PositionID:      result.Position.ID,
		CurrentValue:    amount(420),
		AccruedInterest: amount(15),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PositionStatusActive, valued.Status)

	redeemed, err := f.positionUC.Redeem(context.Background(), result.Position.ID, "sophie")
	require.NoError(t, err)
	assert.True(t, redeemed.Payout.Equal(amount(435)))
	requireBalances(t, f, "acc-1", 1435, 1035)
}

func TestPositionUseCase_Redeem_Rejections(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("acc-1", "alice", 1000, 1000)
	f.seedGrant("g-ben", "acc-1", "bea", domain.RoleBeneficiary)
	f.seedInstrument("inst-1", 0, domain.InstrumentStatusAvailable)

	result, err := f.positionUC.Subscribe(context.Background(), usecase.OpenPositionInput{
		AccountID:    "acc-1",
		InstrumentID: "inst-1",
		ActorID:      "alice",
		Amount:       amount(300),
	})
	require.NoError(t, err)

	_, err = f.positionUC.Redeem(context.Background(), "pos-404", "alice")
	require.ErrorIs(t, err, domain.ErrPositionNotFound)

	_, err = f.positionUC.Redeem(context.Background(), result.Position.ID, "bea")
	require.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = f.positionUC.RecordValuation(context.Background(), usecase.RecordValuationInput{
		PositionID:   result.Position.ID,
		CurrentValue: amount(310),
		Mature:       true,
	})
	require.NoError(t, err)

	_, err = f.positionUC.Redeem(context.Background(), result.Position.ID, "alice")
	require.ErrorIs(t, err, domain.ErrPositionNotActive)

	requireBalances(t, f, "acc-1", 1000, 700)
	assert.Equal(t, domain.PositionStatusMature, f.store.Position(result.Position.ID).Status)
}

func TestPositionUseCase_Redeem_SuspendedAccount(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("acc-1", "alice", 1000, 1000)
	f.seedInstrument("inst-1", 0, domain.InstrumentStatusAvailable)

	result, err := f.positionUC.Subscribe(context.Background(), usecase.OpenPositionInput{
		AccountID:    "acc-1",
		InstrumentID: "inst-1",
		ActorID:      "alice",
		Amount:       amount(300),
	})
	require.NoError(t, err)

	_, err = f.accountUC.Suspend(context.Background(), "acc-1", "alice")
	require.NoError(t, err)

	_, err = f.positionUC.Redeem(context.Background(), result.Position.ID, "alice")
	require.ErrorIs(t, err, domain.ErrAccountNotActive)
	assert.Equal(t, domain.PositionStatusActive, f.store.Position(result.Position.ID).Status)
	requireBalances(t, f, "acc-1", 1000, 700)

	_, err = f.accountUC.Reactivate(context.Background(), "acc-1", "alice")
	require.NoError(t, err)

	_, err = f.positionUC.Redeem(context.Background(), result.Position.ID, "alice")
	require.NoError(t, err)
	requireBalances(t, f, "acc-1", 1300, 1000)
}

func TestPositionUseCase_RecordValuation_Negative(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("acc-1", "alice", 1000, 1000)
	f.seedInstrument("inst-1", 0, domain.InstrumentStatusAvailable)

	position, err := f.positionUC.Open(context.Background(), usecase.OpenPositionInput{
		AccountID:    "acc-1",
		InstrumentID: "inst-1",
		ActorID:      "alice",
		Amount:       amount(100),
	})
	require.NoError(t, err)

	_, err = f.positionUC.RecordValuation(context.Background(), usecase.RecordValuationInput{
		PositionID:   position.ID,
		CurrentValue: amount(-1),
	})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.True(t, f.store.Position(position.ID).CurrentValue.Equal(amount(100)))
}

func TestPositionUseCase_Portfolio(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("acc-1", "alice", 1000, 1000)
	f.seedAccount("acc-2", "bob", 1000, 1000)
	f.seedGrant("g-alice-2", "acc-2", "alice", domain.RoleProxy)
	f.seedInstrument("inst-1", 0, domain.InstrumentStatusAvailable)

	open := func(accountID string, amt int64) *domain.Position {
		t.Helper()
		p, err := f.positionUC.Open(context.Background(), usecase.OpenPositionInput{
			AccountID:    accountID,
			InstrumentID: "inst-1",
			ActorID:      "alice",
			Amount:       amount(amt),
		})
		require.NoError(t, err)
		return p
	}

	open("acc-1", 100)
	open("acc-2", 200)
	gone := open("acc-2", 50)

	_, err := f.positionUC.Redeem(context.Background(), gone.ID, "alice")
	require.NoError(t, err)

	portfolio, err := f.positionUC.Portfolio(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, portfolio.Positions, 2)
	assert.True(t, portfolio.TotalInvested.Equal(amount(300)))
	assert.True(t, portfolio.TotalCurrentValue.Equal(amount(300)))

	bobs, err := f.positionUC.Portfolio(context.Background(), "bob")
	require.NoError(t, err)
	assert.Len(t, bobs.Positions, 1)
}

func TestPositionUseCase_Portfolio_PagesPastRedeemedPositions(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("acc-1", "alice", 1000, 1000)

	redeemed := domain.MaxPageLimit
	for i := 0; i < redeemed+3; i++ {
		status := domain.PositionStatusActive
		if i < redeemed {
			status = domain.PositionStatusRedeemed
		}
		f.store.PutPosition(&domain.Position{
			ID:             fmt.Sprintf("pos-%04d", i),
			AccountID:      "acc-1",
			InstrumentID:   "inst-1",
			Status:         status,
			InvestedAmount: amount(10),
			CurrentValue:   amount(10),
		})
	}

	portfolio, err := f.positionUC.Portfolio(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, portfolio.Positions, 3)
	assert.True(t, portfolio.TotalInvested.Equal(amount(30)), "invested %s", portfolio.TotalInvested)
	assert.Equal(t, fmt.Sprintf("pos-%04d", redeemed), portfolio.Positions[0].ID)
}

func TestPositionUseCase_InstrumentLookups(t *testing.T) {
	f := newFixture(t)
	f.seedInstrument("inst-1", 100, domain.InstrumentStatusAvailable)
	f.seedInstrument("inst-2", 100, domain.InstrumentStatusExpired)

	instrument, err := f.positionUC.GetInstrument(context.Background(), "inst-2")
	require.NoError(t, err)
	assert.Equal(t, domain.InstrumentStatusExpired, instrument.Status)

	_, err = f.positionUC.GetInstrument(context.Background(), "inst-404")
	require.ErrorIs(t, err, domain.ErrInstrumentNotFound)

	available, err := f.positionUC.ListAvailableInstruments(context.Background())
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "inst-1", available[0].ID)
}
