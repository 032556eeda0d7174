package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

func TestReconciliationUseCase_ReconcileAccount(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("acc-1", "alice", 0, 0)
	f.seedInstrument("inst-1", 0, domain.InstrumentStatusAvailable)
	ctx := context.Background()

	if _, err := f.engine.Submit(ctx, usecase.CreateTransactionInput{
		Kind:          domain.KindDeposit,
		Amount:        amount(500),
		Currency:      "HTG",
		DestAccountID: "acc-1",
		ActorID:       "alice",
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.positionUC.Subscribe(ctx, usecase.OpenPositionInput{
		AccountID:    "acc-1",
		InstrumentID: "inst-1",
		ActorID:      "alice",
		Amount:       amount(200),
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	result, err := f.reconciliation.ReconcileAccount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("ReconcileAccount() error = %v", err)
	}
	if !result.IsReconciled {
		t.Fatalf("expected account to reconcile, issues: %v", result.Issues)
	}
	if !result.CalculatedTotal.Equal(amount(500)) || !result.CalculatedAvailable.Equal(amount(300)) {
		t.Errorf("calculated = (%s, %s), want (500, 300)", result.CalculatedTotal, result.CalculatedAvailable)
	}

	if err := f.reconciliation.CheckLedgerConsistency(ctx); err != nil {
		t.Errorf("CheckLedgerConsistency() error = %v", err)
	}
}

func TestReconciliationUseCase_DetectsDrift(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("acc-1", "alice", 0, 0)
	f.seedAccount("acc-2", "bob", 0, 0)
	ctx := context.Background()

	// Balance written without an entry.
	tampered := f.store.Account("acc-2")
	tampered.TotalBalance = decimal.NewFromInt(75)
	tampered.Status = domain.AccountStatusClosed
	f.store.PutAccount(tampered)

	report, err := f.reconciliation.GenerateReconciliationReport(ctx)
	if err != nil {
		t.Fatalf("GenerateReconciliationReport() error = %v", err)
	}

	if report.TotalAccounts != 2 || report.ReconciledAccounts != 1 {
		t.Errorf("report accounts = %d/%d, want 1/2", report.ReconciledAccounts, report.TotalAccounts)
	}
	if len(report.Discrepancies) != 1 || report.Discrepancies[0].AccountID != "acc-2" {
		t.Fatalf("unexpected discrepancies: %+v", report.Discrepancies)
	}
	if got := len(report.Discrepancies[0].Issues); got != 2 {
		t.Errorf("issues = %d, want 2 (drift and closed with balance): %v", got, report.Discrepancies[0].Issues)
	}
	if report.LedgerConsistent || report.LedgerError == "" {
		t.Error("expected ledger inconsistency")
	}

	if err := f.reconciliation.CheckLedgerConsistency(ctx); !errors.Is(err, usecase.ErrLedgerInconsistent) {
		t.Errorf("CheckLedgerConsistency() error = %v, want ErrLedgerInconsistent", err)
	}
}

func TestReconciliationUseCase_ReconcileAccount_NotFound(t *testing.T) {
	f := newFixture(t)

	if _, err := f.reconciliation.ReconcileAccount(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown account")
	}
}
