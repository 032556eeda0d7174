package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
)

// ErrLedgerInconsistent is returned when summed balances and entries differ.
var ErrLedgerInconsistent = errors.New("ledger inconsistency detected")

// ReconciliationUseCase checks stored balances against the entry history.
type ReconciliationUseCase struct {
	accountRepo AccountRepository
	entryRepo   EntryRepository
	ledgerRepo  LedgerRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	ledgerRepo LedgerRepository,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		ledgerRepo:  ledgerRepo,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	LastChecked         time.Time
	AccountID           string
	Issues              []string
	RecordedTotal       decimal.Decimal
	RecordedAvailable   decimal.Decimal
	CalculatedTotal     decimal.Decimal
	CalculatedAvailable decimal.Decimal
	IsReconciled        bool
}

// ReconcileAccount compares an account's balances with the sums of its entry
// deltas and checks the balance invariants.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, accountID string) (*ReconciliationResult, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	total, available, err := uc.entryRepo.SumByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result := &ReconciliationResult{
		AccountID:           accountID,
		RecordedTotal:       account.TotalBalance,
		RecordedAvailable:   account.AvailableBalance,
		CalculatedTotal:     total,
		CalculatedAvailable: available,
		Issues:              make([]string, 0),
		LastChecked:         time.Now().UTC(),
	}

	if !total.Equal(account.TotalBalance) {
		result.Issues = append(result.Issues, fmt.Sprintf("total balance %s differs from entries %s", account.TotalBalance, total))
	}
	if !available.Equal(account.AvailableBalance) {
		result.Issues = append(result.Issues, fmt.Sprintf("available balance %s differs from entries %s", account.AvailableBalance, available))
	}
	if account.TotalBalance.IsNegative() || account.AvailableBalance.IsNegative() {
		result.Issues = append(result.Issues, "negative balance")
	}
	if account.Status == domain.AccountStatusClosed && !account.TotalBalance.IsZero() {
		result.Issues = append(result.Issues, "closed account carries a balance")
	}

	result.IsReconciled = len(result.Issues) == 0

	return result, nil
}

// ReconcileAllAccounts reconciles all accounts in the system
func (uc *ReconciliationUseCase) ReconcileAllAccounts(ctx context.Context) ([]*ReconciliationResult, error) {
	results := make([]*ReconciliationResult, 0)

	for offset := 0; ; offset += domain.MaxPageLimit {
		accounts, err := uc.accountRepo.List(ctx, domain.MaxPageLimit, offset)
		if err != nil {
			return nil, err
		}

		for _, account := range accounts {
			result, err := uc.ReconcileAccount(ctx, account.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to reconcile account %s: %w", account.ID, err)
			}
			results = append(results, result)
		}

		if len(accounts) < domain.MaxPageLimit {
			break
		}
	}

	return results, nil
}

// CheckLedgerConsistency verifies that the summed account totals equal the
// summed entry deltas.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) error {
	balances, entries, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return err
	}

	if !balances.Equal(entries) {
		return fmt.Errorf(
			"%w: balances=%s entries=%s difference=%s",
			ErrLedgerInconsistent,
			balances.String(),
			entries.String(),
			balances.Sub(entries).String(),
		)
	}

	return nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	CheckedAt          time.Time
	LedgerError        string
	Discrepancies      []*ReconciliationResult
	TotalAccounts      int
	ReconciledAccounts int
	LedgerConsistent   bool
}

// GenerateReconciliationReport generates a comprehensive reconciliation report
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	results, err := uc.ReconcileAllAccounts(ctx)
	if err != nil {
		return nil, err
	}

	ledgerErr := uc.CheckLedgerConsistency(ctx)

	report := &ReconciliationReport{
		TotalAccounts:    len(results),
		Discrepancies:    make([]*ReconciliationResult, 0),
		LedgerConsistent: ledgerErr == nil,
		CheckedAt:        time.Now().UTC(),
	}
	if ledgerErr != nil {
		report.LedgerError = ledgerErr.Error()
	}

	for _, result := range results {
		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}
