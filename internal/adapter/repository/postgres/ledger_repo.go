package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	pool querier
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// CheckConsistency returns the sum of all account total balances and the sum
// of all entry total deltas. Both are read in one statement.
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (balances decimal.Decimal, entries decimal.Decimal, err error) {
	query := `
		SELECT
			(SELECT COALESCE(SUM(total_balance), 0) FROM accounts),
			(SELECT COALESCE(SUM(total_after - total_before), 0) FROM entries)
	`

	var balancesNum, entriesNum pgtype.Numeric
	if err := r.pool.QueryRow(ctx, query).Scan(&balancesNum, &entriesNum); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(balancesNum), numericToDecimal(entriesNum), nil
}
