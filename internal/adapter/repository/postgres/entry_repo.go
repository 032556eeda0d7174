package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

const entryColumns = `id, account_id, transaction_id, position_id, operation, amount,
	total_before, total_after, available_before, available_after, account_version, created_at`

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	pool querier
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Create appends an entry within a transaction.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	query := `
		INSERT INTO entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := conn(r.pool, tx).Exec(ctx, query,
		entry.ID,
		entry.AccountID,
		stringPtrToPgText(entry.TransactionID),
		stringPtrToPgText(entry.PositionID),
		string(entry.Operation),
		decimalToNumeric(entry.Amount),
		decimalToNumeric(entry.TotalBefore),
		decimalToNumeric(entry.TotalAfter),
		decimalToNumeric(entry.AvailableBefore),
		decimalToNumeric(entry.AvailableAfter),
		entry.AccountVersion,
		timeToPgTimestamptz(entry.CreatedAt),
	)

	return err
}

// ListByAccount lists entries for an account, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE account_id = $1
		ORDER BY account_version DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		var (
			entry           domain.Entry
			operation       string
			transactionID   pgtype.Text
			positionID      pgtype.Text
			amount          pgtype.Numeric
			totalBefore     pgtype.Numeric
			totalAfter      pgtype.Numeric
			availableBefore pgtype.Numeric
			availableAfter  pgtype.Numeric
			createdAt       pgtype.Timestamptz
		)

		if err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&transactionID,
			&positionID,
			&operation,
			&amount,
			&totalBefore,
			&totalAfter,
			&availableBefore,
			&availableAfter,
			&entry.AccountVersion,
			&createdAt,
		); err != nil {
			return nil, err
		}

		entry.Operation = domain.EntryOperation(operation)
		entry.TransactionID = pgTextToStringPtr(transactionID)
		entry.PositionID = pgTextToStringPtr(positionID)
		entry.Amount = numericToDecimal(amount)
		entry.TotalBefore = numericToDecimal(totalBefore)
		entry.TotalAfter = numericToDecimal(totalAfter)
		entry.AvailableBefore = numericToDecimal(availableBefore)
		entry.AvailableAfter = numericToDecimal(availableAfter)
		entry.CreatedAt = createdAt.Time

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// SumByAccount returns the summed total and available deltas of an account.
func (r *EntryRepository) SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, decimal.Decimal, error) {
	query := `
		SELECT
			COALESCE(SUM(total_after - total_before), 0),
			COALESCE(SUM(available_after - available_before), 0)
		FROM entries
		WHERE account_id = $1
	`

	var total, available pgtype.Numeric
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(&total, &available); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(total), numericToDecimal(available), nil
}
