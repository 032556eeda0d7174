package sqlite

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

const entryColumns = `id, account_id, transaction_id, position_id, operation, amount,
	total_before, total_after, available_before, available_after, account_version, created_at`

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	db *sql.DB
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create appends an entry within a transaction.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	_, err := conn(r.db, tx).ExecContext(ctx,
		`INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.AccountID,
		nullString(entry.TransactionID),
		nullString(entry.PositionID),
		string(entry.Operation),
		entry.Amount.String(),
		entry.TotalBefore.String(),
		entry.TotalAfter.String(),
		entry.AvailableBefore.String(),
		entry.AvailableAfter.String(),
		entry.AccountVersion,
		toMillis(entry.CreatedAt),
	)
	return err
}

// ListByAccount lists entries for an account, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+`
		 FROM entries
		 WHERE account_id = ?
		 ORDER BY account_version DESC, created_at DESC
		 LIMIT ? OFFSET ?`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		var (
			entry           domain.Entry
			operation       string
			transactionID   sql.NullString
			positionID      sql.NullString
			amount          string
			totalBefore     string
			totalAfter      string
			availableBefore string
			availableAfter  string
			createdAt       int64
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

		var p decimals
		entry.Amount = p.parse("amount", amount)
		entry.TotalBefore = p.parse("total_before", totalBefore)
		entry.TotalAfter = p.parse("total_after", totalAfter)
		entry.AvailableBefore = p.parse("available_before", availableBefore)
		entry.AvailableAfter = p.parse("available_after", availableAfter)
		if p.err != nil {
			return nil, p.err
		}
		entry.Operation = domain.EntryOperation(operation)
		entry.TransactionID = fromNullString(transactionID)
		entry.PositionID = fromNullString(positionID)
		entry.CreatedAt = fromMillis(createdAt)

		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// SumByAccount returns the summed total and available deltas of an account.
// Amounts are TEXT, so the sum is computed in decimal arithmetic.
func (r *EntryRepository) SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT total_before, total_after, available_before, available_after FROM entries WHERE account_id = ?`,
		accountID,
	)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	defer rows.Close()

	total, available := decimal.Zero, decimal.Zero
	for rows.Next() {
		var tb, ta, ab, aa string
		if err := rows.Scan(&tb, &ta, &ab, &aa); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		var p decimals
		total = total.Add(p.parse("total_after", ta).Sub(p.parse("total_before", tb)))
		available = available.Add(p.parse("available_after", aa).Sub(p.parse("available_before", ab)))
		if p.err != nil {
			return decimal.Zero, decimal.Zero, p.err
		}
	}
	return total, available, rows.Err()
}

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CheckConsistency returns the sum of all account total balances and the sum
// of all entry total deltas, read from one snapshot.
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (balances decimal.Decimal, entries decimal.Decimal, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	defer func() { _ = tx.Rollback() }()

	balances, err = sumColumn(ctx, tx, `SELECT total_balance FROM accounts`, 1)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	entries, err = sumColumn(ctx, tx, `SELECT total_after, total_before FROM entries`, 2)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return balances, entries, nil
}

// sumColumn sums the first column, minus the second when width is 2.
func sumColumn(ctx context.Context, q querier, query string, width int) (decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var a, b string
		dest := []any{&a}
		if width == 2 {
			dest = append(dest, &b)
		}
		if err := rows.Scan(dest...); err != nil {
			return decimal.Zero, err
		}
		var p decimals
		v := p.parse("value", a)
		if width == 2 {
			v = v.Sub(p.parse("value", b))
		}
		if p.err != nil {
			return decimal.Zero, p.err
		}
		sum = sum.Add(v)
	}
	return sum, rows.Err()
}
