package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

const transactionColumns = `id, kind, source_account_id, dest_account_id, linked_position_id, amount,
	currency, description, status, initiated_by, is_automatic, created_at, executed_at`

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a transaction record.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error {
	_, err := conn(r.db, tx).ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		string(record.Kind),
		nullString(record.SourceAccountID),
		nullString(record.DestAccountID),
		nullString(record.LinkedPositionID),
		record.Amount.String(),
		record.Currency,
		record.Description,
		string(record.Status),
		record.InitiatedBy,
		record.IsAutomatic,
		toMillis(record.CreatedAt),
		nullMillis(record.ExecutedAt),
	)
	return err
}

// GetByID retrieves a transaction record by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.get(ctx, r.db, id)
}

// GetByIDForUpdate reads a transaction record inside the write transaction.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	return r.get(ctx, conn(r.db, tx), id)
}

func (r *TransactionRepository) get(ctx context.Context, q querier, id string) (*domain.Transaction, error) {
	record, err := scanTransaction(q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, id)
	}
	return record, err
}

// UpdateStatus persists status, execution time and description.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error {
	res, err := conn(r.db, tx).ExecContext(ctx,
		`UPDATE transactions SET status = ?, executed_at = ?, description = ? WHERE id = ?`,
		string(record.Status),
		nullMillis(record.ExecutedAt),
		record.Description,
		record.ID,
	)
	return requireAffected(res, err, domain.ErrTransactionNotFound)
}

// ListByAccount lists transactions touching an account, newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE source_account_id = ? OR dest_account_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		accountID, accountID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.Transaction
	for rows.Next() {
		record, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		record     domain.Transaction
		kind       string
		status     string
		source     sql.NullString
		dest       sql.NullString
		linked     sql.NullString
		amount     string
		createdAt  int64
		executedAt sql.NullInt64
	)
	if err := row.Scan(
		&record.ID,
		&kind,
		&source,
		&dest,
		&linked,
		&amount,
		&record.Currency,
		&record.Description,
		&status,
		&record.InitiatedBy,
		&record.IsAutomatic,
		&createdAt,
		&executedAt,
	); err != nil {
		return nil, err
	}

	d, err := parseDecimal("amount", amount)
	if err != nil {
		return nil, err
	}
	record.Amount = d
	record.Kind = domain.TransactionKind(kind)
	record.Status = domain.TransactionStatus(status)
	record.SourceAccountID = fromNullString(source)
	record.DestAccountID = fromNullString(dest)
	record.LinkedPositionID = fromNullString(linked)
	record.CreatedAt = fromMillis(createdAt)
	record.ExecutedAt = fromNullMillis(executedAt)
	return &record, nil
}
