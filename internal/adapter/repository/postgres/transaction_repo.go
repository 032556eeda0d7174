package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

const transactionColumns = `id, kind, source_account_id, dest_account_id, linked_position_id, amount,
	currency, description, status, initiated_by, is_automatic, created_at, executed_at`

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	pool querier
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create inserts a transaction record.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := conn(r.pool, tx).Exec(ctx, query,
		record.ID,
		string(record.Kind),
		stringPtrToPgText(record.SourceAccountID),
		stringPtrToPgText(record.DestAccountID),
		stringPtrToPgText(record.LinkedPositionID),
		decimalToNumeric(record.Amount),
		record.Currency,
		record.Description,
		string(record.Status),
		record.InitiatedBy,
		record.IsAutomatic,
		timeToPgTimestamptz(record.CreatedAt),
		timePtrToPgTimestamptz(record.ExecutedAt),
	)

	return err
}

// GetByID retrieves a transaction record by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	return scanTransactionRow(r.pool.QueryRow(ctx, query, id), id)
}

// GetByIDForUpdate retrieves and row-locks a transaction record.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`

	return scanTransactionRow(conn(r.pool, tx).QueryRow(ctx, query, id), id)
}

// UpdateStatus persists status, execution time and description.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error {
	query := `UPDATE transactions SET status = $2, executed_at = $3, description = $4 WHERE id = $1`

	tag, err := conn(r.pool, tx).Exec(ctx, query,
		record.ID,
		string(record.Status),
		timePtrToPgTimestamptz(record.ExecutedAt),
		record.Description,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// ListByAccount lists transactions touching an account, newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE source_account_id = $1 OR dest_account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
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

func scanTransactionRow(row pgx.Row, id string) (*domain.Transaction, error) {
	record, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, id)
	}

	return record, err
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		record     domain.Transaction
		kind       string
		status     string
		source     pgtype.Text
		dest       pgtype.Text
		linked     pgtype.Text
		amount     pgtype.Numeric
		createdAt  pgtype.Timestamptz
		executedAt pgtype.Timestamptz
	)

	err := row.Scan(
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
	)
	if err != nil {
		return nil, err
	}

	record.Kind = domain.TransactionKind(kind)
	record.Status = domain.TransactionStatus(status)
	record.SourceAccountID = pgTextToStringPtr(source)
	record.DestAccountID = pgTextToStringPtr(dest)
	record.LinkedPositionID = pgTextToStringPtr(linked)
	record.Amount = numericToDecimal(amount)
	record.CreatedAt = createdAt.Time
	record.ExecutedAt = pgTimestamptzToTimePtr(executedAt)

	return &record, nil
}
