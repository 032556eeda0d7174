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

const positionColumns = `id, account_id, instrument_id, status, invested_amount, units, rate,
	current_value, accrued_interest, subscribed_at, maturity_date, redeemed_at, updated_at`

// PositionRepository implements usecase.PositionRepository.
type PositionRepository struct {
	pool querier
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(pool *pgxpool.Pool) *PositionRepository {
	return &PositionRepository{pool: pool}
}

// Create inserts a new position.
func (r *PositionRepository) Create(ctx context.Context, tx usecase.Transaction, position *domain.Position) error {
	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := conn(r.pool, tx).Exec(ctx, query,
		position.ID,
		position.AccountID,
		position.InstrumentID,
		string(position.Status),
		decimalToNumeric(position.InvestedAmount),
		decimalPtrToNumeric(position.Units),
		decimalToNumeric(position.Rate),
		decimalToNumeric(position.CurrentValue),
		decimalToNumeric(position.AccruedInterest),
		timeToPgTimestamptz(position.SubscribedAt),
		timePtrToPgTimestamptz(position.MaturityDate),
		timePtrToPgTimestamptz(position.RedeemedAt),
		timeToPgTimestamptz(position.UpdatedAt),
	)

	return err
}

// GetByID retrieves a position by ID.
func (r *PositionRepository) GetByID(ctx context.Context, id string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`

	return scanPositionRow(r.pool.QueryRow(ctx, query, id), id)
}

// GetByIDForUpdate retrieves and row-locks a position.
func (r *PositionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1 FOR UPDATE`

	return scanPositionRow(conn(r.pool, tx).QueryRow(ctx, query, id), id)
}

// Update persists the mutable position fields.
func (r *PositionRepository) Update(ctx context.Context, tx usecase.Transaction, position *domain.Position) error {
	query := `
		UPDATE positions
		SET status = $2, current_value = $3, accrued_interest = $4, redeemed_at = $5, updated_at = $6
		WHERE id = $1
	`

	tag, err := conn(r.pool, tx).Exec(ctx, query,
		position.ID,
		string(position.Status),
		decimalToNumeric(position.CurrentValue),
		decimalToNumeric(position.AccruedInterest),
		timePtrToPgTimestamptz(position.RedeemedAt),
		timeToPgTimestamptz(position.UpdatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPositionNotFound
	}

	return nil
}

// ListByAccount lists positions held by an account, oldest first.
func (r *PositionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE account_id = $1
		ORDER BY subscribed_at, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}

	return positions, rows.Err()
}

func scanPositionRow(row pgx.Row, id string) (*domain.Position, error) {
	position, err := scanPosition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPositionNotFound, id)
	}

	return position, err
}

func scanPosition(row pgx.Row) (*domain.Position, error) {
	var (
		position        domain.Position
		status          string
		invested        pgtype.Numeric
		units           pgtype.Numeric
		rate            pgtype.Numeric
		currentValue    pgtype.Numeric
		accruedInterest pgtype.Numeric
		subscribedAt    pgtype.Timestamptz
		maturityDate    pgtype.Timestamptz
		redeemedAt      pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
	)

	err := row.Scan(
		&position.ID,
		&position.AccountID,
		&position.InstrumentID,
		&status,
		&invested,
		&units,
		&rate,
		&currentValue,
		&accruedInterest,
		&subscribedAt,
		&maturityDate,
		&redeemedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	position.Status = domain.PositionStatus(status)
	position.InvestedAmount = numericToDecimal(invested)
	position.Units = numericToDecimalPtr(units)
	position.Rate = numericToDecimal(rate)
	position.CurrentValue = numericToDecimal(currentValue)
	position.AccruedInterest = numericToDecimal(accruedInterest)
	position.SubscribedAt = subscribedAt.Time
	position.MaturityDate = pgTimestamptzToTimePtr(maturityDate)
	position.RedeemedAt = pgTimestamptzToTimePtr(redeemedAt)
	position.UpdatedAt = updatedAt.Time

	return &position, nil
}
