package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

const positionColumns = `id, account_id, instrument_id, status, invested_amount, units, rate,
	current_value, accrued_interest, subscribed_at, maturity_date, redeemed_at, updated_at`

// PositionRepository implements usecase.PositionRepository.
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts a new position.
func (r *PositionRepository) Create(ctx context.Context, tx usecase.Transaction, position *domain.Position) error {
	_, err := conn(r.db, tx).ExecContext(ctx,
		`INSERT INTO positions (`+positionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		position.ID,
		position.AccountID,
		position.InstrumentID,
		string(position.Status),
		position.InvestedAmount.String(),
		nullDecimal(position.Units),
		position.Rate.String(),
		position.CurrentValue.String(),
		position.AccruedInterest.String(),
		toMillis(position.SubscribedAt),
		nullMillis(position.MaturityDate),
		nullMillis(position.RedeemedAt),
		toMillis(position.UpdatedAt),
	)
	return err
}

// GetByID retrieves a position by ID.
func (r *PositionRepository) GetByID(ctx context.Context, id string) (*domain.Position, error) {
	return r.get(ctx, r.db, id)
}

// GetByIDForUpdate reads a position inside the write transaction.
func (r *PositionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Position, error) {
	return r.get(ctx, conn(r.db, tx), id)
}

func (r *PositionRepository) get(ctx context.Context, q querier, id string) (*domain.Position, error) {
	position, err := scanPosition(q.QueryRowContext(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPositionNotFound, id)
	}
	return position, err
}

// Update persists the mutable position fields.
func (r *PositionRepository) Update(ctx context.Context, tx usecase.Transaction, position *domain.Position) error {
	res, err := conn(r.db, tx).ExecContext(ctx,
		`UPDATE positions
		 SET status = ?, current_value = ?, accrued_interest = ?, redeemed_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(position.Status),
		position.CurrentValue.String(),
		position.AccruedInterest.String(),
		nullMillis(position.RedeemedAt),
		toMillis(position.UpdatedAt),
		position.ID,
	)
	return requireAffected(res, err, domain.ErrPositionNotFound)
}

// ListByAccount lists positions held by an account, oldest first.
func (r *PositionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Position, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+positionColumns+`
		 FROM positions
		 WHERE account_id = ?
		 ORDER BY subscribed_at, id
		 LIMIT ? OFFSET ?`,
		accountID, limit, offset,
	)
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

func scanPosition(row rowScanner) (*domain.Position, error) {
	var (
		position        domain.Position
		status          string
		invested        string
		units           sql.NullString
		rate            string
		currentValue    string
		accruedInterest string
		subscribedAt    int64
		maturityDate    sql.NullInt64
		redeemedAt      sql.NullInt64
		updatedAt       int64
	)
	if err := row.Scan(
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
	); err != nil {
		return nil, err
	}

	var p decimals
	position.InvestedAmount = p.parse("invested_amount", invested)
	position.Rate = p.parse("rate", rate)
	position.CurrentValue = p.parse("current_value", currentValue)
	position.AccruedInterest = p.parse("accrued_interest", accruedInterest)
	if p.err != nil {
		return nil, p.err
	}
	u, err := parseNullDecimal("units", units)
	if err != nil {
		return nil, err
	}
	position.Units = u
	position.Status = domain.PositionStatus(status)
	position.SubscribedAt = fromMillis(subscribedAt)
	position.MaturityDate = fromNullMillis(maturityDate)
	position.RedeemedAt = fromNullMillis(redeemedAt)
	position.UpdatedAt = fromMillis(updatedAt)
	return &position, nil
}
