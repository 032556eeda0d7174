package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/fundledger/internal/domain"
)

const instrumentColumns = `id, code, name, type, issuer, currency, interest_schedule, status,
	annual_rate, face_value, min_amount, issued_at, maturity_date`

// InstrumentRepository reads the instrument catalog.
type InstrumentRepository struct {
	pool querier
}

// NewInstrumentRepository creates a new InstrumentRepository.
func NewInstrumentRepository(pool *pgxpool.Pool) *InstrumentRepository {
	return &InstrumentRepository{pool: pool}
}

// GetByID retrieves an instrument by ID.
func (r *InstrumentRepository) GetByID(ctx context.Context, id string) (*domain.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE id = $1`

	instrument, err := scanInstrument(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInstrumentNotFound, id)
	}

	return instrument, err
}

// ListAvailable lists instruments open for subscription.
func (r *InstrumentRepository) ListAvailable(ctx context.Context) ([]*domain.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE status = $1 ORDER BY code`

	rows, err := r.pool.Query(ctx, query, string(domain.InstrumentStatusAvailable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instruments []*domain.Instrument
	for rows.Next() {
		instrument, err := scanInstrument(rows)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, instrument)
	}

	return instruments, rows.Err()
}

func scanInstrument(row pgx.Row) (*domain.Instrument, error) {
	var (
		instrument   domain.Instrument
		status       string
		annualRate   pgtype.Numeric
		faceValue    pgtype.Numeric
		minAmount    pgtype.Numeric
		issuedAt     pgtype.Timestamptz
		maturityDate pgtype.Timestamptz
	)

	err := row.Scan(
		&instrument.ID,
		&instrument.Code,
		&instrument.Name,
		&instrument.Type,
		&instrument.Issuer,
		&instrument.Currency,
		&instrument.InterestSchedule,
		&status,
		&annualRate,
		&faceValue,
		&minAmount,
		&issuedAt,
		&maturityDate,
	)
	if err != nil {
		return nil, err
	}

	instrument.Status = domain.InstrumentStatus(status)
	instrument.AnnualRate = numericToDecimal(annualRate)
	instrument.FaceValue = numericToDecimal(faceValue)
	instrument.MinAmount = numericToDecimal(minAmount)
	instrument.IssuedAt = pgTimestamptzToTimePtr(issuedAt)
	instrument.MaturityDate = pgTimestamptzToTimePtr(maturityDate)

	return &instrument, nil
}
