package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iho/fundledger/internal/domain"
)

const instrumentColumns = `id, code, name, type, issuer, currency, interest_schedule, status,
	annual_rate, face_value, min_amount, issued_at, maturity_date`

// InstrumentRepository stores the local copy of the instrument catalog.
type InstrumentRepository struct {
	db *sql.DB
}

// NewInstrumentRepository creates a new InstrumentRepository.
func NewInstrumentRepository(db *sql.DB) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

// Upsert inserts or replaces a catalog entry.
func (r *InstrumentRepository) Upsert(ctx context.Context, instrument *domain.Instrument) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO instruments (`+instrumentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   code = excluded.code,
		   name = excluded.name,
		   type = excluded.type,
		   issuer = excluded.issuer,
		   currency = excluded.currency,
		   interest_schedule = excluded.interest_schedule,
		   status = excluded.status,
		   annual_rate = excluded.annual_rate,
		   face_value = excluded.face_value,
		   min_amount = excluded.min_amount,
		   issued_at = excluded.issued_at,
		   maturity_date = excluded.maturity_date`,
		instrument.ID,
		instrument.Code,
		instrument.Name,
		instrument.Type,
		instrument.Issuer,
		instrument.Currency,
		instrument.InterestSchedule,
		string(instrument.Status),
		instrument.AnnualRate.String(),
		instrument.FaceValue.String(),
		instrument.MinAmount.String(),
		nullMillis(instrument.IssuedAt),
		nullMillis(instrument.MaturityDate),
	)
	return err
}

// GetByID retrieves an instrument by ID.
func (r *InstrumentRepository) GetByID(ctx context.Context, id string) (*domain.Instrument, error) {
	instrument, err := scanInstrument(r.db.QueryRowContext(ctx,
		`SELECT `+instrumentColumns+` FROM instruments WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInstrumentNotFound, id)
	}
	return instrument, err
}

// ListAvailable lists instruments open for subscription.
func (r *InstrumentRepository) ListAvailable(ctx context.Context) ([]*domain.Instrument, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+instrumentColumns+` FROM instruments WHERE status = ? ORDER BY code`,
		string(domain.InstrumentStatusAvailable),
	)
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

func scanInstrument(row rowScanner) (*domain.Instrument, error) {
	var (
		instrument   domain.Instrument
		status       string
		annualRate   string
		faceValue    string
		minAmount    string
		issuedAt     sql.NullInt64
		maturityDate sql.NullInt64
	)
	if err := row.Scan(
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
	); err != nil {
		return nil, err
	}

	var p decimals
	instrument.AnnualRate = p.parse("annual_rate", annualRate)
	instrument.FaceValue = p.parse("face_value", faceValue)
	instrument.MinAmount = p.parse("min_amount", minAmount)
	if p.err != nil {
		return nil, p.err
	}
	instrument.Status = domain.InstrumentStatus(status)
	instrument.IssuedAt = fromNullMillis(issuedAt)
	instrument.MaturityDate = fromNullMillis(maturityDate)
	return &instrument, nil
}
