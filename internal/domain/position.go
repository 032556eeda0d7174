package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	PositionStatusActive   PositionStatus = "ACTIVE"
	PositionStatusMature   PositionStatus = "MATURE"
	PositionStatusRedeemed PositionStatus = "REDEEMED"
)

// Position is an investment holding created by committing account funds to
// an instrument.
type Position struct {
	SubscribedAt    time.Time
	UpdatedAt       time.Time
	MaturityDate    *time.Time
	RedeemedAt      *time.Time
	Units           *decimal.Decimal
	ID              string
	AccountID       string
	InstrumentID    string
	Status          PositionStatus
	InvestedAmount  decimal.Decimal
	Rate            decimal.Decimal
	CurrentValue    decimal.Decimal
	AccruedInterest decimal.Decimal
}

// NewPosition builds an ACTIVE position valued at its cost.
func NewPosition(id, accountID string, instrument *Instrument, amount decimal.Decimal, now time.Time) *Position {
	return &Position{
		ID:              id,
		AccountID:       accountID,
		InstrumentID:    instrument.ID,
		InvestedAmount:  amount,
		Units:           instrument.Units(amount),
		Rate:            instrument.AnnualRate,
		SubscribedAt:    now,
		UpdatedAt:       now,
		MaturityDate:    instrument.MaturityDate,
		CurrentValue:    amount,
		AccruedInterest: decimal.Zero,
		Status:          PositionStatusActive,
	}
}

// Payout is the cash realized on redemption.
func (p *Position) Payout() decimal.Decimal {
	return p.CurrentValue.Add(p.AccruedInterest)
}

// Redeem marks an ACTIVE position REDEEMED.
func (p *Position) Redeem(now time.Time) error {
	if p.Status != PositionStatusActive {
		return fmt.Errorf("%w: %s is %s", ErrPositionNotActive, p.ID, p.Status)
	}
	p.Status = PositionStatusRedeemed
	p.RedeemedAt = &now
	p.UpdatedAt = now
	return nil
}

// Revalue stores the valuation produced by the external valuation process.
func (p *Position) Revalue(currentValue, accruedInterest decimal.Decimal, mature bool, now time.Time) error {
	if p.Status != PositionStatusActive {
		return fmt.Errorf("%w: %s is %s", ErrPositionNotActive, p.ID, p.Status)
	}
	if currentValue.IsNegative() || accruedInterest.IsNegative() {
		return fmt.Errorf("%w: valuation must not be negative", ErrInvalidRequest)
	}
	p.CurrentValue = currentValue
	p.AccruedInterest = accruedInterest
	if mature {
		p.Status = PositionStatusMature
	}
	p.UpdatedAt = now
	return nil
}

// Portfolio aggregates positions for a read view.
type Portfolio struct {
	TotalInvested        decimal.Decimal
	TotalCurrentValue    decimal.Decimal
	TotalAccruedInterest decimal.Decimal
	Positions            []*Position
}

// NewPortfolio sums the given positions.
func NewPortfolio(positions []*Position) *Portfolio {
	p := &Portfolio{
		TotalInvested:        decimal.Zero,
		TotalCurrentValue:    decimal.Zero,
		TotalAccruedInterest: decimal.Zero,
		Positions:            positions,
	}
	for _, pos := range positions {
		p.TotalInvested = p.TotalInvested.Add(pos.InvestedAmount)
		p.TotalCurrentValue = p.TotalCurrentValue.Add(pos.CurrentValue)
		p.TotalAccruedInterest = p.TotalAccruedInterest.Add(pos.AccruedInterest)
	}
	return p
}
