package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentStatus is the catalog availability of an instrument.
type InstrumentStatus string

const (
	InstrumentStatusAvailable InstrumentStatus = "AVAILABLE"
	InstrumentStatusExhausted InstrumentStatus = "EXHAUSTED"
	InstrumentStatusExpired   InstrumentStatus = "EXPIRED"
)

// Instrument is a catalog entry for an investable fixed-income product.
// Zero FaceValue or MinAmount means not set.
type Instrument struct {
	IssuedAt         *time.Time
	MaturityDate     *time.Time
	ID               string
	Code             string
	Name             string
	Type             string
	Issuer           string
	Currency         string
	InterestSchedule string
	Status           InstrumentStatus
	AnnualRate       decimal.Decimal
	FaceValue        decimal.Decimal
	MinAmount        decimal.Decimal
}

// IsAvailable reports whether new subscriptions are accepted.
func (i *Instrument) IsAvailable() bool {
	return i.Status == InstrumentStatusAvailable
}

// Units returns amount divided by face value, or nil when the instrument has
// no face value.
func (i *Instrument) Units(amount decimal.Decimal) *decimal.Decimal {
	if !i.FaceValue.IsPositive() {
		return nil
	}
	units := amount.DivRound(i.FaceValue, 6)
	return &units
}

// MeetsMinimum reports whether amount satisfies the subscription minimum.
func (i *Instrument) MeetsMinimum(amount decimal.Decimal) bool {
	if !i.MinAmount.IsPositive() {
		return true
	}
	return amount.GreaterThanOrEqual(i.MinAmount)
}
