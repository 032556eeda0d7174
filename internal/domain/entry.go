package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryOperation is the ledger primitive an entry records.
type EntryOperation string

const (
	EntryCredit  EntryOperation = "CREDIT"
	EntryDebit   EntryOperation = "DEBIT"
	EntryReserve EntryOperation = "RESERVE"
	EntryRelease EntryOperation = "RELEASE"
)

// Entry records one balance mutation of an account with before and after
// snapshots.
type Entry struct {
	CreatedAt       time.Time
	TransactionID   *string
	PositionID      *string
	ID              string
	AccountID       string
	Operation       EntryOperation
	Amount          decimal.Decimal
	TotalBefore     decimal.Decimal
	TotalAfter      decimal.Decimal
	AvailableBefore decimal.Decimal
	AvailableAfter  decimal.Decimal
	AccountVersion  int64
}

// TotalDelta is the change the entry applied to the total balance.
func (e *Entry) TotalDelta() decimal.Decimal {
	return e.TotalAfter.Sub(e.TotalBefore)
}

// AvailableDelta is the change the entry applied to the available balance.
func (e *Entry) AvailableDelta() decimal.Decimal {
	return e.AvailableAfter.Sub(e.AvailableBefore)
}
