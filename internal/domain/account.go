package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
	AccountStatusClosed    AccountStatus = "CLOSED"
)

// Account is a client-owned cash holding.
//
// TotalBalance is all owned cash, liquid plus committed to positions at cost.
// AvailableBalance is the liquid uncommitted portion.
type Account struct {
	OpenedAt         time.Time
	UpdatedAt        time.Time
	ClosedAt         *time.Time
	ID               string
	Number           string
	Type             string
	Currency         string
	Status           AccountStatus
	TotalBalance     decimal.Decimal
	AvailableBalance decimal.Decimal
	Version          int64
}

// IsActive reports whether the account accepts balance mutations.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// RequireActive returns an account state error unless the account is ACTIVE.
func (a *Account) RequireActive() error {
	if a.Status == AccountStatusClosed {
		return fmt.Errorf("%w: %s", ErrAccountClosed, a.ID)
	}
	if a.Status != AccountStatusActive {
		return fmt.Errorf("%w: %s is %s", ErrAccountNotActive, a.ID, a.Status)
	}
	return nil
}

// Credit adds amount to both balances.
func (a *Account) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	a.TotalBalance = a.TotalBalance.Add(amount)
	a.AvailableBalance = a.AvailableBalance.Add(amount)
	return a.checkBalances()
}

// Debit removes amount from both balances.
func (a *Account) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if a.AvailableBalance.LessThan(amount) {
		return fmt.Errorf("%w: available %s, requested %s", ErrInsufficientFunds, a.AvailableBalance, amount)
	}
	a.TotalBalance = a.TotalBalance.Sub(amount)
	a.AvailableBalance = a.AvailableBalance.Sub(amount)
	return a.checkBalances()
}

// Reserve commits liquid funds to a position. Only the available balance
// decreases.
func (a *Account) Reserve(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if a.AvailableBalance.LessThan(amount) {
		return fmt.Errorf("%w: available %s, requested %s", ErrInsufficientFunds, a.AvailableBalance, amount)
	}
	a.AvailableBalance = a.AvailableBalance.Sub(amount)
	return a.checkBalances()
}

// Release returns a realized payout to the account. Both balances increase.
func (a *Account) Release(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	a.TotalBalance = a.TotalBalance.Add(amount)
	a.AvailableBalance = a.AvailableBalance.Add(amount)
	return a.checkBalances()
}

// Suspend moves an ACTIVE account to SUSPENDED.
func (a *Account) Suspend(now time.Time) error {
	if err := a.RequireActive(); err != nil {
		return err
	}
	a.Status = AccountStatusSuspended
	a.UpdatedAt = now
	return nil
}

// Reactivate moves a SUSPENDED account back to ACTIVE.
func (a *Account) Reactivate(now time.Time) error {
	if a.Status != AccountStatusSuspended {
		return fmt.Errorf("%w: %s is %s", ErrAccountState, a.ID, a.Status)
	}
	a.Status = AccountStatusActive
	a.UpdatedAt = now
	return nil
}

// Close closes the account. The total balance must be zero.
func (a *Account) Close(now time.Time) error {
	if a.Status == AccountStatusClosed {
		return fmt.Errorf("%w: %s", ErrAccountClosed, a.ID)
	}
	if !a.TotalBalance.IsZero() {
		return fmt.Errorf("%w: total balance is %s", ErrNonZeroBalance, a.TotalBalance)
	}
	a.Status = AccountStatusClosed
	a.ClosedAt = &now
	a.UpdatedAt = now
	return nil
}

func (a *Account) checkBalances() error {
	if a.AvailableBalance.IsNegative() || a.TotalBalance.IsNegative() {
		return fmt.Errorf("%w: balances would become negative", ErrInsufficientFunds)
	}
	return nil
}
