package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the kind of fund movement.
type TransactionKind string

const (
	KindDeposit           TransactionKind = "DEPOSIT"
	KindWithdrawal        TransactionKind = "WITHDRAWAL"
	KindTransfer          TransactionKind = "TRANSFER"
	KindSubscription      TransactionKind = "SUBSCRIPTION"
	KindRedemption        TransactionKind = "REDEMPTION"
	KindInterestPayment   TransactionKind = "INTEREST_PAYMENT"
	KindMaturityRepayment TransactionKind = "MATURITY_REPAYMENT"
)

// ParseTransactionKind converts user input into a TransactionKind.
func ParseTransactionKind(s string) (TransactionKind, error) {
	k := TransactionKind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case KindDeposit, KindWithdrawal, KindTransfer, KindSubscription,
		KindRedemption, KindInterestPayment, KindMaturityRepayment:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown transaction kind %q", ErrInvalidRequest, s)
}

// PositionLinked reports whether the kind settles with a position operation.
func (k TransactionKind) PositionLinked() bool {
	return k == KindSubscription || k == KindRedemption
}

// Automatic reports whether the kind is issued by the system rather than an
// actor.
func (k TransactionKind) Automatic() bool {
	return k == KindInterestPayment || k == KindMaturityRepayment
}

// Permission returns the capability an initiator needs for the kind.
func (k TransactionKind) Permission() Permission {
	switch k {
	case KindDeposit:
		return PermissionDeposit
	case KindWithdrawal:
		return PermissionWithdraw
	case KindTransfer:
		return PermissionTransfer
	case KindSubscription:
		return PermissionSubscribe
	case KindRedemption:
		return PermissionRedeem
	default:
		return ""
	}
}

// TransactionStatus is the state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusExecuted  TransactionStatus = "EXECUTED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed.
func (s TransactionStatus) IsTerminal() bool {
	return s != TransactionStatusPending
}

// Transaction records one fund movement.
type Transaction struct {
	CreatedAt        time.Time
	ExecutedAt       *time.Time
	SourceAccountID  *string
	DestAccountID    *string
	LinkedPositionID *string
	ID               string
	Kind             TransactionKind
	Currency         string
	Description      string
	InitiatedBy      string
	Status           TransactionStatus
	Amount           decimal.Decimal
	IsAutomatic      bool
}

// Validate checks amount and that the endpoints match the kind exactly.
func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}

	src, dst := deref(t.SourceAccountID), deref(t.DestAccountID)
	pos := deref(t.LinkedPositionID)

	switch t.Kind {
	case KindDeposit, KindInterestPayment, KindMaturityRepayment:
		if dst == "" {
			return fmt.Errorf("%w: %s requires a destination account", ErrInvalidRequest, t.Kind)
		}
		if src != "" {
			return fmt.Errorf("%w: %s does not take a source account", ErrInvalidRequest, t.Kind)
		}
	case KindWithdrawal:
		if src == "" {
			return fmt.Errorf("%w: %s requires a source account", ErrInvalidRequest, t.Kind)
		}
		if dst != "" {
			return fmt.Errorf("%w: %s does not take a destination account", ErrInvalidRequest, t.Kind)
		}
	case KindTransfer:
		if src == "" || dst == "" {
			return fmt.Errorf("%w: %s requires source and destination accounts", ErrInvalidRequest, t.Kind)
		}
		if src == dst {
			return fmt.Errorf("%w: cannot transfer to the same account", ErrInvalidRequest)
		}
	case KindSubscription:
		if src == "" || pos == "" {
			return fmt.Errorf("%w: %s requires a source account and a position", ErrInvalidRequest, t.Kind)
		}
		if dst != "" {
			return fmt.Errorf("%w: %s does not take a destination account", ErrInvalidRequest, t.Kind)
		}
	case KindRedemption:
		if dst == "" || pos == "" {
			return fmt.Errorf("%w: %s requires a destination account and a position", ErrInvalidRequest, t.Kind)
		}
		if src != "" {
			return fmt.Errorf("%w: %s does not take a source account", ErrInvalidRequest, t.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown transaction kind %q", ErrInvalidRequest, t.Kind)
	}

	return nil
}

// AccountIDs returns the distinct accounts the transaction touches.
func (t *Transaction) AccountIDs() []string {
	ids := make([]string, 0, 2)
	if src := deref(t.SourceAccountID); src != "" {
		ids = append(ids, src)
	}
	if dst := deref(t.DestAccountID); dst != "" && (len(ids) == 0 || ids[0] != dst) {
		ids = append(ids, dst)
	}
	return ids
}

// MarkExecuted moves a PENDING transaction to EXECUTED.
func (t *Transaction) MarkExecuted(now time.Time) error {
	if err := t.requirePending(); err != nil {
		return err
	}
	t.Status = TransactionStatusExecuted
	t.ExecutedAt = &now
	return nil
}

// MarkFailed moves a PENDING transaction to FAILED and appends the reason to
// the description.
func (t *Transaction) MarkFailed(reason string) error {
	if err := t.requirePending(); err != nil {
		return err
	}
	t.Status = TransactionStatusFailed
	if t.Description == "" {
		t.Description = "error: " + reason
	} else {
		t.Description = t.Description + " - error: " + reason
	}
	return nil
}

// Cancel moves a PENDING transaction to CANCELLED.
func (t *Transaction) Cancel() error {
	if err := t.requirePending(); err != nil {
		return err
	}
	t.Status = TransactionStatusCancelled
	return nil
}

func (t *Transaction) requirePending() error {
	if t.Status != TransactionStatusPending {
		return fmt.Errorf("%w: %s is %s", ErrNotPending, t.ID, t.Status)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
