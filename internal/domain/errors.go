package domain

import "errors"

// ErrorKind classifies domain failures for callers and transports.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindNotFound          ErrorKind = "not_found"
	KindAccessDenied      ErrorKind = "access_denied"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindAccountState      ErrorKind = "account_state"
	KindAlreadyProcessed  ErrorKind = "already_processed"
	KindBusinessRule      ErrorKind = "business_rule"
	KindInternal          ErrorKind = "internal"
)

// Error is a typed domain failure. A specific error matches its kind
// sentinel through errors.Is.
type Error struct {
	kind ErrorKind
	msg  string
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

// Kind returns the error classification.
func (e *Error) Kind() ErrorKind {
	return e.kind
}

// Is reports whether target is the kind sentinel of e.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.isKindSentinel() && t.kind == e.kind
}

func (e *Error) isKindSentinel() bool {
	return e.msg == string(e.kind)
}

// Kind sentinels.
var (
	ErrValidation        = newError(KindValidation, string(KindValidation))
	ErrNotFound          = newError(KindNotFound, string(KindNotFound))
	ErrAccessDenied      = newError(KindAccessDenied, string(KindAccessDenied))
	ErrInsufficientFunds = newError(KindInsufficientFunds, string(KindInsufficientFunds))
	ErrAccountState      = newError(KindAccountState, string(KindAccountState))
	ErrAlreadyProcessed  = newError(KindAlreadyProcessed, string(KindAlreadyProcessed))
	ErrBusinessRule      = newError(KindBusinessRule, string(KindBusinessRule))
)

var (
	// Validation errors
	ErrInvalidRequest     = newError(KindValidation, "invalid request")
	ErrInvalidAmount      = newError(KindValidation, "amount must be positive")
	ErrInvalidCurrency    = newError(KindValidation, "invalid currency code")
	ErrInvalidRole        = newError(KindValidation, "invalid role")
	ErrInvalidAccountType = newError(KindValidation, "invalid account type")
	ErrCurrencyMismatch   = newError(KindValidation, "currency mismatch")
	ErrAccountNumberTaken = newError(KindValidation, "account number already exists")

	// Not found errors
	ErrAccountNotFound     = newError(KindNotFound, "account not found")
	ErrActorNotFound       = newError(KindNotFound, "actor not found")
	ErrGrantNotFound       = newError(KindNotFound, "role grant not found")
	ErrInstrumentNotFound  = newError(KindNotFound, "instrument not found")
	ErrPositionNotFound    = newError(KindNotFound, "position not found")
	ErrTransactionNotFound = newError(KindNotFound, "transaction not found")

	// Account state errors
	ErrAccountNotActive = newError(KindAccountState, "account is not active")
	ErrAccountClosed    = newError(KindAccountState, "account is closed")

	// Already processed errors
	ErrNotPending = newError(KindAlreadyProcessed, "transaction is not pending")

	// Business rule errors
	ErrBelowMinimum          = newError(KindBusinessRule, "amount below instrument minimum")
	ErrNonZeroBalance        = newError(KindBusinessRule, "account balance is not zero")
	ErrLastPrimaryHolder     = newError(KindBusinessRule, "account must keep at least one primary holder")
	ErrDuplicateGrant        = newError(KindBusinessRule, "role already granted")
	ErrGrantInactive         = newError(KindBusinessRule, "role grant is not active")
	ErrInstrumentUnavailable = newError(KindBusinessRule, "instrument is not available")
	ErrPositionNotActive     = newError(KindBusinessRule, "position is not active")
)

// KindOf returns the classification of err, or KindInternal when err carries
// no domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.kind
	}
	return KindInternal
}
