package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// OpenAccountRequest represents a request to open an account for the caller.
type OpenAccountRequest struct {
	Number   string `json:"number,omitempty"`
	Type     string `json:"type"`
	Currency string `json:"currency,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *OpenAccountRequest) ToUseCaseInput(actorID string) usecase.OpenAccountInput {
	return usecase.OpenAccountInput{
		OwnerActorID: actorID,
		Number:       r.Number,
		Type:         r.Type,
		Currency:     r.Currency,
	}
}

// GrantRequest represents a request to grant a role on an account.
type GrantRequest struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
}

// ParseRole validates the requested role.
func (r *GrantRequest) ParseRole() (domain.Role, error) {
	return domain.ParseRole(r.Role)
}

// CreateTransactionRequest represents a request to create a transaction.
type CreateTransactionRequest struct {
	Kind            string          `json:"kind"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	SourceAccountID string          `json:"source_account_id,omitempty"`
	DestAccountID   string          `json:"dest_account_id,omitempty"`
	Description     string          `json:"description,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransactionRequest) ToUseCaseInput(actorID string) (usecase.CreateTransactionInput, error) {
	kind, err := domain.ParseTransactionKind(r.Kind)
	if err != nil {
		return usecase.CreateTransactionInput{}, err
	}

	return usecase.CreateTransactionInput{
		Kind:            kind,
		Currency:        r.Currency,
		SourceAccountID: r.SourceAccountID,
		DestAccountID:   r.DestAccountID,
		Description:     r.Description,
		ActorID:         actorID,
		Amount:          r.Amount,
	}, nil
}

// SubscribeRequest represents a request to buy into an instrument.
type SubscribeRequest struct {
	InstrumentID string          `json:"instrument_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *SubscribeRequest) ToUseCaseInput(accountID, actorID string) usecase.OpenPositionInput {
	return usecase.OpenPositionInput{
		AccountID:    accountID,
		InstrumentID: r.InstrumentID,
		ActorID:      actorID,
		Amount:       r.Amount,
	}
}

// ValuationRequest carries a valuation from the valuation process.
type ValuationRequest struct {
	CurrentValue    decimal.Decimal `json:"current_value"`
	AccruedInterest decimal.Decimal `json:"accrued_interest"`
	Mature          bool            `json:"mature"`
}

// ToUseCaseInput converts to use case input.
func (r *ValuationRequest) ToUseCaseInput(positionID string) usecase.RecordValuationInput {
	return usecase.RecordValuationInput{
		PositionID:      positionID,
		CurrentValue:    r.CurrentValue,
		AccruedInterest: r.AccruedInterest,
		Mature:          r.Mature,
	}
}
