package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID               string          `json:"id"`
	Number           string          `json:"number"`
	Type             string          `json:"type"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	TotalBalance     decimal.Decimal `json:"total_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Version          int64           `json:"version"`
	OpenedAt         time.Time       `json:"opened_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:               a.ID,
		Number:           a.Number,
		Type:             a.Type,
		Currency:         a.Currency,
		Status:           string(a.Status),
		TotalBalance:     a.TotalBalance,
		AvailableBalance: a.AvailableBalance,
		Version:          a.Version,
		OpenedAt:         a.OpenedAt,
		UpdatedAt:        a.UpdatedAt,
		ClosedAt:         a.ClosedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int                `json:"total"`
}

// AccessResponse answers whether the caller can see an account.
type AccessResponse struct {
	AccountID string   `json:"account_id"`
	ActorID   string   `json:"actor_id"`
	HasAccess bool     `json:"has_access"`
	Roles     []string `json:"roles"`
}

// GrantResponse represents a role grant.
type GrantResponse struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	ActorID   string     `json:"actor_id"`
	Role      string     `json:"role"`
	Active    bool       `json:"active"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// GrantFromDomain converts a domain grant to response.
func GrantFromDomain(g *domain.RoleGrant) *GrantResponse {
	return &GrantResponse{
		ID:        g.ID,
		AccountID: g.AccountID,
		ActorID:   g.ActorID,
		Role:      string(g.Role),
		Active:    g.Active,
		StartedAt: g.StartedAt,
		EndedAt:   g.EndedAt,
	}
}

// GrantsFromDomain converts domain grants to responses.
func GrantsFromDomain(grants []*domain.RoleGrant) []*GrantResponse {
	result := make([]*GrantResponse, len(grants))
	for i, g := range grants {
		result[i] = GrantFromDomain(g)
	}
	return result
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID               string          `json:"id"`
	Kind             string          `json:"kind"`
	Status           string          `json:"status"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	SourceAccountID  *string         `json:"source_account_id,omitempty"`
	DestAccountID    *string         `json:"dest_account_id,omitempty"`
	LinkedPositionID *string         `json:"linked_position_id,omitempty"`
	Description      string          `json:"description,omitempty"`
	InitiatedBy      string          `json:"initiated_by,omitempty"`
	IsAutomatic      bool            `json:"is_automatic"`
	CreatedAt        time.Time       `json:"created_at"`
	ExecutedAt       *time.Time      `json:"executed_at,omitempty"`
}

// TransactionFromDomain converts a domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	if t == nil {
		return nil
	}
	return &TransactionResponse{
		ID:               t.ID,
		Kind:             string(t.Kind),
		Status:           string(t.Status),
		Amount:           t.Amount,
		Currency:         t.Currency,
		SourceAccountID:  t.SourceAccountID,
		DestAccountID:    t.DestAccountID,
		LinkedPositionID: t.LinkedPositionID,
		Description:      t.Description,
		InitiatedBy:      t.InitiatedBy,
		IsAutomatic:      t.IsAutomatic,
		CreatedAt:        t.CreatedAt,
		ExecutedAt:       t.ExecutedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txs []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txs))
	for i, t := range txs {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// EntryResponse represents a ledger entry.
type EntryResponse struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	TransactionID   *string         `json:"transaction_id,omitempty"`
	PositionID      *string         `json:"position_id,omitempty"`
	Operation       string          `json:"operation"`
	Amount          decimal.Decimal `json:"amount"`
	TotalBefore     decimal.Decimal `json:"total_before"`
	TotalAfter      decimal.Decimal `json:"total_after"`
	AvailableBefore decimal.Decimal `json:"available_before"`
	AvailableAfter  decimal.Decimal `json:"available_after"`
	AccountVersion  int64           `json:"account_version"`
	CreatedAt       time.Time       `json:"created_at"`
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = &EntryResponse{
			ID:              e.ID,
			AccountID:       e.AccountID,
			TransactionID:   e.TransactionID,
			PositionID:      e.PositionID,
			Operation:       string(e.Operation),
			Amount:          e.Amount,
			TotalBefore:     e.TotalBefore,
			TotalAfter:      e.TotalAfter,
			AvailableBefore: e.AvailableBefore,
			AvailableAfter:  e.AvailableAfter,
			AccountVersion:  e.AccountVersion,
			CreatedAt:       e.CreatedAt,
		}
	}
	return result
}

// PositionResponse represents an investment position.
type PositionResponse struct {
	ID              string           `json:"id"`
	AccountID       string           `json:"account_id"`
	InstrumentID    string           `json:"instrument_id"`
	Status          string           `json:"status"`
	InvestedAmount  decimal.Decimal  `json:"invested_amount"`
	Units           *decimal.Decimal `json:"units,omitempty"`
	Rate            decimal.Decimal  `json:"rate"`
	CurrentValue    decimal.Decimal  `json:"current_value"`
	AccruedInterest decimal.Decimal  `json:"accrued_interest"`
	SubscribedAt    time.Time        `json:"subscribed_at"`
	MaturityDate    *time.Time       `json:"maturity_date,omitempty"`
	RedeemedAt      *time.Time       `json:"redeemed_at,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// PositionFromDomain converts a domain position to response.
func PositionFromDomain(p *domain.Position) *PositionResponse {
	return &PositionResponse{
		ID:              p.ID,
		AccountID:       p.AccountID,
		InstrumentID:    p.InstrumentID,
		Status:          string(p.Status),
		InvestedAmount:  p.InvestedAmount,
		Units:           p.Units,
		Rate:            p.Rate,
		CurrentValue:    p.CurrentValue,
		AccruedInterest: p.AccruedInterest,
		SubscribedAt:    p.SubscribedAt,
		MaturityDate:    p.MaturityDate,
		RedeemedAt:      p.RedeemedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// PositionsFromDomain converts domain positions to responses.
func PositionsFromDomain(positions []*domain.Position) []*PositionResponse {
	result := make([]*PositionResponse, len(positions))
	for i, p := range positions {
		result[i] = PositionFromDomain(p)
	}
	return result
}

// InstrumentResponse represents a catalog instrument.
type InstrumentResponse struct {
	ID               string          `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Type             string          `json:"type"`
	Issuer           string          `json:"issuer,omitempty"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	InterestSchedule string          `json:"interest_schedule,omitempty"`
	AnnualRate       decimal.Decimal `json:"annual_rate"`
	FaceValue        decimal.Decimal `json:"face_value"`
	MinAmount        decimal.Decimal `json:"min_amount"`
	IssuedAt         *time.Time      `json:"issued_at,omitempty"`
	MaturityDate     *time.Time      `json:"maturity_date,omitempty"`
}

// InstrumentFromDomain converts a domain instrument to response.
func InstrumentFromDomain(i *domain.Instrument) *InstrumentResponse {
	return &InstrumentResponse{
		ID:               i.ID,
		Code:             i.Code,
		Name:             i.Name,
		Type:             i.Type,
		Issuer:           i.Issuer,
		Currency:         i.Currency,
		Status:           string(i.Status),
		InterestSchedule: i.InterestSchedule,
		AnnualRate:       i.AnnualRate,
		FaceValue:        i.FaceValue,
		MinAmount:        i.MinAmount,
		IssuedAt:         i.IssuedAt,
		MaturityDate:     i.MaturityDate,
	}
}

// InstrumentsFromDomain converts domain instruments to responses.
func InstrumentsFromDomain(instruments []*domain.Instrument) []*InstrumentResponse {
	result := make([]*InstrumentResponse, len(instruments))
	for i, inst := range instruments {
		result[i] = InstrumentFromDomain(inst)
	}
	return result
}

// SubscriptionResponse is returned by a subscription.
type SubscriptionResponse struct {
	Position    *PositionResponse    `json:"position"`
	Transaction *TransactionResponse `json:"transaction"`
}

// SubscriptionFromResult converts a subscription result.
func SubscriptionFromResult(r *usecase.SubscriptionResult) *SubscriptionResponse {
	return &SubscriptionResponse{
		Position:    PositionFromDomain(r.Position),
		Transaction: TransactionFromDomain(r.Transaction),
	}
}

// RedemptionResponse is returned by a redemption.
type RedemptionResponse struct {
	Position    *PositionResponse    `json:"position"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
	Payout      decimal.Decimal      `json:"payout"`
}

// RedemptionFromResult converts a redemption result.
func RedemptionFromResult(r *usecase.RedemptionResult) *RedemptionResponse {
	return &RedemptionResponse{
		Position:    PositionFromDomain(r.Position),
		Transaction: TransactionFromDomain(r.Transaction),
		Payout:      r.Payout,
	}
}

// PortfolioResponse summarizes an actor's open positions.
type PortfolioResponse struct {
	TotalInvested        decimal.Decimal     `json:"total_invested"`
	TotalCurrentValue    decimal.Decimal     `json:"total_current_value"`
	TotalAccruedInterest decimal.Decimal     `json:"total_accrued_interest"`
	Positions            []*PositionResponse `json:"positions"`
}

// PortfolioFromDomain converts a domain portfolio.
func PortfolioFromDomain(p *domain.Portfolio) *PortfolioResponse {
	return &PortfolioResponse{
		TotalInvested:        p.TotalInvested,
		TotalCurrentValue:    p.TotalCurrentValue,
		TotalAccruedInterest: p.TotalAccruedInterest,
		Positions:            PositionsFromDomain(p.Positions),
	}
}

// ReconciliationResponse is the outcome of reconciling one account.
type ReconciliationResponse struct {
	AccountID           string          `json:"account_id"`
	IsReconciled        bool            `json:"is_reconciled"`
	RecordedTotal       decimal.Decimal `json:"recorded_total"`
	RecordedAvailable   decimal.Decimal `json:"recorded_available"`
	CalculatedTotal     decimal.Decimal `json:"calculated_total"`
	CalculatedAvailable decimal.Decimal `json:"calculated_available"`
	Issues              []string        `json:"issues,omitempty"`
	CheckedAt           time.Time       `json:"checked_at"`
}

// ReconciliationFromResult converts a reconciliation result.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountID:           r.AccountID,
		IsReconciled:        r.IsReconciled,
		RecordedTotal:       r.RecordedTotal,
		RecordedAvailable:   r.RecordedAvailable,
		CalculatedTotal:     r.CalculatedTotal,
		CalculatedAvailable: r.CalculatedAvailable,
		Issues:              r.Issues,
		CheckedAt:           r.LastChecked,
	}
}

// ReconciliationReportResponse is the full ledger report.
type ReconciliationReportResponse struct {
	CheckedAt          time.Time                 `json:"checked_at"`
	TotalAccounts      int                       `json:"total_accounts"`
	ReconciledAccounts int                       `json:"reconciled_accounts"`
	LedgerConsistent   bool                      `json:"ledger_consistent"`
	LedgerError        string                    `json:"ledger_error,omitempty"`
	Discrepancies      []*ReconciliationResponse `json:"discrepancies"`
}

// ReportFromResult converts a reconciliation report.
func ReportFromResult(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	out := &ReconciliationReportResponse{
		CheckedAt:          r.CheckedAt,
		TotalAccounts:      r.TotalAccounts,
		ReconciledAccounts: r.ReconciledAccounts,
		LedgerConsistent:   r.LedgerConsistent,
		LedgerError:        r.LedgerError,
		Discrepancies:      make([]*ReconciliationResponse, len(r.Discrepancies)),
	}
	for i, d := range r.Discrepancies {
		out.Discrepancies[i] = ReconciliationFromResult(d)
	}
	return out
}

// ConsistencyResponse reports the global ledger check.
type ConsistencyResponse struct {
	Consistent bool   `json:"consistent"`
	Error      string `json:"error,omitempty"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error       string               `json:"error"`
	Kind        string               `json:"kind,omitempty"`
	Message     string               `json:"message,omitempty"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}
