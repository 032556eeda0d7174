package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/fundledger/internal/adapter/http/dto"
	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

type positionServiceStub struct {
	positions  map[string]*domain.Position
	subscribed []usecase.OpenPositionInput
	valuations []usecase.RecordValuationInput
	redeemErr  error
}

func (s *positionServiceStub) Subscribe(ctx context.Context, input usecase.OpenPositionInput) (*usecase.SubscriptionResult, error) {
	s.subscribed = append(s.subscribed, input)
	return &usecase.SubscriptionResult{
		Position:    &domain.Position{ID: "pos-1", AccountID: input.AccountID, InvestedAmount: input.Amount, Status: domain.PositionStatusActive},
		Transaction: &domain.Transaction{ID: "tx-1", Kind: domain.KindSubscription, Status: domain.TransactionStatusExecuted},
	}, nil
}

func (s *positionServiceStub) Redeem(ctx context.Context, positionID, actorID string) (*usecase.RedemptionResult, error) {
	if s.redeemErr != nil {
		return nil, s.redeemErr
	}
	p := *s.positions[positionID]
	p.Status = domain.PositionStatusRedeemed
	return &usecase.RedemptionResult{Position: &p, Payout: p.CurrentValue.Add(p.AccruedInterest)}, nil
}

func (s *positionServiceStub) RecordValuation(ctx context.Context, input usecase.RecordValuationInput) (*domain.Position, error) {
	s.valuations = append(s.valuations, input)
	p := *s.positions[input.PositionID]
	p.CurrentValue = input.CurrentValue
	return &p, nil
}

func (s *positionServiceStub) GetPosition(ctx context.Context, id string) (*domain.Position, error) {
	if p, ok := s.positions[id]; ok {
		return p, nil
	}
	return nil, domain.ErrPositionNotFound
}

func (s *positionServiceStub) ListPositions(ctx context.Context, accountID string, limit, offset int) ([]*domain.Position, error) {
	var out []*domain.Position
	for _, p := range s.positions {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *positionServiceStub) Portfolio(ctx context.Context, actorID string) (*domain.Portfolio, error) {
	var open []*domain.Position
	for _, p := range s.positions {
		open = append(open, p)
	}
	return domain.NewPortfolio(open), nil
}

func (s *positionServiceStub) GetInstrument(ctx context.Context, id string) (*domain.Instrument, error) {
	if id == "bond-1" {
		return &domain.Instrument{ID: "bond-1", Code: "BRH-1Y", Currency: "HTG", Status: domain.InstrumentStatusAvailable, AnnualRate: decimal.RequireFromString("0.05")}, nil
	}
	return nil, domain.ErrInstrumentNotFound
}

func (s *positionServiceStub) ListAvailableInstruments(ctx context.Context) ([]*domain.Instrument, error) {
	inst, _ := s.GetInstrument(ctx, "bond-1")
	return []*domain.Instrument{inst}, nil
}

func newPositionStub() *positionServiceStub {
	return &positionServiceStub{positions: map[string]*domain.Position{
		"pos-1": {
			ID:              "pos-1",
			AccountID:       "acc-1",
			Status:          domain.PositionStatusActive,
			InvestedAmount:  decimal.NewFromInt(400),
			CurrentValue:    decimal.NewFromInt(410),
			AccruedInterest: decimal.NewFromInt(25),
		},
	}}
}

func TestPositionHandler_Subscribe(t *testing.T) {
	svc := newPositionStub()
	h := NewPositionHandler(svc, newAccessStub())

	rec := serve(http.MethodPost, "/accounts/{id}/positions", "/accounts/acc-1/positions", "alice", `{"instrument_id":"bond-1","amount":"400"}`, h.Subscribe)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, svc.subscribed, 1)
	assert.Equal(t, "acc-1", svc.subscribed[0].AccountID)
	assert.Equal(t, "alice", svc.subscribed[0].ActorID)

	var resp dto.SubscriptionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SUBSCRIPTION", resp.Transaction.Kind)
}

func TestPositionHandler_Redeem(t *testing.T) {
	svc := newPositionStub()
	h := NewPositionHandler(svc, newAccessStub())

	rec := serve(http.MethodPost, "/positions/{id}/redeem", "/positions/pos-1/redeem", "alice", "", h.Redeem)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"payout":"435"`)

	svc.redeemErr = domain.ErrPositionNotActive
	rec = serve(http.MethodPost, "/positions/{id}/redeem", "/positions/pos-1/redeem", "alice", "", h.Redeem)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPositionHandler_ValuationNeedsAdministrator(t *testing.T) {
	svc := newPositionStub()
	access := newAccessStub()
	access.grant("acc-1", "alice", domain.RolePrimaryHolder)
	access.grant("acc-1", "ops", domain.RoleAdministrator)
	h := NewPositionHandler(svc, access)

	body := `{"current_value":"420","accrued_interest":"30","mature":true}`

	rec := serve(http.MethodPost, "/positions/{id}/valuation", "/positions/pos-1/valuation", "alice", body, h.RecordValuation)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, svc.valuations)

	rec = serve(http.MethodPost, "/positions/{id}/valuation", "/positions/pos-1/valuation", "ops", body, h.RecordValuation)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.valuations, 1)
	assert.True(t, svc.valuations[0].Mature)
}

func TestPositionHandler_GetAndPortfolio(t *testing.T) {
	svc := newPositionStub()
	access := newAccessStub()
	access.grant("acc-1", "alice", domain.RoleBeneficiary)
	h := NewPositionHandler(svc, access)

	rec := serve(http.MethodGet, "/positions/{id}", "/positions/pos-1", "alice", "", h.Get)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(http.MethodGet, "/positions/{id}", "/positions/pos-1", "mallory", "", h.Get)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(http.MethodGet, "/portfolio", "/portfolio", "alice", "", h.Portfolio)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.PortfolioResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.TotalInvested.Equal(decimal.NewFromInt(400)))
	assert.Len(t, resp.Positions, 1)
}

func TestPositionHandler_Instruments(t *testing.T) {
	h := NewPositionHandler(newPositionStub(), newAccessStub())

	rec := serve(http.MethodGet, "/instruments/{id}", "/instruments/bond-1", "alice", "", h.GetInstrument)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var inst dto.InstrumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inst))
	assert.Equal(t, "BRH-1Y", inst.Code)
	assert.Equal(t, "AVAILABLE", inst.Status)
	assert.True(t, inst.AnnualRate.Equal(decimal.RequireFromString("0.05")))

	rec = serve(http.MethodGet, "/instruments/{id}", "/instruments/nope", "alice", "", h.GetInstrument)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(http.MethodGet, "/instruments", "/instruments", "alice", "", h.ListInstruments)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Instruments []dto.InstrumentResponse `json:"instruments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Instruments, 1)
	assert.Equal(t, "bond-1", list.Instruments[0].ID)
}
