package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewPosition(t *testing.T) {
	maturity := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	inst := &Instrument{
		ID:           "inst-1",
		AnnualRate:   decimal.RequireFromString("7.5"),
		FaceValue:    decimal.NewFromInt(100),
		MaturityDate: &maturity,
		Status:       InstrumentStatusAvailable,
	}

	p := NewPosition("pos-1", "acc-1", inst, decimal.NewFromInt(400), time.Now().UTC())

	if p.Status != PositionStatusActive {
		t.Fatalf("expected ACTIVE, got %s", p.Status)
	}
	if !p.CurrentValue.Equal(decimal.NewFromInt(400)) || !p.AccruedInterest.IsZero() {
		t.Fatalf("unexpected valuation: %s/%s", p.CurrentValue, p.AccruedInterest)
	}
	if p.Units == nil || !p.Units.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected 4 units, got %v", p.Units)
	}
	if p.MaturityDate == nil || !p.MaturityDate.Equal(maturity) {
		t.Fatalf("expected maturity copied from instrument")
	}

	inst.FaceValue = decimal.Zero
	if p := NewPosition("pos-2", "acc-1", inst, decimal.NewFromInt(400), time.Now().UTC()); p.Units != nil {
		t.Fatalf("expected nil units without face value, got %v", p.Units)
	}
}

func TestPosition_RedeemOnce(t *testing.T) {
	p := &Position{
		ID:              "pos-1",
		Status:          PositionStatusActive,
		CurrentValue:    decimal.NewFromInt(400),
		AccruedInterest: decimal.NewFromInt(12),
	}

	if !p.Payout().Equal(decimal.NewFromInt(412)) {
		t.Fatalf("expected payout 412, got %s", p.Payout())
	}
	if err := p.Redeem(time.Now().UTC()); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if err := p.Redeem(time.Now().UTC()); !errors.Is(err, ErrPositionNotActive) {
		t.Fatalf("expected ErrPositionNotActive, got %v", err)
	}
}

func TestPosition_Revalue(t *testing.T) {
	p := &Position{ID: "pos-1", Status: PositionStatusActive}

	if err := p.Revalue(decimal.NewFromInt(-1), decimal.Zero, false, time.Now()); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if err := p.Revalue(decimal.NewFromInt(410), decimal.NewFromInt(5), true, time.Now()); err != nil {
		t.Fatalf("revalue failed: %v", err)
	}
	if p.Status != PositionStatusMature {
		t.Fatalf("expected MATURE, got %s", p.Status)
	}
}

func TestInstrument_MeetsMinimum(t *testing.T) {
	inst := &Instrument{MinAmount: decimal.NewFromInt(100)}
	if inst.MeetsMinimum(decimal.NewFromInt(99)) {
		t.Fatalf("expected 99 below minimum")
	}
	if !inst.MeetsMinimum(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100 to meet minimum")
	}

	inst.MinAmount = decimal.Zero
	if !inst.MeetsMinimum(decimal.NewFromInt(1)) {
		t.Fatalf("expected no minimum when unset")
	}
}
