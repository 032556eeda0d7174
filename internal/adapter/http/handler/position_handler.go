package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/fundledger/internal/adapter/http/dto"
	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// PositionService defines the behavior needed by PositionHandler.
type PositionService interface {
	Subscribe(ctx context.Context, input usecase.OpenPositionInput) (*usecase.SubscriptionResult, error)
	Redeem(ctx context.Context, positionID, actorID string) (*usecase.RedemptionResult, error)
	RecordValuation(ctx context.Context, input usecase.RecordValuationInput) (*domain.Position, error)
	GetPosition(ctx context.Context, id string) (*domain.Position, error)
	ListPositions(ctx context.Context, accountID string, limit, offset int) ([]*domain.Position, error)
	Portfolio(ctx context.Context, actorID string) (*domain.Portfolio, error)
	GetInstrument(ctx context.Context, id string) (*domain.Instrument, error)
	ListAvailableInstruments(ctx context.Context) ([]*domain.Instrument, error)
}

// PositionHandler handles investment position requests.
type PositionHandler struct {
	positionUC PositionService
	access     Authorizer
}

// NewPositionHandler creates a new PositionHandler.
func NewPositionHandler(positionUC PositionService, access Authorizer) *PositionHandler {
	return &PositionHandler{positionUC: positionUC, access: access}
}

// Subscribe buys into an instrument from the account's available balance.
func (h *PositionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req dto.SubscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.positionUC.Subscribe(r.Context(), req.ToUseCaseInput(chi.URLParam(r, "id"), actorID(r)))
	if err != nil {
		writeDomainError(w, "failed to subscribe", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SubscriptionFromResult(result))
}

// ListByAccount lists the positions of an account.
func (h *PositionHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.access.Authorize(r.Context(), id, actorID(r), domain.PermissionView); err != nil {
		writeDomainError(w, "failed to list positions", err)
		return
	}

	limit, offset := page(r)
	positions, err := h.positionUC.ListPositions(r.Context(), id, limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list positions", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"positions": dto.PositionsFromDomain(positions)})
}

// Get retrieves a position the caller can view.
func (h *PositionHandler) Get(w http.ResponseWriter, r *http.Request) {
	position, err := h.positionUC.GetPosition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get position", err)
		return
	}

	if err := h.access.Authorize(r.Context(), position.AccountID, actorID(r), domain.PermissionView); err != nil {
		writeDomainError(w, "failed to get position", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PositionFromDomain(position))
}

// Redeem closes a position and credits the payout.
func (h *PositionHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	result, err := h.positionUC.Redeem(r.Context(), chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		writeDomainError(w, "failed to redeem position", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RedemptionFromResult(result))
}

// RecordValuation stores a valuation. Only account administrators may post
// valuations.
func (h *PositionHandler) RecordValuation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.ValuationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	position, err := h.positionUC.GetPosition(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to record valuation", err)
		return
	}
	if err := requireAdministrator(r.Context(), h.access, position.AccountID, actorID(r)); err != nil {
		writeDomainError(w, "failed to record valuation", err)
		return
	}

	updated, err := h.positionUC.RecordValuation(r.Context(), req.ToUseCaseInput(id))
	if err != nil {
		writeDomainError(w, "failed to record valuation", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PositionFromDomain(updated))
}

// Portfolio summarizes the caller's open positions.
func (h *PositionHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := h.positionUC.Portfolio(r.Context(), actorID(r))
	if err != nil {
		writeDomainError(w, "failed to load portfolio", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PortfolioFromDomain(portfolio))
}

// ListInstruments lists instruments open for subscription.
func (h *PositionHandler) ListInstruments(w http.ResponseWriter, r *http.Request) {
	instruments, err := h.positionUC.ListAvailableInstruments(r.Context())
	if err != nil {
		writeDomainError(w, "failed to list instruments", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"instruments": dto.InstrumentsFromDomain(instruments)})
}

// GetInstrument retrieves a catalog instrument by ID.
func (h *PositionHandler) GetInstrument(w http.ResponseWriter, r *http.Request) {
	instrument, err := h.positionUC.GetInstrument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get instrument", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.InstrumentFromDomain(instrument))
}
