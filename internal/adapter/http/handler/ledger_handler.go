package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/fundledger/internal/adapter/http/dto"
	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// ReconciliationService defines the behavior needed by LedgerHandler.
type ReconciliationService interface {
	ReconcileAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error)
	CheckLedgerConsistency(ctx context.Context) error
	GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// LedgerHandler handles ledger-wide checks.
type LedgerHandler struct {
	reconciliationUC ReconciliationService
	access           Authorizer
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(reconciliationUC ReconciliationService, access Authorizer) *LedgerHandler {
	return &LedgerHandler{reconciliationUC: reconciliationUC, access: access}
}

// CheckConsistency compares summed balances with summed entries.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	err := h.reconciliationUC.CheckLedgerConsistency(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrLedgerInconsistent) {
			writeJSON(w, http.StatusConflict, dto.ConsistencyResponse{
				Consistent: false,
				Error:      err.Error(),
			})
			return
		}
		writeDomainError(w, "failed to check consistency", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyResponse{Consistent: true})
}

// Report reconciles every account.
func (h *LedgerHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliationUC.GenerateReconciliationReport(r.Context())
	if err != nil {
		writeDomainError(w, "failed to generate report", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReportFromResult(report))
}

// ReconcileAccount reconciles one account the caller can view.
func (h *LedgerHandler) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.access.Authorize(r.Context(), id, actorID(r), domain.PermissionView); err != nil {
		writeDomainError(w, "failed to reconcile account", err)
		return
	}

	result, err := h.reconciliationUC.ReconcileAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to reconcile account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromResult(result))
}
