package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/fundledger/internal/adapter/http/dto"
	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	Open(ctx context.Context, input usecase.OpenAccountInput) (*domain.Account, error)
	Suspend(ctx context.Context, accountID, actorID string) (*domain.Account, error)
	Reactivate(ctx context.Context, accountID, actorID string) (*domain.Account, error)
	Close(ctx context.Context, accountID, actorID string) (*domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccountsForActor(ctx context.Context, actorID string, limit, offset int) ([]*domain.Account, error)
	ListEntries(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
	access    Authorizer
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService, access Authorizer) *AccountHandler {
	return &AccountHandler{accountUC: accountUC, access: access}
}

// Open opens an account owned by the caller.
func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	account, err := h.accountUC.Open(r.Context(), req.ToUseCaseInput(actorID(r)))
	if err != nil {
		writeDomainError(w, "failed to open account", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account the caller can view.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.access.Authorize(r.Context(), id, actorID(r), domain.PermissionView); err != nil {
		writeDomainError(w, "failed to get account", err)
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists the accounts the caller holds any role on.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r)

	accounts, err := h.accountUC.ListAccountsForActor(r.Context(), actorID(r), limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    len(accounts),
	})
}

// Suspend suspends an account.
func (h *AccountHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to suspend account", h.accountUC.Suspend)
}

// Reactivate reactivates a suspended account.
func (h *AccountHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to reactivate account", h.accountUC.Reactivate)
}

// Close closes an account with zero balances.
func (h *AccountHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to close account", h.accountUC.Close)
}

func (h *AccountHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	op func(ctx context.Context, accountID, actorID string) (*domain.Account, error),
) {
	account, err := op(r.Context(), chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		writeDomainError(w, message, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Entries lists the ledger entries of an account, newest first.
func (h *AccountHandler) Entries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.access.Authorize(r.Context(), id, actorID(r), domain.PermissionView); err != nil {
		writeDomainError(w, "failed to list entries", err)
		return
	}

	limit, offset := page(r)
	entries, err := h.accountUC.ListEntries(r.Context(), id, limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": dto.EntriesFromDomain(entries)})
}
