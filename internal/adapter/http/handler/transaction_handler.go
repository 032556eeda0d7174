package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/fundledger/internal/adapter/http/dto"
	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// TransactionService defines the behavior needed by TransactionHandler.
type TransactionService interface {
	Create(ctx context.Context, input usecase.CreateTransactionInput) (*domain.Transaction, error)
	Submit(ctx context.Context, input usecase.CreateTransactionInput) (*domain.Transaction, error)
	Execute(ctx context.Context, transactionID string) (*domain.Transaction, error)
	Cancel(ctx context.Context, transactionID string) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error)
}

// TransactionHandler handles transaction requests.
type TransactionHandler struct {
	transactionUC TransactionService
	access        Authorizer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionUC TransactionService, access Authorizer) *TransactionHandler {
	return &TransactionHandler{transactionUC: transactionUC, access: access}
}

// Create records a PENDING transaction.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.transactionUC.Create, "failed to create transaction")
}

// Submit creates and executes a transaction in one call.
func (h *TransactionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.transactionUC.Submit, "failed to submit transaction")
}

func (h *TransactionHandler) create(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, input usecase.CreateTransactionInput) (*domain.Transaction, error),
	message string,
) {
	var req dto.CreateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(actorID(r))
	if err != nil {
		writeDomainError(w, message, err)
		return
	}

	if input.Kind.Automatic() {
		if err := requireAdministrator(r.Context(), h.access, input.DestAccountID, actorID(r)); err != nil {
			writeDomainError(w, message, err)
			return
		}
	}

	record, err := op(r.Context(), input)
	if err != nil {
		writeTransactionError(w, message, record, err)
		return
	}

	status := http.StatusCreated
	if record.Status == domain.TransactionStatusExecuted {
		status = http.StatusOK
	}
	writeJSON(w, status, dto.TransactionFromDomain(record))
}

// Get retrieves a transaction the caller can view.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	record, ok := h.load(w, r, false, "failed to get transaction")
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(record))
}

// Execute applies a PENDING transaction.
func (h *TransactionHandler) Execute(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.load(w, r, true, "failed to execute transaction"); !ok {
		return
	}

	record, err := h.transactionUC.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeTransactionError(w, "failed to execute transaction", record, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(record))
}

// Cancel cancels a PENDING transaction.
func (h *TransactionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.load(w, r, true, "failed to cancel transaction"); !ok {
		return
	}

	record, err := h.transactionUC.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to cancel transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(record))
}

// ListByAccount lists the transactions touching an account.
func (h *TransactionHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.access.Authorize(r.Context(), id, actorID(r), domain.PermissionView); err != nil {
		writeDomainError(w, "failed to list transactions", err)
		return
	}

	limit, offset := page(r)
	records, err := h.transactionUC.ListTransactions(r.Context(), id, limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": dto.TransactionsFromDomain(records)})
}

func (h *TransactionHandler) load(w http.ResponseWriter, r *http.Request, mutate bool, message string) (*domain.Transaction, bool) {
	record, err := h.transactionUC.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, message, err)
		return nil, false
	}

	if err := authorizeTransaction(r.Context(), h.access, record, actorID(r), mutate); err != nil {
		writeDomainError(w, message, err)
		return nil, false
	}

	return record, true
}

// writeTransactionError includes the FAILED record when execution recorded one.
func writeTransactionError(w http.ResponseWriter, message string, record *domain.Transaction, err error) {
	if record == nil {
		writeDomainError(w, message, err)
		return
	}

	kind := domain.KindOf(err)
	details := err.Error()
	if kind == domain.KindInternal {
		details = ""
	}
	writeJSON(w, statusFor(err), dto.ErrorResponse{
		Error:       message,
		Kind:        string(kind),
		Message:     details,
		Transaction: dto.TransactionFromDomain(record),
	})
}
