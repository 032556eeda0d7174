package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/iho/fundledger/internal/adapter/http/dto"
	"github.com/iho/fundledger/internal/adapter/http/middleware"
	"github.com/iho/fundledger/internal/domain"
)

// Authorizer answers permission questions for handlers whose use case
// operation does not carry the calling actor.
type Authorizer interface {
	Authorize(ctx context.Context, accountID, actorID string, permission domain.Permission) error
	HasRole(ctx context.Context, accountID, actorID string, allowed ...domain.Role) (bool, error)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError maps err to a status and writes it with its kind.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	kind := domain.KindOf(err)
	details := err.Error()
	if kind == domain.KindInternal {
		details = ""
	}
	writeJSON(w, statusFor(err), dto.ErrorResponse{
		Error:   message,
		Kind:    string(kind),
		Message: details,
	})
}

// statusFor maps domain error kinds to HTTP status codes.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAccessDenied:
		return http.StatusForbidden
	case domain.KindInsufficientFunds, domain.KindBusinessRule:
		return http.StatusUnprocessableEntity
	case domain.KindAccountState, domain.KindAlreadyProcessed:
		return http.StatusConflict
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: empty body", domain.ErrInvalidRequest)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// page reads limit and offset query parameters.
func page(r *http.Request) (int, int) {
	return parseIntQuery(r, "limit", domain.DefaultPageLimit), parseIntQuery(r, "offset", 0)
}

func actorID(r *http.Request) string {
	return middleware.ActorFromContext(r.Context())
}

// requireAdministrator checks that actor holds ADMINISTRATOR on account.
// System-issued operations (interest, maturity, valuations) go through it.
func requireAdministrator(ctx context.Context, access Authorizer, accountID, actor string) error {
	ok, err := access.HasRole(ctx, accountID, actor, domain.RoleAdministrator)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: actor %q is not an administrator of account %s", domain.ErrAccessDenied, actor, accountID)
	}
	return nil
}

// authorizeTransaction checks actor against the account a transaction is
// charged to. Reads need view; mutations need the kind's permission, or
// ADMINISTRATOR for system-issued kinds.
func authorizeTransaction(ctx context.Context, access Authorizer, record *domain.Transaction, actor string, mutate bool) error {
	accountID := ""
	switch {
	case record.SourceAccountID != nil:
		accountID = *record.SourceAccountID
	case record.DestAccountID != nil:
		accountID = *record.DestAccountID
	}

	if !mutate {
		if err := access.Authorize(ctx, accountID, actor, domain.PermissionView); err == nil {
			return nil
		} else if record.DestAccountID == nil || *record.DestAccountID == accountID {
			return err
		}
		return access.Authorize(ctx, *record.DestAccountID, actor, domain.PermissionView)
	}

	if record.Kind.Automatic() {
		return requireAdministrator(ctx, access, accountID, actor)
	}
	return access.Authorize(ctx, accountID, actor, record.Kind.Permission())
}
