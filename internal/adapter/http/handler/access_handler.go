package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/fundledger/internal/adapter/http/dto"
	"github.com/iho/fundledger/internal/domain"
)

// AccessService defines the behavior needed by AccessHandler.
type AccessService interface {
	Authorizer
	HasAccess(ctx context.Context, accountID, actorID string) (bool, error)
	Roles(ctx context.Context, accountID, actorID string) ([]domain.Role, error)
	ListGrants(ctx context.Context, accountID string) ([]*domain.RoleGrant, error)
	Grant(ctx context.Context, accountID, actorID string, role domain.Role) (*domain.RoleGrant, error)
	Revoke(ctx context.Context, grantID string) (*domain.RoleGrant, error)
}

// AccessHandler handles role grants and access checks.
type AccessHandler struct {
	accessUC AccessService
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(accessUC AccessService) *AccessHandler {
	return &AccessHandler{accessUC: accessUC}
}

// Check reports whether the caller can see the account and with which roles.
func (h *AccessHandler) Check(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := actorID(r)

	ok, err := h.accessUC.HasAccess(r.Context(), id, actor)
	if err != nil {
		writeDomainError(w, "failed to check access", err)
		return
	}

	roles, err := h.accessUC.Roles(r.Context(), id, actor)
	if err != nil {
		writeDomainError(w, "failed to check access", err)
		return
	}

	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}

	writeJSON(w, http.StatusOK, dto.AccessResponse{
		AccountID: id,
		ActorID:   actor,
		HasAccess: ok,
		Roles:     names,
	})
}

// List lists the active grants on an account.
func (h *AccessHandler) List(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.accessUC.Authorize(r.Context(), id, actorID(r), domain.PermissionView); err != nil {
		writeDomainError(w, "failed to list grants", err)
		return
	}

	grants, err := h.accessUC.ListGrants(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to list grants", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"grants": dto.GrantsFromDomain(grants)})
}

// Grant gives an actor a role on the account.
func (h *AccessHandler) Grant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.GrantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	role, err := req.ParseRole()
	if err != nil {
		writeDomainError(w, "failed to grant role", err)
		return
	}

	if err := h.accessUC.Authorize(r.Context(), id, actorID(r), domain.PermissionManageGrants); err != nil {
		writeDomainError(w, "failed to grant role", err)
		return
	}

	grant, err := h.accessUC.Grant(r.Context(), id, req.ActorID, role)
	if err != nil {
		writeDomainError(w, "failed to grant role", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.GrantFromDomain(grant))
}

// Revoke ends a grant on the account.
func (h *AccessHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	grantID := chi.URLParam(r, "grantID")

	if err := h.accessUC.Authorize(r.Context(), id, actorID(r), domain.PermissionManageGrants); err != nil {
		writeDomainError(w, "failed to revoke grant", err)
		return
	}

	grants, err := h.accessUC.ListGrants(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to revoke grant", err)
		return
	}
	if !containsGrant(grants, grantID) {
		writeDomainError(w, "failed to revoke grant", fmt.Errorf("%w: %s on account %s", domain.ErrGrantNotFound, grantID, id))
		return
	}

	grant, err := h.accessUC.Revoke(r.Context(), grantID)
	if err != nil {
		writeDomainError(w, "failed to revoke grant", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GrantFromDomain(grant))
}

func containsGrant(grants []*domain.RoleGrant, id string) bool {
	for _, g := range grants {
		if g.ID == id {
			return true
		}
	}
	return false
}
