package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/fundledger/internal/adapter/http/middleware"
	"github.com/iho/fundledger/internal/domain"
)

// accessStub is an in-memory AccessService keyed by account then actor.
type accessStub struct {
	roles   map[string]map[string][]domain.Role
	grants  []*domain.RoleGrant
	granted []*domain.RoleGrant
	revoked []string
}

func newAccessStub() *accessStub {
	return &accessStub{roles: map[string]map[string][]domain.Role{}}
}

func (s *accessStub) grant(accountID, actorID string, role domain.Role) {
	if s.roles[accountID] == nil {
		s.roles[accountID] = map[string][]domain.Role{}
	}
	s.roles[accountID][actorID] = append(s.roles[accountID][actorID], role)
	s.grants = append(s.grants, &domain.RoleGrant{
		ID:        fmt.Sprintf("g-%d", len(s.grants)+1),
		AccountID: accountID,
		ActorID:   actorID,
		Role:      role,
		Active:    true,
	})
}

func (s *accessStub) HasRole(ctx context.Context, accountID, actorID string, allowed ...domain.Role) (bool, error) {
	for _, held := range s.roles[accountID][actorID] {
		for _, r := range allowed {
			if held == r {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *accessStub) Authorize(ctx context.Context, accountID, actorID string, permission domain.Permission) error {
	ok, _ := s.HasRole(ctx, accountID, actorID, domain.RolesFor(permission)...)
	if !ok {
		return fmt.Errorf("%w: %s lacks %s", domain.ErrAccessDenied, actorID, permission)
	}
	return nil
}

func (s *accessStub) HasAccess(ctx context.Context, accountID, actorID string) (bool, error) {
	return len(s.roles[accountID][actorID]) > 0, nil
}

func (s *accessStub) Roles(ctx context.Context, accountID, actorID string) ([]domain.Role, error) {
	return s.roles[accountID][actorID], nil
}

func (s *accessStub) ListGrants(ctx context.Context, accountID string) ([]*domain.RoleGrant, error) {
	var out []*domain.RoleGrant
	for _, g := range s.grants {
		if g.AccountID == accountID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *accessStub) Grant(ctx context.Context, accountID, actorID string, role domain.Role) (*domain.RoleGrant, error) {
	g := &domain.RoleGrant{ID: "g-new", AccountID: accountID, ActorID: actorID, Role: role, Active: true}
	s.granted = append(s.granted, g)
	return g, nil
}

func (s *accessStub) Revoke(ctx context.Context, grantID string) (*domain.RoleGrant, error) {
	s.revoked = append(s.revoked, grantID)
	return &domain.RoleGrant{ID: grantID, Active: false}, nil
}

// serve routes one request through a chi router so URL params resolve.
func serve(method, pattern, target, actor, body string, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if actor != "" {
		req = req.WithContext(middleware.WithActor(req.Context(), actor))
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
