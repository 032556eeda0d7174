package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iho/fundledger/internal/domain"
)

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/accounts?limit=50", nil)
	if got := parseIntQuery(req, "limit", 10); got != 50 {
		t.Fatalf("expected limit=50, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/accounts?limit=invalid", nil)
	if got := parseIntQuery(req, "limit", 10); got != 10 {
		t.Fatalf("expected fallback to default, got %d", got)
	}

	req.URL = &url.URL{RawQuery: ""}
	if got := parseIntQuery(req, "limit", 25); got != 25 {
		t.Fatalf("expected default when missing, got %d", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("%w: bad", domain.ErrCurrencyMismatch), http.StatusBadRequest},
		{"not found", domain.ErrAccountNotFound, http.StatusNotFound},
		{"access denied", domain.ErrAccessDenied, http.StatusForbidden},
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"account state", domain.ErrAccountNotActive, http.StatusConflict},
		{"already processed", domain.ErrNotPending, http.StatusConflict},
		{"business rule", domain.ErrLastPrimaryHolder, http.StatusUnprocessableEntity},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestWriteDomainErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, "failed", errors.New("pq: connection refused at 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Contains(t, rec.Body.String(), `"kind":"internal"`)
}

func TestAuthorizeTransaction(t *testing.T) {
	src, dst := "acc-src", "acc-dst"
	transfer := &domain.Transaction{Kind: domain.KindTransfer, SourceAccountID: &src, DestAccountID: &dst}
	interest := &domain.Transaction{Kind: domain.KindInterestPayment, DestAccountID: &dst, IsAutomatic: true}

	access := newAccessStub()
	access.grant(dst, "bob", domain.RoleObserver)
	access.grant(src, "alice", domain.RoleProxy)
	access.grant(dst, "ops", domain.RoleAdministrator)

	ctx := context.Background()

	assert.NoError(t, authorizeTransaction(ctx, access, transfer, "bob", false), "dest viewer can read")
	assert.ErrorIs(t, authorizeTransaction(ctx, access, transfer, "bob", true), domain.ErrAccessDenied)
	assert.NoError(t, authorizeTransaction(ctx, access, transfer, "alice", true))
	assert.ErrorIs(t, authorizeTransaction(ctx, access, transfer, "mallory", false), domain.ErrAccessDenied)

	assert.ErrorIs(t, authorizeTransaction(ctx, access, interest, "bob", true), domain.ErrAccessDenied)
	assert.NoError(t, authorizeTransaction(ctx, access, interest, "ops", true))
}
