package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestLedgerConsistency(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{name: "consistent", status: http.StatusOK, body: `{"consistent":true}`, want: "PASSED"},
		{name: "inconsistent", status: http.StatusConflict, body: `{"consistent":false,"error":"balances=10 entries=0"}`, want: "balances=10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/ledger/consistency", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			out, err := execute(t, "--url", server.URL, "ledger", "consistency")

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestTransactionsExecuteSendsActor(t *testing.T) {
	var gotMethod, gotPath, gotActor string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotActor = r.Method, r.URL.Path, r.Header.Get("X-Actor-ID")
		_, _ = w.Write([]byte(`{"id":"tx-1","status":"EXECUTED"}`))
	}))
	defer server.Close()

	out, err := execute(t, "--url", server.URL, "--actor", "alice", "transactions", "execute", "tx-1")

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/v1/transactions/tx-1/execute", gotPath)
	assert.Equal(t, "alice", gotActor)
	assert.Contains(t, out, "\"status\": \"EXECUTED\"")
}

func TestAccountsGetReturnsErrorOnFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"access_denied"}`))
	}))
	defer server.Close()

	out, err := execute(t, "--url", server.URL, "accounts", "get", "acc-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, out, "access_denied")
}

func TestIDCommandRequiresArgument(t *testing.T) {
	_, err := execute(t, "positions", "redeem")

	require.Error(t, err)
}

func TestMigrateSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", path)

	_, err := execute(t, "migrate", "up")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, err = execute(t, "migrate", "down")
	require.NoError(t, err)
}
