package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	postgresRepo "github.com/iho/fundledger/internal/adapter/repository/postgres"
	sqliteRepo "github.com/iho/fundledger/internal/adapter/repository/sqlite"
	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/config"
	"github.com/iho/fundledger/internal/infrastructure/eventpublisher"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		StorageDriver:       config.DriverSQLite,
		SQLitePath:          filepath.Join(t.TempDir(), "fundledger.db"),
		InstrumentCacheTTL:  time.Minute,
		OutboxEnabled:       true,
		OutboxInterval:      time.Second,
		OutboxBatchSize:     10,
		AccountNumberPrefix: "INV",
		DefaultCurrency:     "HTG",
		IdempotencyTTL:      time.Hour,
	}
}

func openTestStorage(t *testing.T, cfg *config.Config) *storage {
	t.Helper()
	st, err := openStorage(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(st.close)
	return st
}

func TestOpenStorage_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageDriver = "mysql"

	_, err := openStorage(context.Background(), cfg, zerolog.Nop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestNewPublisher_DefaultsToLog(t *testing.T) {
	p, closeFn, err := newPublisher(testConfig(t), zerolog.Nop())

	require.NoError(t, err)
	assert.IsType(t, &eventpublisher.LogPublisher{}, p)
	assert.NoError(t, closeFn())
}

func TestBuildApplication_OutboxDisabledUsesNullOutbox(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutboxEnabled = false
	st := openTestStorage(t, cfg)

	app := buildApplication(cfg, st, nil, nil, prometheus.NewRegistry(), zerolog.Nop())

	assert.Nil(t, app.publisher)
	assert.IsType(t, &postgresRepo.NullOutboxRepository{}, app.outbox)
}

func TestBuildApplication_RateLimitFromConfig(t *testing.T) {
	cfg := testConfig(t)
	st := openTestStorage(t, cfg)

	app := buildApplication(cfg, st, nil, nil, prometheus.NewRegistry(), zerolog.Nop())
	assert.Nil(t, app.rateLimiter)

	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 1
	app = buildApplication(cfg, st, nil, nil, prometheus.NewRegistry(), zerolog.Nop())
	require.NotNil(t, app.rateLimiter)

	codes := make([]int, 0, 2)
	for range 2 {
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestBuildApplication_ReadinessIncludesRedis(t *testing.T) {
	cfg := testConfig(t)
	st := openTestStorage(t, cfg)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	app := buildApplication(cfg, st, client, eventpublisher.NewLogPublisher(zerolog.Nop()), prometheus.NewRegistry(), zerolog.Nop())

	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "redis")

	mr.Close()

	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBuildApplication_SQLiteDepositPublishesEvents(t *testing.T) {
	cfg := testConfig(t)
	st := openTestStorage(t, cfg)

	var events bytes.Buffer
	sink := eventpublisher.NewLogPublisher(zerolog.New(&events))
	app := buildApplication(cfg, st, nil, sink, prometheus.NewRegistry(), zerolog.Nop())
	require.NotNil(t, app.publisher)

	db, err := sqliteRepo.Open(context.Background(), cfg.SQLitePath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqliteRepo.NewActorRepository(db).Create(context.Background(), &domain.Actor{
		ID:          "alice",
		DisplayName: "Alice",
		Kind:        domain.ActorKindIndividual,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}))

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Actor-ID", "alice")
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, req)
		return rec
	}

	rec := post("/api/v1/accounts", `{"type":"INVESTMENT"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var account struct {
		ID       string `json:"id"`
		Number   string `json:"number"`
		Currency string `json:"currency"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.True(t, strings.HasPrefix(account.Number, "INV-"), account.Number)
	assert.Equal(t, "HTG", account.Currency)

	rec = post("/api/v1/transactions/submit", `{"kind":"DEPOSIT","amount":"500","currency":"HTG","dest_account_id":"`+account.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	published, err := app.publisher.Flush(context.Background())
	require.NoError(t, err)
	assert.Positive(t, published)
	assert.Contains(t, events.String(), domain.EventTypeTransactionExecuted)

	published, err = app.publisher.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, published)
}
