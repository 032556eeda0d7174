package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/fundledger/internal/adapter/http/handler"
	"github.com/iho/fundledger/internal/adapter/http/middleware"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
	"github.com/iho/fundledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler     *handler.AccountHandler
	AccessHandler      *handler.AccessHandler
	TransactionHandler *handler.TransactionHandler
	PositionHandler    *handler.PositionHandler
	LedgerHandler      *handler.LedgerHandler
	HealthHandler      *handler.HealthHandler
	IdempotencyStore   usecase.IdempotencyStore
	RateLimiter        *middleware.RateLimiter
	IdempotencyTTL     time.Duration
	Metrics            *metrics.Metrics
	MetricsHandler     http.Handler
	Logger             zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireActor)

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotency := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Metrics, cfg.Logger)
			r.Use(idempotency.Wrap)
		}

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Open)
			r.Get("/", cfg.AccountHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.AccountHandler.Get)
				r.Post("/suspend", cfg.AccountHandler.Suspend)
				r.Post("/reactivate", cfg.AccountHandler.Reactivate)
				r.Post("/close", cfg.AccountHandler.Close)
				r.Get("/entries", cfg.AccountHandler.Entries)

				r.Get("/access", cfg.AccessHandler.Check)
				r.Get("/grants", cfg.AccessHandler.List)
				r.Post("/grants", cfg.AccessHandler.Grant)
				r.Delete("/grants/{grantID}", cfg.AccessHandler.Revoke)

				r.Get("/positions", cfg.PositionHandler.ListByAccount)
				r.Post("/positions", cfg.PositionHandler.Subscribe)
				r.Get("/transactions", cfg.TransactionHandler.ListByAccount)
				r.Get("/reconciliation", cfg.LedgerHandler.ReconcileAccount)
			})
		})

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", cfg.TransactionHandler.Create)
			r.Post("/submit", cfg.TransactionHandler.Submit)
			r.Get("/{id}", cfg.TransactionHandler.Get)
			r.Post("/{id}/execute", cfg.TransactionHandler.Execute)
			r.Post("/{id}/cancel", cfg.TransactionHandler.Cancel)
		})

		// Positions
		r.Route("/positions", func(r chi.Router) {
			r.Get("/{id}", cfg.PositionHandler.Get)
			r.Post("/{id}/redeem", cfg.PositionHandler.Redeem)
			r.Post("/{id}/valuation", cfg.PositionHandler.RecordValuation)
		})

		r.Get("/portfolio", cfg.PositionHandler.Portfolio)

		// Instrument catalog
		r.Get("/instruments", cfg.PositionHandler.ListInstruments)
		r.Get("/instruments/{id}", cfg.PositionHandler.GetInstrument)

		// Ledger checks
		r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
		r.Get("/ledger/reconciliation", cfg.LedgerHandler.Report)
	})

	return r
}
