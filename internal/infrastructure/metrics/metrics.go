package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Transaction engine metrics
	TransactionsTotal   *prometheus.CounterVec
	TransactionDuration *prometheus.HistogramVec
	TransactionAmount   *prometheus.HistogramVec
	TransactionFailures *prometheus.CounterVec

	// Ledger metrics
	LedgerOperations *prometheus.CounterVec

	// Account metrics
	AccountsOpened       prometheus.Counter
	AccountStatusChanges *prometheus.CounterVec
	GrantChanges         *prometheus.CounterVec

	// Position metrics
	PositionsOpened   prometheus.Counter
	PositionsRedeemed prometheus.Counter
	RedemptionPayout  prometheus.Histogram

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Infrastructure metrics
	OutboxPublished    *prometheus.CounterVec
	IdempotencyReplays prometheus.Counter
	CacheLookups       *prometheus.CounterVec
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates and registers all metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TransactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_transactions_total",
				Help: "Transactions reaching a terminal status, by kind and status",
			},
			[]string{"kind", "status"},
		),
		TransactionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundledger_transaction_execute_duration_seconds",
				Help:    "Duration of transaction execution",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		TransactionAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundledger_transaction_amount",
				Help:    "Executed transaction amounts",
				Buckets: []float64{10, 100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"kind"},
		),
		TransactionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_transaction_failures_total",
				Help: "Failed transaction executions by error kind",
			},
			[]string{"error_kind"},
		),

		LedgerOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_ledger_operations_total",
				Help: "Balance mutations applied inside storage transactions, including rolled back ones",
			},
			[]string{"operation"},
		),

		AccountsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_accounts_opened_total",
			Help: "Total number of accounts opened",
		}),
		AccountStatusChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_account_status_changes_total",
				Help: "Account status transitions by target status",
			},
			[]string{"status"},
		),
		GrantChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_grant_changes_total",
				Help: "Role grants created or revoked",
			},
			[]string{"action"},
		),

		PositionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_positions_opened_total",
			Help: "Total number of positions opened",
		}),
		PositionsRedeemed: factory.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_positions_redeemed_total",
			Help: "Total number of positions redeemed",
		}),
		RedemptionPayout: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fundledger_redemption_payout",
			Help:    "Payouts realized on redemption",
			Buckets: []float64{10, 100, 1000, 10000, 100000, 1000000, 10000000},
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fundledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_rate_limit_hits_total",
				Help: "Requests rejected by the rate limiter, by client key kind",
			},
			[]string{"key"},
		),

		OutboxPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_outbox_events_total",
				Help: "Outbox events handled by the publisher, by result",
			},
			[]string{"result"},
		),
		IdempotencyReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_idempotency_replays_total",
			Help: "Requests answered from the idempotency store",
		}),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_cache_lookups_total",
				Help: "Instrument cache lookups by result",
			},
			[]string{"result"},
		),
	}
}
