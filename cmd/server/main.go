package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/fundledger/internal/adapter/http"
	"github.com/iho/fundledger/internal/adapter/http/handler"
	"github.com/iho/fundledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/fundledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/fundledger/internal/adapter/repository/redis"
	sqliteRepo "github.com/iho/fundledger/internal/adapter/repository/sqlite"
	"github.com/iho/fundledger/internal/infrastructure/config"
	"github.com/iho/fundledger/internal/infrastructure/eventpublisher"
	"github.com/iho/fundledger/internal/infrastructure/logger"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
	"github.com/iho/fundledger/internal/infrastructure/postgres"
	"github.com/iho/fundledger/internal/infrastructure/redis"
	"github.com/iho/fundledger/internal/infrastructure/telemetry"
	"github.com/iho/fundledger/internal/usecase"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.OTelServiceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// storage bundles the repositories of one storage driver.
type storage struct {
	txManager    usecase.TransactionManager
	accounts     usecase.AccountRepository
	actors       usecase.ActorRepository
	grants       usecase.GrantRepository
	instruments  usecase.InstrumentCatalog
	positions    usecase.PositionRepository
	transactions usecase.TransactionRepository
	entries      usecase.EntryRepository
	ledger       usecase.LedgerRepository
	outbox       usecase.OutboxRepository
	retrier      usecase.Retrier
	ping         handler.CheckFunc
	close        func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, log)
	case config.DriverSQLite:
		return openSQLite(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if err := postgres.RunMigrations(cfg.DatabaseURL, log); err != nil {
		return nil, err
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	log.Info().Msg("connected to postgres")

	st := &storage{
		txManager:    postgresRepo.NewTxManager(pool),
		accounts:     postgresRepo.NewAccountRepository(pool),
		actors:       postgresRepo.NewActorRepository(pool),
		grants:       postgresRepo.NewGrantRepository(pool),
		instruments:  postgresRepo.NewInstrumentRepository(pool),
		positions:    postgresRepo.NewPositionRepository(pool),
		transactions: postgresRepo.NewTransactionRepository(pool),
		entries:      postgresRepo.NewEntryRepository(pool),
		ledger:       postgresRepo.NewLedgerRepository(pool),
		outbox:       postgresRepo.NewOutboxRepository(pool),
		retrier:      postgresRepo.NewRetrier(log),
		ping:         pool.Ping,
		close:        pool.Close,
	}
	return st, nil
}

func openSQLite(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	db, err := sqliteRepo.Open(ctx, cfg.SQLitePath, log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite database")

	return sqliteStorage(db, log), nil
}

func sqliteStorage(db *sql.DB, log zerolog.Logger) *storage {
	return &storage{
		txManager:    sqliteRepo.NewTxManager(db),
		accounts:     sqliteRepo.NewAccountRepository(db),
		actors:       sqliteRepo.NewActorRepository(db),
		grants:       sqliteRepo.NewGrantRepository(db),
		instruments:  sqliteRepo.NewInstrumentRepository(db),
		positions:    sqliteRepo.NewPositionRepository(db),
		transactions: sqliteRepo.NewTransactionRepository(db),
		entries:      sqliteRepo.NewEntryRepository(db),
		ledger:       sqliteRepo.NewLedgerRepository(db),
		outbox:       sqliteRepo.NewOutboxRepository(db),
		retrier:      postgresRepo.NewRetrier(log, postgresRepo.WithRetryable(sqliteRepo.IsRetryable)),
		ping:         db.PingContext,
		close:        func() { _ = db.Close() },
	}
}

// newPublisher returns the outbox sink: RabbitMQ when an AMQP URL is set,
// otherwise the structured log.
func newPublisher(cfg *config.Config, log zerolog.Logger) (eventpublisher.Publisher, func() error, error) {
	if cfg.AMQPURL == "" {
		return eventpublisher.NewLogPublisher(log), func() error { return nil }, nil
	}

	p, err := eventpublisher.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

// application is the wired service graph.
type application struct {
	router      http.Handler
	publisher   *eventpublisher.EventPublisher
	outbox      usecase.OutboxRepository
	rateLimiter *middleware.RateLimiter
}

func buildApplication(
	cfg *config.Config,
	st *storage,
	redisClient *goredis.Client,
	sink eventpublisher.Publisher,
	reg *prometheus.Registry,
	log zerolog.Logger,
) *application {
	m := metrics.NewWithRegisterer(reg)

	outbox := st.outbox
	if !cfg.OutboxEnabled {
		outbox = postgresRepo.NewNullOutboxRepository()
	}

	checks := map[string]handler.CheckFunc{"database": st.ping}

	catalog := st.instruments
	var idempotency usecase.IdempotencyStore
	if redisClient != nil {
		cache := redisRepo.NewCache(redisClient, "fundledger:cache:")
		catalog = redisRepo.NewCachedInstrumentCatalog(st.instruments, cache, cfg.InstrumentCacheTTL, m, log)
		idempotency = redisRepo.NewIdempotencyStore(redisClient)
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	idGen := postgresRepo.NewULIDGenerator()
	access := usecase.NewAccessUseCase(st.txManager, st.accounts, st.actors, st.grants, outbox, idGen, m)
	ledger := usecase.NewLedger(st.accounts, st.entries, idGen, m)
	accountUC := usecase.NewAccountUseCase(
		st.txManager, st.accounts, st.entries, access, outbox, idGen,
		usecase.NewRandomAccountNumbers(cfg.AccountNumberPrefix), m,
	).WithDefaultCurrency(cfg.DefaultCurrency)
	engine := usecase.NewTransactionUseCase(st.txManager, st.accounts, st.transactions, access, ledger, outbox, idGen, st.retrier, m, log)
	positionUC := usecase.NewPositionUseCase(st.txManager, st.accounts, st.positions, catalog, access, ledger, engine, outbox, idGen, m)
	reconciliation := usecase.NewReconciliationUseCase(st.accounts, st.entries, st.ledger)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:     handler.NewAccountHandler(accountUC, access),
		AccessHandler:      handler.NewAccessHandler(access),
		TransactionHandler: handler.NewTransactionHandler(engine, access),
		PositionHandler:    handler.NewPositionHandler(positionUC, access),
		LedgerHandler:      handler.NewLedgerHandler(reconciliation, access),
		HealthHandler:      handler.NewHealthHandler(checks),
		IdempotencyStore:   idempotency,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		RateLimiter:        limiter,
		Metrics:            m,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:             log,
	})

	app := &application{router: router, outbox: outbox, rateLimiter: limiter}
	if cfg.OutboxEnabled && sink != nil {
		app.publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: st.outbox,
			Publisher:  sink,
			Metrics:    m,
			Logger:     log,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxInterval,
		})
	}
	return app
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.OTelServiceName,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL, cfg.DatabaseTimeout)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")
	}

	var sink eventpublisher.Publisher
	if cfg.OutboxEnabled {
		var closeSink func() error
		sink, closeSink, err = newPublisher(cfg, log)
		if err != nil {
			return fmt.Errorf("connect to amqp: %w", err)
		}
		defer func() {
			if err := closeSink(); err != nil {
				log.Warn().Err(err).Msg("failed to close event sink")
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app := buildApplication(cfg, st, redisClient, sink, reg, log)

	if app.publisher != nil {
		go func() {
			if err := app.publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("outbox publisher stopped")
			}
		}()
	}

	if app.rateLimiter != nil {
		go app.rateLimiter.RunCleanup(ctx, time.Minute, 10*time.Minute)
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      app.router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
