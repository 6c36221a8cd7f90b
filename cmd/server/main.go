package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raycargo/backoffice/internal/config"
	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/handler"
	"github.com/raycargo/backoffice/internal/infra/cache"
	"github.com/raycargo/backoffice/internal/infra/client"
	"github.com/raycargo/backoffice/internal/infra/memory"
	"github.com/raycargo/backoffice/internal/infra/observability"
	"github.com/raycargo/backoffice/internal/infra/postgres"
	redisinfra "github.com/raycargo/backoffice/internal/infra/redis"
	"github.com/raycargo/backoffice/internal/infra/resilience"
	"github.com/raycargo/backoffice/internal/port"
	"github.com/raycargo/backoffice/internal/service"

	"go.uber.org/zap"
)

// store is satisfied by both the memory and the Postgres backends.
type store interface {
	port.LedgerStore
	port.PackageStore
	port.RemittanceStore
	port.SaleStore
	port.OfferStore
	port.ProvinceStore
	port.ClientDirectory
	port.HealthChecker
}

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, "backoffice")
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("storage_backend", cfg.StorageBackend),
		zap.String("sequence_backend", cfg.SequenceBackend),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Bool("remittance_settlement_creates_ledger", cfg.RemittanceSettlementCreatesLedger),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "backoffice")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStart()

	retry := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Storage ---
	var (
		st       store
		counter  port.SequenceCounter
		checkers []port.HealthChecker
	)

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		db, err := postgres.Open(startCtx, postgres.Config{
			DSN:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		}, retry, logger)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close()

		pg := postgres.New(db)
		if err := pg.Migrate(startCtx); err != nil {
			logger.Fatal("failed to migrate schema", zap.Error(err))
		}
		st = pg
		if cfg.SequenceBackend == config.BackendPostgres {
			counter = pg
		}
		logger.Info("using postgres storage")
	default:
		mem := memory.New()
		if cfg.SeedDemoData {
			memory.SeedDemo(mem)
			logger.Info("demo data seeded")
		}
		st = mem
		logger.Warn("using in-memory storage, data is lost on restart")
	}
	checkers = append(checkers, st)

	// --- Sequences ---
	switch cfg.SequenceBackend {
	case config.BackendRedis:
		var rdbCounter *redisinfra.Counter
		err := resilience.RetryWithBackoff(startCtx, retry, func() error {
			rdb, err := redisinfra.NewClient(startCtx, redisinfra.Config{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, logger)
			if err != nil {
				logger.Warn("redis not reachable yet", zap.Error(err))
				return err
			}
			rdbCounter = redisinfra.NewCounter(rdb)
			return nil
		})
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		counter = rdbCounter
		checkers = append(checkers, rdbCounter)
	case config.BackendMemory:
		counter = memory.NewCounter()
	}

	// --- Cache ---
	provinceCache := cache.New[*domain.Province](cfg.CacheTTL)
	defer provinceCache.Close()

	// --- Client directory ---
	var clients port.ClientDirectory = st
	var breakers []port.BreakerReporter
	if cfg.ClientDirectoryURL != "" {
		clientCache := cache.New[*domain.Client](cfg.CacheTTL)
		defer clientCache.Close()

		directory := client.NewDirectoryClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.ClientDirectoryURL, retry, clientCache)
		clients = directory
		checkers = append(checkers, directory)
		breakers = append(breakers, directory.Breaker())
		logger.Info("using remote client directory", zap.String("url", cfg.ClientDirectoryURL))
	}

	// --- Services ---
	validator := service.NewValidator(cfg.PhoneDefaultRegion)
	catalogSvc := service.NewCatalogService(st, st, provinceCache, validator, metrics, logger)
	ledgerSvc := service.NewLedgerService(st, catalogSvc, validator, metrics, logger)
	sequenceSvc := service.NewSequenceService(counter, metrics)

	settlementSvc := service.NewSettlementService(st, st, ledgerSvc, validator, service.SettlementOptions{
		RemittanceCreatesLedger: cfg.RemittanceSettlementCreatesLedger,
		MaxConcurrency:          cfg.MaxConcurrency,
	}, metrics, logger)
	breakers = append(breakers, settlementSvc.Breaker())

	svc := handler.Services{
		Ledger:     ledgerSvc,
		Settlement: settlementSvc,
		Catalog:  catalogSvc,
		Sales:    service.NewSalesService(st, st, clients, catalogSvc, validator, logger),
		Tracking: service.NewTrackingService(st, st, clients, st, sequenceSvc, validator, metrics, logger),
		Reports:  service.NewReportService(st, st),
		Tokens:   service.NewTokenService(cfg.JWTSecret, cfg.JWTAccessTTL),
	}

	// --- Router ---
	router := handler.NewRouter(svc, handler.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		HealthCheckers: checkers,
		Breakers:       breakers,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
