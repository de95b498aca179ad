package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/admin"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/alert"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/api"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/audit"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/cache"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/challenge"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/config"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/database"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/ingest"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/metrics"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/processor"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/queue"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/repository"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/security"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/sink"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	securityCfg, err := cfg.Security()
	if err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}

	// Initialize logger
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting social webhook gateway",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("cache_driver", cfg.CacheDriver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer pool.Close()

	store, q, cleaner, closeStore, err := newStateBackends(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	auditLogger := audit.NewSlogLogger(logger)

	gate, err := security.NewGate(store, securityCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build security gate: %w", err)
	}
	gate.WithAudit(auditLogger)

	configRepo := repository.NewWebhookConfigRepository(pool)
	eventRepo := repository.NewWebhookEventRepository(pool)
	metricRepo := repository.NewDeliveryMetricRepository(pool)

	recorder := metrics.NewRecorder(metricRepo, logger)
	challenges := challenge.NewHandler(configRepo, logger)
	pipeline := ingest.NewPipeline(configRepo, eventRepo, recorder, q, gate, challenges, logger)

	consumer := processor.NewConsumer(q, eventRepo, configRepo, publisher, recorder,
		processor.ConsumerConfig{Concurrency: cfg.WorkerConcurrency}, logger)
	sweeper := processor.NewSweeper(eventRepo, q,
		processor.SweeperConfig{Interval: cfg.SweepInterval}, logger)
	cleanup := processor.NewCleanup(eventRepo, metricRepo, cleaner, processor.CleanupConfig{
		EventRetention:  cfg.EventRetention,
		MetricRetention: cfg.MetricRetention,
	}, logger)

	workers := []api.Worker{consumer, sweeper, cleanup}
	if cfg.AlertsEnabled {
		engine, err := alert.NewEngine(alert.DefaultRules(alert.Thresholds{
			FailureRate:     cfg.AlertFailureRate,
			AvgProcessingMs: cfg.AlertAvgProcessingMs,
			MinReceived:     cfg.AlertMinReceived,
		}))
		if err != nil {
			return fmt.Errorf("failed to build alert rules: %w", err)
		}
		workers = append(workers, alert.NewWorker(configRepo, recorder, engine, alert.NewLogNotifier(logger), store,
			alert.WorkerConfig{Interval: cfg.AlertInterval, Cooldown: cfg.AlertCooldown}, logger))
	}

	tokens := admin.NewJWTService(cfg.AdminJWTSecret, admin.Issuer, cfg.AdminTokenTTL)
	operator := admin.NewService(configRepo, eventRepo, recorder, gate, q, logger)

	router := api.NewRouter(logger, api.Config{
		RequestTimeout: cfg.RequestTimeout,
		BodyLimit:      cfg.MaxPayloadBytes * 2,
		ProxyHeader:    cfg.ProxyHeader,
		TrustedProxies: cfg.TrustedProxies,
	}, &api.Dependencies{
		Pipeline: pipeline,
		Operator: operator,
		Tokens:   tokens,
		Audit:    auditLogger,
		Checks: map[string]handler.Pinger{
			"postgres": pool,
			"kv":       store,
		},
		Workers: workers,
	})
	router.Setup()
	router.StartWorkers(ctx)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		serveErr = fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped")
	return serveErr
}

// newStateBackends picks the shared key/value store and the event queue.
// Redis serves both and lets replicas share them; the Postgres cache pairs
// with an in-process queue, and the sweeper recovers anything it held on a
// crash.
func newStateBackends(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (cache.Store, queue.Queue, processor.ExpiredCleaner, func(), error) {
	if cfg.UsesRedis() {
		store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to connect redis: %w", err)
		}

		q := queue.NewRedisQueue(store.Client(), cfg.RedisPrefix+queue.DefaultKey, logger)
		return store, q, nil, func() { _ = store.Close() }, nil
	}

	pgCache := cache.NewPGCache(pool)
	return pgCache, queue.NewMemoryQueue(1024), pgCache, func() {}, nil
}

func newPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sink.Publisher, error) {
	if cfg.NATSURL == "" {
		if cfg.ForwardURL != "" {
			return sink.NewHTTPForwarder(sink.HTTPOptions{
				URL:    cfg.ForwardURL,
				Secret: cfg.ForwardSecret,
			}, logger), nil
		}
		logger.Warn("neither NATS_URL nor FORWARD_URL set, normalized events go to the log")
		return sink.NewLogSink(logger), nil
	}

	publisher, err := sink.NewNATSPublisher(ctx, sink.NATSOptions{
		URL:           cfg.NATSURL,
		Stream:        cfg.NATSStream,
		SubjectPrefix: cfg.NATSSubjectPrefix,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect nats: %w", err)
	}
	return publisher, nil
}
