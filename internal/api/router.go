package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/api/handler"
	adminHandler "github.com/saturnino-fabrica-de-software/socialhook/internal/api/handler/admin"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/audit"
)

// Worker is a background loop that runs until its context is cancelled.
type Worker interface {
	Run(ctx context.Context)
}

type Dependencies struct {
	Pipeline handler.Ingester
	Operator adminHandler.OperatorService
	Tokens   middleware.TokenValidator
	// Audit receives operator actions; a no-op logger is used when nil.
	Audit audit.Logger
	// Checks are probed by /ready, keyed by dependency name.
	Checks  map[string]handler.Pinger
	Workers []Worker
}

type Config struct {
	// RequestTimeout bounds every webhook and operator handler.
	RequestTimeout time.Duration
	// BodyLimit must exceed the gate's payload limit so oversized bodies
	// reach the gate and get its structured rejection.
	BodyLimit int
	// ProxyHeader names the header carrying the client IP behind a load
	// balancer, e.g. X-Forwarded-For. Empty uses the socket address.
	ProxyHeader string
	// TrustedProxies limits which peers may set ProxyHeader. Empty trusts all.
	TrustedProxies []string
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	cfg    Config
	deps   *Dependencies

	cancelWorkers context.CancelFunc
	workers       sync.WaitGroup
}

func NewRouter(logger *slog.Logger, cfg Config, deps *Dependencies) *Router {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 4 * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:            middleware.ErrorHandler(logger),
		AppName:                 "Social Webhook Gateway",
		BodyLimit:               cfg.BodyLimit,
		ProxyHeader:             cfg.ProxyHeader,
		EnableIPValidation:      cfg.ProxyHeader != "",
		EnableTrustedProxyCheck: len(cfg.TrustedProxies) > 0,
		TrustedProxies:          cfg.TrustedProxies,
	})

	return &Router{
		app:    app,
		logger: logger,
		cfg:    cfg,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(middleware.SecurityHeaders())
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var checks map[string]handler.Pinger
	if r.deps != nil {
		checks = r.deps.Checks
	}
	healthHandler := handler.NewHealthHandler(checks)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	if r.deps.Pipeline != nil {
		webhookHandler := handler.NewWebhookHandler(r.deps.Pipeline, r.logger)
		receive := r.withTimeout(webhookHandler.Receive)

		// Platform may come from the path or the X-Webhook-Platform header.
		r.app.Get("/webhooks/:platform?", receive)
		r.app.Post("/webhooks/:platform?", receive)
	}

	if r.deps.Operator != nil && r.deps.Tokens != nil {
		r.setupOperatorRoutes()
	}
}

func (r *Router) setupOperatorRoutes() {
	operatorGroup := r.app.Group("/v1/admin")
	operatorGroup.Use(middleware.OperatorAuth(middleware.OperatorAuthDependencies{
		Tokens: r.deps.Tokens,
		Logger: r.logger,
	}))

	auditLogger := r.deps.Audit
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	h := adminHandler.NewOperatorHandler(r.deps.Operator, auditLogger, r.logger)

	// Webhook configs
	operatorGroup.Post("/configs", r.withTimeout(h.CreateConfig))
	operatorGroup.Post("/configs/:id/deactivate", r.withTimeout(h.DeactivateConfig))
	operatorGroup.Delete("/configs/:id", r.withTimeout(h.DeleteConfig))
	operatorGroup.Get("/configs/:id/metrics", r.withTimeout(h.ConfigMetrics))

	// Failed events
	operatorGroup.Get("/events/failed", r.withTimeout(h.FailedEvents))
	operatorGroup.Post("/events/:id/retry", r.withTimeout(h.RetryEvent))

	// IP blocks
	operatorGroup.Get("/blocks/:ip", r.withTimeout(h.InspectBlock))
	operatorGroup.Delete("/blocks/:ip", r.withTimeout(h.Unblock))
}

func (r *Router) withTimeout(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, r.cfg.RequestTimeout)
}

// StartWorkers launches the background workers. They stop on Shutdown.
func (r *Router) StartWorkers(ctx context.Context) {
	if r.deps == nil || len(r.deps.Workers) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancelWorkers = cancel

	for _, w := range r.deps.Workers {
		r.workers.Add(1)
		go func(w Worker) {
			defer r.workers.Done()
			w.Run(ctx)
		}(w)
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

// Shutdown stops intake first, then the workers, so every accepted event is
// either processed or left pending for the next start.
func (r *Router) Shutdown(ctx context.Context) error {
	err := r.app.ShutdownWithContext(ctx)

	if r.cancelWorkers != nil {
		r.cancelWorkers()
	}

	done := make(chan struct{})
	go func() {
		r.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("workers did not stop before shutdown deadline")
	}

	return err
}
