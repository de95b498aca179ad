// Package ingest turns one inbound webhook request into a durable pending
// event. It knows nothing about HTTP frameworks: callers build a Request
// from whatever transport they use and write the Response back.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/challenge"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/normalizer"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/payload"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/security"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/signature"
)

const (
	ParamConfigID  = "webhook_config_id"
	HeaderConfigID = "X-Webhook-Config-ID"
	HeaderPlatform = "X-Webhook-Platform"
)

// ConfigStore resolves webhook configs.
type ConfigStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error)
	ListActiveByPlatform(ctx context.Context, platform domain.Platform, limit int) ([]*domain.WebhookConfig, error)
}

// EventStore persists accepted deliveries.
type EventStore interface {
	Create(ctx context.Context, event *domain.WebhookEvent) error
}

// MetricsRecorder counts deliveries per config and day.
type MetricsRecorder interface {
	RecordReceived(ctx context.Context, cfg *domain.WebhookConfig) error
	RecordOutcome(ctx context.Context, cfg *domain.WebhookConfig, eventType string, status domain.EventStatus, processingMs float64) error
}

// Enqueuer hands an event id to the asynchronous processor.
type Enqueuer interface {
	Enqueue(ctx context.Context, eventID uuid.UUID) error
}

// Gate runs the security checks.
type Gate interface {
	Check(ctx context.Context, in security.Inbound) (*security.Verdict, error)
	RecordViolation(ctx context.Context, ip string, v security.Violation) error
}

// ChallengeHandler answers subscription handshakes.
type ChallengeHandler interface {
	Handle(ctx context.Context, cfg *domain.WebhookConfig, query url.Values) (*challenge.Response, error)
}

// Request is one inbound delivery or handshake.
type Request struct {
	// Platform is the raw path segment; HeaderPlatform is used when empty.
	Platform string
	Method   string
	Headers  http.Header
	Query    url.Values
	Body     []byte
	IP       string
}

// Response is what the transport writes back.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Headers     map[string]string
	// EventID is set when a delivery was accepted.
	EventID uuid.UUID
	// Err is the internal cause of a non-2xx response. It is never written
	// to the client.
	Err error
}

type ackBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// envelopeInput is validated before anything is persisted.
type envelopeInput struct {
	EventType  string `validate:"required,max=100"`
	ObjectType string `validate:"max=100"`
	ObjectID   string `validate:"max=255"`
	EventID    string `validate:"max=255"`
}

// Pipeline wires the ingestion steps together.
type Pipeline struct {
	configs   ConfigStore
	events    EventStore
	metrics   MetricsRecorder
	queue     Enqueuer
	gate      Gate
	challenge ChallengeHandler
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewPipeline(
	configs ConfigStore,
	events EventStore,
	metrics MetricsRecorder,
	queue Enqueuer,
	gate Gate,
	challenges ChallengeHandler,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		configs:   configs,
		events:    events,
		metrics:   metrics,
		queue:     queue,
		gate:      gate,
		challenge: challenges,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Handle runs the request through the ingestion state machine. It always
// returns a response; panics become 500.
func (p *Pipeline) Handle(ctx context.Context, req *Request) (resp *Response) {
	var cfg *domain.WebhookConfig
	eventType := domain.EventTypeUnknown

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			p.logger.Error("webhook ingestion panicked",
				"platform", req.Platform,
				"ip", req.IP,
				"error", err,
			)
			resp = p.fail(domain.ErrInternal.WithError(err), nil)
		}
		// Internal failures after the config is known still count against it.
		if cfg != nil && resp != nil && resp.StatusCode >= http.StatusInternalServerError {
			if mErr := p.metrics.RecordOutcome(ctx, cfg, eventType, domain.StatusFailed, 0); mErr != nil {
				p.logger.Error("failed to record failure metric", "config_id", cfg.ID, "error", mErr)
			}
		}
	}()

	platform, err := resolvePlatform(req)
	if err != nil {
		return p.fail(err, nil)
	}

	if challenge.Is(req.Query) {
		cfg, err = p.resolveConfig(ctx, platform, req)
		if err != nil && !errors.Is(err, domain.ErrConfigNotFound) {
			return p.fail(err, nil)
		}
		out, err := p.challenge.Handle(ctx, cfg, req.Query)
		if err != nil {
			return p.fail(err, nil)
		}
		return &Response{
			StatusCode:  out.StatusCode,
			ContentType: out.ContentType,
			Body:        out.Body,
			Headers:     withSecurityHeaders(nil),
		}
	}

	if req.Method != "" && req.Method != http.MethodPost {
		return p.fail(domain.ErrBadRequest.WithError(fmt.Errorf("method %s without handshake parameters", req.Method)), nil)
	}

	cfg, err = p.resolveConfig(ctx, platform, req)
	if err != nil {
		return p.fail(err, nil)
	}

	verifier, err := signature.For(platform)
	if err != nil {
		return p.fail(err, nil)
	}
	sig := req.Headers.Get(verifier.Header())

	verdict, err := p.gate.Check(ctx, security.Inbound{
		Platform:    platform,
		IP:          req.IP,
		ContentType: req.Headers.Get("Content-Type"),
		Size:        len(req.Body),
		Signature:   signature.ReplayID(verifier, req.Headers),
	})
	headers := verdictHeaders(verdict)
	if err != nil {
		return p.fail(err, headers)
	}

	if !verifier.Verify(req.Body, req.Headers, cfg.Secret) {
		if vErr := p.gate.RecordViolation(ctx, req.IP, security.ViolationInvalidSignature); vErr != nil {
			p.logger.Error("failed to record violation", "ip", req.IP, "error", vErr)
		}
		p.logger.Warn("webhook signature rejected",
			"platform", platform,
			"config_id", cfg.ID,
			"ip", req.IP,
			"signature_present", sig != "",
		)
		return p.fail(domain.ErrInvalidSignature, headers)
	}

	root := parseBody(req.Headers.Get("Content-Type"), req.Body)

	n, err := normalizer.For(platform)
	if err != nil {
		return p.fail(err, headers)
	}
	env := n.Extract(root)
	eventType = env.EventType

	if err := p.validate.Struct(envelopeInput{
		EventType:  env.EventType,
		ObjectType: env.ObjectType,
		ObjectID:   env.ObjectID,
		EventID:    env.EventID,
	}); err != nil {
		return p.fail(domain.ErrValidationFailed.WithError(err), headers)
	}

	stored, err := storedPayload(req.Body, root)
	if err != nil {
		return p.fail(domain.ErrInternal.WithError(err), headers)
	}

	event := domain.NewWebhookEvent(cfg, env, stored, sig)
	if err := p.events.Create(ctx, event); err != nil {
		return p.fail(domain.ErrInternal.WithError(err), headers)
	}

	if err := p.metrics.RecordReceived(ctx, cfg); err != nil {
		p.logger.Error("failed to record received metric",
			"config_id", cfg.ID,
			"event_id", event.ID,
			"error", err,
		)
	}

	if err := p.queue.Enqueue(ctx, event.ID); err != nil {
		p.logger.Error("failed to enqueue webhook event, sweeper will pick it up",
			"event_id", event.ID,
			"error", err,
		)
	}

	p.logger.Info("webhook received",
		"platform", platform,
		"config_id", cfg.ID,
		"event_id", event.ID,
		"event_type", event.EventType,
	)

	resp = jsonResponse(http.StatusOK, ackBody{Status: "success", Message: "Webhook received"}, headers)
	resp.EventID = event.ID
	return resp
}

func verdictHeaders(v *security.Verdict) map[string]string {
	if v == nil {
		return nil
	}
	return v.Headers
}

func resolvePlatform(req *Request) (domain.Platform, error) {
	raw := req.Platform
	if raw == "" && req.Headers != nil {
		raw = req.Headers.Get(HeaderPlatform)
	}
	return domain.ParsePlatform(raw)
}

// resolveConfig picks the config by explicit id, else the platform's only
// active config. Several active configs without an explicit id are treated
// as not configured.
func (p *Pipeline) resolveConfig(ctx context.Context, platform domain.Platform, req *Request) (*domain.WebhookConfig, error) {
	rawID := req.Query.Get(ParamConfigID)
	if rawID == "" && req.Headers != nil {
		rawID = req.Headers.Get(HeaderConfigID)
	}

	if rawID != "" {
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, domain.ErrConfigNotFound
		}
		cfg, err := p.configs.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrConfigNotFound) {
				return nil, err
			}
			return nil, domain.ErrInternal.WithError(err)
		}
		if cfg.Platform != platform || !cfg.IsActive {
			return nil, domain.ErrConfigNotFound
		}
		return cfg, nil
	}

	configs, err := p.configs.ListActiveByPlatform(ctx, platform, 2)
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}
	switch len(configs) {
	case 1:
		return configs[0], nil
	case 0:
		return nil, domain.ErrConfigNotFound
	default:
		p.logger.Warn("ambiguous webhook config, pass webhook_config_id",
			"platform", platform,
		)
		return nil, domain.ErrConfigNotFound
	}
}

func isForm(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}

func parseBody(contentType string, body []byte) payload.Value {
	if isForm(contentType) {
		return payload.ParseForm(body)
	}
	return payload.Parse(body)
}

// storedPayload keeps the raw body when it is JSON so the stored bytes are
// exactly what was signed; other encodings are stored as their decoded form.
func storedPayload(body []byte, root payload.Value) (json.RawMessage, error) {
	if json.Valid(body) {
		return json.RawMessage(body), nil
	}
	encoded, err := json.Marshal(root.Raw())
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return encoded, nil
}

func (p *Pipeline) fail(err error, headers map[string]string) *Response {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		appErr = domain.ErrInternal.WithError(err)
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		p.logger.Error("webhook ingestion failed", "code", appErr.Code, "error", err)
	}

	resp := jsonResponse(appErr.StatusCode, ackBody{Status: "error", Message: appErr.Message}, headers)
	resp.Err = err
	return resp
}

func jsonResponse(status int, body ackBody, headers map[string]string) *Response {
	encoded, _ := json.Marshal(body)
	return &Response{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        encoded,
		Headers:     withSecurityHeaders(headers),
	}
}

func withSecurityHeaders(extra map[string]string) map[string]string {
	out := make(map[string]string, len(security.Headers)+len(extra))
	for k, v := range security.Headers {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
