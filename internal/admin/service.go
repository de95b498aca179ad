// Package admin implements the operator API: connecting integrations,
// reading delivery metrics, re-arming failed events and lifting IP blocks.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

const (
	defaultMetricsDays = 30
	maxMetricsDays     = 366
	defaultPageSize    = 50
	maxPageSize        = 500
)

// Service handles operator business logic
type Service struct {
	configs  ConfigStore
	events   EventStore
	metrics  MetricsReader
	blocks   BlockManager
	queue    Enqueuer
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new operator service
func NewService(
	configs ConfigStore,
	events EventStore,
	metrics MetricsReader,
	blocks BlockManager,
	queue Enqueuer,
	logger *slog.Logger,
) *Service {
	return &Service{
		configs:  configs,
		events:   events,
		metrics:  metrics,
		blocks:   blocks,
		queue:    queue,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// CreateConfig connects an integration. The secret and, for Meta
// platforms, the verify token are generated here and returned once.
func (s *Service) CreateConfig(ctx context.Context, req CreateConfigRequest) (*CreateConfigResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	platform, err := domain.ParsePlatform(req.Platform)
	if err != nil {
		return nil, err
	}

	cfg := &domain.WebhookConfig{
		SocialAccountID: req.SocialAccountID,
		Platform:        platform,
		WebhookURL:      req.WebhookURL,
		Events:          req.Events,
		IsActive:        true,
	}

	if err := s.configs.Create(ctx, cfg); err != nil {
		if errors.Is(err, domain.ErrConfigExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create config: %w", err)
	}

	s.logger.Info("webhook config created",
		"config_id", cfg.ID,
		"platform", cfg.Platform,
		"social_account_id", cfg.SocialAccountID,
	)

	return &CreateConfigResponse{
		Config:      cfg,
		Secret:      cfg.Secret,
		VerifyToken: cfg.VerifyToken(),
	}, nil
}

// DeactivateConfig stops a config from accepting deliveries. Stored events
// are kept.
func (s *Service) DeactivateConfig(ctx context.Context, id uuid.UUID) error {
	if err := s.configs.Deactivate(ctx, id); err != nil {
		return err
	}
	s.logger.Info("webhook config deactivated", "config_id", id)
	return nil
}

func (s *Service) DeleteConfig(ctx context.Context, id uuid.UUID) error {
	if err := s.configs.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("webhook config deleted", "config_id", id)
	return nil
}

// ConfigMetrics returns the daily rows and rollup for one config.
func (s *Service) ConfigMetrics(ctx context.Context, id uuid.UUID, window MetricsWindow) (*ConfigMetrics, error) {
	from, to, err := s.resolveWindow(window)
	if err != nil {
		return nil, err
	}

	if _, err := s.configs.GetByID(ctx, id); err != nil {
		return nil, err
	}

	daily, err := s.metrics.Daily(ctx, id, from, to)
	if err != nil {
		return nil, err
	}

	summary, err := s.metrics.Summary(ctx, id, from, to)
	if err != nil {
		return nil, err
	}

	if daily == nil {
		daily = []*domain.DeliveryMetric{}
	}

	return &ConfigMetrics{
		ConfigID: id,
		Period: Period{
			Start: from.Format(time.DateOnly),
			End:   to.Format(time.DateOnly),
		},
		Daily:   daily,
		Summary: summary,
	}, nil
}

func (s *Service) resolveWindow(w MetricsWindow) (time.Time, time.Time, error) {
	to := w.To
	if to.IsZero() {
		to = s.now().UTC()
	}
	from := w.From
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultMetricsDays)
	}

	from, to = domain.MetricDay(from), domain.MetricDay(to)
	if to.Before(from) {
		return from, to, domain.ErrBadRequest.WithError(errors.New("from must not be after to"))
	}
	if to.Sub(from) > maxMetricsDays*24*time.Hour {
		return from, to, domain.ErrBadRequest.WithError(fmt.Errorf("range exceeds %d days", maxMetricsDays))
	}
	return from, to, nil
}

// FailedEvents lists failed events, newest first.
func (s *Service) FailedEvents(ctx context.Context, params FailedEventsParams) (*FailedEventsResponse, error) {
	if params.Limit <= 0 {
		params.Limit = defaultPageSize
	}
	if params.Limit > maxPageSize {
		params.Limit = maxPageSize
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	events, err := s.events.ListFailed(ctx, params.TerminalOnly, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*domain.WebhookEvent{}
	}

	return &FailedEventsResponse{
		Events: events,
		Pagination: PaginationMeta{
			Limit:  params.Limit,
			Offset: params.Offset,
			Count:  len(events),
		},
	}, nil
}

// RetryEvent re-arms a failed event and enqueues it. If the enqueue fails
// the event stays pending and the sweeper picks it up.
func (s *Service) RetryEvent(ctx context.Context, id uuid.UUID) error {
	if err := s.events.Retry(ctx, id); err != nil {
		return err
	}

	if err := s.queue.Enqueue(ctx, id); err != nil {
		s.logger.Warn("failed to enqueue retried event", "event_id", id, "error", err)
	}

	s.logger.Info("webhook event re-armed by operator", "event_id", id)
	return nil
}

// InspectBlock reports whether ip is blocked.
func (s *Service) InspectBlock(ctx context.Context, ip string) (*BlockStatus, error) {
	addr, err := parseIP(ip)
	if err != nil {
		return nil, err
	}

	info, err := s.blocks.Inspect(ctx, addr)
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}
	return &info, nil
}

// Unblock lifts a block. Unblocking an IP that is not blocked succeeds.
func (s *Service) Unblock(ctx context.Context, ip string) error {
	addr, err := parseIP(ip)
	if err != nil {
		return err
	}

	if err := s.blocks.Unblock(ctx, addr); err != nil {
		return domain.ErrInternal.WithError(err)
	}

	s.logger.Info("ip unblocked by operator", "ip", addr)
	return nil
}

func parseIP(raw string) (string, error) {
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return "", domain.ErrBadRequest.WithError(fmt.Errorf("invalid ip %q", raw))
	}
	return addr.String(), nil
}
