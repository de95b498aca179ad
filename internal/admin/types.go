package admin

import (
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/metrics"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/security"
)

// CreateConfigRequest connects a social account on one platform.
type CreateConfigRequest struct {
	SocialAccountID uuid.UUID `json:"social_account_id" validate:"required"`
	Platform        string    `json:"platform" validate:"required,oneof=facebook instagram twitter linkedin"`
	WebhookURL      string    `json:"webhook_url" validate:"required,url,max=2048"`
	Events          []string  `json:"events" validate:"omitempty,dive,required,max=64"`
}

// CreateConfigResponse is returned once at creation. It is the only
// response that carries the secret.
type CreateConfigResponse struct {
	Config      *domain.WebhookConfig `json:"config"`
	Secret      string                `json:"secret"`
	VerifyToken string                `json:"verify_token,omitempty"`
}

// ConfigMetrics is the daily breakdown plus its rollup.
type ConfigMetrics struct {
	ConfigID uuid.UUID                `json:"config_id"`
	Period   Period                   `json:"period"`
	Daily    []*domain.DeliveryMetric `json:"daily"`
	Summary  *metrics.Summary         `json:"summary"`
}

// Period represents a time period
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FailedEventsParams pages the failed-event listing.
type FailedEventsParams struct {
	TerminalOnly bool
	Limit        int
	Offset       int
}

// FailedEventsResponse wraps a page of failed events.
type FailedEventsResponse struct {
	Events     []*domain.WebhookEvent `json:"events"`
	Pagination PaginationMeta         `json:"pagination"`
}

// PaginationMeta contains pagination information
type PaginationMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// BlockStatus is the block state of one IP.
type BlockStatus = security.BlockInfo

// MetricsWindow bounds a metrics query. Zero values default to the last
// 30 days.
type MetricsWindow struct {
	From time.Time
	To   time.Time
}
