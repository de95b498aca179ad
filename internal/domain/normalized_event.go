package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NormalizedEvent is the platform-agnostic representation handed to
// downstream consumers. Maps never contain nil values.
type NormalizedEvent struct {
	WebhookEventID    uuid.UUID              `json:"webhook_event_id"`
	Platform          Platform               `json:"platform"`
	EventType         string                 `json:"event_type"`
	ObjectType        string                 `json:"object_type"`
	ObjectID          string                 `json:"object_id,omitempty"`
	PlatformEventID   string                 `json:"platform_event_id,omitempty"`
	UserInfo          map[string]interface{} `json:"user_info"`
	ContentInfo       map[string]interface{} `json:"content_info"`
	EngagementMetrics map[string]int64       `json:"engagement_metrics"`
	RawPayload        json.RawMessage        `json:"raw_payload"`
	ReceivedAt        time.Time              `json:"received_at"`
	SocialAccountID   uuid.UUID              `json:"social_account_id"`
}
