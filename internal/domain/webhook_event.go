package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventStatus is the processing state of a stored webhook delivery.
type EventStatus string

const (
	StatusPending    EventStatus = "pending"
	StatusProcessing EventStatus = "processing"
	StatusProcessed  EventStatus = "processed"
	StatusFailed     EventStatus = "failed"
	StatusIgnored    EventStatus = "ignored"
)

// MaxRetries caps automatic reprocessing of a failed event. retry_count
// counts failed attempts, so an event is terminal once it exceeds MaxRetries
// and every RetrySchedule entry gets used.
const MaxRetries = 5

// EventTypeUnknown is assigned when no classification rule matches.
const EventTypeUnknown = "unknown"

// RetrySchedule is the staged backoff applied between processing attempts,
// indexed by retry_count-1.
var RetrySchedule = []time.Duration{
	5 * time.Second,
	15 * time.Second,
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
}

// RetryDelay returns the delay before the given retry attempt (1-based).
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(RetrySchedule) {
		return RetrySchedule[len(RetrySchedule)-1]
	}
	return RetrySchedule[attempt-1]
}

var allowedTransitions = map[EventStatus][]EventStatus{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusProcessed, StatusFailed, StatusIgnored, StatusPending},
	StatusFailed:     {StatusPending},
}

// CanTransition reports whether from -> to is a valid status change.
func CanTransition(from, to EventStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status will never change again on its own.
func (s EventStatus) Terminal() bool {
	return s == StatusProcessed || s == StatusIgnored
}

// Envelope is the minimal set of fields extracted at ingestion time.
type Envelope struct {
	EventType  string `json:"event_type"`
	EventID    string `json:"event_id,omitempty"`
	ObjectType string `json:"object_type,omitempty"`
	ObjectID   string `json:"object_id,omitempty"`
}

// WebhookEvent is one accepted inbound delivery.
type WebhookEvent struct {
	ID              uuid.UUID       `json:"id"`
	WebhookConfigID uuid.UUID       `json:"webhook_config_id"`
	SocialAccountID uuid.UUID       `json:"social_account_id"`
	Platform        Platform        `json:"platform"`
	EventType       string          `json:"event_type"`
	ObjectType      *string         `json:"object_type,omitempty"`
	ObjectID        *string         `json:"object_id,omitempty"`
	EventID         *string         `json:"event_id,omitempty"`
	Payload         json.RawMessage `json:"payload"`
	Signature       string          `json:"-"`
	Status          EventStatus     `json:"status"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	RetryCount      int             `json:"retry_count"`
	NextRetryAt     *time.Time      `json:"next_retry_at,omitempty"`
	ReceivedAt      time.Time       `json:"received_at"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
}

// CanRetry reports whether a failed event is still eligible for reprocessing.
func (e *WebhookEvent) CanRetry() bool {
	return e.Status == StatusFailed && e.RetryCount <= MaxRetries
}

// NewWebhookEvent builds a pending event from an extracted envelope.
func NewWebhookEvent(cfg *WebhookConfig, env Envelope, payload []byte, signature string) *WebhookEvent {
	return &WebhookEvent{
		ID:              uuid.New(),
		WebhookConfigID: cfg.ID,
		SocialAccountID: cfg.SocialAccountID,
		Platform:        cfg.Platform,
		EventType:       env.EventType,
		ObjectType:      optional(env.ObjectType),
		ObjectID:        optional(env.ObjectID),
		EventID:         optional(env.EventID),
		Payload:         payload,
		Signature:       signature,
		Status:          StatusPending,
		ReceivedAt:      time.Now().UTC(),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
