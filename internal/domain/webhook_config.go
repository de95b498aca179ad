package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	secretBytes      = 32
	verifyTokenBytes = 16

	// MetadataVerifyToken is the metadata key holding the Meta hub.verify_token.
	MetadataVerifyToken = "verify_token"
)

// WebhookConfig binds a social account on one platform to this gateway.
// The secret is generated once and never rotated in place.
type WebhookConfig struct {
	ID              uuid.UUID              `json:"id"`
	SocialAccountID uuid.UUID              `json:"social_account_id"`
	Platform        Platform               `json:"platform"`
	WebhookURL      string                 `json:"webhook_url"`
	Secret          string                 `json:"-"`
	Events          []string               `json:"events"`
	IsActive        bool                   `json:"is_active"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	LastVerifiedAt  *time.Time             `json:"last_verified_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// IsSubscribedTo reports whether eventType is in the subscription list.
// An empty list subscribes to every event type.
func (c *WebhookConfig) IsSubscribedTo(eventType string) bool {
	if len(c.Events) == 0 {
		return true
	}
	for _, e := range c.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// VerifyToken returns the hub.verify_token stored in metadata, if any.
func (c *WebhookConfig) VerifyToken() string {
	if c.Metadata == nil {
		return ""
	}
	token, _ := c.Metadata[MetadataVerifyToken].(string)
	return token
}

// HasSecret reports whether the config can authenticate deliveries.
func (c *WebhookConfig) HasSecret() bool {
	return c.Secret != ""
}

// GenerateSecret returns 32 random bytes hex-encoded.
func GenerateSecret() (string, error) {
	return randomHex(secretBytes)
}

// GenerateVerifyToken returns a random token for Meta subscription handshakes.
func GenerateVerifyToken() (string, error) {
	return randomHex(verifyTokenBytes)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
