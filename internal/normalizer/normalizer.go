// Package normalizer turns platform-specific webhook payloads into
// NormalizedEvent values.
//
// Every platform is a Strategy selected once by platform tag. Classification
// is driven by payload shape: each strategy walks an ordered rule table and
// the first matching rule wins, defaulting to "unknown". Identifier lookups
// try ordered candidate paths, most specific first. Extraction never fails;
// a partial payload only produces a smaller result.
package normalizer

import (
	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/payload"
)

// Strategy holds the platform-specific extraction and classification.
type Strategy interface {
	Platform() domain.Platform
	// View reshapes the decoded body into the tree the other methods read.
	View(root payload.Value) payload.Value
	EventType(v payload.Value) string
	ObjectType(v payload.Value) string
	ObjectID(v payload.Value) string
	EventID(v payload.Value) string
	UserInfo(v payload.Value) map[string]interface{}
	ContentInfo(v payload.Value) map[string]interface{}
	// MetricSources lists the subtrees engagement metrics are read from,
	// in priority order.
	MetricSources(v payload.Value) []payload.Value
}

// rule is one row of a classification table.
type rule struct {
	when      func(v payload.Value) bool
	eventType string
}

func classify(v payload.Value, rules []rule) string {
	for _, r := range rules {
		if r.when(v) {
			return r.eventType
		}
	}
	return domain.EventTypeUnknown
}

func firstString(v payload.Value, paths ...string) string {
	for _, p := range paths {
		if s, ok := v.Get(p).String(); ok && s != "" {
			return s
		}
	}
	return ""
}

var strategies = map[domain.Platform]Strategy{
	domain.PlatformFacebook:  facebook{},
	domain.PlatformInstagram: instagram{},
	domain.PlatformTwitter:   twitter{},
	domain.PlatformLinkedIn:  linkedin{},
}

// Normalizer applies one platform strategy.
type Normalizer struct {
	strategy Strategy
}

// For returns the normalizer for platform.
func For(platform domain.Platform) (*Normalizer, error) {
	s, ok := strategies[platform]
	if !ok {
		return nil, domain.ErrUnknownPlatform
	}
	return &Normalizer{strategy: s}, nil
}

// Platform returns the platform this normalizer handles.
func (n *Normalizer) Platform() domain.Platform {
	return n.strategy.Platform()
}

// Extract returns the classification fields stored with an inbound event.
func (n *Normalizer) Extract(root payload.Value) domain.Envelope {
	v := n.strategy.View(root)
	return domain.Envelope{
		EventType:  n.strategy.EventType(v),
		EventID:    n.strategy.EventID(v),
		ObjectType: n.strategy.ObjectType(v),
		ObjectID:   n.strategy.ObjectID(v),
	}
}

// Normalize builds the canonical event from a stored webhook event. It is a
// pure function of the stored payload.
func (n *Normalizer) Normalize(event *domain.WebhookEvent) *domain.NormalizedEvent {
	v := n.strategy.View(payload.Parse(event.Payload))

	eventType := n.strategy.EventType(v)
	if eventType == domain.EventTypeUnknown && event.EventType != "" {
		eventType = event.EventType
	}

	return &domain.NormalizedEvent{
		WebhookEventID:    event.ID,
		Platform:          n.strategy.Platform(),
		EventType:         eventType,
		ObjectType:        n.strategy.ObjectType(v),
		ObjectID:          n.strategy.ObjectID(v),
		PlatformEventID:   n.strategy.EventID(v),
		UserInfo:          compact(n.strategy.UserInfo(v)),
		ContentInfo:       compact(n.strategy.ContentInfo(v)),
		EngagementMetrics: extractMetrics(n.strategy.MetricSources(v)),
		RawPayload:        event.Payload,
		ReceivedAt:        event.ReceivedAt,
		SocialAccountID:   event.SocialAccountID,
	}
}
