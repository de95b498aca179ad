package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/cache"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

// Window is one fixed counting window.
type Window struct {
	Name  string
	Size  time.Duration
	Limit int64
}

// Policy holds the thresholds applied to one platform. A zero limit
// disables that window.
type Policy struct {
	Burst     int64 `validate:"gte=0"`
	PerMinute int64 `validate:"gte=0"`
	PerHour   int64 `validate:"gte=0"`
}

func (p Policy) windows() []Window {
	all := []Window{
		{Name: "burst", Size: time.Second, Limit: p.Burst},
		{Name: "minute", Size: time.Minute, Limit: p.PerMinute},
		{Name: "hour", Size: time.Hour, Limit: p.PerHour},
	}

	active := all[:0]
	for _, w := range all {
		if w.Limit > 0 {
			active = append(active, w)
		}
	}
	return active
}

// DefaultPolicies returns per-platform thresholds. Twitter and LinkedIn
// deliver far less traffic than the Graph API, so their ceilings are lower.
func DefaultPolicies() map[domain.Platform]Policy {
	return map[domain.Platform]Policy{
		domain.PlatformFacebook:  {Burst: 100, PerMinute: 600, PerHour: 10000},
		domain.PlatformInstagram: {Burst: 100, PerMinute: 600, PerHour: 10000},
		domain.PlatformTwitter:   {Burst: 50, PerMinute: 300, PerHour: 5000},
		domain.PlatformLinkedIn:  {Burst: 50, PerMinute: 300, PerHour: 5000},
	}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	Reset     time.Time
	// Window names the window that denied the request, or the tightest one
	// when allowed.
	Window string
}

// RetryAfter returns whole seconds until the denying window resets, at
// least one.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int(d.Reset.Sub(now).Seconds() + 0.999)
	if secs < 1 {
		return 1
	}
	return secs
}

// Headers returns the X-RateLimit-* header set for d.
func (d Decision) Headers() map[string]string {
	return map[string]string{
		"X-RateLimit-Limit":     strconv.FormatInt(d.Limit, 10),
		"X-RateLimit-Remaining": strconv.FormatInt(d.Remaining, 10),
		"X-RateLimit-Reset":     d.Reset.UTC().Format(time.RFC3339),
	}
}

// RateLimiter counts requests per platform and client IP in fixed windows
// over a shared cache.Store, so every replica sees the same counters.
type RateLimiter struct {
	store    cache.Store
	policies map[domain.Platform]Policy
	now      func() time.Time
}

// NewRateLimiter creates a rate limiter. Platforms missing from policies
// fall back to DefaultPolicies.
func NewRateLimiter(store cache.Store, policies map[domain.Platform]Policy) *RateLimiter {
	merged := DefaultPolicies()
	for p, policy := range policies {
		merged[p] = policy
	}

	return &RateLimiter{
		store:    store,
		policies: merged,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (r *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	r.now = now
	return r
}

// Policy returns the thresholds in force for platform.
func (r *RateLimiter) Policy(platform domain.Platform) Policy {
	return r.policies[platform]
}

func counterKey(platform domain.Platform, ip string, w Window, index int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%s:%d", platform, ip, w.Name, index)
}

// Allow counts one request from ip against every window of the platform
// policy. The request is denied when any window is over its limit.
func (r *RateLimiter) Allow(ctx context.Context, platform domain.Platform, ip string) (Decision, error) {
	windows := r.policies[platform].windows()
	if len(windows) == 0 {
		return Decision{Allowed: true}, nil
	}

	now := r.now()
	var tightest *Decision

	for _, w := range windows {
		index := now.UnixNano() / int64(w.Size)
		reset := time.Unix(0, (index+1)*int64(w.Size))

		count, err := r.store.Incr(ctx, counterKey(platform, ip, w, index), w.Size)
		if err != nil {
			return Decision{}, fmt.Errorf("check rate limit: %w", err)
		}

		remaining := w.Limit - count
		if remaining < 0 {
			remaining = 0
		}

		d := Decision{
			Allowed:   count <= w.Limit,
			Limit:     w.Limit,
			Remaining: remaining,
			Reset:     reset,
			Window:    w.Name,
		}
		if !d.Allowed {
			return d, nil
		}
		if tightest == nil || d.Remaining < tightest.Remaining {
			tightest = &d
		}
	}

	return *tightest, nil
}

// ResetLimit clears the current windows for platform and ip (admin operation)
func (r *RateLimiter) ResetLimit(ctx context.Context, platform domain.Platform, ip string) error {
	now := r.now()
	for _, w := range r.policies[platform].windows() {
		index := now.UnixNano() / int64(w.Size)
		if err := r.store.Delete(ctx, counterKey(platform, ip, w, index)); err != nil {
			return fmt.Errorf("reset rate limit: %w", err)
		}
	}
	return nil
}
