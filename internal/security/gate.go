// Package security protects the webhook endpoints: payload limits, source
// IP checks, rate limiting, replay detection and automatic IP blocking.
package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/audit"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/cache"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/ratelimit"
)

// Inbound describes the request attributes the gate inspects.
type Inbound struct {
	Platform    domain.Platform
	IP          string
	ContentType string
	Size        int
	// Signature identifies the delivery's MAC for replay detection. It must
	// be canonical (see signature.ReplayID), empty when none decodes.
	Signature string
}

// Verdict carries the response headers produced by a check, whether the
// request was admitted or not.
type Verdict struct {
	Headers map[string]string
}

// Gate runs the ordered security checks against shared KV state.
type Gate struct {
	store     cache.Store
	limiter   *ratelimit.RateLimiter
	cfg       Config
	allowlist allowlist
	audit     audit.Logger
	logger    *slog.Logger
	now       func() time.Time
}

// NewGate validates cfg and builds a gate over store.
func NewGate(store cache.Store, cfg Config, logger *slog.Logger) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	list, err := parseAllowlist(cfg.Allowlist)
	if err != nil {
		return nil, err
	}

	return &Gate{
		store:     store,
		limiter:   ratelimit.NewRateLimiter(store, cfg.RateLimits),
		cfg:       cfg,
		allowlist: list,
		audit:     &audit.NoOpLogger{},
		logger:    logger,
		now:       time.Now,
	}, nil
}

// WithClock replaces the time source of the gate and its rate limiter.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	g.limiter.WithClock(now)
	return g
}

// WithAudit records automatic blocks to l.
func (g *Gate) WithAudit(l audit.Logger) *Gate {
	g.audit = l
	return g
}

// Config returns the configuration the gate was built with.
func (g *Gate) Config() Config {
	return g.cfg
}

// Check runs every gate step in order and stops at the first rejection.
// Rejections are counted as violations against the client IP. The returned
// verdict is never nil.
func (g *Gate) Check(ctx context.Context, in Inbound) (*Verdict, error) {
	verdict := &Verdict{Headers: make(map[string]string)}

	blocked, err := g.IsBlocked(ctx, in.IP)
	if err != nil {
		return verdict, domain.ErrInternal.WithError(err)
	}
	if blocked {
		return verdict, domain.ErrIPBlocked
	}

	if in.Size > g.cfg.MaxPayloadBytes {
		return verdict, g.reject(ctx, in, ViolationPayloadTooLarge, domain.ErrPayloadTooLarge)
	}

	if !AcceptedContentType(in.ContentType) {
		return verdict, g.reject(ctx, in, ViolationContentType, domain.ErrUnsupportedContentType)
	}

	if g.cfg.AllowlistEnabled && !g.allowlist.contains(in.Platform, in.IP) {
		if g.cfg.AllowlistStrict {
			return verdict, g.reject(ctx, in, ViolationIPNotAllowed, domain.ErrIPNotAllowed)
		}
		g.logger.Warn("webhook from outside platform ranges",
			"platform", in.Platform,
			"ip", in.IP,
		)
	}

	decision, err := g.limiter.Allow(ctx, in.Platform, in.IP)
	if err != nil {
		return verdict, domain.ErrInternal.WithError(err)
	}
	if decision.Limit > 0 {
		for k, v := range decision.Headers() {
			verdict.Headers[k] = v
		}
	}
	if !decision.Allowed {
		verdict.Headers["Retry-After"] = strconv.Itoa(decision.RetryAfter(g.now()))
		return verdict, g.reject(ctx, in, ViolationRateLimited, domain.ErrRateLimitExceeded)
	}

	if in.Signature != "" {
		fresh, err := g.store.SetNX(ctx, ReplayKey(in.Platform, in.Signature), []byte("1"), g.cfg.ReplayWindow)
		if err != nil {
			return verdict, domain.ErrInternal.WithError(err)
		}
		if !fresh {
			return verdict, g.reject(ctx, in, ViolationReplay, domain.ErrReplayDetected)
		}
	}

	return verdict, nil
}

// reject records the violation and returns cause. Bookkeeping failures are
// logged; they never change the rejection.
func (g *Gate) reject(ctx context.Context, in Inbound, v Violation, cause error) error {
	if err := g.RecordViolation(ctx, in.IP, v); err != nil {
		g.logger.Error("failed to record violation",
			"ip", in.IP,
			"violation", string(v),
			"error", err,
		)
	}

	g.logger.Warn("webhook rejected",
		"platform", in.Platform,
		"ip", in.IP,
		"violation", string(v),
	)
	return cause
}

// ReplayKey derives the replay-cache key for a delivery signature.
func ReplayKey(platform domain.Platform, signature string) string {
	sum := sha256.Sum256([]byte(string(platform) + ":" + signature))
	return "replay:" + hex.EncodeToString(sum[:])
}

// AcceptedContentType reports whether ct is JSON or form encoded.
func AcceptedContentType(ct string) bool {
	if ct == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}

	switch {
	case mediaType == "application/json",
		mediaType == "application/x-www-form-urlencoded",
		strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json"):
		return true
	}
	return false
}

func blockKey(ip string) string {
	return "block:" + ip
}

// IsBlocked reports whether ip is currently blocked.
func (g *Gate) IsBlocked(ctx context.Context, ip string) (bool, error) {
	ok, err := g.store.Exists(ctx, blockKey(ip))
	if err != nil {
		return false, fmt.Errorf("check ip block: %w", err)
	}
	return ok, nil
}

// BlockInfo describes an active block.
type BlockInfo struct {
	IP        string    `json:"ip"`
	Blocked   bool      `json:"blocked"`
	Reason    string    `json:"reason,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Inspect returns the block state of ip.
func (g *Gate) Inspect(ctx context.Context, ip string) (BlockInfo, error) {
	info := BlockInfo{IP: ip}

	reason, err := g.store.Get(ctx, blockKey(ip))
	if err != nil {
		if isMiss(err) {
			return info, nil
		}
		return info, fmt.Errorf("inspect ip block: %w", err)
	}

	ttl, err := g.store.TTL(ctx, blockKey(ip))
	if err != nil && !isMiss(err) {
		return info, fmt.Errorf("inspect ip block: %w", err)
	}

	info.Blocked = true
	info.Reason = string(reason)
	if ttl > 0 {
		info.ExpiresAt = g.now().Add(ttl).UTC()
	}
	return info, nil
}

// Block blocks ip for d.
func (g *Gate) Block(ctx context.Context, ip string, d time.Duration, reason string) error {
	if err := g.store.Set(ctx, blockKey(ip), []byte(reason), d); err != nil {
		return fmt.Errorf("block ip: %w", err)
	}
	return nil
}

// Unblock lifts a block on ip. Unblocking an IP that is not blocked is
// not an error.
func (g *Gate) Unblock(ctx context.Context, ip string) error {
	if err := g.store.Delete(ctx, blockKey(ip)); err != nil {
		return fmt.Errorf("unblock ip: %w", err)
	}
	return nil
}

// ResetRateLimit clears the rate counters of ip on platform.
func (g *Gate) ResetRateLimit(ctx context.Context, platform domain.Platform, ip string) error {
	return g.limiter.ResetLimit(ctx, platform, ip)
}
