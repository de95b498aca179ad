package security

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/audit"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/cache"
)

// Violation classifies a rejected request.
type Violation string

const (
	ViolationPayloadTooLarge  Violation = "payload_too_large"
	ViolationContentType      Violation = "invalid_content_type"
	ViolationIPNotAllowed     Violation = "ip_not_allowed"
	ViolationRateLimited      Violation = "rate_limited"
	ViolationReplay           Violation = "replay"
	ViolationInvalidSignature Violation = "invalid_signature"
)

func isMiss(err error) bool {
	return errors.Is(err, cache.ErrCacheMiss) || errors.Is(err, cache.ErrCacheExpired)
}

func minuteBucket(t time.Time) int64 {
	return t.Unix() / 60
}

// RecordViolation counts v against ip and blocks the IP once the total over
// the violation window reaches the threshold.
func (g *Gate) RecordViolation(ctx context.Context, ip string, v Violation) error {
	now := g.now()
	bucket := minuteBucket(now)
	ttl := time.Duration(g.cfg.ViolationWindow+1) * time.Minute

	if _, err := g.store.Incr(ctx, fmt.Sprintf("violation:%s:%s:%d", v, ip, bucket), ttl); err != nil {
		return fmt.Errorf("count violation: %w", err)
	}
	if _, err := g.store.Incr(ctx, fmt.Sprintf("violation:%s:%d", ip, bucket), ttl); err != nil {
		return fmt.Errorf("count violation: %w", err)
	}

	if !g.cfg.AutoBlockEnabled {
		return nil
	}

	total, err := g.ViolationCount(ctx, ip)
	if err != nil {
		return err
	}
	if total < g.cfg.ViolationThreshold {
		return nil
	}

	reason := fmt.Sprintf("%d violations in %d minutes", total, g.cfg.ViolationWindow)
	if err := g.Block(ctx, ip, g.cfg.BlockDuration, reason); err != nil {
		return err
	}

	first, err := g.store.SetNX(ctx, "alert:block:"+ip, []byte("1"), g.cfg.AlertSuppression)
	if err != nil {
		return fmt.Errorf("suppress block alert: %w", err)
	}
	if first {
		g.logger.Error("ip auto-blocked",
			"ip", ip,
			"violations", total,
			"last_violation", string(v),
			"duration", g.cfg.BlockDuration.String(),
		)
		_ = g.audit.Log(ctx, audit.Event{
			EventType: audit.EventIPBlocked,
			Actor:     "gateway",
			Target:    ip,
			Success:   true,
			Metadata: map[string]string{
				"violations":     strconv.FormatInt(total, 10),
				"last_violation": string(v),
				"duration":       g.cfg.BlockDuration.String(),
			},
		})
	}
	return nil
}

// ViolationCount sums violations of ip over the configured window.
func (g *Gate) ViolationCount(ctx context.Context, ip string) (int64, error) {
	bucket := minuteBucket(g.now())

	keys := make([]string, 0, g.cfg.ViolationWindow)
	for i := 0; i < g.cfg.ViolationWindow; i++ {
		keys = append(keys, fmt.Sprintf("violation:%s:%d", ip, bucket-int64(i)))
	}

	counters, err := g.store.Counters(ctx, keys...)
	if err != nil {
		return 0, fmt.Errorf("sum violations: %w", err)
	}

	var total int64
	for _, n := range counters {
		total += n
	}
	return total, nil
}
