package security

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/ratelimit"
)

const (
	DefaultMaxPayloadBytes    = 1 << 20
	DefaultReplayWindow       = 5 * time.Minute
	DefaultViolationThreshold = 20
	DefaultViolationWindow    = 5
	DefaultBlockDuration      = time.Hour
	DefaultAlertSuppression   = 15 * time.Minute
)

// Config holds every tunable of the gate. It is passed by value at
// construction; nothing is read from globals.
type Config struct {
	MaxPayloadBytes int           `validate:"gt=0"`
	ReplayWindow    time.Duration `validate:"gt=0"`

	AllowlistEnabled bool
	// AllowlistStrict rejects IPs outside the platform ranges; otherwise
	// they are logged and admitted.
	AllowlistStrict bool
	Allowlist       map[domain.Platform][]string `validate:"dive,dive,cidr"`

	AutoBlockEnabled   bool
	ViolationThreshold int64 `validate:"gt=0"`
	// ViolationWindow is the number of one-minute buckets summed.
	ViolationWindow  int           `validate:"gt=0,lte=60"`
	BlockDuration    time.Duration `validate:"gt=0"`
	AlertSuppression time.Duration `validate:"gt=0"`

	RateLimits map[domain.Platform]ratelimit.Policy `validate:"dive"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxPayloadBytes:    DefaultMaxPayloadBytes,
		ReplayWindow:       DefaultReplayWindow,
		AllowlistEnabled:   false,
		AllowlistStrict:    false,
		Allowlist:          DefaultAllowlist(),
		AutoBlockEnabled:   true,
		ViolationThreshold: DefaultViolationThreshold,
		ViolationWindow:    DefaultViolationWindow,
		BlockDuration:      DefaultBlockDuration,
		AlertSuppression:   DefaultAlertSuppression,
		RateLimits:         ratelimit.DefaultPolicies(),
	}
}

// DefaultAllowlist returns the published egress ranges of each platform.
func DefaultAllowlist() map[domain.Platform][]string {
	meta := []string{
		"31.13.24.0/21",
		"31.13.64.0/18",
		"66.220.144.0/20",
		"69.63.176.0/20",
		"69.171.224.0/19",
		"173.252.64.0/18",
		"157.240.0.0/16",
		"2a03:2880::/32",
	}

	return map[domain.Platform][]string{
		domain.PlatformFacebook:  meta,
		domain.PlatformInstagram: meta,
		domain.PlatformTwitter: {
			"199.59.148.0/22",
			"199.16.156.0/22",
			"192.133.77.0/24",
		},
		domain.PlatformLinkedIn: {
			"108.174.0.0/20",
			"144.2.0.0/16",
		},
	}
}

// Validate checks the configuration with struct tags.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}
	return nil
}
