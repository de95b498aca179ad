package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/ratelimit"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/security"
)

const (
	CacheDriverRedis    = "redis"
	CacheDriverPostgres = "postgres"
)

type Config struct {
	// Server
	Port           int           `envconfig:"PORT" default:"3000"`
	Environment    string        `envconfig:"ENV" default:"development"`
	LogLevel       string        `envconfig:"LOG_LEVEL"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ProxyHeader    string        `envconfig:"PROXY_HEADER"`
	TrustedProxies []string      `envconfig:"TRUSTED_PROXIES"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	AutoMigrate bool   `envconfig:"AUTO_MIGRATE" default:"true"`

	// Cache and queue
	CacheDriver   string `envconfig:"CACHE_DRIVER" default:"postgres"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"socialhook:"`

	// Sink
	NATSURL           string `envconfig:"NATS_URL"`
	NATSStream        string `envconfig:"NATS_STREAM" default:"WEBHOOKS"`
	NATSSubjectPrefix string `envconfig:"NATS_SUBJECT_PREFIX" default:"webhooks.normalized"`
	ForwardURL        string `envconfig:"FORWARD_URL"`
	ForwardSecret     string `envconfig:"FORWARD_SECRET"`

	// Admin
	AdminJWTSecret string        `envconfig:"ADMIN_JWT_SECRET" required:"true"`
	AdminTokenTTL  time.Duration `envconfig:"ADMIN_TOKEN_TTL" default:"24h"`

	// Security gate
	MaxPayloadBytes    int               `envconfig:"MAX_PAYLOAD_BYTES" default:"1048576"`
	ReplayWindow       time.Duration     `envconfig:"REPLAY_WINDOW" default:"5m"`
	AllowlistEnabled   bool              `envconfig:"IP_ALLOWLIST_ENABLED" default:"false"`
	AllowlistStrict    bool              `envconfig:"IP_ALLOWLIST_STRICT" default:"false"`
	AutoBlockEnabled   bool              `envconfig:"AUTO_BLOCK_ENABLED" default:"true"`
	ViolationThreshold int64             `envconfig:"VIOLATION_THRESHOLD" default:"20"`
	BlockDuration      time.Duration     `envconfig:"BLOCK_DURATION" default:"1h"`
	RateLimits         map[string]string `envconfig:"RATE_LIMITS"`

	// Workers
	WorkerConcurrency int           `envconfig:"WORKER_CONCURRENCY" default:"8"`
	SweepInterval     time.Duration `envconfig:"SWEEP_INTERVAL" default:"5s"`
	EventRetention    time.Duration `envconfig:"EVENT_RETENTION" default:"720h"`
	MetricRetention   time.Duration `envconfig:"METRIC_RETENTION" default:"2160h"`

	// Delivery alerts
	AlertsEnabled        bool          `envconfig:"ALERTS_ENABLED" default:"true"`
	AlertInterval        time.Duration `envconfig:"ALERT_INTERVAL" default:"1m"`
	AlertCooldown        time.Duration `envconfig:"ALERT_COOLDOWN" default:"1h"`
	AlertFailureRate     float64       `envconfig:"ALERT_FAILURE_RATE" default:"20"`
	AlertAvgProcessingMs float64       `envconfig:"ALERT_AVG_PROCESSING_MS" default:"0"`
	AlertMinReceived     int64         `envconfig:"ALERT_MIN_RECEIVED" default:"20"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	switch cfg.CacheDriver {
	case CacheDriverRedis, CacheDriverPostgres:
	default:
		return nil, fmt.Errorf("load config: unknown CACHE_DRIVER %q", cfg.CacheDriver)
	}

	if _, _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesRedis reports whether the KV store and queue run on Redis.
func (c *Config) UsesRedis() bool {
	return c.CacheDriver == CacheDriverRedis
}

// Security builds the gate configuration from defaults and overrides, and
// validates it.
func (c *Config) Security() (security.Config, error) {
	sc := security.DefaultConfig()
	sc.MaxPayloadBytes = c.MaxPayloadBytes
	sc.ReplayWindow = c.ReplayWindow
	sc.AllowlistEnabled = c.AllowlistEnabled
	sc.AllowlistStrict = c.AllowlistStrict
	sc.AutoBlockEnabled = c.AutoBlockEnabled
	sc.ViolationThreshold = c.ViolationThreshold
	sc.BlockDuration = c.BlockDuration

	for name, raw := range c.RateLimits {
		platform, err := domain.ParsePlatform(name)
		if err != nil {
			return sc, fmt.Errorf("rate limit override %q: %w", name, err)
		}
		policy, err := parsePolicy(raw)
		if err != nil {
			return sc, fmt.Errorf("rate limit override %q: %w", name, err)
		}
		sc.RateLimits[platform] = policy
	}

	if err := sc.Validate(); err != nil {
		return sc, err
	}
	return sc, nil
}

// parsePolicy reads "burst/minute/hour", e.g. "100/600/10000".
func parsePolicy(raw string) (ratelimit.Policy, error) {
	parts := strings.Split(raw, "/")
	if len(parts) != 3 {
		return ratelimit.Policy{}, fmt.Errorf("want burst/minute/hour, got %q", raw)
	}

	values := make([]int64, 3)
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || n < 0 {
			return ratelimit.Policy{}, fmt.Errorf("invalid limit %q", p)
		}
		values[i] = n
	}

	return ratelimit.Policy{Burst: values[0], PerMinute: values[1], PerHour: values[2]}, nil
}
