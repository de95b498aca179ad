package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/ratelimit"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "loads with all required vars",
			envVars: map[string]string{
				"PORT":             "8080",
				"ENV":              "production",
				"DATABASE_URL":     "postgres://localhost/test",
				"ADMIN_JWT_SECRET": "secret123",
				"CACHE_DRIVER":     "redis",
				"REQUEST_TIMEOUT":  "10s",
				"PROXY_HEADER":     "X-Forwarded-For",
				"TRUSTED_PROXIES":  "10.0.0.0/8,192.168.1.1",
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 8080, c.Port)
				assert.Equal(t, "production", c.Environment)
				assert.Equal(t, "postgres://localhost/test", c.DatabaseURL)
				assert.Equal(t, "secret123", c.AdminJWTSecret)
				assert.True(t, c.UsesRedis())
				assert.Equal(t, 10*time.Second, c.RequestTimeout)
				assert.Equal(t, "X-Forwarded-For", c.ProxyHeader)
				assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.1"}, c.TrustedProxies)
			},
		},
		{
			name: "uses defaults when optional vars missing",
			envVars: map[string]string{
				"DATABASE_URL":     "postgres://localhost/test",
				"ADMIN_JWT_SECRET": "secret123",
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 3000, c.Port)
				assert.Equal(t, "development", c.Environment)
				assert.Equal(t, CacheDriverPostgres, c.CacheDriver)
				assert.Equal(t, 1<<20, c.MaxPayloadBytes)
				assert.Equal(t, 5*time.Minute, c.ReplayWindow)
				assert.Equal(t, 8, c.WorkerConcurrency)
				assert.Equal(t, 30*24*time.Hour, c.EventRetention)
				assert.Empty(t, c.NATSURL)
				assert.True(t, c.AutoMigrate)
				assert.Equal(t, 24*time.Hour, c.AdminTokenTTL)
				assert.True(t, c.AlertsEnabled)
				assert.Equal(t, time.Minute, c.AlertInterval)
				assert.Equal(t, 20.0, c.AlertFailureRate)
				assert.Equal(t, int64(20), c.AlertMinReceived)
			},
		},
		{
			name: "parses rate limit overrides",
			envVars: map[string]string{
				"DATABASE_URL":     "postgres://localhost/test",
				"ADMIN_JWT_SECRET": "secret123",
				"RATE_LIMITS":      "twitter:10/20/30,linkedin:1/2/3",
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, map[string]string{"twitter": "10/20/30", "linkedin": "1/2/3"}, c.RateLimits)
			},
		},
		{
			name: "fails when DATABASE_URL missing",
			envVars: map[string]string{
				"ADMIN_JWT_SECRET": "secret123",
			},
			wantErr: true,
		},
		{
			name: "fails when ADMIN_JWT_SECRET missing",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
			},
			wantErr: true,
		},
		{
			name: "fails on unknown cache driver",
			envVars: map[string]string{
				"DATABASE_URL":     "postgres://localhost/test",
				"ADMIN_JWT_SECRET": "secret123",
				"CACHE_DRIVER":     "memcached",
			},
			wantErr: true,
		},
		{
			name: "fails on unknown log level",
			envVars: map[string]string{
				"DATABASE_URL":     "postgres://localhost/test",
				"ADMIN_JWT_SECRET": "secret123",
				"LOG_LEVEL":        "verbose",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestConfig_Security(t *testing.T) {
	c := &Config{
		MaxPayloadBytes:    2048,
		ReplayWindow:       time.Minute,
		AllowlistEnabled:   true,
		AllowlistStrict:    true,
		AutoBlockEnabled:   false,
		ViolationThreshold: 7,
		BlockDuration:      2 * time.Hour,
		RateLimits:         map[string]string{"x": "5/50/500"},
	}

	sc, err := c.Security()
	require.NoError(t, err)

	assert.Equal(t, 2048, sc.MaxPayloadBytes)
	assert.Equal(t, time.Minute, sc.ReplayWindow)
	assert.True(t, sc.AllowlistStrict)
	assert.False(t, sc.AutoBlockEnabled)
	assert.Equal(t, int64(7), sc.ViolationThreshold)
	assert.Equal(t, ratelimit.Policy{Burst: 5, PerMinute: 50, PerHour: 500}, sc.RateLimits[domain.PlatformTwitter])
	assert.Equal(t, ratelimit.DefaultPolicies()[domain.PlatformFacebook], sc.RateLimits[domain.PlatformFacebook])
}

func TestConfig_Security_Invalid(t *testing.T) {
	base := func() *Config {
		return &Config{
			MaxPayloadBytes:    1024,
			ReplayWindow:       time.Minute,
			ViolationThreshold: 1,
			BlockDuration:      time.Hour,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown platform", func(c *Config) { c.RateLimits = map[string]string{"myspace": "1/1/1"} }},
		{"malformed policy", func(c *Config) { c.RateLimits = map[string]string{"facebook": "1/1"} }},
		{"negative limit", func(c *Config) { c.RateLimits = map[string]string{"facebook": "1/-1/1"} }},
		{"zero payload size", func(c *Config) { c.MaxPayloadBytes = 0 }},
		{"zero replay window", func(c *Config) { c.ReplayWindow = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			_, err := c.Security()
			assert.Error(t, err)
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"development", "development", true},
		{"production", "production", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			assert.Equal(t, tt.want, c.IsDevelopment())
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"production", "production", true},
		{"development", "development", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			assert.Equal(t, tt.want, c.IsProduction())
		})
	}
}
