package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss is returned when a key is not found in cache
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheExpired is returned when a cached value has expired
	ErrCacheExpired = errors.New("cache expired")
)

// Store is the shared key/value state used for replay detection, rate
// counters, IP blocks and alert suppression. Every mutating operation is
// atomic at the backend so concurrent handlers never check-then-act.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only if key is absent (or expired) and reports
	// whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Incr increments a counter and returns the new value. ttl is applied
	// when the counter is created and left untouched afterwards.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Counters returns current values for the given counter keys. Missing
	// keys are omitted.
	Counters(ctx context.Context, keys ...string) (map[string]int64, error)
	// TTL returns the remaining lifetime of key, or ErrCacheMiss.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
}
