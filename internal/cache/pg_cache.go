package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PGCache implements Store on a PostgreSQL table with TTL support
type PGCache struct {
	db DB
}

// NewPGCache creates a new PostgreSQL cache
func NewPGCache(db *pgxpool.Pool) *PGCache {
	return &PGCache{db: db}
}

// NewPGCacheWithDB creates a new PostgreSQL cache with custom DB interface
func NewPGCacheWithDB(db DB) *PGCache {
	return &PGCache{db: db}
}

// Get retrieves a value from cache by key
func (c *PGCache) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT value, expires_at
		FROM cache_entries
		WHERE key = $1
	`

	var value []byte
	var expiresAt time.Time

	err := c.db.QueryRow(ctx, query, key).Scan(&value, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	// Check if expired
	if time.Now().After(expiresAt) {
		// Delete expired entry
		_ = c.Delete(ctx, key)
		return nil, ErrCacheExpired
	}

	return value, nil
}

// Set stores a value in cache with TTL
func (c *PGCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    counter = 0,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
	`

	expiresAt := time.Now().Add(ttl)
	_, err := c.db.Exec(ctx, query, key, value, expiresAt)
	return err
}

// SetNX inserts the key unless a live entry already holds it. An expired
// entry is overwritten in the same statement.
func (c *PGCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	query := `
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    counter = 0,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
		WHERE cache_entries.expires_at < NOW()
		RETURNING key
	`

	var stored string
	err := c.db.QueryRow(ctx, query, key, value, time.Now().Add(ttl)).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Incr atomically increments a counter row, restarting it once expired
func (c *PGCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	query := `
		INSERT INTO cache_entries (key, value, counter, expires_at)
		VALUES ($1, ''::bytea, 1, $2)
		ON CONFLICT (key) DO UPDATE
		SET counter = CASE
				WHEN cache_entries.expires_at < NOW() THEN 1
				ELSE cache_entries.counter + 1
			END,
		    expires_at = CASE
				WHEN cache_entries.expires_at < NOW() THEN EXCLUDED.expires_at
				ELSE cache_entries.expires_at
			END
		RETURNING counter
	`

	var count int64
	err := c.db.QueryRow(ctx, query, key, time.Now().Add(ttl)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Counters retrieves live counter values by keys
func (c *PGCache) Counters(ctx context.Context, keys ...string) (map[string]int64, error) {
	if len(keys) == 0 {
		return make(map[string]int64), nil
	}

	query := `
		SELECT key, counter
		FROM cache_entries
		WHERE key = ANY($1) AND expires_at > NOW()
	`

	rows, err := c.db.Query(ctx, query, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		result[key] = count
	}

	return result, rows.Err()
}

// TTL returns how long key stays alive
func (c *PGCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	query := `SELECT expires_at FROM cache_entries WHERE key = $1 AND expires_at > NOW()`

	var expiresAt time.Time
	err := c.db.QueryRow(ctx, query, key).Scan(&expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, err
	}
	return time.Until(expiresAt), nil
}

// Delete removes a key from cache
func (c *PGCache) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM cache_entries WHERE key = $1`
	_, err := c.db.Exec(ctx, query, key)
	return err
}

// CleanupExpired removes all expired entries
func (c *PGCache) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM cache_entries WHERE expires_at < NOW()`
	result, err := c.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Exists checks if a key exists and is not expired
func (c *PGCache) Exists(ctx context.Context, key string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM cache_entries
			WHERE key = $1 AND expires_at > NOW()
		)
	`

	var exists bool
	err := c.db.QueryRow(ctx, query, key).Scan(&exists)
	return exists, err
}

func (c *PGCache) Ping(ctx context.Context) error {
	return c.db.Ping(ctx)
}
