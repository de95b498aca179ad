package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultKey = "webhooks:events"

// RedisQueue is a list-backed queue shared by every replica.
type RedisQueue struct {
	client redis.UniversalClient
	key    string
	logger *slog.Logger
}

func NewRedisQueue(client redis.UniversalClient, key string, logger *slog.Logger) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{client: client, key: key, logger: logger}
}

func (q *RedisQueue) Enqueue(ctx context.Context, eventID uuid.UUID) error {
	if err := q.client.LPush(ctx, q.key, eventID.String()).Err(); err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrEmpty
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("dequeue event: %w", err)
	}

	// BRPOP replies with [key, value]
	if len(res) != 2 {
		return uuid.Nil, fmt.Errorf("dequeue event: unexpected reply %v", res)
	}

	id, err := uuid.Parse(res[1])
	if err != nil {
		q.logger.Warn("dropping malformed queue entry", "entry", res[1])
		return uuid.Nil, ErrEmpty
	}
	return id, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
