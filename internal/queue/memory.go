package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is an in-process queue for single-replica deployments
// without Redis. Entries are lost on restart; the sweeper re-enqueues
// pending rows.
type MemoryQueue struct {
	ch chan uuid.UUID
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1024
	}
	return &MemoryQueue{ch: make(chan uuid.UUID, size)}
}

// Enqueue never waits: a full buffer returns ErrFull and the row stays
// pending for the sweeper.
func (q *MemoryQueue) Enqueue(ctx context.Context, eventID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- eventID:
		return nil
	default:
		return ErrFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case id := <-q.ch:
		return id, nil
	case <-timer.C:
		return uuid.Nil, ErrEmpty
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

func (q *MemoryQueue) Len(context.Context) (int64, error) {
	return int64(len(q.ch)), nil
}
