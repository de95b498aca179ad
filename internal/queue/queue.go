// Package queue carries accepted event ids from ingestion to the
// asynchronous processor. Only ids travel; the event row is the source of
// truth, so a lost message is recovered by the sweeper.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEmpty is returned by Dequeue when nothing arrived before the timeout.
var ErrEmpty = errors.New("queue empty")

// ErrFull is returned by Enqueue when a bounded queue has no room.
var ErrFull = errors.New("queue full")

// Queue is a FIFO of event ids.
type Queue interface {
	Enqueue(ctx context.Context, eventID uuid.UUID) error
	// Dequeue blocks up to timeout for the next id.
	Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, error)
	Len(ctx context.Context) (int64, error)
}
