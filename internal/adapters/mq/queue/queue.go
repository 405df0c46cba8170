// Package queue buffers ingested batches between the transports and the
// summarizing workers.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity   = 10_000
	defaultMaxSamples = 5_000_000
)

// Batch is the payload flowing through the queue.
type Batch = model.Batch

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a batch. It returns ErrFull when either the batch or the
	// sample budget is exhausted and ErrClosed after Close.
	Enqueue(ctx context.Context, b Batch) error

	// Dequeue returns a channel that receives batches until the queue is
	// closed and drained.
	Dequeue(ctx context.Context) <-chan Batch

	// Len returns the number of queued batches.
	Len(ctx context.Context) int

	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	batches    chan Batch
	capacity   int
	maxSamples int64
	samples    atomic.Int64 // samples currently queued
	mu         sync.RWMutex
	closed     bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultCapacity,
		maxSamples: defaultMaxSamples,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.batches = make(chan Batch, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a batch to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, b Batch) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	n := int64(len(b.Samples))
	if q.samples.Add(n) > q.maxSamples && n > 0 {
		q.samples.Add(-n)
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "sample_budget_exceeded")
		return ErrFull
	}

	select {
	case q.batches <- b:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		q.samples.Add(-n)
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive batches as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Batch {
	out := make(chan Batch)
	go func() {
		defer close(out)
		for b := range q.batches {
			q.samples.Add(-int64(len(b.Samples)))
			select {
			case out <- b:
				metrics.RecordQueueDequeue()
				if !b.ReceivedAt.IsZero() {
					metrics.RecordQueueProcessingLatency(float64(time.Since(b.ReceivedAt).Milliseconds()))
				}
				q.observe()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued batches.
func (q *InMemoryQueue) Len(_ context.Context) int {
	q.observe()
	return len(q.batches)
}

// Samples returns the number of samples currently queued.
func (q *InMemoryQueue) Samples() int64 {
	return q.samples.Load()
}

func (q *InMemoryQueue) observe() {
	size := len(q.batches)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Close stops accepting batches; queued batches are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.batches)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
