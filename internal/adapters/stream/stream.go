// Package stream consumes tracker readings pushed over Kafka or MQTT and
// hands them to the service as batches.
package stream

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/okian/pitchtrace/internal/adapters/ingest/tracker"
	"github.com/okian/pitchtrace/internal/adapters/mq/queue"
	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/pkg/metrics"
)

// Message outcomes recorded per transport.
const (
	outcomeAccepted    = "accepted"
	outcomeDecodeError = "decode_error"
	outcomeRejected    = "rejected"
)

const (
	retryBackoff    = 100 * time.Millisecond
	maxRetryBackoff = 5 * time.Second
)

// Sink accepts decoded batches, typically the service's async path.
type Sink interface {
	Enqueue(ctx context.Context, b model.Batch) error
}

// Retryable reports whether a sink error is transient.
type Retryable func(error) bool

func queueFull(err error) bool { return errors.Is(err, queue.ErrFull) }

// deliver decodes payload and pushes it to sink, backing off while the sink
// reports a transient error. It returns the outcome label.
func deliver(ctx context.Context, sink Sink, retryable Retryable, transport, source, id string, payload []byte) (string, error) {
	samples, err := tracker.DecodeJSON(bytes.NewReader(payload))
	if err != nil {
		metrics.RecordStreamMessage(transport, outcomeDecodeError)
		return outcomeDecodeError, err
	}

	b := model.Batch{ID: id, Source: source, Samples: samples, ReceivedAt: time.Now()}
	backoff := retryBackoff
	for {
		err = sink.Enqueue(ctx, b)
		if err == nil {
			metrics.RecordStreamMessage(transport, outcomeAccepted)
			return outcomeAccepted, nil
		}
		if !retryable(err) {
			metrics.RecordStreamMessage(transport, outcomeRejected)
			return outcomeRejected, err
		}
		select {
		case <-ctx.Done():
			metrics.RecordStreamMessage(transport, outcomeRejected)
			return outcomeRejected, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
}
