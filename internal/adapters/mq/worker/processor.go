package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/internal/domain/summary"
	"github.com/okian/pitchtrace/pkg/logger"
	"github.com/okian/pitchtrace/pkg/metrics"
)

// Summarizer reduces one player's ordered samples to a summary.
type Summarizer interface {
	Summarize(ctx context.Context, samples []model.RawSample) (model.SessionSummary, error)
}

// Store persists what a batch produces.
type Store interface {
	SaveSamples(ctx context.Context, samples []model.RawSample) (int, error)
	Save(ctx context.Context, s model.SessionSummary) error
}

// Processor turns a batch into stored samples and per-player summaries.
// It is shared by the synchronous upload path and the workers.
type Processor struct {
	summarizer Summarizer
	store      Store
	logger     logger.Logger
}

// NewProcessor creates a processor.
func NewProcessor(summarizer Summarizer, store Store) *Processor {
	return &Processor{
		summarizer: summarizer,
		store:      store,
		logger:     logger.Get().Named("processor"),
	}
}

// Process stores the batch samples, then summarizes and stores each player's
// session. Summaries that were stored are returned even when another player
// failed; the failures are joined into the error.
func (p *Processor) Process(ctx context.Context, b model.Batch) ([]model.SessionSummary, error) { //nolint:gocritic // hugeParam: Batch is passed by value through the queue
	if len(b.Samples) == 0 {
		return []model.SessionSummary{}, nil
	}

	if _, err := p.store.SaveSamples(ctx, b.Samples); err != nil {
		metrics.RecordStoreError()
		metrics.RecordErrorByComponent("worker", "store_samples")
		return nil, fmt.Errorf("store samples of batch %s: %w", b.ID, err)
	}
	metrics.RecordSamplesIngested(len(b.Samples))

	groups := summary.GroupByPlayer(b.Samples)
	out := make([]model.SessionSummary, 0, len(groups))
	var errs []error
	for _, g := range groups {
		sum, err := p.summarize(ctx, g)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.store.Save(ctx, sum); err != nil {
			metrics.RecordStoreError()
			metrics.RecordErrorByComponent("worker", "store_summary")
			errs = append(errs, fmt.Errorf("store summary of player %d: %w", sum.PlayerID, err))
			continue
		}
		out = append(out, sum)
	}

	if len(errs) > 0 {
		p.logger.Error(ctx, "batch partially processed",
			logger.String("batch_id", b.ID),
			logger.Int("summaries", len(out)),
			logger.Int("failures", len(errs)),
		)
	}
	return out, errors.Join(errs...)
}

func (p *Processor) summarize(ctx context.Context, samples []model.RawSample) (model.SessionSummary, error) {
	start := time.Now()
	sum, err := p.summarizer.Summarize(ctx, samples)
	metrics.RecordComputeLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordComputeError()
		metrics.RecordErrorByType("compute_error", "high")
		return model.SessionSummary{}, fmt.Errorf("summarize player %d: %w", samples[0].PlayerID, err)
	}
	metrics.RecordSummaryComputed(sum.SkippedIntervals, sum.SprintCount, sum.Accelerations, sum.Decelerations)
	return sum, nil
}
