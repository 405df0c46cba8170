// Package service wires the queue, workers, dedupe and store into the
// operations the HTTP API and the stream consumers depend on.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	batchqueue "github.com/okian/pitchtrace/internal/adapters/mq/queue"
	workerpool "github.com/okian/pitchtrace/internal/adapters/mq/worker"
	"github.com/okian/pitchtrace/internal/adapters/repository"
	"github.com/okian/pitchtrace/internal/domain/dedupe"
	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/internal/domain/summary"
	"github.com/okian/pitchtrace/pkg/logger"
	"github.com/okian/pitchtrace/pkg/metrics"
)

// Sentinel errors returned by the service.
var (
	ErrNotStarted  = errors.New("service not started")
	ErrDuplicate   = errors.New("duplicate batch")
	ErrEmptyBatch  = errors.New("batch has no samples")
	ErrBatchTooBig = errors.New("batch exceeds the sample limit")
)

// Service implements the API dependencies for session summaries.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	queue      batchqueue.Queue
	summarizer *summary.Summarizer
	processor  *workerpool.Processor
	workerPool *workerpool.Pool

	// Configuration
	workerCount      int
	queueSize        int
	maxQueuedSamples int64
	maxBatchSamples  int
	dedupeSize       int
	dedupeTTL        time.Duration
	profile          summary.Profile
	now              func() time.Time

	started    bool
	cancelPool context.CancelFunc
	logger     logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued batches.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxQueuedSamples bounds the samples held across queued batches.
func WithMaxQueuedSamples(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxQueuedSamples = n
		}
	}
}

// WithMaxBatchSamples bounds the samples accepted in one batch.
func WithMaxBatchSamples(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSamples = n
		}
	}
}

// WithDedupeSize sets the size of the in-memory deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDedupeTTL sets how long batch ids are remembered.
func WithDedupeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.dedupeTTL = ttl
		}
	}
}

// WithDeduper replaces the in-memory deduper, e.g. with a Redis one.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithStore replaces the in-memory store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithProfile sets the summary thresholds.
func WithProfile(p summary.Profile) Option {
	return func(s *Service) {
		s.profile = p
	}
}

// WithClock overrides the clock used to stamp summaries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU() * 2,
		queueSize:        10000,
		maxQueuedSamples: 5_000_000,
		maxBatchSamples:  500_000,
		dedupeSize:       50000,
		dedupeTTL:        24 * time.Hour,
		profile:          summary.DefaultProfile(),
		now:              time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if err := s.profile.Validate(); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	s.logger.Info(ctx, "starting summary service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.logger.Info(ctx, "using memory store")
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(
			dedupe.WithMaxSize(s.dedupeSize),
			dedupe.WithTTL(s.dedupeTTL),
		)
	}
	s.queue = batchqueue.NewInMemoryQueue(
		batchqueue.WithCapacity(s.queueSize),
		batchqueue.WithMaxSamples(s.maxQueuedSamples),
	)
	s.summarizer = summary.NewSummarizer(
		summary.WithProfile(s.profile),
		summary.WithClock(s.now),
	)
	s.processor = workerpool.NewProcessor(s.summarizer, s.store)
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s.processor)
	// workers outlive the caller's ctx so Stop can drain accepted batches
	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelPool = cancel
	s.workerPool.Start(poolCtx)

	s.started = true
	s.logger.Info(ctx, "summary service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop drains queued batches and closes the store.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(ctx, "stopping summary service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.cancelPool()
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "summary service stopped")
}

// Ingest processes a batch synchronously and returns the stored summaries.
func (s *Service) Ingest(ctx context.Context, b model.Batch) ([]model.SessionSummary, error) { //nolint:gocritic // hugeParam: Batch mirrors the queue value semantics
	proc, err := s.admit(ctx, &b)
	if err != nil {
		return nil, err
	}

	sums, err := proc.Process(ctx, b)
	if err != nil && len(sums) == 0 && b.ID != "" {
		// nothing was summarized; let the client retry the same id
		s.deduper.Unrecord(ctx, b.ID)
	}
	return sums, err
}

// Enqueue submits a batch for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, b model.Batch) error { //nolint:gocritic // hugeParam: Batch mirrors the queue value semantics
	if _, err := s.admit(ctx, &b); err != nil {
		return err
	}

	if err := s.queue.Enqueue(ctx, b); err != nil {
		if b.ID != "" {
			s.deduper.Unrecord(ctx, b.ID)
		}
		return err
	}
	return nil
}

// admit validates and deduplicates a batch and stamps its receive time.
func (s *Service) admit(ctx context.Context, b *model.Batch) (*workerpool.Processor, error) {
	s.mu.RLock()
	started, proc := s.started, s.processor
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	if len(b.Samples) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(b.Samples) > s.maxBatchSamples {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooBig, len(b.Samples), s.maxBatchSamples)
	}
	if b.ReceivedAt.IsZero() {
		b.ReceivedAt = s.now()
	}

	metrics.RecordBatch(b.Source)
	if b.ID != "" && s.deduper.SeenAndRecord(ctx, b.ID) {
		metrics.RecordBatchDuplicate()
		s.logger.Debug(ctx, "duplicate batch detected, skipping",
			logger.String("batch_id", b.ID),
			logger.String("source", b.Source),
		)
		return nil, ErrDuplicate
	}
	return proc, nil
}

// All returns every stored summary, newest first.
func (s *Service) All(ctx context.Context) ([]model.SessionSummary, error) {
	return s.store.All(ctx)
}

// Players returns the distinct players with summaries.
func (s *Service) Players(ctx context.Context) ([]int64, error) {
	return s.store.Players(ctx)
}

// MatchDates returns the distinct match days, newest first.
func (s *Service) MatchDates(ctx context.Context) ([]string, error) {
	return s.store.MatchDates(ctx)
}

// PlayerMatchDates returns the match days of one player, newest first.
func (s *Service) PlayerMatchDates(ctx context.Context, playerID int64) ([]string, error) {
	return s.store.PlayerMatchDates(ctx, playerID)
}

// DayPlayers returns the players who played on day.
func (s *Service) DayPlayers(ctx context.Context, day string) ([]int64, error) {
	return s.store.DayPlayers(ctx, day)
}

// ByDay returns the day's summaries for the given players.
func (s *Service) ByDay(ctx context.Context, day string, playerIDs []int64) ([]model.SessionSummary, error) {
	return s.store.ByDay(ctx, day, playerIDs)
}

// PlayerHistory returns a player's summaries over the given days.
func (s *Service) PlayerHistory(ctx context.Context, playerID int64, days []string) ([]model.SessionSummary, error) {
	return s.store.PlayerHistory(ctx, playerID, days)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["processedBatches"] = s.workerPool.Processed()
		stats["dedupeEntries"] = s.deduper.Size()
		if n, err := s.store.Count(ctx); err == nil {
			stats["totalSummaries"] = n
		}
		if players, err := s.store.Players(ctx); err == nil {
			stats["totalPlayers"] = len(players)
			metrics.UpdateTotalPlayers(len(players))
		}

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
