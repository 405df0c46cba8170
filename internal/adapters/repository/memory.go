package repository

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/pkg/metrics"
)

const (
	defaultSampleRetention       = 1_000_000
	defaultMetricsUpdateInterval = 5 * time.Second
)

// index is an immutable view of the distinct keys queried by the API.
type index struct {
	players    []int64
	days       []string
	playerDays map[int64][]string
	dayPlayers map[string][]int64
}

// MemoryStore keeps everything in process. Summaries are never evicted;
// raw samples are capped by retention.
type MemoryStore struct {
	mu        sync.RWMutex
	summaries []model.SessionSummary
	samples   []model.RawSample

	// key sets behind the published index
	playerSet map[int64]struct{}
	daySet    map[string]map[int64]struct{}
	pdSet     map[int64]map[string]struct{}

	idx atomic.Pointer[index]

	maxSamples            int
	metricsUpdateInterval time.Duration
	closed                atomic.Bool
	stop                  chan struct{}
	closeOnce             sync.Once
}

// NewMemoryStore creates an in-memory store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		playerSet:             make(map[int64]struct{}),
		daySet:                make(map[string]map[int64]struct{}),
		pdSet:                 make(map[int64]map[string]struct{}),
		maxSamples:            defaultSampleRetention,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stop:                  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.idx.Store(&index{playerDays: map[int64][]string{}, dayPlayers: map[string][]int64{}})
	s.startMetricsUpdater(ctx)
	return s
}

// SaveSamples appends samples, dropping the oldest beyond retention.
func (s *MemoryStore) SaveSamples(ctx context.Context, samples []model.RawSample) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	start := time.Now()
	defer observe(start, true)

	s.mu.Lock()
	s.samples = append(s.samples, samples...)
	if over := len(s.samples) - s.maxSamples; over > 0 {
		s.samples = append(s.samples[:0:0], s.samples[over:]...)
	}
	s.mu.Unlock()
	return len(samples), nil
}

// Save appends a summary and republishes the key index.
func (s *MemoryStore) Save(ctx context.Context, sum model.SessionSummary) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer observe(start, true)

	day := sum.Day()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, sum)

	s.playerSet[sum.PlayerID] = struct{}{}
	if s.daySet[day] == nil {
		s.daySet[day] = make(map[int64]struct{})
	}
	s.daySet[day][sum.PlayerID] = struct{}{}
	if s.pdSet[sum.PlayerID] == nil {
		s.pdSet[sum.PlayerID] = make(map[string]struct{})
	}
	s.pdSet[sum.PlayerID][day] = struct{}{}

	s.publishIndex()
	return nil
}

// publishIndex rebuilds the key index. Callers hold s.mu.
func (s *MemoryStore) publishIndex() {
	idx := &index{
		players:    sortedIDs(s.playerSet),
		playerDays: make(map[int64][]string, len(s.pdSet)),
		dayPlayers: make(map[string][]int64, len(s.daySet)),
	}
	days := make(map[string]struct{}, len(s.daySet))
	for d, ps := range s.daySet {
		days[d] = struct{}{}
		idx.dayPlayers[d] = sortedIDs(ps)
	}
	idx.days = sortedDaysDesc(days)
	for p, ds := range s.pdSet {
		idx.playerDays[p] = sortedDaysDesc(ds)
	}
	s.idx.Store(idx)
}

// All returns every summary, newest first.
func (s *MemoryStore) All(ctx context.Context) ([]model.SessionSummary, error) {
	start := time.Now()
	defer observe(start, false)

	s.mu.RLock()
	out := append([]model.SessionSummary(nil), s.summaries...)
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

// Players returns distinct players, ascending.
func (s *MemoryStore) Players(ctx context.Context) ([]int64, error) {
	return append([]int64{}, s.idx.Load().players...), nil
}

// MatchDates returns distinct days, newest first.
func (s *MemoryStore) MatchDates(ctx context.Context) ([]string, error) {
	return append([]string{}, s.idx.Load().days...), nil
}

// PlayerMatchDates returns the player's days, newest first.
func (s *MemoryStore) PlayerMatchDates(ctx context.Context, playerID int64) ([]string, error) {
	return append([]string{}, s.idx.Load().playerDays[playerID]...), nil
}

// DayPlayers returns players with a summary on day, ascending.
func (s *MemoryStore) DayPlayers(ctx context.Context, day string) ([]int64, error) {
	if _, _, err := dayRange(day); err != nil {
		return nil, err
	}
	return append([]int64{}, s.idx.Load().dayPlayers[day]...), nil
}

// ByDay returns the day's summaries for the given players.
func (s *MemoryStore) ByDay(ctx context.Context, day string, playerIDs []int64) ([]model.SessionSummary, error) {
	if _, _, err := dayRange(day); err != nil {
		return nil, err
	}
	start := time.Now()
	defer observe(start, false)

	want := make(map[int64]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		want[id] = struct{}{}
	}

	out := make([]model.SessionSummary, 0)
	s.mu.RLock()
	for _, sum := range s.summaries {
		if _, ok := want[sum.PlayerID]; ok && sum.Day() == day {
			out = append(out, sum)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PlayerID != out[j].PlayerID {
			return out[i].PlayerID < out[j].PlayerID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// PlayerHistory returns the player's summaries on any of days, newest first.
func (s *MemoryStore) PlayerHistory(ctx context.Context, playerID int64, days []string) ([]model.SessionSummary, error) {
	start := time.Now()
	defer observe(start, false)

	want := make(map[string]struct{}, len(days))
	for _, d := range days {
		if _, _, err := dayRange(d); err != nil {
			return nil, err
		}
		want[d] = struct{}{}
	}

	out := make([]model.SessionSummary, 0)
	s.mu.RLock()
	for _, sum := range s.summaries {
		if sum.PlayerID != playerID {
			continue
		}
		if _, ok := want[sum.Day()]; ok {
			out = append(out, sum)
		}
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

// Count returns the number of stored summaries.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.summaries), nil
}

// SampleCount returns the number of retained raw samples.
func (s *MemoryStore) SampleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// Close stops the metrics updater. Further writes fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stop)
	})
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	summaries, samples := len(s.summaries), len(s.samples)
	s.mu.RUnlock()

	metrics.UpdateRepositorySummariesTotal(summaries)
	metrics.UpdateRepositorySamplesTotal(samples)
	metrics.UpdateTotalPlayers(len(s.idx.Load().players))
}

func sortedIDs(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedDaysDesc(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	// DayLayout sorts lexically in date order.
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

func sortNewestFirst(out []model.SessionSummary) {
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
}
