package summary

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/okian/pitchtrace/internal/domain/model"
)

// Summarizer stamps summaries computed with a fixed profile.
type Summarizer struct {
	profile Profile
	now     func() time.Time
	newID   func() string
}

// NewSummarizer creates a summarizer with the default profile unless
// overridden by options.
func NewSummarizer(opts ...Option) *Summarizer {
	s := &Summarizer{
		profile: DefaultProfile(),
		now:     time.Now,
		newID:   uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Profile returns the profile in use.
func (s *Summarizer) Profile() Profile { return s.profile }

// Summarize computes one session. samples must belong to one player and be
// sorted by timestamp.
func (s *Summarizer) Summarize(ctx context.Context, samples []model.RawSample) (model.SessionSummary, error) {
	if err := ctx.Err(); err != nil {
		return model.SessionSummary{}, fmt.Errorf("context cancelled: %w", err)
	}
	out := Compute(samples, s.profile)
	out.ID = s.newID()
	out.CreatedAt = s.now().UTC()
	return out, nil
}

// SummarizeAll groups mixed samples by player and summarizes each group.
// Results are ordered by player id.
func (s *Summarizer) SummarizeAll(ctx context.Context, samples []model.RawSample) ([]model.SessionSummary, error) {
	groups := GroupByPlayer(samples)
	out := make([]model.SessionSummary, 0, len(groups))
	for _, g := range groups {
		sum, err := s.Summarize(ctx, g)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

// GroupByPlayer splits samples per player, ascending by player id, each
// group stably sorted by timestamp. The input is not modified.
func GroupByPlayer(samples []model.RawSample) [][]model.RawSample {
	byPlayer := make(map[int64][]model.RawSample)
	ids := make([]int64, 0)
	for _, smp := range samples {
		if _, ok := byPlayer[smp.PlayerID]; !ok {
			ids = append(ids, smp.PlayerID)
		}
		byPlayer[smp.PlayerID] = append(byPlayer[smp.PlayerID], smp)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	groups := make([][]model.RawSample, 0, len(ids))
	for _, id := range ids {
		g := byPlayer[id]
		sort.SliceStable(g, func(i, j int) bool { return g[i].Timestamp.Before(g[j].Timestamp) })
		groups = append(groups, g)
	}
	return groups
}
