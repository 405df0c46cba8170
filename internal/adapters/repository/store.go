// Package repository persists raw tracker samples and session summaries and
// answers the match-day queries over them.
package repository

import (
	"context"
	"time"

	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/pkg/metrics"
)

// Store provides read/write access to samples and summaries. Days are UTC
// calendar days formatted with model.DayLayout.
type Store interface {
	// SaveSamples appends raw readings and returns how many were stored.
	SaveSamples(ctx context.Context, samples []model.RawSample) (int, error)
	// Save stores one summary.
	Save(ctx context.Context, s model.SessionSummary) error

	// All returns every summary, newest first.
	All(ctx context.Context) ([]model.SessionSummary, error)
	// Players returns distinct player ids with a summary, ascending.
	Players(ctx context.Context) ([]int64, error)
	// MatchDates returns distinct summary days, newest first.
	MatchDates(ctx context.Context) ([]string, error)
	// PlayerMatchDates returns the days a player has summaries, newest first.
	PlayerMatchDates(ctx context.Context, playerID int64) ([]string, error)
	// DayPlayers returns distinct players with a summary on day, ascending.
	DayPlayers(ctx context.Context, day string) ([]int64, error)
	// ByDay returns the summaries of the given players on day, ordered by
	// player id then creation time.
	ByDay(ctx context.Context, day string, playerIDs []int64) ([]model.SessionSummary, error)
	// PlayerHistory returns a player's summaries on any of days, newest first.
	PlayerHistory(ctx context.Context, playerID int64, days []string) ([]model.SessionSummary, error)

	// Count returns the number of stored summaries.
	Count(ctx context.Context) (int, error)

	Close() error
}

// dayRange returns the [start, end) instants of a UTC day.
func dayRange(day string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(model.DayLayout, day, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDay
	}
	return start, start.AddDate(0, 0, 1), nil
}

func observe(start time.Time, write bool) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	if write {
		metrics.RecordRepositoryUpdateLatency(ms)
		return
	}
	metrics.RecordRepositoryQueryLatency(ms)
}
