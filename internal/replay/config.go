// Package replay generates synthetic tracker sessions and replays them
// against a running pitchtrace service.
package replay

import (
	"time"

	"github.com/okian/pitchtrace/internal/adapters/ingest/tracker"
)

// Config holds configuration for a replay run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Players    int           // Number of simulated players
	Duration   time.Duration // Session length per player
	Rate       int           // Readings per second
	Workers    int           // Number of concurrent uploaders
	Timeout    time.Duration // HTTP request timeout
	Async      bool          // Use queued uploads
	Duplicates bool          // Resend every batch once to exercise dedupe
	Seed       uint64        // Seed for the session generator
	Start      time.Time     // Session start; zero means now
	OutputFile string        // Output file for generated batches
	Verbose    bool          // Enable verbose logging
}

// Batch is one player's session as uploaded to /data/upload.
type Batch struct {
	ID       string           `json:"batch_id"`
	PlayerID int64            `json:"player_id"`
	Readings []tracker.Reading `json:"readings"`
}

// Ack mirrors the service acknowledgement for queued and duplicate uploads.
type Ack struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds replay statistics.
type Stats struct {
	SamplesGenerated  int
	BatchesGenerated  int
	BatchesSubmitted  int
	BatchesSuccessful int
	BatchesDuplicate  int
	BatchesRejected   int
	BatchesFailed     int
	PlayersVerified   int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// Replay defaults.
const (
	DefaultPlayers  = 22
	DefaultDuration = 10 * time.Minute
	DefaultRate     = 10
	DefaultTimeout  = 30 * time.Second
)

func (c *Config) withDefaults() Config {
	out := *c
	if out.Players <= 0 {
		out.Players = DefaultPlayers
	}
	if out.Duration <= 0 {
		out.Duration = DefaultDuration
	}
	if out.Rate <= 0 {
		out.Rate = DefaultRate
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Start.IsZero() {
		out.Start = time.Now().UTC().Truncate(time.Second)
	}
	return out
}
