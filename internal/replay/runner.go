package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/pitchtrace/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Polling used while queued batches are summarized.
const (
	settlePollInterval = 250 * time.Millisecond
	settleTimeout      = 2 * time.Minute
)

// ErrIncomplete reports that not every generated player was summarized.
var ErrIncomplete = errors.New("replay incomplete")

// Run generates sessions, uploads them and verifies the service summarized
// every player.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	cfg := config.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting pitchtrace replay",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("workers", cfg.Workers),
		logger.Bool("async", cfg.Async),
		logger.Bool("duplicates", cfg.Duplicates))

	if err := checkServiceHealth(ctx, &cfg); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	batches, err := generateBatches(ctx, &cfg, stats)
	if err != nil {
		return stats, fmt.Errorf("session generation failed: %w", err)
	}

	submitBatches(ctx, &cfg, batches, stats)
	if cfg.Duplicates {
		submitBatches(ctx, &cfg, batches, stats)
	}

	if err := verifyResults(ctx, &cfg, batches, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	if cfg.OutputFile != "" {
		if err := saveBatchesToFile(ctx, cfg.OutputFile, batches); err != nil {
			log.Warn(ctx, "failed to save batches to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, cfg *Config) error {
	client := newHTTPClient(cfg.Timeout)
	resp, err := client.Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != 200 {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveBatchesToFile writes the generated batches as a JSON array.
func saveBatchesToFile(ctx context.Context, filename string, batches []Batch) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.Marshal(batches)
	if err != nil {
		return fmt.Errorf("failed to marshal batches: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "batches saved to file", logger.String("filename", filename))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var samplesPerSecond float64
	if stats.Duration > 0 {
		samplesPerSecond = float64(stats.SamplesGenerated) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("samplesGenerated", stats.SamplesGenerated),
		logger.Int("batchesGenerated", stats.BatchesGenerated),
		logger.Int("batchesSubmitted", stats.BatchesSubmitted),
		logger.Int("batchesSuccessful", stats.BatchesSuccessful),
		logger.Int("batchesDuplicate", stats.BatchesDuplicate),
		logger.Int("batchesRejected", stats.BatchesRejected),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("playersVerified", stats.PlayersVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("samplesPerSecond", samplesPerSecond))
}
