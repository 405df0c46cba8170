package repository

import (
	"time"

	"github.com/okian/pitchtrace/pkg/logger"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithSampleRetention caps how many raw samples are kept; the oldest are
// dropped first.
func WithSampleRetention(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxSamples = n
		}
	}
}

// PostgresOption applies a configuration option to the PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresLogger sets the store logger.
func WithPostgresLogger(l logger.Logger) PostgresOption {
	return func(s *PostgresStore) {
		if l != nil {
			s.logger = l
		}
	}
}
