package dedupe

import (
	"time"

	"github.com/okian/pitchtrace/pkg/logger"
)

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered ids. maxSize <= 0 disables
// eviction.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithTTL forgets ids older than ttl.
func WithTTL(ttl time.Duration) Option {
	return func(d *inMemoryDeduper) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(d *inMemoryDeduper) {
		if now != nil {
			d.now = now
		}
	}
}

// RedisOption applies a configuration option to the Redis deduper.
type RedisOption func(*RedisDeduper)

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(d *RedisDeduper) {
		if prefix != "" {
			d.prefix = prefix
		}
	}
}

// WithRedisTTL sets how long ids are remembered.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(d *RedisDeduper) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for Redis failures.
func WithLogger(l logger.Logger) RedisOption {
	return func(d *RedisDeduper) {
		if l != nil {
			d.logger = l
		}
	}
}
