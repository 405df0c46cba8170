package dedupe

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/okian/pitchtrace/pkg/logger"
	"github.com/okian/pitchtrace/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "pitchtrace:batch:"
	defaultRedisTTL  = 24 * time.Hour
)

// ErrNoRedis is returned when no Redis address is configured.
var ErrNoRedis = errors.New("redis address not configured")

// RedisDeduper shares seen ids between instances with SET NX and a TTL.
// When Redis is unreachable it fails open and treats ids as new.
type RedisDeduper struct {
	client   redis.UniversalClient
	prefix   string
	ttl      time.Duration
	recorded atomic.Int64
	logger   logger.Logger
}

// NewRedisDeduper wraps an existing client.
func NewRedisDeduper(client redis.UniversalClient, opts ...RedisOption) *RedisDeduper {
	d := &RedisDeduper{
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    defaultRedisTTL,
		logger: logger.Get().Named("dedupe"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// ConnectRedis returns a client for addr, or ErrNoRedis when addr is empty.
func ConnectRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, ErrNoRedis
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (d *RedisDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	set, err := d.client.SetNX(ctx, d.prefix+id, 1, d.ttl).Result()
	if err != nil {
		metrics.RecordErrorByComponent("dedupe", "redis_error")
		d.logger.Warn(ctx, "redis dedupe check failed", logger.String("batch_id", id), logger.Error(err))
		return false
	}
	if set {
		d.recorded.Add(1)
	}
	return !set
}

func (d *RedisDeduper) Unrecord(ctx context.Context, id string) {
	n, err := d.client.Del(ctx, d.prefix+id).Result()
	if err != nil {
		metrics.RecordErrorByComponent("dedupe", "redis_error")
		d.logger.Warn(ctx, "redis dedupe unrecord failed", logger.String("batch_id", id), logger.Error(err))
		return
	}
	if n > 0 {
		d.recorded.Add(-1)
	}
}

// Size returns the number of ids recorded by this instance.
func (d *RedisDeduper) Size() int64 {
	return d.recorded.Load()
}
