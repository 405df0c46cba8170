// Package config defines service configuration and its koanf loader.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/pitchtrace/internal/domain/heartrate"
	"github.com/okian/pitchtrace/internal/domain/kinematics"
	"github.com/okian/pitchtrace/internal/domain/segment"
	"github.com/okian/pitchtrace/internal/domain/summary"
	"github.com/okian/pitchtrace/internal/domain/workload"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration. Keys are flat and map 1:1 to
// PITCH_<KEY> environment variables.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory batch queue; MaxQueuedSamples bounds
	// the readings held across all queued batches.
	QueueSize        int   `koanf:"queue_size"`
	MaxQueuedSamples int64 `koanf:"max_queued_samples"`

	// WorkerCount sets the number of summarizing workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the in-memory batch id cache; DedupeTTLSeconds
	// expires entries in both the memory and Redis caches.
	DedupeSize       int `koanf:"dedupe_size"`
	DedupeTTLSeconds int `koanf:"dedupe_ttl_seconds"`

	// MaxUploadSamples caps the number of readings per upload.
	MaxUploadSamples int `koanf:"max_upload_samples"`

	// Store selects memory or postgres persistence.
	Store       string `koanf:"store"`
	PostgresURL string `koanf:"postgres_url"`

	// RedisAddr enables the shared Redis deduper when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`

	// KafkaBrokers is a comma separated list; empty disables the consumer.
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`
	KafkaGroupID string `koanf:"kafka_group_id"`

	// MQTTBroker is a broker URL like tcp://host:1883; empty disables MQTT.
	MQTTBroker   string `koanf:"mqtt_broker"`
	MQTTTopic    string `koanf:"mqtt_topic"`
	MQTTClientID string `koanf:"mqtt_client_id"`

	// TrackerTimeoutMS bounds CSV downloads from the tracker.
	TrackerTimeoutMS int `koanf:"tracker_timeout_ms"`

	// CORSOrigins is a comma separated allow list; "*" allows any origin.
	CORSOrigins string `koanf:"cors_origins"`

	// Summary profile.
	HSRSpeed         float64 `koanf:"hsr_speed"`
	SprintSpeed      float64 `koanf:"sprint_speed"`
	EventAccel       float64 `koanf:"event_accel"`
	MinEventDuration float64 `koanf:"min_event_duration"`
	PlayerLoadScale  float64 `koanf:"player_load_scale"`
	MetabolicC0      float64 `koanf:"metabolic_c0"`
	MetabolicC1      float64 `koanf:"metabolic_c1"`
	Gravity          float64 `koanf:"gravity"`
	RedZoneFraction  float64 `koanf:"red_zone_fraction"`
	AthleteAge       float64 `koanf:"athlete_age"`
	RecoveryDivisor  float64 `koanf:"recovery_divisor"`
	DistanceSource   string  `koanf:"distance_source"`
	SpeedSource      string  `koanf:"speed_source"`
	EventCounting    string  `koanf:"event_counting"`
	FlushOpenRuns    bool    `koanf:"flush_open_runs"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":3000",
		QueueSize:        10_000,
		MaxQueuedSamples: 5_000_000,
		WorkerCount:      runtime.NumCPU() * 2,
		DedupeSize:       50_000,
		DedupeTTLSeconds: 86_400,
		MaxUploadSamples: 500_000,
		Store:            StoreMemory,
		KafkaTopic:       "tracker.readings",
		KafkaGroupID:     "pitchtrace",
		MQTTTopic:        "tracker/readings",
		MQTTClientID:     "pitchtrace",
		TrackerTimeoutMS: 10_000,
		CORSOrigins:      "*",
		HSRSpeed:         summary.DefaultHSRSpeed,
		SprintSpeed:      segment.DefaultSprintSpeed,
		EventAccel:       segment.DefaultEventAccel,
		MinEventDuration: segment.DefaultMinDuration,
		PlayerLoadScale:  workload.DefaultLoadScale,
		MetabolicC0:      kinematics.DefaultC0,
		MetabolicC1:      kinematics.DefaultC1,
		Gravity:          kinematics.StandardGravity,
		RedZoneFraction:  heartrate.DefaultRedZoneFraction,
		AthleteAge:       heartrate.DefaultAge,
		RecoveryDivisor:  heartrate.DefaultRecoveryDivisor,
		DistanceSource:   string(kinematics.DistanceFromPosition),
		SpeedSource:      string(kinematics.SpeedDerived),
		EventCounting:    string(segment.CountRunDuration),
	}
}

// Profile builds the summary profile from the threshold keys.
func (c *Config) Profile() summary.Profile {
	return summary.Profile{
		HSRSpeed:         c.HSRSpeed,
		SprintSpeed:      c.SprintSpeed,
		EventAccel:       c.EventAccel,
		MinEventDuration: c.MinEventDuration,
		PlayerLoadScale:  c.PlayerLoadScale,
		MetabolicC0:      c.MetabolicC0,
		MetabolicC1:      c.MetabolicC1,
		Gravity:          c.Gravity,
		RedZoneFraction:  c.RedZoneFraction,
		AthleteAge:       c.AthleteAge,
		RecoveryDivisor:  c.RecoveryDivisor,
		DistanceSource:   kinematics.DistanceSource(strings.ToLower(c.DistanceSource)),
		SpeedSource:      kinematics.SpeedSource(strings.ToLower(c.SpeedSource)),
		Counting:         segment.Counting(strings.ToLower(c.EventCounting)),
		FlushOpenRuns:    c.FlushOpenRuns,
	}
}

// Brokers splits KafkaBrokers.
func (c *Config) Brokers() []string { return splitList(c.KafkaBrokers) }

// Origins splits CORSOrigins.
func (c *Config) Origins() []string { return splitList(c.CORSOrigins) }

// DedupeTTL returns DedupeTTLSeconds as a duration.
func (c *Config) DedupeTTL() time.Duration {
	return time.Duration(c.DedupeTTLSeconds) * time.Second
}

// TrackerTimeout returns TrackerTimeoutMS as a duration.
func (c *Config) TrackerTimeout() time.Duration {
	return time.Duration(c.TrackerTimeoutMS) * time.Millisecond
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.MaxQueuedSamples <= 0 {
		return fmt.Errorf("%w: max_queued_samples must be positive", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("%w: postgres_url is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	if c.KafkaBrokers != "" && c.KafkaTopic == "" {
		return fmt.Errorf("%w: kafka_topic must not be empty", ErrInvalidConfig)
	}
	if c.MQTTBroker != "" && c.MQTTTopic == "" {
		return fmt.Errorf("%w: mqtt_topic must not be empty", ErrInvalidConfig)
	}
	if err := c.Profile().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
