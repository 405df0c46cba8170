package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/pkg/logger"
	"github.com/okian/pitchtrace/pkg/metrics"
)

// ErrNoDatabaseURL is returned by ConnectPostgres without a URL.
var ErrNoDatabaseURL = errors.New("database url is empty")

// Querier is the subset of a pgx pool used by PostgresStore.
// Both *pgxpool.Pool and pgxmock pools satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// ConnectPostgres opens a pool and verifies it with a ping.
func ConnectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, ErrNoDatabaseURL
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS raw_data (
	id BIGSERIAL PRIMARY KEY,
	player_id BIGINT NOT NULL,
	lat DOUBLE PRECISION NOT NULL,
	lon DOUBLE PRECISION NOT NULL,
	gyro_w DOUBLE PRECISION NOT NULL,
	gyro_x DOUBLE PRECISION NOT NULL,
	gyro_y DOUBLE PRECISION NOT NULL,
	gyro_z DOUBLE PRECISION NOT NULL,
	distance DOUBLE PRECISION NOT NULL,
	speed DOUBLE PRECISION NOT NULL,
	heartrate DOUBLE PRECISION NOT NULL,
	timestamp TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS calculated_data (
	id TEXT PRIMARY KEY,
	player_id BIGINT NOT NULL,
	total_distance DOUBLE PRECISION NOT NULL,
	hsr_distance DOUBLE PRECISION NOT NULL,
	sprint_distance DOUBLE PRECISION NOT NULL,
	top_speed DOUBLE PRECISION NOT NULL,
	sprint_count INTEGER NOT NULL,
	accelerations INTEGER NOT NULL,
	decelerations INTEGER NOT NULL,
	max_acceleration DOUBLE PRECISION NOT NULL,
	max_deceleration DOUBLE PRECISION NOT NULL,
	player_load DOUBLE PRECISION NOT NULL,
	power_score DOUBLE PRECISION NOT NULL,
	hr_max DOUBLE PRECISION NOT NULL,
	hr_max_estimated BOOLEAN NOT NULL,
	time_in_red_zone INTEGER NOT NULL,
	percent_in_red_zone DOUBLE PRECISION NOT NULL,
	hr_recovery_time DOUBLE PRECISION NOT NULL,
	samples INTEGER NOT NULL,
	intervals INTEGER NOT NULL,
	skipped_intervals INTEGER NOT NULL,
	duration_s DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS calculated_data_player_created ON calculated_data (player_id, created_at);
`

const summaryColumns = `id, player_id, total_distance, hsr_distance, sprint_distance, top_speed,
	sprint_count, accelerations, decelerations, max_acceleration, max_deceleration,
	player_load, power_score, hr_max, hr_max_estimated, time_in_red_zone,
	percent_in_red_zone, hr_recovery_time, samples, intervals, skipped_intervals,
	duration_s, created_at`

// utcDay renders created_at as a UTC match day.
const utcDay = `to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')`

var rawColumns = []string{
	"player_id", "lat", "lon", "gyro_w", "gyro_x", "gyro_y", "gyro_z",
	"distance", "speed", "heartrate", "timestamp",
}

// PostgresStore persists to the raw_data and calculated_data tables.
type PostgresStore struct {
	db     Querier
	logger logger.Logger
}

// NewPostgresStore wraps a pool. Call EnsureSchema before first use on a
// fresh database.
func NewPostgresStore(db Querier, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, logger: logger.Get().Named("postgres")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the tables if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveSamples bulk-loads samples with COPY.
func (s *PostgresStore) SaveSamples(ctx context.Context, samples []model.RawSample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	start := time.Now()
	defer observe(start, true)

	rows := make([][]any, len(samples))
	for i, smp := range samples {
		var ts any
		if !smp.Timestamp.IsZero() {
			ts = smp.Timestamp.UTC()
		}
		rows[i] = []any{
			smp.PlayerID, smp.Latitude, smp.Longitude, smp.GyroW, smp.X, smp.Y, smp.Z,
			smp.Distance, smp.Speed, smp.HeartRate, ts,
		}
	}

	n, err := s.db.CopyFrom(ctx, pgx.Identifier{"raw_data"}, rawColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return int(n), s.fail("copy_samples", err)
	}
	return int(n), nil
}

// Save inserts one summary.
func (s *PostgresStore) Save(ctx context.Context, sum model.SessionSummary) error {
	start := time.Now()
	defer observe(start, true)

	_, err := s.db.Exec(ctx, `INSERT INTO calculated_data (`+summaryColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		sum.ID, sum.PlayerID, sum.TotalDistance, sum.HSRDistance, sum.SprintDistance, sum.TopSpeed,
		sum.SprintCount, sum.Accelerations, sum.Decelerations, sum.MaxAcceleration, sum.MaxDeceleration,
		sum.PlayerLoad, sum.PowerScore, sum.HRMax, sum.HRMaxEstimated, sum.TimeInRedZone,
		sum.PercentInRedZone, sum.HRRecoveryTime, sum.Samples, sum.Intervals, sum.SkippedIntervals,
		sum.Duration, sum.CreatedAt.UTC(),
	)
	if err != nil {
		return s.fail("insert_summary", err)
	}
	return nil
}

// All returns every summary, newest first.
func (s *PostgresStore) All(ctx context.Context) ([]model.SessionSummary, error) {
	return s.summaries(ctx, `SELECT `+summaryColumns+` FROM calculated_data ORDER BY created_at DESC`)
}

// Players returns distinct players, ascending.
func (s *PostgresStore) Players(ctx context.Context) ([]int64, error) {
	return s.ids(ctx, `SELECT DISTINCT player_id FROM calculated_data ORDER BY player_id`)
}

// MatchDates returns distinct days, newest first.
func (s *PostgresStore) MatchDates(ctx context.Context) ([]string, error) {
	return s.days(ctx, `SELECT DISTINCT `+utcDay+` AS match_day FROM calculated_data ORDER BY match_day DESC`)
}

// PlayerMatchDates returns the player's days, newest first.
func (s *PostgresStore) PlayerMatchDates(ctx context.Context, playerID int64) ([]string, error) {
	return s.days(ctx, `SELECT DISTINCT `+utcDay+` AS match_day FROM calculated_data
		WHERE player_id = $1 ORDER BY match_day DESC`, playerID)
}

// DayPlayers returns players with a summary on day, ascending.
func (s *PostgresStore) DayPlayers(ctx context.Context, day string) ([]int64, error) {
	from, to, err := dayRange(day)
	if err != nil {
		return nil, err
	}
	return s.ids(ctx, `SELECT DISTINCT player_id FROM calculated_data
		WHERE created_at >= $1 AND created_at < $2 ORDER BY player_id`, from, to)
}

// ByDay returns the day's summaries for the given players.
func (s *PostgresStore) ByDay(ctx context.Context, day string, playerIDs []int64) ([]model.SessionSummary, error) {
	from, to, err := dayRange(day)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, `SELECT `+summaryColumns+` FROM calculated_data
		WHERE created_at >= $1 AND created_at < $2 AND player_id = ANY($3)
		ORDER BY player_id, created_at`, from, to, playerIDs)
}

// PlayerHistory returns the player's summaries on any of days, newest first.
func (s *PostgresStore) PlayerHistory(ctx context.Context, playerID int64, days []string) ([]model.SessionSummary, error) {
	for _, d := range days {
		if _, _, err := dayRange(d); err != nil {
			return nil, err
		}
	}
	return s.summaries(ctx, `SELECT `+summaryColumns+` FROM calculated_data
		WHERE player_id = $1 AND `+utcDay+` = ANY($2)
		ORDER BY created_at DESC`, playerID, days)
}

// Count returns the number of stored summaries.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM calculated_data`).Scan(&n); err != nil {
		return 0, s.fail("count", err)
	}
	return n, nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

func (s *PostgresStore) summaries(ctx context.Context, sql string, args ...any) ([]model.SessionSummary, error) {
	start := time.Now()
	defer observe(start, false)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, s.fail("query_summaries", err)
	}
	defer rows.Close()

	out := make([]model.SessionSummary, 0)
	for rows.Next() {
		var m model.SessionSummary
		if err := rows.Scan(
			&m.ID, &m.PlayerID, &m.TotalDistance, &m.HSRDistance, &m.SprintDistance, &m.TopSpeed,
			&m.SprintCount, &m.Accelerations, &m.Decelerations, &m.MaxAcceleration, &m.MaxDeceleration,
			&m.PlayerLoad, &m.PowerScore, &m.HRMax, &m.HRMaxEstimated, &m.TimeInRedZone,
			&m.PercentInRedZone, &m.HRRecoveryTime, &m.Samples, &m.Intervals, &m.SkippedIntervals,
			&m.Duration, &m.CreatedAt,
		); err != nil {
			return nil, s.fail("scan_summary", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("query_summaries", err)
	}
	return out, nil
}

func (s *PostgresStore) ids(ctx context.Context, sql string, args ...any) ([]int64, error) {
	start := time.Now()
	defer observe(start, false)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, s.fail("query_players", err)
	}
	defer rows.Close()

	out := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, s.fail("scan_player", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("query_players", err)
	}
	return out, nil
}

func (s *PostgresStore) days(ctx context.Context, sql string, args ...any) ([]string, error) {
	start := time.Now()
	defer observe(start, false)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, s.fail("query_days", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, s.fail("scan_day", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("query_days", err)
	}
	return out, nil
}

func (s *PostgresStore) fail(op string, err error) error {
	metrics.RecordErrorByComponent("repository", op)
	s.logger.Error(context.Background(), "postgres operation failed",
		logger.String("op", op), logger.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}
