package replay

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/pitchtrace/internal/adapters/ingest/tracker"
	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/pkg/logger"
)

// Pitch origin and movement model.
const (
	originLat        = 45.0703
	originLon        = 7.6869
	metresPerDegLat  = 111_320.0
	maxAccel         = 3.0 // m/s²
	minPhaseSeconds  = 3
	phaseSecondsSpan = 8
	restingHR        = 70.0
	hrPerSpeed       = 14.0
	hrLagSeconds     = 15.0
	gyroNoise        = 0.05
)

// Target speeds in m/s: walk, jog, high speed running, sprint.
var phaseSpeeds = []float64{1.4, 3.5, 5.8, 7.6}

// Phase weights favour walking and jogging the way match play does.
var phaseWeights = []int{40, 35, 17, 8}

// generateBatches creates one session batch per player.
func generateBatches(ctx context.Context, cfg *Config, stats *Stats) ([]Batch, error) {
	logger.Get().Info(ctx, "generating sessions",
		logger.Int("players", cfg.Players),
		logger.Duration("duration", cfg.Duration),
		logger.Int("rate", cfg.Rate))

	batches := make([]Batch, 0, cfg.Players)
	for i := 0; i < cfg.Players; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		playerID := int64(i + 1)
		rng := rand.New(rand.NewPCG(cfg.Seed, uint64(playerID)))
		samples := generateSession(rng, playerID, cfg.Start, cfg.Duration, cfg.Rate)

		readings := make([]tracker.Reading, len(samples))
		for j := range samples {
			readings[j] = tracker.ReadingOf(samples[j])
		}
		batches = append(batches, Batch{ID: uuid.NewString(), PlayerID: playerID, Readings: readings})
		stats.SamplesGenerated += len(readings)
	}

	stats.BatchesGenerated = len(batches)
	logger.Get().Info(ctx, "generated sessions", logger.Int("batches", len(batches)), logger.Int("samples", stats.SamplesGenerated))
	return batches, nil
}

// generateSession simulates one player moving around the pitch. Speed moves
// toward a target picked per phase without exceeding maxAccel, and heart
// rate follows speed with a first order lag.
func generateSession(rng *rand.Rand, playerID int64, start time.Time, d time.Duration, rate int) []model.RawSample {
	n := int(d.Seconds()*float64(rate)) + 1
	dt := 1 / float64(rate)
	out := make([]model.RawSample, n)

	lat, lon := originLat, originLon
	heading := rng.Float64() * 2 * math.Pi
	speed, hr, distance := 0.0, restingHR, 0.0
	target, phaseLeft := nextPhase(rng, rate)

	for i := 0; i < n; i++ {
		if phaseLeft == 0 {
			target, phaseLeft = nextPhase(rng, rate)
			heading += (rng.Float64() - 0.5) * math.Pi / 2
		}
		phaseLeft--

		step := math.Max(-maxAccel*dt, math.Min(maxAccel*dt, target-speed))
		speed = math.Max(0, speed+step)
		hrTarget := restingHR + hrPerSpeed*speed
		hr += (hrTarget - hr) * dt / hrLagSeconds

		if i > 0 {
			moved := speed * dt
			distance += moved
			lat += moved * math.Cos(heading) / metresPerDegLat
			lon += moved * math.Sin(heading) / (metresPerDegLat * math.Cos(lat*math.Pi/180))
		}

		out[i] = model.RawSample{
			PlayerID:  playerID,
			Latitude:  lat,
			Longitude: lon,
			GyroW:     1,
			X:         (rng.Float64() - 0.5) * gyroNoise * (1 + speed),
			Y:         (rng.Float64() - 0.5) * gyroNoise * (1 + speed),
			Z:         (rng.Float64() - 0.5) * gyroNoise * (1 + speed),
			Distance:  distance,
			Speed:     speed,
			HeartRate: math.Round(hr),
			Timestamp: start.Add(time.Duration(i) * time.Second / time.Duration(rate)),
		}
	}
	return out
}

func nextPhase(rng *rand.Rand, rate int) (float64, int) {
	total := 0
	for _, w := range phaseWeights {
		total += w
	}
	pick := rng.IntN(total)
	idx := 0
	for i, w := range phaseWeights {
		if pick < w {
			idx = i
			break
		}
		pick -= w
	}
	seconds := minPhaseSeconds + rng.IntN(phaseSecondsSpan)
	return phaseSpeeds[idx], seconds * rate
}
