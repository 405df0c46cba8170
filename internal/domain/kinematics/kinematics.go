// Package kinematics derives per-interval distance, speed, acceleration,
// inertial load and metabolic power from an ordered sample sequence.
package kinematics

import (
	"math"

	"github.com/okian/pitchtrace/internal/domain/geo"
	"github.com/okian/pitchtrace/internal/domain/model"
)

// StandardGravity in m/s^2.
const StandardGravity = 9.80665

// Default metabolic power coefficients.
const (
	DefaultC0 = 4.0
	DefaultC1 = 2.0
)

// DistanceSource selects where interval distance comes from.
type DistanceSource string

const (
	// DistanceFromPosition uses the haversine distance between fixes.
	DistanceFromPosition DistanceSource = "position"
	// DistanceFromDevice uses the delta of the device cumulative distance.
	DistanceFromDevice DistanceSource = "device"
)

// SpeedSource selects the speed series acceleration is derived from.
type SpeedSource string

const (
	// SpeedDerived uses distance / dt.
	SpeedDerived SpeedSource = "derived"
	// SpeedDevice uses the device speed of the later sample of each pair.
	SpeedDevice SpeedSource = "device"
)

// Params configures the derivation.
type Params struct {
	C0       float64
	C1       float64
	Gravity  float64
	Distance DistanceSource
	Speed    SpeedSource
}

// DefaultParams returns position-derived distance and speed with the
// standard metabolic power coefficients.
func DefaultParams() Params {
	return Params{
		C0:       DefaultC0,
		C1:       DefaultC1,
		Gravity:  StandardGravity,
		Distance: DistanceFromPosition,
		Speed:    SpeedDerived,
	}
}

// Result is the derived interval stream with its running sums.
type Result struct {
	Intervals []model.KinematicInterval
	TotalTime float64 // seconds, sum of interval dt
	TotalLoad float64 // sum of inertial delta magnitudes
	TotalWork float64 // sum of metabolic power * dt
	Skipped   int     // pairs dropped for a missing or non-positive dt
}

// Derive walks samples pairwise. A pair with a zero timestamp or a dt <= 0 is
// skipped and does not advance the previous-speed state, so the next valid
// pair chains to the last derived speed. samples must be sorted by time.
func Derive(samples []model.RawSample, p Params) Result {
	var res Result
	if len(samples) < 2 {
		return res
	}

	g := p.Gravity
	if g <= 0 {
		g = StandardGravity
	}

	res.Intervals = make([]model.KinematicInterval, 0, len(samples)-1)
	vPrev := 0.0
	for k := 0; k < len(samples)-1; k++ {
		cur, next := samples[k], samples[k+1]
		if cur.Timestamp.IsZero() || next.Timestamp.IsZero() {
			res.Skipped++
			continue
		}
		dt := next.Timestamp.Sub(cur.Timestamp).Seconds()
		if dt <= 0 {
			res.Skipped++
			continue
		}

		d := distance(cur, next, p.Distance)
		v := d / dt
		if p.Speed == SpeedDevice {
			v = math.Max(0, next.Speed)
		}
		a := (v - vPrev) / dt
		load := LoadDelta(cur, next)
		power := v * (p.C0 + p.C1*(a/g))

		res.Intervals = append(res.Intervals, model.KinematicInterval{
			DT:             dt,
			Distance:       d,
			Speed:          v,
			Accel:          a,
			LoadDelta:      load,
			MetabolicPower: power,
		})
		res.TotalTime += dt
		res.TotalLoad += load
		res.TotalWork += power * dt
		vPrev = v
	}
	return res
}

// LoadDelta is the Euclidean norm of the inertial component deltas.
func LoadDelta(cur, next model.RawSample) float64 {
	dx := next.X - cur.X
	dy := next.Y - cur.Y
	dz := next.Z - cur.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func distance(cur, next model.RawSample, src DistanceSource) float64 {
	if src == DistanceFromDevice {
		// counter resets show up as negative deltas
		return math.Max(0, next.Distance-cur.Distance)
	}
	return geo.Distance(cur.Latitude, cur.Longitude, next.Latitude, next.Longitude)
}
