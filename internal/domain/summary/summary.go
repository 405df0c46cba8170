package summary

import (
	"math"

	"github.com/okian/pitchtrace/internal/domain/heartrate"
	"github.com/okian/pitchtrace/internal/domain/kinematics"
	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/internal/domain/segment"
	"github.com/okian/pitchtrace/internal/domain/workload"
)

// Compute reduces one player's session. samples must be sorted ascending by
// timestamp and are not modified. Fewer than two samples yield a zeroed
// summary carrying the first sample's player id, or 0 when there is none.
// Numeric edge cases never fail; floats are rounded to 2 decimals once, here.
func Compute(samples []model.RawSample, p Profile) model.SessionSummary {
	var out model.SessionSummary
	if len(samples) > 0 {
		out.PlayerID = samples[0].PlayerID
	}
	if len(samples) < 2 {
		return out
	}

	kin := kinematics.Derive(samples, p.kinematics())

	var total, hsr, sprint, top, maxAccel, maxDecel float64
	for _, iv := range kin.Intervals {
		total += iv.Distance
		if iv.Speed > p.HSRSpeed {
			hsr += iv.Distance
		}
		if iv.Speed > p.SprintSpeed {
			sprint += iv.Distance
		}
		top = math.Max(top, iv.Speed)
		maxAccel = math.Max(maxAccel, iv.Accel)
		maxDecel = math.Min(maxDecel, iv.Accel)
	}

	events := segment.Segment(kin.Intervals, p.thresholds(), p.rule())
	hr := heartrate.Analyze(samples, p.heartrate())

	out.TotalDistance = round2(total)
	out.HSRDistance = round2(hsr)
	out.SprintDistance = round2(sprint)
	out.TopSpeed = round2(top)
	out.SprintCount = events.Sprints
	out.Accelerations = events.Accelerations
	out.Decelerations = events.Decelerations
	out.MaxAcceleration = round2(maxAccel)
	out.MaxDeceleration = round2(maxDecel)
	out.PlayerLoad = round2(workload.PlayerLoad(kin.TotalLoad, p.PlayerLoadScale))
	out.PowerScore = round2(workload.PowerScore(kin.TotalWork, kin.TotalTime))
	out.HRMax = round2(hr.Max)
	out.HRMaxEstimated = hr.Estimated
	out.TimeInRedZone = hr.InRedZone
	out.PercentInRedZone = round2(hr.PercentInRedZone)
	out.HRRecoveryTime = round2(hr.RecoveryTime)
	out.Samples = len(samples)
	out.Intervals = len(kin.Intervals)
	out.SkippedIntervals = kin.Skipped
	out.Duration = round2(kin.TotalTime)
	return out
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	r := math.Round(v*100) / 100
	if r == 0 {
		// avoid -0 in JSON output
		return 0
	}
	return r
}
