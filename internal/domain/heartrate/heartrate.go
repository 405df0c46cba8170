// Package heartrate computes heart rate zone occupancy for a session.
package heartrate

import "github.com/okian/pitchtrace/internal/domain/model"

// Defaults.
const (
	DefaultAge             = 25.0
	DefaultRedZoneFraction = 0.9
	DefaultRecoveryDivisor = 10.0
)

// Params configures the analysis.
type Params struct {
	Age             float64 // used only for the estimated maximum
	RedZoneFraction float64
	RecoveryDivisor float64
}

// DefaultParams returns the standard red zone at 90% of maximum.
func DefaultParams() Params {
	return Params{
		Age:             DefaultAge,
		RedZoneFraction: DefaultRedZoneFraction,
		RecoveryDivisor: DefaultRecoveryDivisor,
	}
}

// Stats is the heart rate part of a summary.
type Stats struct {
	Max              float64
	Estimated        bool // Max comes from the age formula
	RedZoneThreshold float64
	Valid            int // readings > 0
	InRedZone        int // readings at or above the threshold
	PercentInRedZone float64
	RecoveryTime     float64
}

// EstimateMax returns 208 - 0.7*age.
func EstimateMax(age float64) float64 {
	return 208 - 0.7*age
}

// Analyze scans every raw sample. Without valid readings it falls back to the
// estimated maximum and reports zeroed occupancy and recovery.
func Analyze(samples []model.RawSample, p Params) Stats {
	var st Stats
	for _, s := range samples {
		if !s.HasHeartRate() {
			continue
		}
		st.Valid++
		if s.HeartRate > st.Max {
			st.Max = s.HeartRate
		}
	}
	if st.Valid == 0 {
		st.Max = EstimateMax(p.Age)
		st.Estimated = true
	}
	st.RedZoneThreshold = st.Max * p.RedZoneFraction
	if st.Valid == 0 {
		return st
	}

	for _, s := range samples {
		if s.HasHeartRate() && s.HeartRate >= st.RedZoneThreshold {
			st.InRedZone++
		}
	}
	st.PercentInRedZone = float64(st.InRedZone) / float64(st.Valid) * 100
	if p.RecoveryDivisor > 0 {
		st.RecoveryTime = st.Max / p.RecoveryDivisor
	}
	return st
}
