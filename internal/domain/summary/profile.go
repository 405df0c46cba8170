// Package summary reduces a player's ordered telemetry into a SessionSummary.
package summary

import (
	"errors"
	"fmt"

	"github.com/okian/pitchtrace/internal/domain/heartrate"
	"github.com/okian/pitchtrace/internal/domain/kinematics"
	"github.com/okian/pitchtrace/internal/domain/segment"
	"github.com/okian/pitchtrace/internal/domain/workload"
)

// DefaultHSRSpeed is the high-speed running threshold in m/s.
const DefaultHSRSpeed = 4.0

// ErrInvalidProfile is returned by Profile.Validate.
var ErrInvalidProfile = errors.New("invalid profile")

// Profile holds every threshold and scale factor of the reduction. Profiles
// are plain values, so several can be used side by side.
type Profile struct {
	HSRSpeed         float64 // m/s
	SprintSpeed      float64 // m/s
	EventAccel       float64 // m/s^2
	MinEventDuration float64 // seconds
	PlayerLoadScale  float64
	MetabolicC0      float64
	MetabolicC1      float64
	Gravity          float64
	RedZoneFraction  float64
	AthleteAge       float64
	RecoveryDivisor  float64
	DistanceSource   kinematics.DistanceSource
	SpeedSource      kinematics.SpeedSource
	Counting         segment.Counting
	FlushOpenRuns    bool
}

// DefaultProfile returns position-derived, duration-debounced semantics with
// the standard thresholds.
func DefaultProfile() Profile {
	return Profile{
		HSRSpeed:         DefaultHSRSpeed,
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
		DistanceSource:   kinematics.DistanceFromPosition,
		SpeedSource:      kinematics.SpeedDerived,
		Counting:         segment.CountRunDuration,
	}
}

// Validate checks the profile is usable.
func (p Profile) Validate() error {
	switch {
	case p.HSRSpeed < 0 || p.SprintSpeed < 0 || p.EventAccel < 0 || p.MinEventDuration < 0:
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidProfile)
	case p.SprintSpeed < p.HSRSpeed:
		return fmt.Errorf("%w: sprint speed %.2f below hsr speed %.2f", ErrInvalidProfile, p.SprintSpeed, p.HSRSpeed)
	case p.PlayerLoadScale <= 0:
		return fmt.Errorf("%w: player load scale must be positive", ErrInvalidProfile)
	case p.Gravity <= 0:
		return fmt.Errorf("%w: gravity must be positive", ErrInvalidProfile)
	case p.RedZoneFraction <= 0 || p.RedZoneFraction > 1:
		return fmt.Errorf("%w: red zone fraction must be in (0,1]", ErrInvalidProfile)
	case p.RecoveryDivisor <= 0:
		return fmt.Errorf("%w: recovery divisor must be positive", ErrInvalidProfile)
	}
	switch p.DistanceSource {
	case kinematics.DistanceFromPosition, kinematics.DistanceFromDevice:
	default:
		return fmt.Errorf("%w: unknown distance source %q", ErrInvalidProfile, p.DistanceSource)
	}
	switch p.SpeedSource {
	case kinematics.SpeedDerived, kinematics.SpeedDevice:
	default:
		return fmt.Errorf("%w: unknown speed source %q", ErrInvalidProfile, p.SpeedSource)
	}
	switch p.Counting {
	case segment.CountRunDuration, segment.CountEntryEdge:
	default:
		return fmt.Errorf("%w: unknown event counting %q", ErrInvalidProfile, p.Counting)
	}
	return nil
}

func (p Profile) kinematics() kinematics.Params {
	return kinematics.Params{
		C0:       p.MetabolicC0,
		C1:       p.MetabolicC1,
		Gravity:  p.Gravity,
		Distance: p.DistanceSource,
		Speed:    p.SpeedSource,
	}
}

func (p Profile) thresholds() segment.Thresholds {
	return segment.Thresholds{SprintSpeed: p.SprintSpeed, EventAccel: p.EventAccel}
}

func (p Profile) rule() segment.Rule {
	return segment.Rule{MinDuration: p.MinEventDuration, Counting: p.Counting, FlushOpenRuns: p.FlushOpenRuns}
}

func (p Profile) heartrate() heartrate.Params {
	return heartrate.Params{Age: p.AthleteAge, RedZoneFraction: p.RedZoneFraction, RecoveryDivisor: p.RecoveryDivisor}
}
