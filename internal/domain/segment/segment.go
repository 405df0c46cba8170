// Package segment detects sustained threshold excursions in an interval
// stream with a two-state (idle/active) machine per signal.
package segment

import "github.com/okian/pitchtrace/internal/domain/model"

// Default thresholds.
const (
	DefaultSprintSpeed = 7.0 // m/s
	DefaultEventAccel  = 3.0 // m/s^2
	DefaultMinDuration = 1.0 // seconds
)

// Counting selects when a run is counted.
type Counting string

const (
	// CountRunDuration commits a run when it ends, if it lasted at least
	// the minimum duration.
	CountRunDuration Counting = "duration"
	// CountEntryEdge counts every idle to active transition.
	CountEntryEdge Counting = "entry"
)

// Rule configures run commitment.
type Rule struct {
	MinDuration float64
	Counting    Counting
	// FlushOpenRuns commits a qualifying run still active at the end of the
	// stream. Off by default: open runs are dropped.
	FlushOpenRuns bool
}

// DefaultRule returns duration-debounced counting without flush.
func DefaultRule() Rule {
	return Rule{MinDuration: DefaultMinDuration, Counting: CountRunDuration}
}

// Predicate reports whether an interval is inside the excursion.
type Predicate func(model.KinematicInterval) bool

// Detector is one idle/active state machine.
type Detector struct {
	rule   Rule
	match  Predicate
	active bool
	run    float64
	count  int
}

// NewDetector returns an idle detector.
func NewDetector(match Predicate, rule Rule) *Detector {
	return &Detector{rule: rule, match: match}
}

// Step feeds one interval.
func (d *Detector) Step(iv model.KinematicInterval) {
	if d.match(iv) {
		if !d.active {
			d.active = true
			d.run = 0
			if d.rule.Counting == CountEntryEdge {
				d.count++
			}
		}
		d.run += iv.DT
		return
	}
	if d.active {
		d.commit()
		d.active = false
		d.run = 0
	}
}

// Finish ends the stream and returns the event count.
func (d *Detector) Finish() int {
	if d.active && d.rule.FlushOpenRuns {
		d.commit()
		d.active = false
		d.run = 0
	}
	return d.count
}

// Active reports whether a run is in progress.
func (d *Detector) Active() bool { return d.active }

func (d *Detector) commit() {
	if d.rule.Counting == CountEntryEdge {
		return
	}
	if d.run >= d.rule.MinDuration {
		d.count++
	}
}

// Thresholds are the excursion limits for the three monitored signals.
type Thresholds struct {
	SprintSpeed float64
	EventAccel  float64
}

// Counts holds the committed events per signal.
type Counts struct {
	Sprints       int
	Accelerations int
	Decelerations int
}

// Segment runs the sprint, acceleration and deceleration machines over the
// same intervals.
func Segment(intervals []model.KinematicInterval, th Thresholds, rule Rule) Counts {
	sprint := NewDetector(func(iv model.KinematicInterval) bool { return iv.Speed > th.SprintSpeed }, rule)
	accel := NewDetector(func(iv model.KinematicInterval) bool { return iv.Accel > th.EventAccel }, rule)
	decel := NewDetector(func(iv model.KinematicInterval) bool { return iv.Accel < -th.EventAccel }, rule)

	for _, iv := range intervals {
		sprint.Step(iv)
		accel.Step(iv)
		decel.Step(iv)
	}
	return Counts{
		Sprints:       sprint.Finish(),
		Accelerations: accel.Finish(),
		Decelerations: decel.Finish(),
	}
}
