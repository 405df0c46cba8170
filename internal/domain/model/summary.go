package model

import "time"

// SessionSummary is the per-player reduction of one session.
// TimeInRedZone is a sample count, not seconds.
type SessionSummary struct {
	ID               string    `json:"id,omitempty"`
	PlayerID         int64     `json:"player_id"`
	TotalDistance    float64   `json:"total_distance"`
	HSRDistance      float64   `json:"hsr_distance"`
	SprintDistance   float64   `json:"sprint_distance"`
	TopSpeed         float64   `json:"top_speed"`
	SprintCount      int       `json:"sprint_count"`
	Accelerations    int       `json:"accelerations"`
	Decelerations    int       `json:"decelerations"`
	MaxAcceleration  float64   `json:"max_acceleration"`
	MaxDeceleration  float64   `json:"max_deceleration"`
	PlayerLoad       float64   `json:"player_load"`
	PowerScore       float64   `json:"power_score"`
	HRMax            float64   `json:"hr_max"`
	HRMaxEstimated   bool      `json:"hr_max_estimated"`
	TimeInRedZone    int       `json:"time_in_red_zone"`
	PercentInRedZone float64   `json:"percent_in_red_zone"`
	HRRecoveryTime   float64   `json:"hr_recovery_time"`
	Samples          int       `json:"samples"`
	Intervals        int       `json:"intervals"`
	SkippedIntervals int       `json:"skipped_intervals"`
	Duration         float64   `json:"duration_s"`
	CreatedAt        time.Time `json:"created_at"`
}

// Day returns the UTC calendar day the summary was created on.
func (s SessionSummary) Day() string {
	return s.CreatedAt.UTC().Format(DayLayout)
}

// DayLayout is the layout of match-day keys.
const DayLayout = "2006-01-02"
