// Package model contains domain models passed between layers.
package model

import "time"

// RawSample is one tracker reading. A zero Timestamp marks a reading whose
// time could not be parsed; HeartRate <= 0 means no heart rate was captured.
type RawSample struct {
	PlayerID  int64
	Latitude  float64 // degrees
	Longitude float64 // degrees
	GyroW     float64 // stored, not used by the summary
	X         float64
	Y         float64
	Z         float64
	Distance  float64 // device cumulative distance, meters
	Speed     float64 // device speed, m/s
	HeartRate float64
	Timestamp time.Time
}

// HasHeartRate reports whether the sample carries a heart rate reading.
func (s RawSample) HasHeartRate() bool { return s.HeartRate > 0 }

// KinematicInterval is derived from one consecutive sample pair with a
// positive elapsed time.
type KinematicInterval struct {
	DT             float64 // seconds, always > 0
	Distance       float64 // meters
	Speed          float64 // m/s
	Accel          float64 // m/s^2
	LoadDelta      float64 // inertial delta magnitude
	MetabolicPower float64
}
