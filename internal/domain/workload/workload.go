// Package workload turns cumulative inertial and metabolic sums into the
// session player load and power score.
package workload

// DefaultLoadScale normalizes the inertial sum into the player load index.
const DefaultLoadScale = 100.0

// PlayerLoad returns totalLoad / scale. A non-positive scale yields 0.
func PlayerLoad(totalLoad, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	return totalLoad / scale
}

// PowerScore returns the time-weighted mean metabolic power, or 0 when no
// time has elapsed.
func PowerScore(totalWork, totalTime float64) float64 {
	if totalTime <= 0 {
		return 0
	}
	return totalWork / totalTime
}
