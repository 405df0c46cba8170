// Package geo computes great-circle distances between GPS fixes.
package geo

import "math"

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371000.0

const degToRad = math.Pi / 180

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Haversine returns the great-circle distance in meters between two points.
// The result is symmetric and zero for identical points.
func Haversine(a, b Point) float64 {
	if a == b {
		return 0
	}
	lat1 := a.Lat * degToRad
	lat2 := b.Lat * degToRad
	dLat := (b.Lat - a.Lat) * degToRad
	dLon := (b.Lon - a.Lon) * degToRad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	// rounding can push h slightly outside [0,1] near the poles and antimeridian
	h = math.Max(0, math.Min(1, h))

	return EarthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Distance is Haversine over raw coordinates.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	return Haversine(Point{Lat: lat1, Lon: lon1}, Point{Lat: lat2, Lon: lon2})
}
