// Package tracker decodes readings produced by the wearable tracker, either
// uploaded as JSON, downloaded as CSV from the device, or streamed.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/pitchtrace/internal/domain/model"
)

// Sentinel errors for payload decoding.
var (
	ErrEmptyPayload   = errors.New("payload has no readings")
	ErrInvalidPayload = errors.New("payload is not a reading array")
)

// Number is a lenient numeric field. It accepts JSON numbers and numeric
// strings; anything else decodes as 0.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = 0
			return nil
		}
		raw = s
	}
	*n = Number(parseNumber(raw))
	return nil
}

// parseNumber returns 0 for empty, non-numeric and non-finite input.
func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Reading is one tracker row in its wire form.
type Reading struct {
	PlayerID  Number `json:"player_id"`
	Lat       Number `json:"lat"`
	Lon       Number `json:"lon"`
	GyroW     Number `json:"gyro_w"`
	GyroX     Number `json:"gyro_x"`
	GyroY     Number `json:"gyro_y"`
	GyroZ     Number `json:"gyro_z"`
	Distance  Number `json:"distance"`
	Speed     Number `json:"speed"`
	Timestamp Number `json:"timestamp"` // unix seconds
	HeartRate Number `json:"heartrate"`
}

// Sample converts the reading. A zero timestamp maps to the zero time.
func (r Reading) Sample() model.RawSample {
	return model.RawSample{
		PlayerID:  int64(r.PlayerID),
		Latitude:  float64(r.Lat),
		Longitude: float64(r.Lon),
		GyroW:     float64(r.GyroW),
		X:         float64(r.GyroX),
		Y:         float64(r.GyroY),
		Z:         float64(r.GyroZ),
		Distance:  float64(r.Distance),
		Speed:     float64(r.Speed),
		HeartRate: float64(r.HeartRate),
		Timestamp: unixSeconds(float64(r.Timestamp)),
	}
}

// ReadingOf converts a sample back to its wire form.
func ReadingOf(s model.RawSample) Reading {
	var ts float64
	if !s.Timestamp.IsZero() {
		ts = float64(s.Timestamp.UnixMilli()) / 1000
	}
	return Reading{
		PlayerID:  Number(s.PlayerID),
		Lat:       Number(s.Latitude),
		Lon:       Number(s.Longitude),
		GyroW:     Number(s.GyroW),
		GyroX:     Number(s.X),
		GyroY:     Number(s.Y),
		GyroZ:     Number(s.Z),
		Distance:  Number(s.Distance),
		Speed:     Number(s.Speed),
		Timestamp: Number(ts),
		HeartRate: Number(s.HeartRate),
	}
}

func unixSeconds(sec float64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC()
}

// DecodeJSON reads a JSON array of readings.
func DecodeJSON(r io.Reader) ([]model.RawSample, error) {
	var readings []Reading
	if err := json.NewDecoder(r).Decode(&readings); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyPayload
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if len(readings) == 0 {
		return nil, ErrEmptyPayload
	}

	out := make([]model.RawSample, len(readings))
	for i, rd := range readings {
		out[i] = rd.Sample()
	}
	return out, nil
}
