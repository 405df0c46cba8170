// Package fitfile converts FIT activity files into tracker samples.
package fitfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/tormoder/fit"
)

// Sentinel errors for FIT decoding.
var (
	ErrNotActivity = errors.New("fit file is not an activity")
	ErrNoRecords   = errors.New("fit activity has no records")
)

// Decode reads an activity file and returns its records as samples of
// playerID. The FIT format carries no athlete id.
func Decode(r io.Reader, playerID int64) ([]model.RawSample, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}

	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotActivity, err)
	}

	samples := FromRecords(activity.Records, playerID)
	if len(samples) == 0 {
		return nil, ErrNoRecords
	}
	return samples, nil
}

// DecodeBytes is Decode over an in-memory file.
func DecodeBytes(b []byte, playerID int64) ([]model.RawSample, error) {
	return Decode(bytes.NewReader(b), playerID)
}

// FromRecords converts record messages. Invalid fields become 0, and an
// invalid timestamp becomes the zero time.
func FromRecords(records []*fit.RecordMsg, playerID int64) []model.RawSample {
	out := make([]model.RawSample, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		out = append(out, model.RawSample{
			PlayerID:  playerID,
			Latitude:  degrees(rec.PositionLat.Invalid(), rec.PositionLat.Degrees()),
			Longitude: degrees(rec.PositionLong.Invalid(), rec.PositionLong.Degrees()),
			Distance:  finiteOrZero(rec.GetDistanceScaled()),
			Speed:     speed(rec),
			HeartRate: heartRate(rec),
			Timestamp: validTimeOrZero(rec.Timestamp),
		})
	}
	return out
}

func degrees(invalid bool, v float64) float64 {
	if invalid {
		return 0
	}
	return finiteOrZero(v)
}

func speed(rec *fit.RecordMsg) float64 {
	if v := rec.GetEnhancedSpeedScaled(); isFinite(v) && v >= 0 {
		return v
	}
	if v := rec.GetSpeedScaled(); isFinite(v) && v >= 0 {
		return v
	}
	return 0
}

func heartRate(rec *fit.RecordMsg) float64 {
	if rec.HeartRate == math.MaxUint8 {
		return 0
	}
	return float64(rec.HeartRate)
}

func validTimeOrZero(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t.UTC()
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func finiteOrZero(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}
