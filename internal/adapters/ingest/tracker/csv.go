package tracker

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okian/pitchtrace/internal/domain/model"
)

// Sentinel errors for CSV decoding.
var (
	ErrEmptyCSV       = errors.New("csv file empty")
	ErrHeaderMismatch = errors.New("csv parsed but header mismatch")
)

// ParseCSV decodes a tracker CSV export. Header cells are trimmed and
// matched by name; unknown columns are ignored.
func ParseCSV(r io.Reader) ([]model.RawSample, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyCSV
	}

	cr := csv.NewReader(bytes.NewReader(body))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := cols["player_id"]; !ok {
		return nil, ErrHeaderMismatch
	}

	field := func(rec []string, name string) float64 {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return 0
		}
		return parseNumber(rec[i])
	}

	out := make([]model.RawSample, 0)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(out)+1, err)
		}
		out = append(out, model.RawSample{
			PlayerID:  int64(field(rec, "player_id")),
			Latitude:  field(rec, "lat"),
			Longitude: field(rec, "lon"),
			GyroW:     field(rec, "gyro_w"),
			X:         field(rec, "gyro_x"),
			Y:         field(rec, "gyro_y"),
			Z:         field(rec, "gyro_z"),
			Distance:  field(rec, "distance"),
			Speed:     field(rec, "speed"),
			HeartRate: field(rec, "heartrate"),
			Timestamp: unixSeconds(field(rec, "timestamp")),
		})
	}

	if len(out) == 0 {
		return nil, ErrHeaderMismatch
	}
	return out, nil
}
