// Package export renders session summaries for offline analysis.
package export

import (
	"time"

	"github.com/okian/pitchtrace/internal/domain/model"
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// ContentType is the media type of Parquet output.
const ContentType = "application/vnd.apache.parquet"

const writeParallelism = 4

type summaryRow struct {
	ID               string  `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	PlayerID         int64   `parquet:"name=player_id, type=INT64"`
	MatchDay         string  `parquet:"name=match_day, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	CreatedAt        string  `parquet:"name=created_at, type=BYTE_ARRAY, convertedtype=UTF8"`
	TotalDistance    float64 `parquet:"name=total_distance, type=DOUBLE"`
	HSRDistance      float64 `parquet:"name=hsr_distance, type=DOUBLE"`
	SprintDistance   float64 `parquet:"name=sprint_distance, type=DOUBLE"`
	TopSpeed         float64 `parquet:"name=top_speed, type=DOUBLE"`
	SprintCount      int64   `parquet:"name=sprint_count, type=INT64"`
	Accelerations    int64   `parquet:"name=accelerations, type=INT64"`
	Decelerations    int64   `parquet:"name=decelerations, type=INT64"`
	MaxAcceleration  float64 `parquet:"name=max_acceleration, type=DOUBLE"`
	MaxDeceleration  float64 `parquet:"name=max_deceleration, type=DOUBLE"`
	PlayerLoad       float64 `parquet:"name=player_load, type=DOUBLE"`
	PowerScore       float64 `parquet:"name=power_score, type=DOUBLE"`
	HRMax            float64 `parquet:"name=hr_max, type=DOUBLE"`
	HRMaxEstimated   bool    `parquet:"name=hr_max_estimated, type=BOOLEAN"`
	TimeInRedZone    int64   `parquet:"name=time_in_red_zone, type=INT64"`
	PercentInRedZone float64 `parquet:"name=percent_in_red_zone, type=DOUBLE"`
	HRRecoveryTime   float64 `parquet:"name=hr_recovery_time, type=DOUBLE"`
	Samples          int64   `parquet:"name=samples, type=INT64"`
	Intervals        int64   `parquet:"name=intervals, type=INT64"`
	SkippedIntervals int64   `parquet:"name=skipped_intervals, type=INT64"`
	DurationS        float64 `parquet:"name=duration_s, type=DOUBLE"`
}

// Parquet encodes summaries as a Snappy-compressed Parquet file.
func Parquet(summaries []model.SessionSummary) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(summaryRow), writeParallelism)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, s := range summaries {
		row := summaryRow{
			ID:               s.ID,
			PlayerID:         s.PlayerID,
			MatchDay:         s.Day(),
			CreatedAt:        s.CreatedAt.UTC().Format(time.RFC3339Nano),
			TotalDistance:    s.TotalDistance,
			HSRDistance:      s.HSRDistance,
			SprintDistance:   s.SprintDistance,
			TopSpeed:         s.TopSpeed,
			SprintCount:      int64(s.SprintCount),
			Accelerations:    int64(s.Accelerations),
			Decelerations:    int64(s.Decelerations),
			MaxAcceleration:  s.MaxAcceleration,
			MaxDeceleration:  s.MaxDeceleration,
			PlayerLoad:       s.PlayerLoad,
			PowerScore:       s.PowerScore,
			HRMax:            s.HRMax,
			HRMaxEstimated:   s.HRMaxEstimated,
			TimeInRedZone:    int64(s.TimeInRedZone),
			PercentInRedZone: s.PercentInRedZone,
			HRRecoveryTime:   s.HRRecoveryTime,
			Samples:          int64(s.Samples),
			Intervals:        int64(s.Intervals),
			SkippedIntervals: int64(s.SkippedIntervals),
			DurationS:        s.Duration,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}
