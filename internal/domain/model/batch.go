package model

import "time"

// Batch sources.
const (
	SourceUpload = "upload"
	SourceCSV    = "csv"
	SourceFIT    = "fit"
	SourceKafka  = "kafka"
	SourceMQTT   = "mqtt"
)

// Batch is a unit of ingestion. It may hold samples of several players.
type Batch struct {
	ID         string
	Source     string
	Samples    []RawSample
	ReceivedAt time.Time
}
