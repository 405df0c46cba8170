package replay

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/pitchtrace/pkg/logger"
)

// SetupLogging initializes the logger to write to stdout and, when logFile
// is set, to that file too.
func SetupLogging(logFile string) error {
	var out io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the replay tool.
func ShowHelp() {
	os.Stdout.WriteString(`pitchtrace replay
=================

Generates synthetic tracker sessions and uploads them to a running
pitchtrace service, then checks every player was summarized.

Usage:
  go run ./cmd/replay [options]

Options:
  -url string          Base URL of the service (default "http://localhost:3000")
  -players int         Number of simulated players (default 22)
  -duration duration   Session length per player (default 10m)
  -rate int            Readings per second (default 10)
  -workers int         Concurrent uploaders (default CPU cores)
  -timeout duration    HTTP request timeout (default 30s)
  -async               Queue uploads instead of summarizing in the request
  -duplicates          Resend every batch to exercise deduplication
  -seed uint           Generator seed (default 1)
  -output string       Write generated batches to this JSON file
  -log string          Also write logs to this file
  -verbose             Log every batch
  -help                Show this help message

Examples:
  go run ./cmd/replay -players 30 -duration 90m -async
  go run ./cmd/replay -duplicates -verbose
`)
}
