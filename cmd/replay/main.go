package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/pitchtrace/internal/replay"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:3000", "Base URL of the service")
		players    = flag.Int("players", replay.DefaultPlayers, "Number of simulated players")
		duration   = flag.Duration("duration", replay.DefaultDuration, "Session length per player")
		rate       = flag.Int("rate", replay.DefaultRate, "Readings per second")
		workers    = flag.Int("workers", runtime.NumCPU(), "Concurrent uploaders")
		timeout    = flag.Duration("timeout", replay.DefaultTimeout, "HTTP request timeout")
		async      = flag.Bool("async", false, "Queue uploads instead of summarizing in the request")
		duplicates = flag.Bool("duplicates", false, "Resend every batch to exercise deduplication")
		seed       = flag.Uint64("seed", 1, "Generator seed")
		outputFile = flag.String("output", "", "Write generated batches to this JSON file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Log every batch")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		replay.ShowHelp()
		return
	}

	if err := replay.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	_, err := replay.Run(ctx, &replay.Config{
		BaseURL:    *baseURL,
		Players:    *players,
		Duration:   *duration,
		Rate:       *rate,
		Workers:    *workers,
		Timeout:    *timeout,
		Async:      *async,
		Duplicates: *duplicates,
		Seed:       *seed,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	})
	if err != nil {
		os.Stderr.WriteString("replay failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
