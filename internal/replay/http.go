package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pitchtrace/pkg/logger"
)

// Submission outcomes.
const (
	outcomeSuccess   = "success"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

// HTTPClient wraps http.Client with a timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body and optional headers.
func (c *HTTPClient) Post(ctx context.Context, url string, body any, headers map[string]string) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}

// getJSON fetches url and decodes the body into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	return nil
}

// submitBatches uploads batches concurrently.
func submitBatches(ctx context.Context, cfg *Config, batches []Batch, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting batches", logger.Int("batches", len(batches)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/data/upload"
	if cfg.Async {
		url += "?async=true"
	}

	var submitted, successful, duplicate, rejected, failed atomic.Int64
	count := func(outcome string) {
		submitted.Add(1)
		switch outcome {
		case outcomeSuccess:
			successful.Add(1)
		case outcomeDuplicate:
			duplicate.Add(1)
		case outcomeRejected:
			rejected.Add(1)
		default:
			failed.Add(1)
		}
	}

	work := make(chan Batch, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range work {
				if ctx.Err() != nil {
					return
				}
				outcome := submitSingleBatch(ctx, client, url, b)
				count(outcome)
				if cfg.Verbose {
					log.Info(ctx, "batch submitted",
						logger.String("batch_id", b.ID),
						logger.Int64("player_id", b.PlayerID),
						logger.String("outcome", outcome))
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, b := range batches {
			select {
			case <-ctx.Done():
				return
			case work <- b:
			}
		}
	}()
	wg.Wait()

	stats.BatchesSubmitted += int(submitted.Load())
	stats.BatchesSuccessful += int(successful.Load())
	stats.BatchesDuplicate += int(duplicate.Load())
	stats.BatchesRejected += int(rejected.Load())
	stats.BatchesFailed += int(failed.Load())

	log.Info(ctx, "batch submission completed",
		logger.Int("successful", stats.BatchesSuccessful),
		logger.Int("duplicate", stats.BatchesDuplicate),
		logger.Int("rejected", stats.BatchesRejected),
		logger.Int("failed", stats.BatchesFailed))
}

// submitSingleBatch uploads one batch and classifies the response.
func submitSingleBatch(ctx context.Context, client *HTTPClient, url string, b Batch) string {
	resp, err := client.Post(ctx, url, b.Readings, map[string]string{"X-Batch-ID": b.ID})
	if err != nil {
		return outcomeFailed
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return outcomeFailed
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return outcomeSuccess
	case http.StatusOK:
		var ack Ack
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return outcomeDuplicate
		}
		return outcomeSuccess
	case http.StatusTooManyRequests:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}
