package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/pkg/logger"
)

// ErrTrackerUnreachable is returned when the device cannot serve the file.
var ErrTrackerUnreachable = errors.New("tracker unreachable or file missing")

const (
	defaultTimeout = 10 * time.Second
	maxCSVBytes    = 64 << 20
)

// Client downloads CSV exports from a tracker on the local network.
type Client struct {
	client *http.Client
	logger logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout bounds each download.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewClient creates a tracker client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		client: &http.Client{Timeout: defaultTimeout},
		logger: logger.Get().Named("tracker"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DownloadURL builds http://<host>/download?file=<name>.
func DownloadURL(host, file string) string {
	u := url.URL{
		Scheme:   "http",
		Host:     host,
		Path:     "/download",
		RawQuery: url.Values{"file": {file}}.Encode(),
	}
	return u.String()
}

// Fetch downloads and parses one CSV file from the tracker at host.
func (c *Client) Fetch(ctx context.Context, host, file string) ([]model.RawSample, error) {
	target := DownloadURL(host, file)
	c.logger.Info(ctx, "fetching tracker csv", logger.String("url", target))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrackerUnreachable, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrackerUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrTrackerUnreachable, resp.StatusCode)
	}

	samples, err := ParseCSV(io.LimitReader(resp.Body, maxCSVBytes))
	if err != nil {
		return nil, err
	}
	c.logger.Info(ctx, "tracker csv parsed",
		logger.String("file", file),
		logger.Int("rows", len(samples)),
	)
	return samples, nil
}
