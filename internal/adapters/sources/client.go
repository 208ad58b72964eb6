// Package sources fetches the two external mappings ingestion depends on:
// the login registry (login -> team) and the supplemental score source
// (team -> bonus). Both are plain JSON objects served over HTTP GET.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/teamboard/pkg/logger"
	"github.com/okian/teamboard/pkg/metrics"
)

// Source names used in errors, logs and metric labels.
const (
	RegistrySource = "registry"
	BonusSource    = "bonus"
)

// client performs bounded GETs of a JSON object.
type client struct {
	name         string
	url          string
	http         *http.Client
	timeout      time.Duration
	maxBodyBytes int64
	logger       logger.Logger
}

func newClient(name, url string, opts ...Option) *client {
	c := &client{
		name:         name,
		url:          url,
		http:         &http.Client{},
		timeout:      defaultTimeout,
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named(name)
	return c
}

// fetchObject GETs the URL and decodes the body as a JSON object with
// values left raw for the caller to type-check.
func (c *client) fetchObject(ctx context.Context) (map[string]json.RawMessage, error) {
	start := time.Now()
	obj, err := c.doFetch(ctx)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		metrics.RecordSourceFetch(c.name, metrics.ResultUnavailable, latencyMs)
		c.logger.Warn(ctx, "source fetch failed",
			logger.String("url", c.url),
			logger.Float64("latencyMs", latencyMs),
			logger.Error(err),
		)
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, c.name, err)
	}
	metrics.RecordSourceFetch(c.name, metrics.ResultOK, latencyMs)
	c.logger.Debug(ctx, "source fetched",
		logger.Int("keys", len(obj)),
		logger.Float64("latencyMs", latencyMs),
	)
	return obj, nil
}

func (c *client) doFetch(ctx context.Context) (map[string]json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBodyBytes))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedResponse, c.maxBodyBytes)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if obj == nil {
		// A literal null decodes into a nil map.
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedResponse)
	}
	return obj, nil
}
