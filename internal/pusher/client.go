package pusher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/teamboard/internal/domain/model"
	"github.com/okian/teamboard/internal/domain/types"
)

// maxResponseBytes bounds how much of a response the client reads.
const maxResponseBytes = 16 << 20

// Client talks to a teamboard service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks that the service answers GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Push posts batch to /data and returns the acknowledgment.
func (c *Client) Push(ctx context.Context, batch model.RawScoreBatch) (Ack, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return Ack{}, fmt.Errorf("marshal batch: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/data", body)
	if err != nil {
		return Ack{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Ack{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		rej := &RejectedError{Status: resp.StatusCode}
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &e) == nil {
			rej.Code, rej.Message = e.Code, e.Message
		}
		return Ack{}, rej
	}

	var ack Ack
	if err := json.Unmarshal(data, &ack); err != nil {
		return Ack{}, fmt.Errorf("decode ack: %w", err)
	}
	return ack, nil
}

// Leaderboard fetches the whole current board.
func (c *Client) Leaderboard(ctx context.Context) (types.Board, error) {
	resp, err := c.do(ctx, http.MethodGet, "/leaderboard", nil)
	if err != nil {
		return types.Board{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return types.Board{}, fmt.Errorf("leaderboard: unexpected status %d", resp.StatusCode)
	}
	var board types.Board
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&board); err != nil {
		return types.Board{}, fmt.Errorf("decode leaderboard: %w", err)
	}
	return board, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
