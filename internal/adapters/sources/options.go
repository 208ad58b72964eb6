package sources

import (
	"net/http"
	"time"

	"github.com/okian/teamboard/pkg/logger"
)

// Default client configuration constants.
const (
	defaultTimeout      = 5 * time.Second
	defaultMaxBodyBytes = 8 << 20
)

// Option applies a configuration option to a source client.
type Option func(*client)

// WithHTTPClient replaces the HTTP client used for fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout bounds each fetch, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(cl *client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithMaxBodyBytes caps the response body size.
func WithMaxBodyBytes(n int64) Option {
	return func(cl *client) {
		if n > 0 {
			cl.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(cl *client) {
		if l != nil {
			cl.logger = l
		}
	}
}
