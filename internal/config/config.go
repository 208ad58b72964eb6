// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and TEAMBOARD_* env vars.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// RegistryURL is the login registry endpoint returning login -> team.
	RegistryURL string `koanf:"registry_url"`
	// BonusURL is the supplemental score endpoint returning team -> bonus.
	BonusURL string `koanf:"bonus_url"`
	// SourceTimeoutMS bounds each fetch from an external source.
	SourceTimeoutMS int `koanf:"source_timeout_ms"`
	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
	// MaxBatchBytes caps the POST /data request body.
	MaxBatchBytes int64 `koanf:"max_batch_bytes"`
	// WSPingIntervalMS is the keepalive interval of live leaderboard clients.
	WSPingIntervalMS int `koanf:"ws_ping_interval_ms"`
	// WSAllowedOrigins is a comma separated list of origins allowed to open
	// the live feed. Empty allows same-origin pages only; "*" allows any.
	WSAllowedOrigins string `koanf:"ws_allowed_origins"`
}

// New creates a Config populated with defaults. The source URLs match the
// compose service names the scraper setup uses.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":8080",
		RegistryURL:         "http://parmesan:5000/spoopy_admin_url_replace_me_pls",
		BonusURL:            "http://manual_flags:80/scores",
		SourceTimeoutMS:     5_000,
		MaxLeaderboardLimit: 1_000,
		MaxBatchBytes:       1 << 20,
		WSPingIntervalMS:    30_000,
	}
}

// SourceTimeout returns SourceTimeoutMS as a duration.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutMS) * time.Millisecond
}

// WSPingInterval returns WSPingIntervalMS as a duration.
func (c *Config) WSPingInterval() time.Duration {
	return time.Duration(c.WSPingIntervalMS) * time.Millisecond
}

// AllowedOrigins splits WSAllowedOrigins into trimmed, non-empty origins.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.WSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate reports the first invalid field, wrapped with ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SourceTimeoutMS <= 0:
		return fmt.Errorf("%w: source_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.MaxBatchBytes <= 0:
		return fmt.Errorf("%w: max_batch_bytes must be positive", ErrInvalidConfig)
	case c.WSPingIntervalMS <= 0:
		return fmt.Errorf("%w: ws_ping_interval_ms must be positive", ErrInvalidConfig)
	}
	if err := validateURL("registry_url", c.RegistryURL); err != nil {
		return err
	}
	return validateURL("bonus_url", c.BonusURL)
}

func validateURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidConfig, key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %s must be an http(s) URL", ErrInvalidConfig, key)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %s has no host", ErrInvalidConfig, key)
	}
	return nil
}
