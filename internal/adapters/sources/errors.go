package sources

import "errors"

// Sentinel kinds for source fetch errors.
var (
	// ErrSourceUnavailable covers every failure to obtain a usable mapping:
	// transport errors, timeouts, non-2xx statuses and malformed bodies.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrMalformedResponse is additionally wrapped when the body had the wrong shape.
	ErrMalformedResponse = errors.New("malformed source response")
)
