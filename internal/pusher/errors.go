package pusher

import (
	"errors"
	"fmt"
)

// Sentinel kinds for push errors.
var (
	ErrRejected     = errors.New("batch rejected")
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrVerification = errors.New("leaderboard verification failed")
	ErrInvalidBatch = errors.New("invalid batch file")
)

// RejectedError carries the service's error response for a refused batch.
type RejectedError struct {
	Status  int
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%v: status %d: %s: %s", ErrRejected, e.Status, e.Code, e.Message)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }
