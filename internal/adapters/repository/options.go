package repository

import (
	"time"

	"github.com/google/uuid"
)

// Option applies a configuration option to the SnapshotStore.
type Option func(*SnapshotStore)

// WithClock sets the time source used to stamp commits.
func WithClock(now func() time.Time) Option {
	return func(s *SnapshotStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the generator for snapshot identifiers.
func WithIDGenerator(gen func() string) Option {
	return func(s *SnapshotStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func newUUID() string { return uuid.NewString() }
