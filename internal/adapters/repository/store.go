// Package repository holds the committed leaderboard state.
package repository

import (
	"context"
	"time"

	"github.com/okian/teamboard/internal/domain/model"
)

// Snapshot is an immutable committed leaderboard plus commit metadata.
// Version 0 is the empty board the store starts with.
type Snapshot struct {
	Board     model.Leaderboard
	Version   uint64
	ID        string
	UpdatedAt time.Time
	Dropped   int
}

// Store provides read/write access to the leaderboard state.
type Store interface {
	// Commit replaces the whole leaderboard and returns the published snapshot.
	Commit(ctx context.Context, board model.Leaderboard, dropped int) Snapshot

	// Current returns the latest snapshot. It never blocks on writers.
	Current(ctx context.Context) Snapshot

	// Rank returns the 1-based rank and entry of the best placed row for team.
	// Returns ErrNotFound if the team has no entry.
	Rank(ctx context.Context, team model.TeamName) (int, model.Entry, error)

	// Count returns the number of entries in the current leaderboard.
	Count(ctx context.Context) int
}
