package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/teamboard/internal/domain/model"
	"github.com/okian/teamboard/pkg/metrics"
)

// SnapshotStore publishes each leaderboard as a whole through an atomic
// pointer. Readers load the pointer and never observe a partial update.
// Commits are serialized so versions increase by one per commit.
type SnapshotStore struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[Snapshot]

	now   func() time.Time
	newID func() string
}

var _ Store = (*SnapshotStore)(nil)

// NewSnapshotStore constructs a store holding the empty leaderboard.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		now:   time.Now,
		newID: newUUID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot.Store(&Snapshot{Board: model.EmptyLeaderboard()})
	return s
}

// Commit publishes board as the new state. The store keeps its own copy
// of the entries so later changes to the caller's slice are not visible.
func (s *SnapshotStore) Commit(ctx context.Context, board model.Leaderboard, dropped int) Snapshot {
	entries := make([]model.Entry, len(board.Entries))
	copy(entries, board.Entries)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshot.Load()
	next := &Snapshot{
		Board:     model.Leaderboard{Entries: entries, MaxScore: board.MaxScore},
		Version:   prev.Version + 1,
		ID:        s.newID(),
		UpdatedAt: s.now().UTC(),
		Dropped:   dropped,
	}
	s.snapshot.Store(next)

	metrics.RecordCommit(len(entries), next.Board.MaxScore, next.Version, next.UpdatedAt)
	return *next
}

// Current returns the latest snapshot.
func (s *SnapshotStore) Current(ctx context.Context) Snapshot {
	return *s.snapshot.Load()
}

// Rank scans the current snapshot for team.
func (s *SnapshotStore) Rank(ctx context.Context, team model.TeamName) (int, model.Entry, error) {
	rank, e, ok := s.snapshot.Load().Board.Find(team)
	if !ok {
		return 0, model.Entry{}, ErrNotFound
	}
	return rank, e, nil
}

// Count returns the number of entries in the current snapshot.
func (s *SnapshotStore) Count(ctx context.Context) int {
	return s.snapshot.Load().Board.Len()
}
