// Package types contains the read shapes the API returns.
package types

import (
	"time"

	"github.com/okian/teamboard/internal/domain/model"
)

// Entry represents a ranked leaderboard row.
type Entry struct {
	Rank  int            `json:"rank"`
	Team  model.TeamName `json:"team"`
	Score int64          `json:"score"`
}

// Board is the leaderboard as served to readers.
type Board struct {
	Entries   []Entry   `json:"entries"`
	MaxScore  int64     `json:"max_score"`
	Version   uint64    `json:"version"`
	ID        string    `json:"id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ranked numbers entries by position, starting at 1. Equal scores get
// consecutive ranks in their stored order.
func Ranked(entries []model.Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{Rank: i + 1, Team: e.Team, Score: e.Score}
	}
	return out
}
