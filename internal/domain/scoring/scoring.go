// Package scoring combines raw login scores with team bonuses into a ranked
// leaderboard.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/teamboard/internal/domain/model"
)

// Result is the outcome of one aggregation.
type Result struct {
	Board model.Leaderboard
	// Retained counts pairs whose login the registry knows.
	Retained int
	// Dropped counts pairs whose login the registry does not know.
	Dropped int
}

// Aggregate filters batch to logins present in logins, resolves each to its
// team and adds the team's bonus. Every retained login yields its own entry;
// entries of the same team are not merged. Entries are ordered by score
// descending with ties kept in batch order.
//
// Unknown logins are dropped without inspecting their score. A known login
// whose team has no bonus fails with ErrInconsistentTeamData, and a known
// login with a non-integer score, or one whose total does not fit in an
// int64, fails with ErrInvalidScore.
func Aggregate(batch model.RawScoreBatch, logins model.LoginTeamMapping, bonuses model.BonusMapping) (Result, error) {
	entries := make([]model.Entry, 0, len(batch))
	dropped := 0

	for _, p := range batch {
		team, known := logins[p.Login]
		if !known {
			dropped++
			continue
		}
		if !p.Valid {
			return Result{}, fmt.Errorf("%w: login %q", ErrInvalidScore, p.Login)
		}
		bonus, ok := bonuses[team]
		if !ok {
			return Result{}, fmt.Errorf("%w: team %q (login %q) has no supplemental score", ErrInconsistentTeamData, team, p.Login)
		}
		total, ok := addScores(p.Score, bonus)
		if !ok {
			return Result{}, fmt.Errorf("%w: login %q: total overflows", ErrInvalidScore, p.Login)
		}
		entries = append(entries, model.Entry{Team: team, Score: total})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	var maxScore int64
	if len(entries) > 0 {
		maxScore = entries[0].Score
	}

	return Result{
		Board:    model.Leaderboard{Entries: entries, MaxScore: maxScore},
		Retained: len(entries),
		Dropped:  dropped,
	}, nil
}

// addScores returns a+b, or false when the sum does not fit in an int64.
func addScores(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}
