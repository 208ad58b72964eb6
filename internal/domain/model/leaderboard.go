package model

// Entry is one ranked row: a team and its total score.
type Entry struct {
	Team  TeamName `json:"team"`
	Score int64    `json:"score"`
}

// Leaderboard is the ranked view: entries by Score descending and the
// highest score (0 when there are no entries).
type Leaderboard struct {
	Entries  []Entry `json:"entries"`
	MaxScore int64   `json:"max_score"`
}

// EmptyLeaderboard returns the initial board with a non-nil entry slice.
func EmptyLeaderboard() Leaderboard {
	return Leaderboard{Entries: []Entry{}}
}

// Len returns the number of entries.
func (l Leaderboard) Len() int { return len(l.Entries) }

// Top returns a copy of the first n entries, or all of them when n exceeds Len.
func (l Leaderboard) Top(n int) []Entry {
	if n < 0 {
		n = 0
	}
	if n > len(l.Entries) {
		n = len(l.Entries)
	}
	out := make([]Entry, n)
	copy(out, l.Entries[:n])
	return out
}

// Find returns the 1-based rank and entry of the best placed row for team.
func (l Leaderboard) Find(team TeamName) (int, Entry, bool) {
	for i, e := range l.Entries {
		if e.Team == team {
			return i + 1, e, true
		}
	}
	return 0, Entry{}, false
}
