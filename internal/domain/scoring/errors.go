package scoring

import "errors"

// Sentinel kinds for aggregation errors.
var (
	// ErrInconsistentTeamData means a team known to the login registry has no
	// entry in the supplemental score source.
	ErrInconsistentTeamData = errors.New("inconsistent team data")
	// ErrInvalidScore means a known login was submitted with a non-integer score.
	ErrInvalidScore = errors.New("invalid score")
)
