package pusher

import (
	"fmt"

	"github.com/okian/teamboard/internal/domain/types"
)

// VerifyBoard checks a fetched board against the invariants every
// committed leaderboard holds, and against the ack of the push that
// preceded the fetch.
func VerifyBoard(board types.Board, ack Ack) error {
	if board.Version < ack.Version {
		return fmt.Errorf("%w: board version %d is older than pushed version %d", ErrVerification, board.Version, ack.Version)
	}
	if board.Version == ack.Version {
		if len(board.Entries) != ack.Entries {
			return fmt.Errorf("%w: %d entries, ack reported %d", ErrVerification, len(board.Entries), ack.Entries)
		}
		if board.MaxScore != ack.MaxScore {
			return fmt.Errorf("%w: max score %d, ack reported %d", ErrVerification, board.MaxScore, ack.MaxScore)
		}
	}

	if len(board.Entries) == 0 {
		if board.MaxScore != 0 {
			return fmt.Errorf("%w: empty board with max score %d", ErrVerification, board.MaxScore)
		}
		return nil
	}
	if board.MaxScore != board.Entries[0].Score {
		return fmt.Errorf("%w: max score %d differs from top score %d", ErrVerification, board.MaxScore, board.Entries[0].Score)
	}
	for i, e := range board.Entries {
		if e.Rank != i+1 {
			return fmt.Errorf("%w: entry %d has rank %d", ErrVerification, i, e.Rank)
		}
		if i > 0 && e.Score > board.Entries[i-1].Score {
			return fmt.Errorf("%w: entry %d (%d) outscores entry %d (%d)", ErrVerification, i, e.Score, i-1, board.Entries[i-1].Score)
		}
	}
	return nil
}
