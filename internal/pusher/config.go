package pusher

import "time"

// Config holds configuration for a push run.
type Config struct {
	BaseURL    string        // Base URL of the service
	BatchFile  string        // JSON file with a login -> score object; empty to generate one
	Logins     int           // Number of logins to generate when BatchFile is empty
	LoginNames []string      // Generate scores for these logins instead of login-N
	MaxScore   int64         // Upper bound (exclusive) for generated scores
	Interval   time.Duration // Push repeatedly at this interval; 0 pushes once
	Timeout    time.Duration // HTTP request timeout
	Verify     bool          // Fetch and check the leaderboard after each push
	OutputFile string        // Save the generated batch here
	LogFile    string        // Log file for run output
	Verbose    bool          // Log every leaderboard entry
}

// Ack is the service's answer to an accepted batch.
type Ack struct {
	Status   string `json:"status"`
	ID       string `json:"id"`
	Version  uint64 `json:"version"`
	Entries  int    `json:"entries"`
	Dropped  int    `json:"dropped"`
	MaxScore int64  `json:"max_score"`
}

// Stats holds run statistics.
type Stats struct {
	Pushes      int
	Accepted    int
	Rejected    int
	Verified    int
	LastVersion uint64
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}
