package pusher

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/teamboard/pkg/logger"
)

const (
	logFilePermission = 0600
)

// SetupLogging sends log output to both stdout and a file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) (string, error) {
	if logFile == "" {
		logFile = "push_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return logFile, nil
}

// ShowHelp prints usage information for the push tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Teamboard Score Pusher
======================

Posts login score batches to a teamboard service and checks the
resulting leaderboard.

Usage:
  go run ./cmd/push-scores [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -file string
        JSON object of login -> score to push (reloaded on every push)
  -logins int
        Number of logins to generate when no file is given (default 20)
  -names string
        Comma separated login names to generate scores for
  -max-score int
        Upper bound for generated scores (default 1000)
  -interval duration
        Push repeatedly at this interval, 0 pushes once (default 0)
  -timeout duration
        HTTP request timeout (default 10s)
  -verify
        Fetch and check the leaderboard after each push (default true)
  -output string
        Save generated batches to this file
  -log string
        Log file (default: push_log_TIMESTAMP.log)
  -verbose
        Log every leaderboard entry
  -help
        Show this help message

Examples:
  # Push a saved batch once
  go run ./cmd/push-scores -file scores.json

  # Push every minute, picking up edits to the file
  go run ./cmd/push-scores -file scores.json -interval 1m

  # Generate scores for known logins
  go run ./cmd/push-scores -names alice,bob,carol -max-score 500
`)
}
