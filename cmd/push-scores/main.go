package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/teamboard/internal/pusher"
)

// Default configuration constants.
const (
	defaultLogins   = 20
	defaultMaxScore = 1000
	defaultTimeout  = 10 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		batchFile  = flag.String("file", "", "JSON object of login -> score to push")
		logins     = flag.Int("logins", defaultLogins, "Number of logins to generate when no file is given")
		names      = flag.String("names", "", "Comma separated login names to generate scores for")
		maxScore   = flag.Int64("max-score", defaultMaxScore, "Upper bound for generated scores")
		interval   = flag.Duration("interval", 0, "Push repeatedly at this interval, 0 pushes once")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verify     = flag.Bool("verify", true, "Fetch and check the leaderboard after each push")
		outputFile = flag.String("output", "", "Save generated batches to this file")
		logFile    = flag.String("log", "", "Log file (default: push_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Log every leaderboard entry")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		pusher.ShowHelp(os.Stdout)
		return
	}

	if _, err := pusher.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *interval <= 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRunLimit)
		defer cancel()
	}

	config := &pusher.Config{
		BaseURL:    *baseURL,
		BatchFile:  *batchFile,
		Logins:     *logins,
		LoginNames: splitNames(*names),
		MaxScore:   *maxScore,
		Interval:   *interval,
		Timeout:    *timeout,
		Verify:     *verify,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if _, err := pusher.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Push failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func splitNames(s string) []string {
	var out []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
