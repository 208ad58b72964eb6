package pusher

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/okian/teamboard/internal/domain/model"
	"github.com/okian/teamboard/pkg/logger"
)

// Run checks the service, pushes one batch and verifies the board. With a
// positive Interval it keeps pushing until ctx is done, reloading the
// batch file on every tick so edits are picked up.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(config.BaseURL, config.Timeout)
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	logger.Get().Info(ctx, "starting teamboard push",
		logger.String("baseURL", config.BaseURL),
		logger.String("batchFile", config.BatchFile),
		logger.Duration("interval", config.Interval),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("verify", config.Verify))

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	logger.Get().Info(ctx, "service is healthy")

	err := pushOnce(ctx, client, config, rnd, stats)
	if config.Interval <= 0 {
		finish(ctx, stats)
		return stats, err
	}
	if err != nil {
		logger.Get().Warn(ctx, "push failed", logger.Error(err))
	}

	ticker := time.NewTicker(config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			finish(ctx, stats)
			return stats, nil
		case <-ticker.C:
			if err := pushOnce(ctx, client, config, rnd, stats); err != nil {
				if ctx.Err() != nil {
					finish(ctx, stats)
					return stats, nil
				}
				logger.Get().Warn(ctx, "push failed", logger.Error(err))
			}
		}
	}
}

func pushOnce(ctx context.Context, client *Client, config *Config, rnd *rand.Rand, stats *Stats) error {
	batch, err := nextBatch(ctx, config, rnd)
	if err != nil {
		return err
	}

	stats.Pushes++
	ack, err := client.Push(ctx, batch)
	if err != nil {
		var rej *RejectedError
		if errors.As(err, &rej) {
			stats.Rejected++
		}
		return fmt.Errorf("push batch: %w", err)
	}
	stats.Accepted++
	stats.LastVersion = ack.Version

	logger.Get().Info(ctx, "batch accepted",
		logger.String("id", ack.ID),
		logger.Uint64("version", ack.Version),
		logger.Int("logins", len(batch)),
		logger.Int("entries", ack.Entries),
		logger.Int("dropped", ack.Dropped),
		logger.Int64("maxScore", ack.MaxScore))

	if !config.Verify {
		return nil
	}
	board, err := client.Leaderboard(ctx)
	if err != nil {
		return fmt.Errorf("fetch leaderboard: %w", err)
	}
	if err := VerifyBoard(board, ack); err != nil {
		return err
	}
	stats.Verified++

	if config.Verbose {
		for _, e := range board.Entries {
			logger.Get().Info(ctx, "leaderboard entry",
				logger.Int("rank", e.Rank),
				logger.String("team", string(e.Team)),
				logger.Int64("score", e.Score))
		}
	}
	return nil
}

// nextBatch loads the configured file or generates a fresh batch, saving
// generated batches when an output file is set.
func nextBatch(ctx context.Context, config *Config, rnd *rand.Rand) (model.RawScoreBatch, error) {
	if config.BatchFile != "" {
		return LoadBatch(config.BatchFile)
	}
	batch := GenerateBatch(rnd, config.LoginNames, config.Logins, config.MaxScore)
	if config.OutputFile != "" {
		if _, err := SaveBatch(ctx, config.OutputFile, batch); err != nil {
			logger.Get().Warn(ctx, "failed to save batch", logger.Error(err))
		}
	}
	return batch, nil
}

func finish(ctx context.Context, stats *Stats) {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	logger.Get().Info(ctx, "final statistics",
		logger.Int("pushes", stats.Pushes),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("verified", stats.Verified),
		logger.Uint64("lastVersion", stats.LastVersion),
		logger.String("duration", stats.Duration.String()))
}
