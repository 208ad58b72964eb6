package pusher

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/okian/teamboard/internal/domain/model"
	"github.com/okian/teamboard/pkg/logger"
)

// File permission constants.
const (
	batchFilePermission = 0600
)

// LoadBatch reads a login -> score object from path, keeping key order.
func LoadBatch(path string) (model.RawScoreBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var batch model.RawScoreBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidBatch, path, err)
	}
	return batch, nil
}

// GenerateBatch creates scores in [0, maxScore) for names, or for n
// logins named login-1..login-n when names is empty.
func GenerateBatch(rnd *rand.Rand, names []string, n int, maxScore int64) model.RawScoreBatch {
	if len(names) == 0 {
		names = make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("login-%d", i+1)
		}
	}
	if maxScore < 1 {
		maxScore = 1
	}
	batch := make(model.RawScoreBatch, 0, len(names))
	for _, name := range names {
		batch.Add(model.LoginID(name), rnd.Int63n(maxScore))
	}
	return batch
}

// SaveBatch writes batch to path. An empty path picks a timestamped name.
func SaveBatch(ctx context.Context, path string, batch model.RawScoreBatch) (string, error) {
	if path == "" {
		path = "generated_batch_" + time.Now().Format("20060102_150405") + ".json"
	}
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}
	if err := os.WriteFile(path, data, batchFilePermission); err != nil {
		return "", fmt.Errorf("write batch file: %w", err)
	}
	logger.Get().Info(ctx, "batch saved", logger.String("file", path), logger.Int("logins", len(batch)))
	return path, nil
}
