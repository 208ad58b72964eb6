// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	repository "github.com/okian/teamboard/internal/adapters/repository"
	"github.com/okian/teamboard/internal/adapters/sources"
	"github.com/okian/teamboard/internal/domain/model"
	"github.com/okian/teamboard/internal/domain/scoring"
	"github.com/okian/teamboard/internal/domain/types"
	"github.com/okian/teamboard/pkg/logger"
	"github.com/okian/teamboard/pkg/metrics"
)

// ErrNotConfigured is returned by Ingest when a source is missing.
var ErrNotConfigured = errors.New("service sources not configured")

// CommitHook is called after every successful commit, in version order.
// Hooks run while the writer lock is held and must not block.
type CommitHook func(ctx context.Context, snap repository.Snapshot)

// Service ingests score batches and serves the committed leaderboard.
type Service struct {
	mu sync.RWMutex
	// ingestMu serializes ingestions so commits follow lock order.
	ingestMu sync.Mutex

	// Core components
	registry sources.LoginRegistry
	bonuses  sources.BonusProvider
	store    repository.Store
	hooks    []CommitHook

	// Configuration
	systemMetricsInterval time.Duration

	// State
	started   bool
	startedAt time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup

	ingested    atomic.Int64
	failed      atomic.Int64
	lastDropped atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry sets the login registry consulted on every ingestion.
func WithRegistry(r sources.LoginRegistry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithBonusSource sets the supplemental score source consulted on every ingestion.
func WithBonusSource(b sources.BonusProvider) Option {
	return func(s *Service) {
		if b != nil {
			s.bonuses = b
		}
	}
}

// WithStore sets the leaderboard store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCommitHook registers fn to be called after each commit.
func WithCommitHook(fn CommitHook) Option {
	return func(s *Service) {
		if fn != nil {
			s.hooks = append(s.hooks, fn)
		}
	}
}

// WithSystemMetricsInterval sets how often Start refreshes process gauges.
func WithSystemMetricsInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.systemMetricsInterval = interval
		}
	}
}

// New constructs a new Service. Without WithStore it keeps state in a
// fresh SnapshotStore. Process gauges refresh at the metrics manager's
// interval unless WithSystemMetricsInterval overrides it.
func New(opts ...Option) *Service {
	s := &Service{
		systemMetricsInterval: metrics.RefreshInterval(),
		logger:                nil, // replaced on Start or first use
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewSnapshotStore()
	}

	return s
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	l := s.logger
	s.mu.RUnlock()
	if l == nil {
		return logger.Nop()
	}
	return l
}

// Start begins periodic process metric updates.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting leaderboard service...")

	s.stopCh = make(chan struct{})
	s.startSystemMetrics(ctx, s.stopCh)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "leaderboard service started",
		logger.Duration("systemMetricsInterval", s.systemMetricsInterval),
		logger.Int("commitHooks", len(s.hooks)),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.logger.Info(context.Background(), "stopping leaderboard service...")
	close(s.stopCh)
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	s.log().Info(context.Background(), "leaderboard service stopped")
}

func (s *Service) startSystemMetrics(ctx context.Context, stop <-chan struct{}) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.systemMetricsInterval)
		defer ticker.Stop()

		for {
			updateSystemMetrics()
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var avgGCPauseMs float64
	if m.NumGC > 0 {
		avgGCPauseMs = float64(m.PauseTotalNs) / float64(m.NumGC) / float64(time.Millisecond)
	}
	metrics.UpdateSystem(m.Alloc, runtime.NumGoroutine(), avgGCPauseMs)
}

// Ingest refetches both mappings, aggregates batch against them and
// replaces the leaderboard with the result. On any error the committed
// leaderboard is left untouched.
func (s *Service) Ingest(ctx context.Context, batch model.RawScoreBatch) (repository.Snapshot, error) {
	if s.registry == nil || s.bonuses == nil {
		return repository.Snapshot{}, ErrNotConfigured
	}

	start := time.Now()
	log := s.log()

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	logins, bonuses, err := s.fetch(ctx)
	if err != nil {
		return s.fail(ctx, log, start, metrics.ResultUnavailable, len(batch), err)
	}

	res, err := scoring.Aggregate(batch, logins, bonuses)
	if err != nil {
		result := metrics.ResultInvalid
		if errors.Is(err, scoring.ErrInconsistentTeamData) {
			result = metrics.ResultInconsistent
		}
		return s.fail(ctx, log, start, result, len(batch), err)
	}

	snap := s.store.Commit(ctx, res.Board, res.Dropped)
	for _, hook := range s.hooks {
		hook(ctx, snap)
	}

	latencyMs := float64(time.Since(start).Microseconds()) / 1000
	s.ingested.Add(1)
	s.lastDropped.Store(int64(res.Dropped))
	metrics.RecordIngestion(metrics.ResultOK, latencyMs)
	metrics.RecordBatch(len(batch), res.Dropped)

	log.Info(ctx, "leaderboard committed",
		logger.Uint64("version", snap.Version),
		logger.String("id", snap.ID),
		logger.Int("submitted", len(batch)),
		logger.Int("entries", res.Retained),
		logger.Int("dropped", res.Dropped),
		logger.Int64("maxScore", snap.Board.MaxScore),
		logger.Float64("latencyMs", latencyMs),
	)
	return snap, nil
}

// fetch loads both mappings concurrently. The first failure cancels the
// other fetch.
func (s *Service) fetch(ctx context.Context) (model.LoginTeamMapping, model.BonusMapping, error) {
	var (
		logins  model.LoginTeamMapping
		bonuses model.BonusMapping
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		logins, err = s.registry.Logins(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		bonuses, err = s.bonuses.Bonuses(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if !errors.Is(err, sources.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", sources.ErrSourceUnavailable, err)
		}
		return nil, nil, err
	}
	return logins, bonuses, nil
}

func (s *Service) fail(ctx context.Context, log logger.Logger, start time.Time, result string, submitted int, err error) (repository.Snapshot, error) {
	latencyMs := float64(time.Since(start).Microseconds()) / 1000
	s.failed.Add(1)
	metrics.RecordIngestion(result, latencyMs)
	log.Warn(ctx, "ingestion rejected",
		logger.String("result", result),
		logger.Int("submitted", submitted),
		logger.Float64("latencyMs", latencyMs),
		logger.Error(err),
	)
	return repository.Snapshot{}, fmt.Errorf("ingest: %w", err)
}

// Current returns the most recently committed snapshot.
func (s *Service) Current(ctx context.Context) repository.Snapshot {
	return s.store.Current(ctx)
}

// Board returns the current leaderboard in its API shape.
func (s *Service) Board(ctx context.Context) types.Board {
	return BoardOf(s.store.Current(ctx))
}

// BoardOf converts a snapshot to its API shape.
func BoardOf(snap repository.Snapshot) types.Board {
	return types.Board{
		Entries:   types.Ranked(snap.Board.Entries),
		MaxScore:  snap.Board.MaxScore,
		Version:   snap.Version,
		ID:        snap.ID,
		UpdatedAt: snap.UpdatedAt,
	}
}

// TopN returns the current board cut to its first n entries. Ranks are
// those of the full board.
func (s *Service) TopN(ctx context.Context, n int) (types.Board, error) {
	if n < 1 {
		return types.Board{}, repository.ErrInvalidLimit
	}
	b := s.Board(ctx)
	if n < len(b.Entries) {
		b.Entries = b.Entries[:n]
	}
	return b, nil
}

// Rank returns the best placed entry for team.
func (s *Service) Rank(ctx context.Context, team string) (types.Entry, error) {
	rank, e, err := s.store.Rank(ctx, model.TeamName(team))
	if err != nil {
		return types.Entry{}, err
	}
	return types.Entry{Rank: rank, Team: e.Team, Score: e.Score}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	startedAt := s.startedAt
	s.mu.RUnlock()

	snap := s.store.Current(context.Background())
	stats := map[string]interface{}{
		"started":               started,
		"version":               snap.Version,
		"entries":               snap.Board.Len(),
		"maxScore":              snap.Board.MaxScore,
		"ingestions":            s.ingested.Load(),
		"failedIngestions":      s.failed.Load(),
		"lastDroppedLogins":     s.lastDropped.Load(),
		"systemMetricsInterval": s.systemMetricsInterval.String(),
	}
	if !snap.UpdatedAt.IsZero() {
		stats["updatedAt"] = snap.UpdatedAt
	}
	if started {
		stats["uptimeSeconds"] = int64(time.Since(startedAt).Seconds())
	}

	return stats
}
