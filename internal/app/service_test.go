package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	repository "github.com/okian/teamboard/internal/adapters/repository"
	"github.com/okian/teamboard/internal/adapters/sources"
	service "github.com/okian/teamboard/internal/app"
	"github.com/okian/teamboard/internal/domain/model"
	"github.com/okian/teamboard/internal/domain/scoring"
	"github.com/okian/teamboard/internal/domain/types"
	"github.com/okian/teamboard/pkg/logger"
	"github.com/okian/teamboard/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type fakeRegistry struct {
	mu     sync.Mutex
	logins model.LoginTeamMapping
	err    error
	calls  int
}

func (f *fakeRegistry) Logins(ctx context.Context) (model.LoginTeamMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.logins, nil
}

type fakeBonus struct {
	mu      sync.Mutex
	bonuses model.BonusMapping
	err     error
	calls   int
}

func (f *fakeBonus) Bonuses(ctx context.Context) (model.BonusMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.bonuses, nil
}

func batchOf(pairs ...any) model.RawScoreBatch {
	var b model.RawScoreBatch
	for i := 0; i < len(pairs); i += 2 {
		b.Add(model.LoginID(pairs[i].(string)), int64(pairs[i+1].(int)))
	}
	return b
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should serve the empty leaderboard", func() {
			So(svc, ShouldNotBeNil)
			snap := svc.Current(context.Background())
			So(snap.Version, ShouldEqual, 0)
			So(snap.Board.Entries, ShouldBeEmpty)
			So(snap.Board.MaxScore, ShouldEqual, 0)
		})

		Convey("And ingesting without sources should fail", func() {
			_, err := svc.Ingest(context.Background(), batchOf("alice", 1))
			So(errors.Is(err, service.ErrNotConfigured), ShouldBeTrue)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithSystemMetricsInterval(10 * time.Millisecond))
		// Ensure service is stopped after test
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, true)
			})

			Convey("And starting twice should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stopping should mark it stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
				svc.Stop()
			})
		})
	})
}

func TestService_Ingest(t *testing.T) {
	Convey("Given a service with both sources", t, func() {
		ctx := context.Background()
		reg := &fakeRegistry{logins: model.LoginTeamMapping{"alice": "Red", "bob": "Blue"}}
		bon := &fakeBonus{bonuses: model.BonusMapping{"Red": 10, "Blue": 5}}

		var hooked []repository.Snapshot
		svc := service.New(
			service.WithRegistry(reg),
			service.WithBonusSource(bon),
			service.WithCommitHook(func(ctx context.Context, snap repository.Snapshot) {
				hooked = append(hooked, snap)
			}),
		)

		Convey("When ingesting known logins", func() {
			snap, err := svc.Ingest(ctx, batchOf("alice", 100, "bob", 200))

			Convey("Then the board should hold ranked totals", func() {
				So(err, ShouldBeNil)
				So(snap.Version, ShouldEqual, 1)
				So(snap.Board.Entries, ShouldResemble, []model.Entry{
					{Team: "Blue", Score: 205},
					{Team: "Red", Score: 110},
				})
				So(snap.Board.MaxScore, ShouldEqual, 205)
				So(svc.Current(ctx), ShouldResemble, snap)
			})

			Convey("And both sources should have been consulted", func() {
				So(reg.calls, ShouldEqual, 1)
				So(bon.calls, ShouldEqual, 1)
			})

			Convey("And the commit hook should see the snapshot", func() {
				So(hooked, ShouldHaveLength, 1)
				So(hooked[0], ShouldResemble, snap)
			})

			Convey("And reads should reflect it", func() {
				top, err := svc.TopN(ctx, 1)
				So(err, ShouldBeNil)
				So(top.Entries, ShouldResemble, []types.Entry{{Rank: 1, Team: "Blue", Score: 205}})
				So(top.MaxScore, ShouldEqual, 205)

				all, err := svc.TopN(ctx, 50)
				So(err, ShouldBeNil)
				So(all.Entries, ShouldHaveLength, 2)

				_, err = svc.TopN(ctx, 0)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)

				e, err := svc.Rank(ctx, "Red")
				So(err, ShouldBeNil)
				So(e, ShouldResemble, types.Entry{Rank: 2, Team: "Red", Score: 110})

				_, err = svc.Rank(ctx, "Green")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

				b := svc.Board(ctx)
				So(b.Version, ShouldEqual, 1)
				So(b.ID, ShouldEqual, snap.ID)
				So(b.MaxScore, ShouldEqual, 205)
			})
		})

		Convey("When a login is unknown", func() {
			snap, err := svc.Ingest(ctx, batchOf("alice", 50, "mallory", 999))

			Convey("Then it should be dropped silently", func() {
				So(err, ShouldBeNil)
				So(snap.Board.Entries, ShouldResemble, []model.Entry{{Team: "Red", Score: 60}})
				So(snap.Board.MaxScore, ShouldEqual, 60)
				So(snap.Dropped, ShouldEqual, 1)
			})
		})

		Convey("When the batch is empty", func() {
			snap, err := svc.Ingest(ctx, model.RawScoreBatch{})

			Convey("Then the board should be empty with max score 0", func() {
				So(err, ShouldBeNil)
				So(snap.Board.Entries, ShouldBeEmpty)
				So(snap.Board.MaxScore, ShouldEqual, 0)
				So(snap.Version, ShouldEqual, 1)
			})
		})

		Convey("When the same batch is ingested twice", func() {
			batch := batchOf("alice", 100, "bob", 200)
			first, err1 := svc.Ingest(ctx, batch)
			second, err2 := svc.Ingest(ctx, batch)

			Convey("Then the boards should be identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second.Board, ShouldResemble, first.Board)
				So(second.Version, ShouldEqual, first.Version+1)
			})
		})

		Convey("When the registry is unavailable", func() {
			_, err := svc.Ingest(ctx, batchOf("alice", 100))
			So(err, ShouldBeNil)
			before := svc.Current(ctx)

			reg.err = errors.New("connection refused")
			_, err = svc.Ingest(ctx, batchOf("bob", 300))

			Convey("Then the error should be source unavailable", func() {
				So(errors.Is(err, sources.ErrSourceUnavailable), ShouldBeTrue)
			})

			Convey("And the previous board should remain", func() {
				So(svc.Current(ctx), ShouldResemble, before)
				So(hooked, ShouldHaveLength, 1)
			})
		})

		Convey("When the bonus source is unavailable", func() {
			bon.err = errors.New("timeout")
			_, err := svc.Ingest(ctx, batchOf("alice", 100))

			Convey("Then nothing should be committed", func() {
				So(errors.Is(err, sources.ErrSourceUnavailable), ShouldBeTrue)
				So(svc.Current(ctx).Version, ShouldEqual, 0)
				So(svc.GetStats()["failedIngestions"], ShouldEqual, int64(1))
			})
		})

		Convey("When a known team has no bonus", func() {
			reg.logins = model.LoginTeamMapping{"alice": "Red", "carol": "Green"}
			_, err := svc.Ingest(ctx, batchOf("carol", 10))

			Convey("Then the error should be inconsistent team data", func() {
				So(errors.Is(err, scoring.ErrInconsistentTeamData), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "Green")
				So(svc.Current(ctx).Version, ShouldEqual, 0)
			})
		})
	})
}

func TestService_ConcurrentIngest(t *testing.T) {
	Convey("Given a service ingesting from many goroutines", t, func() {
		ctx := context.Background()
		reg := &fakeRegistry{logins: model.LoginTeamMapping{"alice": "Red", "bob": "Blue"}}
		bon := &fakeBonus{bonuses: model.BonusMapping{"Red": 0, "Blue": 0}}

		var mu sync.Mutex
		var versions []uint64
		svc := service.New(
			service.WithRegistry(reg),
			service.WithBonusSource(bon),
			service.WithCommitHook(func(ctx context.Context, snap repository.Snapshot) {
				mu.Lock()
				versions = append(versions, snap.Version)
				mu.Unlock()
			}),
		)

		const writers = 16
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _ = svc.Ingest(ctx, batchOf("alice", i, "bob", i))
			}(i)
		}
		wg.Wait()

		Convey("Then every ingestion should commit exactly once in order", func() {
			So(svc.Current(ctx).Version, ShouldEqual, writers)
			So(versions, ShouldHaveLength, writers)
			for i, v := range versions {
				So(v, ShouldEqual, uint64(i+1))
			}
		})

		Convey("And the final board should be one whole batch", func() {
			b := svc.Current(ctx).Board
			So(b.Len(), ShouldEqual, 2)
			So(b.Entries[0].Score, ShouldEqual, b.Entries[1].Score)
			So(b.MaxScore, ShouldEqual, b.Entries[0].Score)
		})
	})
}

// skewedStore reports a count that never matches its snapshot.
type skewedStore struct {
	repository.Store
}

func (skewedStore) Count(ctx context.Context) int { return -1 }

func TestService_GetStats(t *testing.T) {
	Convey("Given a service whose store count disagrees with its snapshot", t, func() {
		reg := &fakeRegistry{logins: model.LoginTeamMapping{"alice": "Red", "bob": "Blue"}}
		bon := &fakeBonus{bonuses: model.BonusMapping{"Red": 10, "Blue": 5}}
		svc := service.New(
			service.WithRegistry(reg),
			service.WithBonusSource(bon),
			service.WithStore(skewedStore{Store: repository.NewSnapshotStore()}),
		)
		snap, err := svc.Ingest(context.Background(), batchOf("alice", 100, "bob", 200))
		So(err, ShouldBeNil)

		Convey("Then stats should describe one snapshot", func() {
			stats := svc.GetStats()
			So(stats["entries"], ShouldEqual, 2)
			So(stats["version"], ShouldEqual, snap.Version)
			So(stats["maxScore"], ShouldEqual, int64(205))
		})
	})

	Convey("Given services with and without a metrics interval", t, func() {
		Convey("The default interval should come from the metrics manager", func() {
			stats := service.New().GetStats()
			So(stats["systemMetricsInterval"], ShouldEqual, metrics.RefreshInterval().String())
		})

		Convey("An explicit interval should override it", func() {
			stats := service.New(service.WithSystemMetricsInterval(25 * time.Millisecond)).GetStats()
			So(stats["systemMetricsInterval"], ShouldEqual, "25ms")
		})
	})

	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it should return basic stats", func() {
				So(stats, ShouldNotBeNil)
				So(stats["started"], ShouldEqual, false)
				So(stats["version"], ShouldEqual, uint64(0))
				So(stats["entries"], ShouldEqual, 0)
				So(stats, ShouldNotContainKey, "updatedAt")
			})
		})
	})
}
