package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/teamboard/internal/adapters/http/api"
	"github.com/okian/teamboard/internal/adapters/http/swagger"
	"github.com/okian/teamboard/internal/adapters/http/ws"
	"github.com/okian/teamboard/internal/adapters/repository"
	"github.com/okian/teamboard/internal/adapters/sources"
	app "github.com/okian/teamboard/internal/app"
	"github.com/okian/teamboard/internal/config"
	"github.com/okian/teamboard/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// The service exports its own system metrics on a custom registry.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	applyLogLevel(ctx, log, cfg.LogLevel)

	if path := config.Path(); path != "" {
		go func() {
			if err := config.Watch(ctx, path, log.Named("config"), func(c *config.Config) {
				applyLogLevel(ctx, log, c.LogLevel)
			}); err != nil {
				log.Warn(ctx, "config watch disabled", logger.String("path", path), logger.Error(err))
			}
		}()
	}

	application := build(ctx, cfg, log)
	if err := application.svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer application.svc.Stop()
	go application.hub.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           application.mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("registryURL", cfg.RegistryURL),
			logger.String("bonusURL", cfg.BonusURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// application holds the wired components main serves.
type application struct {
	svc *app.Service
	hub *ws.Hub
	mux *http.ServeMux
}

// build wires sources, store, service, live feed and routes from cfg.
// The hub must be run separately.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) *application {
	a := &application{}

	registry := sources.NewRegistry(cfg.RegistryURL,
		sources.WithTimeout(cfg.SourceTimeout()),
		sources.WithLogger(log.Named("registry")))
	bonus := sources.NewBonus(cfg.BonusURL,
		sources.WithTimeout(cfg.SourceTimeout()),
		sources.WithLogger(log.Named("bonus")))

	// Commits only happen through requests served after build returns,
	// so the hook sees the hub assigned below.
	a.svc = app.New(
		app.WithLogger(log.Named("service")),
		app.WithRegistry(registry),
		app.WithBonusSource(bonus),
		app.WithStore(repository.NewSnapshotStore()),
		app.WithCommitHook(func(ctx context.Context, snap repository.Snapshot) {
			a.hub.Publish(ctx, app.BoardOf(snap))
		}),
	)
	a.hub = ws.New(a.svc,
		ws.WithPingInterval(cfg.WSPingInterval()),
		ws.WithAllowedOrigins(cfg.AllowedOrigins()...),
		ws.WithLogger(log.Named("ws")))

	a.mux = http.NewServeMux()
	swagger.Register(ctx, a.mux)
	api.NewServer(a.svc, a.svc,
		api.WithMaxLimit(cfg.MaxLeaderboardLimit),
		api.WithMaxBodyBytes(cfg.MaxBatchBytes),
		api.WithLogger(log.Named("api")),
	).Register(ctx, a.mux)
	a.mux.Handle("/ws", a.hub)

	return a
}

func applyLogLevel(ctx context.Context, log logger.Logger, level string) {
	if err := logger.SetLevelString(level); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", level), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
}
