package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"seoul-dashboard/internal/config"
	"seoul-dashboard/internal/geo"
	"seoul-dashboard/internal/middleware"
	"seoul-dashboard/internal/observability"
	"seoul-dashboard/internal/server"
	"seoul-dashboard/internal/services"
	"seoul-dashboard/internal/watch"
)

const (
	dataLoadTimeout = 30 * time.Second
	limiterSweep    = time.Minute
)

// app bundles the long-lived components main wires together.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	analytics  *services.Analytics
	boundaries *geo.Store
	limiter    *middleware.RateLimiter
	handler    http.Handler
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	analytics := services.NewAnalytics(cfg.Data, logger)

	loadCtx, cancel := context.WithTimeout(ctx, dataLoadTimeout)
	defer cancel()
	if err := analytics.Load(loadCtx); err != nil {
		return nil, err
	}

	// Without boundaries only the map is unavailable; the scheduled refresh
	// retries.
	boundaries := geo.NewStore(cfg.Geo, logger)
	if err := boundaries.Refresh(ctx); err != nil {
		logger.Warn("district boundaries not loaded; map disabled until next refresh", "error", err)
	}

	srv, err := server.NewServer(analytics, boundaries, cfg.Dashboard, logger)
	if err != nil {
		return nil, err
	}

	limiter := middleware.NewRateLimiter(cfg.Security)
	chain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
	)

	return &app{
		cfg:        cfg,
		logger:     logger,
		analytics:  analytics,
		boundaries: boundaries,
		limiter:    limiter,
		handler:    chain(srv),
	}, nil
}

// startBackground launches the boundary refresh schedule, the data file
// watcher and the rate limiter sweeper, registering their teardown with gs.
func (a *app) startBackground(ctx context.Context, gs *server.GracefulServer) error {
	if spec := a.cfg.Geo.RefreshSchedule; spec != "" {
		scheduler, err := a.boundaries.Schedule(spec)
		if err != nil {
			return err
		}
		gs.RegisterShutdownHook(func(context.Context) error {
			scheduler.Stop()
			return nil
		})
	}

	if a.cfg.Data.Watch {
		w, err := watch.New(
			[]string{a.cfg.Data.SalesFile, a.cfg.Data.RentFile},
			a.cfg.Data.WatchDebounce,
			a.analytics,
			a.logger,
		)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			w.Close()
			return err
		}
		gs.RegisterShutdownHook(func(context.Context) error {
			return w.Close()
		})
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	go a.limiter.RunSweeper(sweepCtx, limiterSweep)
	gs.RegisterShutdownHook(func(context.Context) error {
		stopSweep()
		return nil
	})
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"addr", cfg.Address(),
		"sales_file", cfg.Data.SalesFile,
		"rent_file", cfg.Data.RentFile,
		"reference_year", cfg.Data.ReferenceYear,
		"geo_source", cfg.Geo.Source,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise application", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)
	if err := a.startBackground(ctx, gracefulServer); err != nil {
		logger.Error("failed to start background jobs", "error", err)
		os.Exit(1)
	}

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
