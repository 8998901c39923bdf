package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopsim/internal/catalog"
	"shopsim/internal/config"
	"shopsim/internal/metrics"
	"shopsim/internal/sim"
	"shopsim/internal/spool"
	"shopsim/internal/store"

	"github.com/prometheus/client_golang/prometheus"
)

// The worker runs every stored business headless. Point the API at the same
// store with SHOPSIM_EMBEDDED_SIM=false when running both.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	st, closeStore, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("store open failed", "backend", cfg.StoreBackend, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	sp, err := spool.New(cfg.SpoolDir)
	if err != nil {
		logger.Error("spool init failed", "dir", cfg.SpoolDir, "err", err)
		os.Exit(1)
	}
	if pending, err := sp.Pending(); err == nil && len(pending) > 0 {
		logger.Warn("unflushed work found in spool", "businesses", len(pending))
	}

	mgr := sim.NewManager(sim.Deps{
		Store:    st,
		Registry: catalog.Default(),
		Logger:   logger,
		Metrics:  metrics.New(prometheus.DefaultRegisterer),
		Spool:    sp,
	}, cfg.Sim, cfg.Seed, cfg.MarketVolatility)

	n, err := mgr.StartAll(ctx)
	if err != nil {
		logger.Error("driver startup failed", "err", err)
		os.Exit(1)
	}
	logger.Info("worker started", "drivers", n, "tick_every", cfg.Sim.BaseTick.String(), "volatility", cfg.MarketVolatility)
	go mgr.RunMarket(ctx)

	// New businesses are picked up on the next rescan.
	rescan := time.NewTicker(time.Minute)
	defer rescan.Stop()
	for {
		select {
		case <-ctx.Done():
			mgr.Shutdown()
			logger.Info("worker shutdown")
			return
		case <-rescan.C:
			before := mgr.Running()
			if _, err := mgr.StartAll(ctx); err != nil {
				logger.Error("rescan failed", "err", err)
				continue
			}
			if after := mgr.Running(); after != before {
				logger.Info("drivers started", "running", after)
			}
		}
	}
}
