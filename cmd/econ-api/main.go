package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopsim/internal/api"
	"shopsim/internal/auth"
	"shopsim/internal/catalog"
	"shopsim/internal/config"
	"shopsim/internal/game"
	"shopsim/internal/metrics"
	"shopsim/internal/sim"
	"shopsim/internal/spool"
	"shopsim/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry := catalog.Default()
	deps := api.Deps{
		Auth:    verifiers(cfg),
		Game:    game.NewService(st, registry, logger, cfg.Seed),
		Metrics: reg,
	}
	if cfg.SupabaseURL != "" {
		deps.Accounts = auth.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	}

	if cfg.EmbeddedSim {
		sp, err := spool.New(cfg.SpoolDir)
		if err != nil {
			logger.Error("spool init failed", "dir", cfg.SpoolDir, "err", err)
			os.Exit(1)
		}
		deps.Sims = sim.NewManager(sim.Deps{
			Store:    st,
			Registry: registry,
			Logger:   logger,
			Metrics:  metrics.New(reg),
			Spool:    sp,
		}, cfg.Sim, cfg.Seed, cfg.MarketVolatility)
		n, err := deps.Sims.StartAll(ctx)
		if err != nil {
			logger.Error("driver startup failed", "err", err)
			os.Exit(1)
		}
		go deps.Sims.RunMarket(ctx)
		defer deps.Sims.Shutdown()
		logger.Info("simulation embedded", "drivers", n, "tick_every", cfg.Sim.BaseTick.String())
	}

	server := api.New(cfg, logger, deps)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("econ api listening", "addr", cfg.Addr, "store", cfg.StoreBackend)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// verifiers accepts locally issued tokens first and falls back to Supabase.
func verifiers(cfg config.APIConfig) auth.Verifier {
	var chain auth.Chain
	if cfg.JWTSecret != "" {
		chain = append(chain, auth.NewJWTVerifier(cfg.JWTSecret))
	}
	if cfg.SupabaseURL != "" {
		chain = append(chain, auth.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey))
	}
	return chain
}
