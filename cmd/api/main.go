package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"structural_valuation/pkg/api/claims"
	"structural_valuation/pkg/core/config"
	"structural_valuation/pkg/core/logger"
	"structural_valuation/pkg/core/store"
	"structural_valuation/pkg/core/valuation"
)

func main() {
	cfg := config.Get()

	logger.Init(cfg.Env)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run(cfg *config.Config) error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence: Postgres when configured, JSON files otherwise
	if cfg.DatabaseURL != "" {
		if err := store.InitDB(ctx, cfg.DatabaseURL); err != nil {
			log.Warnw("database unavailable, falling back to file cache", "error", err)
		} else {
			defer store.Close()
		}
	}
	runs := store.NewRunCache(store.GetPool(), cfg.CacheDir)

	valuator := valuation.Valuator{
		Budget: valuation.SolverBudget{
			MaxIterations: cfg.SolverMaxIterations,
			Tolerance:     cfg.SolverTolerance,
		},
		Workers: cfg.SweepWorkers,
		Logger:  logger.Named("valuation"),
	}

	mux := http.NewServeMux()
	claims.NewHandler(valuator, runs, logger.Named("api")).Register(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infow("API server starting",
		"addr", srv.Addr,
		"store", runs.Backend(),
		"routes", []string{
			"POST /api/claims/value",
			"POST /api/claims/sweep",
			"GET  /api/claims/runs/{id}",
			"GET  /api/claims/report?id=",
		})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
