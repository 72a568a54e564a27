package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"smart-picks/internal/alerts"
	"smart-picks/internal/config"
	"smart-picks/internal/ledger"
	"smart-picks/internal/metrics"
	"smart-picks/internal/server"
)

func main() {
	cfg := config.Load()
	config.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	store, err := ledger.OpenStore(cfg.LedgerPath)
	if err != nil {
		slog.Error("Failed to open ledger", "path", cfg.LedgerPath, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	m := metrics.New()
	h := server.NewHandler(store, decimal.NewFromFloat(cfg.StartingBankroll), alerts.NewNotifier(5*time.Minute), m)
	if cfg.LedgerCSVPath != "" {
		h.WithExport(ledger.NewCSVStore(cfg.LedgerCSVPath))
	}

	srv := &http.Server{
		Addr:         cfg.GraderAddr,
		Handler:      server.NewRouter(h, m.Handler(), cfg.CORSOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Grader listening", "addr", cfg.GraderAddr, "ledger", cfg.LedgerPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		slog.Error("Server error", "err", err)
		os.Exit(1)
	case <-ctx.Done():
	}

	slog.Info("Shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown error", "err", err)
		os.Exit(1)
	}
}
