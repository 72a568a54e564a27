package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart-picks/internal/alerts"
	"smart-picks/internal/config"
	"smart-picks/internal/engine"
	"smart-picks/internal/feed"
	"smart-picks/internal/ledger"
	"smart-picks/internal/metrics"
	"smart-picks/internal/report"
)

func main() {
	every := flag.Duration("every", 0, "Repeat the run at this interval (0 = run once)")
	policy := flag.String("policy", "", "Policy YAML file (overrides POLICY_FILE)")
	cards := flag.Bool("cards", false, "Print active picks grouped by sport")
	parlay := flag.Int("parlay", 0, "Print a parlay card with up to N legs")
	scoreboard := flag.Bool("scores", false, "Print the scoreboard fetched during the run")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	cfg := config.Load()
	if *policy != "" {
		cfg.PolicyFile = *policy
	}
	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	config.SetupLogger(os.Stderr, level, cfg.LogFormat)

	if cfg.PolicyFile != "" {
		if err := cfg.LoadPolicyFile(cfg.PolicyFile); err != nil {
			slog.Error("Failed to load policy", "err", err)
			os.Exit(1)
		}
	}
	if err := config.Validate(cfg); err != nil {
		slog.Error("Invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var source feed.Source
	if cfg.FeedDir != "" {
		source = feed.NewFileSource(cfg.FeedDir)
	} else {
		source = feed.NewOddsAPIClient(cfg.OddsAPIKey, cfg.APIRequestsPerSec, cfg.ScoresDaysFrom)
	}

	store, err := ledger.OpenStore(cfg.LedgerPath)
	if err != nil {
		slog.Error("Failed to open ledger", "path", cfg.LedgerPath, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	notifier := alerts.NewNotifier(5 * time.Minute)
	notifier.LogStartup(fmt.Sprintf("ledger=%s mode=%s bankroll=%.2f sports=%d",
		cfg.LedgerPath, cfg.StakeMode, cfg.StartingBankroll, len(cfg.Sports)))

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go startHealthServer(cfg.MetricsAddr, m)
	}

	eng := engine.New(source, store, notifier, m, cfg)
	if cfg.LedgerCSVPath != "" {
		eng.WithExport(ledger.NewCSVStore(cfg.LedgerCSVPath))
	}

	if *every > 0 {
		if err := eng.Run(ctx, *every); err != nil {
			slog.Error("Run loop failed", "err", err)
			os.Exit(1)
		}
		return
	}

	res, err := eng.RunOnce(ctx)
	if err != nil {
		slog.Error("Run failed", "err", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *scoreboard {
		report.RenderScoreboard(out, report.Scoreboard(res.Scores, time.Now()))
	}
	report.RenderSnapshot(out, res.After)
	if len(res.Picks) > 0 {
		fmt.Fprintf(out, "\nNew picks (%d):\n", len(res.Picks))
		report.RenderPicks(out, res.Picks)
	} else {
		fmt.Fprintln(out, "\nNo new picks this run.")
	}
	if *cards {
		report.RenderCards(out, report.PickCards(res.State))
	}
	if *parlay > 0 {
		report.RenderParlay(out, report.ParlayCard(res.State, *parlay))
	}
}

func startHealthServer(addr string, m *metrics.RunMetrics) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", m.Handler())

	slog.Info("Metrics server listening", "addr", addr)

	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Metrics server error", "err", err)
	}
}
