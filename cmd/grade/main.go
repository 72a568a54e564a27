package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"smart-picks/internal/config"
	"smart-picks/internal/grading"
	"smart-picks/internal/ledger"
	"smart-picks/internal/report"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s <pick-id> <WIN|LOSS|PUSH>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	config.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	result, ok := ledger.ParseResult(flag.Arg(1))
	if !ok || result == ledger.ResultNone {
		slog.Error("Unknown result", "result", flag.Arg(1))
		os.Exit(2)
	}

	if err := run(context.Background(), cfg, flag.Arg(0), result); err != nil {
		slog.Error("Grading failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, id string, result ledger.Result) error {
	store, err := ledger.OpenStore(cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer store.Close()

	start := decimal.NewFromFloat(cfg.StartingBankroll).Round(2)
	state, err := ledger.Open(ctx, store, start)
	if err != nil {
		return err
	}

	p, err := grading.Override(state, id, result, time.Now())
	if err != nil {
		return err
	}
	if err := ledger.Commit(ctx, store, state, start); err != nil {
		return err
	}
	if cfg.LedgerCSVPath != "" {
		if err := ledger.NewCSVStore(cfg.LedgerCSVPath).Save(ctx, state.Picks()); err != nil {
			slog.Warn("CSV export failed", "path", cfg.LedgerCSVPath, "err", err)
		}
	}

	report.RenderPicks(os.Stdout, []ledger.Pick{p})
	fmt.Printf("Bankroll: $%s\n", state.Bankroll(start).StringFixed(2))
	return nil
}
