package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"smart-picks/internal/config"
	"smart-picks/internal/ledger"
	"smart-picks/internal/report"
)

func main() {
	asJSON := flag.Bool("json", false, "Print the snapshot as JSON")
	all := flag.Bool("all", false, "List every pick in the ledger")
	cards := flag.Bool("cards", true, "Print active picks grouped by sport")
	parlay := flag.Int("parlay", report.DefaultParlayLegs, "Parlay card size (0 to skip)")
	flag.Parse()

	cfg := config.Load()
	config.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	store, err := ledger.OpenStore(cfg.LedgerPath)
	if err != nil {
		slog.Error("Failed to open ledger", "path", cfg.LedgerPath, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	start := decimal.NewFromFloat(cfg.StartingBankroll).Round(2)
	state, err := ledger.Open(context.Background(), store, start)
	if err != nil {
		slog.Error("Failed to load ledger", "err", err)
		os.Exit(1)
	}
	snap := report.Build(state, start)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			slog.Error("Failed to encode snapshot", "err", err)
			os.Exit(1)
		}
		return
	}

	out := os.Stdout
	report.RenderSnapshot(out, snap)
	if *all {
		fmt.Fprintf(out, "\nLedger (%d picks):\n", state.Len())
		report.RenderPicks(out, state.Picks())
	}
	if *cards {
		report.RenderCards(out, report.PickCards(state))
	}
	if *parlay > 0 {
		report.RenderParlay(out, report.ParlayCard(state, *parlay))
	}
}
