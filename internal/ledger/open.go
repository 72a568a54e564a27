package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
)

// Open loads the ledger from store and checks it against the bankroll fold.
// If storage predates the bankroll_after column the cache is rebuilt;
// otherwise any disagreement is ErrReplayMismatch.
func Open(ctx context.Context, store Store, start decimal.Decimal) (*State, error) {
	res, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	if len(res.Dropped) > 0 {
		slog.Warn("Ignoring legacy ledger columns", "columns", res.Dropped)
	}
	if res.Seeds > 0 {
		slog.Info("Skipped legacy seed rows", "count", res.Seeds)
	}

	state, err := NewState(res.Picks)
	if err != nil {
		return nil, err
	}

	if len(res.Picks) > 0 && res.missing("bankroll_after") {
		slog.Info("Backfilling bankroll_after from replay", "picks", state.Len())
		state.Replay(start)
		return state, nil
	}
	if err := state.Verify(start); err != nil {
		return nil, err
	}
	return state, nil
}

// Commit rebuilds the bankroll cache, verifies it and saves the whole
// ledger in one write.
func Commit(ctx context.Context, store Store, state *State, start decimal.Decimal) error {
	state.Replay(start)
	if err := state.Verify(start); err != nil {
		return err
	}
	if err := store.Save(ctx, state.Picks()); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}
	return nil
}

// OpenStore opens the store for path: a .csv file is read and written as
// CSV, anything else is a SQLite database.
func OpenStore(path string) (Store, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return NewCSVStore(path), nil
	}
	return NewSQLiteStore(path)
}
