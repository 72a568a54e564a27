package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"smart-picks/internal/odds"
)

// SchemaVersion is bumped whenever a column is added. Migration is
// additive only: columns are never renamed or removed.
const SchemaVersion = 2

// Column describes one ledger column.
type Column struct {
	Name    string
	SQLType string
	Since   int // schema version that introduced the column
}

// Columns is the stable column order of the ledger table.
var Columns = []Column{
	{"pick_id", "TEXT PRIMARY KEY", 1},
	{"event_id", "TEXT NOT NULL DEFAULT ''", 1},
	{"sport", "TEXT NOT NULL DEFAULT ''", 1},
	{"home", "TEXT NOT NULL DEFAULT ''", 1},
	{"away", "TEXT NOT NULL DEFAULT ''", 1},
	{"start_time", "TEXT NOT NULL DEFAULT ''", 1},
	{"market", "TEXT NOT NULL DEFAULT ''", 1},
	{"selection", "TEXT NOT NULL DEFAULT ''", 1},
	{"price", "INTEGER NOT NULL DEFAULT 0", 1},
	{"stake", "TEXT NOT NULL DEFAULT '0'", 1},
	{"implied_prob", "REAL NOT NULL DEFAULT 0", 1},
	{"model_prob", "REAL NOT NULL DEFAULT 0", 1},
	{"edge", "REAL NOT NULL DEFAULT 0", 1},
	{"rank_score", "REAL NOT NULL DEFAULT 0", 1},
	{"placed_at", "TEXT NOT NULL DEFAULT ''", 1},
	{"status", "TEXT NOT NULL DEFAULT 'PENDING'", 1},
	{"result", "TEXT NOT NULL DEFAULT ''", 1},
	{"profit", "TEXT NOT NULL DEFAULT ''", 1},
	{"resolved_at", "TEXT NOT NULL DEFAULT ''", 2},
	{"bankroll_after", "TEXT NOT NULL DEFAULT ''", 2},
	{"final_score", "TEXT NOT NULL DEFAULT ''", 2},
}

// ColumnNames returns Columns' names in order.
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

func knownColumn(name string) bool {
	for _, c := range Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// LoadResult is what a store read back, plus what migration had to do.
type LoadResult struct {
	Picks   []Pick
	Missing []string // columns absent from storage, backfilled with defaults
	Dropped []string // unknown legacy columns ignored
	Seeds   int      // legacy seed rows skipped
}

// missing reports whether a column was backfilled.
func (r LoadResult) missing(name string) bool {
	for _, m := range r.Missing {
		if m == name {
			return true
		}
	}
	return false
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{timeLayout, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func formatMoney(d decimal.Decimal, set bool) string {
	if !set {
		return ""
	}
	return d.StringFixed(2)
}

func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// encodePick renders p in Columns order.
func encodePick(p Pick) []string {
	closed := p.Status == StatusClosed
	return []string{
		p.ID,
		p.EventID,
		p.Sport,
		p.Home,
		p.Away,
		formatTime(p.StartTime),
		string(p.Market),
		p.Selection,
		strconv.Itoa(p.Price),
		p.Stake.StringFixed(2),
		strconv.FormatFloat(p.ImpliedProb, 'f', 6, 64),
		strconv.FormatFloat(p.ModelProb, 'f', 6, 64),
		strconv.FormatFloat(p.Edge, 'f', 6, 64),
		strconv.FormatFloat(p.RankScore, 'f', 3, 64),
		formatTime(p.PlacedAt),
		string(p.Status),
		string(p.Result),
		formatMoney(p.Profit, closed),
		formatTime(p.ResolvedAt),
		formatMoney(p.BankrollAfter, closed),
		p.FinalScore,
	}
}

// decodePick builds a Pick from a column→value row. ok is false for legacy
// seed rows (no stake and no price), which are skipped. Unparseable money or
// timestamps are corruption and return an error.
func decodePick(row map[string]string) (p Pick, ok bool, err error) {
	get := func(name string) string { return strings.TrimSpace(row[name]) }

	p.Price, _ = strconv.Atoi(get("price"))
	if p.Stake, err = parseMoney(get("stake")); err != nil {
		return Pick{}, false, fmt.Errorf("stake %q: %w", get("stake"), err)
	}
	if p.Stake.IsZero() && p.Price == 0 {
		return Pick{}, false, nil
	}

	p.EventID = get("event_id")
	p.Sport = get("sport")
	p.Home = get("home")
	p.Away = get("away")
	p.Selection = get("selection")
	p.FinalScore = get("final_score")

	if m, known := odds.ParseMarket(get("market")); known {
		p.Market = m
	} else {
		p.Market = odds.MarketType(get("market"))
	}
	// A bad descriptor is kept as text and reported by grading.
	p.Descriptor, _ = ParseDescriptor(p.Market, p.Selection)

	if p.StartTime, err = parseTime(get("start_time")); err != nil {
		return Pick{}, false, err
	}
	if p.PlacedAt, err = parseTime(get("placed_at")); err != nil {
		return Pick{}, false, err
	}
	if p.ResolvedAt, err = parseTime(get("resolved_at")); err != nil {
		return Pick{}, false, err
	}

	p.ImpliedProb = parseFloat(get("implied_prob"))
	p.ModelProb = parseFloat(get("model_prob"))
	p.Edge = parseFloat(get("edge"))
	p.RankScore = parseFloat(get("rank_score"))

	var legacyResult Result
	p.Status, legacyResult = ParseStatus(get("status"))
	p.Result = legacyResult
	if r, valid := ParseResult(get("result")); valid && r != ResultNone {
		p.Result = r
		p.Status = StatusClosed
	}

	if p.Profit, err = parseMoney(get("profit")); err != nil {
		return Pick{}, false, fmt.Errorf("profit %q: %w", get("profit"), err)
	}
	if p.BankrollAfter, err = parseMoney(get("bankroll_after")); err != nil {
		return Pick{}, false, fmt.Errorf("bankroll_after %q: %w", get("bankroll_after"), err)
	}

	p.ID = get("pick_id")
	if p.ID == "" {
		p.ID = PickID(p.Sport, p.EventID, p.Descriptor)
	}
	return p, true, nil
}
