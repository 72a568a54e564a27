// Package report derives analytics from the ledger. Everything here is a
// fold over CLOSED picks in placed_at order; cached bankroll_after values
// are never read.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"smart-picks/internal/ledger"
)

// Breakdown is the fold result for one slice of the ledger.
type Breakdown struct {
	TotalBets int             `json:"total_bets"`
	Wins      int             `json:"wins"`
	Losses    int             `json:"losses"`
	Pushes    int             `json:"pushes"`
	Staked    decimal.Decimal `json:"staked"`
	Profit    decimal.Decimal `json:"profit"`
	WinRate   float64         `json:"win_rate"` // wins / (wins + losses)
	ROI       float64         `json:"roi"`      // profit / staked
}

func (b *Breakdown) add(p ledger.Pick) {
	b.TotalBets++
	switch p.Result {
	case ledger.ResultWin:
		b.Wins++
	case ledger.ResultLoss:
		b.Losses++
	case ledger.ResultPush:
		b.Pushes++
	}
	b.Staked = b.Staked.Add(p.Stake)
	b.Profit = b.Profit.Add(p.Profit)
}

func (b *Breakdown) finish() {
	if decided := b.Wins + b.Losses; decided > 0 {
		b.WinRate = float64(b.Wins) / float64(decided)
	}
	if b.Staked.IsPositive() {
		b.ROI = b.Profit.Div(b.Staked).InexactFloat64()
	}
}

// Streak tracks runs of consecutive wins. Pushes neither break nor extend.
type Streak struct {
	Current int `json:"current"`
	Best    int `json:"best"`
}

// Snapshot is the analytics view of a ledger.
type Snapshot struct {
	StartingBankroll decimal.Decimal `json:"starting_bankroll"`
	Bankroll         decimal.Decimal `json:"bankroll"`
	Breakdown
	Open     int                  `json:"open"`
	Pending  int                  `json:"pending"`
	Exposure decimal.Decimal      `json:"exposure"`
	Streak   Streak               `json:"streak"`
	BySport  map[string]Breakdown `json:"by_sport"`
	ByMarket map[string]Breakdown `json:"by_market"`
}

// Build folds the ledger from start.
func Build(state *ledger.State, start decimal.Decimal) Snapshot {
	snap := Snapshot{
		StartingBankroll: start,
		Bankroll:         start,
		BySport:          make(map[string]Breakdown),
		ByMarket:         make(map[string]Breakdown),
	}

	for _, p := range state.Picks() {
		switch p.Status {
		case ledger.StatusOpen:
			snap.Open++
			snap.Exposure = snap.Exposure.Add(p.Stake)
			continue
		case ledger.StatusPending:
			snap.Pending++
			snap.Exposure = snap.Exposure.Add(p.Stake)
			continue
		}

		snap.Bankroll = snap.Bankroll.Add(p.Profit)
		snap.Breakdown.add(p)
		addTo(snap.BySport, p.Sport, p)
		addTo(snap.ByMarket, string(p.Market), p)

		switch p.Result {
		case ledger.ResultWin:
			snap.Streak.Current++
			snap.Streak.Best = max(snap.Streak.Best, snap.Streak.Current)
		case ledger.ResultLoss:
			snap.Streak.Current = 0
		}
	}

	snap.Breakdown.finish()
	for k, b := range snap.BySport {
		b.finish()
		snap.BySport[k] = b
	}
	for k, b := range snap.ByMarket {
		b.finish()
		snap.ByMarket[k] = b
	}
	return snap
}

func addTo(m map[string]Breakdown, key string, p ledger.Pick) {
	b := m[key]
	b.add(p)
	m[key] = b
}

func sortedKeys(m map[string]Breakdown) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
