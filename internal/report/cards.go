package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"smart-picks/internal/feed"
	"smart-picks/internal/ledger"
	"smart-picks/internal/odds"
)

// DefaultParlayLegs is the parlay size when none is given.
const DefaultParlayLegs = 5

// Parlay is a suggested combination of active picks, one leg per event.
type Parlay struct {
	Legs          []ledger.Pick
	TotalStake    decimal.Decimal
	TotalEdge     float64
	DecimalOdds   float64 // product of the legs' decimal odds
	AmericanPrice int
}

// ParlayCard picks the highest-edge active picks with distinct events.
func ParlayCard(state *ledger.State, maxLegs int) Parlay {
	if maxLegs <= 0 {
		maxLegs = DefaultParlayLegs
	}
	active := state.Unresolved()
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Edge > active[j].Edge
	})

	parlay := Parlay{DecimalOdds: 1}
	seen := make(map[string]bool)
	for _, p := range active {
		if p.EventID == "" || seen[p.EventID] {
			continue
		}
		seen[p.EventID] = true
		parlay.Legs = append(parlay.Legs, p)
		parlay.TotalStake = parlay.TotalStake.Add(p.Stake)
		parlay.TotalEdge += p.Edge
		parlay.DecimalOdds *= odds.AmericanToDecimal(p.Price)
		if len(parlay.Legs) >= maxLegs {
			break
		}
	}
	if len(parlay.Legs) > 0 {
		parlay.AmericanPrice = odds.ImpliedToAmerican(1 / parlay.DecimalOdds)
	}
	return parlay
}

// PickCards groups active picks by sport, best rank score first.
func PickCards(state *ledger.State) map[string][]ledger.Pick {
	cards := make(map[string][]ledger.Pick)
	for _, p := range state.Unresolved() {
		cards[p.Sport] = append(cards[p.Sport], p)
	}
	for _, picks := range cards {
		sort.SliceStable(picks, func(i, j int) bool {
			return picks[i].RankScore > picks[j].RankScore
		})
	}
	return cards
}

// ScoreLine is one scoreboard row.
type ScoreLine struct {
	Sport   string
	Matchup string // "Away @ Home"
	Score   string // "away-home", empty before any score
	Status  string // final, live or scheduled
}

// Scoreboard summarizes score records for display.
func Scoreboard(scores []feed.ScoreRecord, now time.Time) []ScoreLine {
	lines := make([]ScoreLine, 0, len(scores))
	for _, rec := range scores {
		line := ScoreLine{
			Sport:   rec.Sport,
			Matchup: rec.Away + " @ " + rec.Home,
			Status:  "scheduled",
		}
		switch {
		case rec.Completed:
			line.Status = "final"
		case !rec.StartTime.IsZero() && !rec.StartTime.After(now):
			line.Status = "live"
		}

		var home, away string
		for _, s := range rec.Scores {
			switch odds.FoldLabel(s.Participant) {
			case odds.FoldLabel(rec.Home):
				home = s.Score
			case odds.FoldLabel(rec.Away):
				away = s.Score
			}
		}
		if home != "" && away != "" {
			line.Score = away + "-" + home
		}
		lines = append(lines, line)
	}
	return lines
}
