package analysis

import (
	"log/slog"
	"math"

	"smart-picks/internal/mathutil"
	"smart-picks/internal/odds"
)

// maxBookFactorBooks is where extra books stop adding confidence.
const maxBookFactorBooks = 8

// SmartScore ranks a candidate. It blends the edge (in probability
// points), the number of books, how tightly those books agree, and a
// per-sport weight. Non-positive edge always scores 0.
//
//	score = ev × (1 + ev/50) × bookFactor × sharpness × weight
//	bookFactor = 1 + min(books, 8)/8            (1.0–2.0)
//	sharpness  = 1 / (1 + 10 × stddev(fair probs))
func SmartScore(edge float64, bookCount int, fairProbs []float64, weight float64) float64 {
	if edge <= 0 || weight <= 0 {
		return 0
	}
	if bookCount <= 0 {
		bookCount = 1
	}

	ev := edge * 100
	bookFactor := 1.0 + float64(min(bookCount, maxBookFactorBooks))/maxBookFactorBooks
	sharpness := 1.0 / (1.0 + 10*mathutil.StdDev(fairProbs))

	return mathutil.RoundTo(ev*(1+ev/50)*bookFactor*sharpness*weight, 3)
}

// Scorer turns canonical lines into candidates.
type Scorer struct {
	cfg         Config
	weights     map[string]float64
	adjustments AdjustmentSource
}

// NewScorer creates a scorer. weights maps sport key to Smart Score weight;
// unknown sports weigh 1. adj may be nil.
func NewScorer(cfg Config, weights map[string]float64, adj AdjustmentSource) *Scorer {
	return &Scorer{cfg: cfg, weights: weights, adjustments: adj}
}

func (s *Scorer) weight(sport string) float64 {
	if w, ok := s.weights[sport]; ok {
		return w
	}
	return 1.0
}

// Score computes model numbers for every line. Lines with an unusable price
// or selection are dropped and logged; candidates with no edge are kept
// (scored 0) so callers can see them, but are never selectable.
func (s *Scorer) Score(lines []odds.CanonicalLine) []Candidate {
	out := make([]Candidate, 0, len(lines))
	for _, line := range lines {
		implied, err := ImpliedProbability(line.Price)
		if err != nil {
			slog.Warn("Discarding line", "event", line.Event.ID, "selection", line.Label, "error", err)
			continue
		}
		desc, err := DescriptorFor(line)
		if err != nil {
			slog.Warn("Discarding line", "event", line.Event.ID, "error", err)
			continue
		}

		var adj Adjustments
		if s.adjustments != nil {
			adj = s.adjustments.Adjust(line)
		}

		fair := FairProbability(line, implied, s.cfg)
		model := ModelProbability(fair, adj, s.cfg)
		edge := model - implied

		c := Candidate{
			CanonicalLine: line,
			Descriptor:    desc,
			ImpliedProb:   implied,
			FairProb:      fair,
			ModelProb:     model,
			Edge:          edge,
			EVPerUnit:     ExpectedValue(model, line.Price),
			RankScore:     SmartScore(edge, line.BookCount, line.FairProbs, s.weight(line.Event.Sport)),
		}
		if math.IsNaN(c.RankScore) {
			c.RankScore = 0
		}
		out = append(out, c)
	}
	return out
}

// StaticAdjustments looks adjustments up from fixed tables keyed by folded
// team name, as loaded from the policy file.
type StaticAdjustments struct {
	Ratings  map[string]float64
	Injuries map[string]float64
	Fatigue  map[string]float64
}

// Adjust implements AdjustmentSource. Totals lines get no team adjustments.
func (a StaticAdjustments) Adjust(line odds.CanonicalLine) Adjustments {
	if line.Market == odds.MarketTotal {
		return Adjustments{}
	}
	team := line.Selection
	opponent := odds.FoldLabel(line.Event.Home)
	if opponent == team {
		opponent = odds.FoldLabel(line.Event.Away)
	}

	var adj Adjustments
	r, okTeam := a.Ratings[team]
	o, okOpp := a.Ratings[opponent]
	if okTeam && okOpp {
		adj.RatingDiff = r - o
	}
	adj.InjuryPenalty = a.Injuries[team]
	adj.FatiguePenalty = a.Fatigue[team]
	return adj
}
