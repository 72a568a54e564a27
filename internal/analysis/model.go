package analysis

import (
	"errors"
	"fmt"
	"math"

	"smart-picks/internal/ledger"
	"smart-picks/internal/mathutil"
	"smart-picks/internal/odds"
)

// ErrInvalidPrice marks a quote that cannot be priced (0, or inside (-100, 100)).
var ErrInvalidPrice = errors.New("invalid american price")

const (
	MinProbability = 0.01
	MaxProbability = 0.99

	// MaxPenalty caps each injury/fatigue adjustment.
	MaxPenalty = 0.1
)

// Config holds model configuration
type Config struct {
	// ShrinkFullWeightAt is the book count at which the consensus is trusted
	// outright; below it the fair probability shrinks toward the market.
	ShrinkFullWeightAt int
	// RatingScale converts a rating differential into logistic units.
	RatingScale float64
	// RatingWeight bounds how far ratings can move the probability.
	RatingWeight float64
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		ShrinkFullWeightAt: 6,
		RatingScale:        10,
		RatingWeight:       0.1,
	}
}

// Adjustments are optional nudges applied to the fair probability.
// None of them are statistically validated; they default to zero.
type Adjustments struct {
	RatingDiff     float64 // selection rating minus opponent rating
	InjuryPenalty  float64 // clamped to [0, MaxPenalty]
	FatiguePenalty float64 // clamped to [0, MaxPenalty]
}

// AdjustmentSource supplies Adjustments for a line. nil means none.
type AdjustmentSource interface {
	Adjust(line odds.CanonicalLine) Adjustments
}

// Candidate is a canonical line with its model numbers attached.
type Candidate struct {
	odds.CanonicalLine
	Descriptor ledger.Descriptor

	ImpliedProb float64 // from the representative price
	FairProb    float64 // consensus of the books' vig-free probabilities
	ModelProb   float64 // fair plus adjustments, clamped
	Edge        float64 // ModelProb - ImpliedProb
	EVPerUnit   float64 // expected profit per unit staked at Price
	RankScore   float64
}

// ImpliedProbability converts an American price, rejecting non-prices
// instead of defaulting them.
func ImpliedProbability(price int) (float64, error) {
	if !odds.ValidPrice(price, 0) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPrice, price)
	}
	return odds.AmericanToImplied(price), nil
}

// shrinkFullWeightAt is the default book count at which shrinkage stops.
const shrinkFullWeightAt = 6

// ShrinkToward blends observed toward prior based on book count.
// At fullWeightAt books or more, returns observed unchanged.
// Below fullWeightAt, applies power-law shrinkage (exponent 1.5) which is
// more aggressive at very low book counts than linear interpolation.
//
// Weight curve (fullWeightAt=6):
//
//	6 books → weight 1.000 (no shrinkage)
//	5 books → weight 0.760
//	4 books → weight 0.544
//	3 books → weight 0.354
//	2 books → weight 0.192
//	1 book  → weight 0.068
func ShrinkToward(observed, prior float64, bookCount, fullWeightAt int) float64 {
	if fullWeightAt <= 0 {
		fullWeightAt = shrinkFullWeightAt
	}
	if bookCount >= fullWeightAt {
		return observed
	}
	ratio := float64(bookCount) / float64(fullWeightAt)
	weight := math.Pow(ratio, 1.5)
	return weight*observed + (1-weight)*prior
}

// FairProbability is the mean vig-free probability across books, shrunk
// toward the implied probability of the representative price when few
// books quote the line.
func FairProbability(line odds.CanonicalLine, implied float64, cfg Config) float64 {
	if len(line.FairProbs) == 0 {
		return implied
	}
	return ShrinkToward(mathutil.Mean(line.FairProbs), implied, line.BookCount, cfg.ShrinkFullWeightAt)
}

// ModelProbability applies adj to fair and clamps to [0.01, 0.99].
func ModelProbability(fair float64, adj Adjustments, cfg Config) float64 {
	p := fair
	if adj.RatingDiff != 0 && cfg.RatingScale > 0 {
		p += cfg.RatingWeight * (mathutil.Logistic(adj.RatingDiff/cfg.RatingScale) - 0.5) * 2
	}
	p -= mathutil.Clamp(adj.InjuryPenalty, 0, MaxPenalty)
	p -= mathutil.Clamp(adj.FatiguePenalty, 0, MaxPenalty)
	return mathutil.Clamp(p, MinProbability, MaxProbability)
}

// ExpectedValue is the expected profit per unit staked at an American price.
func ExpectedValue(p float64, price int) float64 {
	b := odds.AmericanToDecimal(price) - 1
	if b <= 0 {
		return 0
	}
	return p*b - (1 - p)
}

// DescriptorFor builds the typed selection for a canonical line.
func DescriptorFor(line odds.CanonicalLine) (ledger.Descriptor, error) {
	var d ledger.Descriptor
	switch line.Market {
	case odds.MarketMoneyline:
		d = ledger.Moneyline(line.Label)
	case odds.MarketSpread:
		d = ledger.Spread(line.Label, line.Point)
	case odds.MarketTotal:
		side, _ := odds.ParseSide(line.Selection)
		d = ledger.Total(side, line.Point)
	}
	if !d.Valid() {
		return d, fmt.Errorf("%w: %s %q", ledger.ErrMalformedDescriptor, line.Market, line.Label)
	}
	return d, nil
}
