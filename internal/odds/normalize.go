package odds

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"smart-picks/internal/feed"
	"smart-picks/internal/mathutil"
)

// MarketType represents the type of betting market
type MarketType string

const (
	MarketMoneyline MarketType = "h2h"
	MarketSpread    MarketType = "spread"
	MarketTotal     MarketType = "total"
)

// ParseMarket maps provider market keys onto the canonical set.
func ParseMarket(key string) (MarketType, bool) {
	switch FoldLabel(key) {
	case "h2h", "moneyline", "ml":
		return MarketMoneyline, true
	case "spread", "spreads", "handicap":
		return MarketSpread, true
	case "total", "totals", "over/under", "ou":
		return MarketTotal, true
	}
	return "", false
}

// Side of a totals market.
type Side string

const (
	SideOver  Side = "over"
	SideUnder Side = "under"
)

// ParseSide accepts the textual variants books use for totals.
func ParseSide(label string) (Side, bool) {
	switch FoldLabel(label) {
	case "over", "o", "ov":
		return SideOver, true
	case "under", "u", "un":
		return SideUnder, true
	}
	return "", false
}

// Opposite returns the other side of a totals market.
func (s Side) Opposite() Side {
	if s == SideOver {
		return SideUnder
	}
	return SideOver
}

// PriceRule picks the representative price of a CanonicalLine.
type PriceRule string

const (
	// PriceBest takes the single most bettor-favorable price.
	PriceBest PriceRule = "best"
	// PriceMean takes the arithmetic mean of sampled prices rounded to an integer.
	PriceMean PriceRule = "mean"
)

// FoldLabel strips accents, trims, case-folds and collapses whitespace so
// "  Atlético Madrid" and "atletico madrid" compare equal.
func FoldLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, _ = transform.String(t, s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Event is read-only reference data carried on every line.
type Event struct {
	ID        string
	Sport     string
	Home      string
	Away      string
	StartTime time.Time
}

// CanonicalLine is the collapsed view of one (event, market, selection, point)
// across every book that quoted it.
type CanonicalLine struct {
	Event     Event
	Market    MarketType
	Selection string // folded key; "over"/"under" for totals
	Label     string // display name as the first book printed it
	Point     float64
	HasPoint  bool

	Price         int // representative price under the run's PriceRule
	BookCount     int
	SampledPrices []int
	Books         []string

	// FairProbs holds each book's vig-free probability for this selection,
	// computed against the same book's opposing outcomes.
	FairProbs []float64
}

// NormalizeConfig controls the normalizer.
type NormalizeConfig struct {
	Rule        PriceRule
	MaxAbsPrice int
	MinBooks    int
	VigMethod   VigMethod
}

type lineKey struct {
	eventID   string
	market    MarketType
	selection string
	point     float64
	hasPoint  bool
}

type bookQuote struct {
	price int
	fair  float64
}

type lineAcc struct {
	line  CanonicalLine
	books map[string]bookQuote
	order []string
}

type usableOutcome struct {
	selection string
	label     string
	price     int
	point     float64
	hasPoint  bool
}

// Normalize collapses raw per-book quotes into one CanonicalLine per
// (event, market, selection, point). Quotes with no price, a price outside
// the sanity band, an unknown market or an unreadable selection are dropped.
// Events with no usable quotes simply produce no lines.
func Normalize(records []feed.QuoteRecord, cfg NormalizeConfig) []CanonicalLine {
	if cfg.MaxAbsPrice == 0 {
		cfg.MaxAbsPrice = DefaultMaxAbsPrice
	}
	if cfg.Rule == "" {
		cfg.Rule = PriceBest
	}

	groups := make(map[lineKey]*lineAcc)

	for _, rec := range records {
		market, ok := ParseMarket(rec.Market)
		if !ok || rec.EventID == "" {
			continue
		}

		outcomes := usableOutcomes(rec, market, cfg.MaxAbsPrice)
		fair := bookFairProbs(outcomes, market, cfg.VigMethod)

		ev := Event{
			ID:        rec.EventID,
			Sport:     rec.Sport,
			Home:      strings.TrimSpace(rec.Home),
			Away:      strings.TrimSpace(rec.Away),
			StartTime: rec.StartTime,
		}

		for i, o := range outcomes {
			key := lineKey{eventID: rec.EventID, market: market, selection: o.selection, point: o.point, hasPoint: o.hasPoint}
			acc, ok := groups[key]
			if !ok {
				acc = &lineAcc{
					line: CanonicalLine{
						Event:     ev,
						Market:    market,
						Selection: o.selection,
						Label:     o.label,
						Point:     o.point,
						HasPoint:  o.hasPoint,
					},
					books: make(map[string]bookQuote),
				}
				groups[key] = acc
			}
			book := FoldLabel(rec.Bookmaker)
			if _, seen := acc.books[book]; !seen {
				acc.order = append(acc.order, book)
			}
			acc.books[book] = bookQuote{price: o.price, fair: fair[i]}
		}
	}

	lines := make([]CanonicalLine, 0, len(groups))
	for _, acc := range groups {
		if len(acc.books) == 0 || len(acc.books) < cfg.MinBooks {
			continue
		}
		line := acc.line
		for _, book := range acc.order {
			q := acc.books[book]
			line.Books = append(line.Books, book)
			line.SampledPrices = append(line.SampledPrices, q.price)
			line.FairProbs = append(line.FairProbs, q.fair)
		}
		line.BookCount = len(line.Books)
		line.Price = RepresentativePrice(line.SampledPrices, cfg.Rule)
		lines = append(lines, line)
	}

	sort.Slice(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if !a.Event.StartTime.Equal(b.Event.StartTime) {
			return a.Event.StartTime.Before(b.Event.StartTime)
		}
		if a.Event.ID != b.Event.ID {
			return a.Event.ID < b.Event.ID
		}
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		if a.Selection != b.Selection {
			return a.Selection < b.Selection
		}
		return a.Point < b.Point
	})

	return lines
}

// RepresentativePrice applies rule to a non-empty set of American prices.
// The mean of a mixed-sign sample can land inside (-100, 100), which is not
// an American price; it is snapped to the nearest even-money boundary.
func RepresentativePrice(prices []int, rule PriceRule) int {
	if len(prices) == 0 {
		return 0
	}
	if rule == PriceMean {
		xs := make([]float64, len(prices))
		for i, p := range prices {
			xs[i] = float64(p)
		}
		m := int(math.Round(mathutil.Mean(xs)))
		switch {
		case m >= 0 && m < 100:
			return 100
		case m < 0 && m > -100:
			return -100
		}
		return m
	}

	best := prices[0]
	for _, p := range prices[1:] {
		if BetterPrice(p, best) {
			best = p
		}
	}
	return best
}

func usableOutcomes(rec feed.QuoteRecord, market MarketType, maxAbs int) []usableOutcome {
	var out []usableOutcome
	for _, o := range rec.Outcomes {
		if o.Price == nil || !ValidPrice(*o.Price, maxAbs) {
			continue
		}
		label := strings.TrimSpace(o.Selection)
		u := usableOutcome{price: *o.Price, label: label}

		switch market {
		case MarketTotal:
			side, ok := ParseSide(label)
			if !ok || o.Point == nil {
				continue
			}
			u.selection = string(side)
			u.label = strings.ToUpper(string(side[:1])) + string(side[1:])
		case MarketSpread:
			if o.Point == nil {
				continue
			}
			u.selection = FoldLabel(label)
		default:
			u.selection = FoldLabel(label)
		}
		if u.selection == "" {
			continue
		}
		if o.Point != nil && market != MarketMoneyline {
			u.point = *o.Point
			u.hasPoint = true
		}
		out = append(out, u)
	}
	return out
}

// bookFairProbs strips one book's margin from its own market. Spread
// outcomes pair on |point|, totals on point; moneyline is one n-way market.
// An outcome with no counterpart keeps its raw implied probability.
func bookFairProbs(outcomes []usableOutcome, market MarketType, method VigMethod) []float64 {
	fair := make([]float64, len(outcomes))
	partitions := make(map[float64][]int)
	for i, o := range outcomes {
		fair[i] = AmericanToImplied(o.price)
		var k float64
		switch market {
		case MarketSpread:
			k = math.Abs(o.point)
		case MarketTotal:
			k = o.point
		}
		partitions[k] = append(partitions[k], i)
	}

	for _, idx := range partitions {
		if len(idx) < 2 {
			continue
		}
		implied := make([]float64, len(idx))
		for j, i := range idx {
			implied[j] = AmericanToImplied(outcomes[i].price)
		}
		stripped := RemoveVigWith(method, implied)
		if stripped == nil {
			continue
		}
		for j, i := range idx {
			fair[i] = stripped[j]
		}
	}
	return fair
}
