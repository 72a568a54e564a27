package ledger

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"smart-picks/internal/odds"
)

// ErrMalformedDescriptor is returned when a stored selection cannot be parsed.
var ErrMalformedDescriptor = errors.New("malformed selection descriptor")

// Descriptor is the typed form of a pick's selection. Exactly one of the
// shapes is populated according to Market:
//
//	h2h:    Team
//	spread: Team, Line
//	total:  Side, Line
type Descriptor struct {
	Market odds.MarketType
	Team   string
	Side   odds.Side
	Line   float64
}

// Moneyline builds a moneyline descriptor.
func Moneyline(team string) Descriptor {
	return Descriptor{Market: odds.MarketMoneyline, Team: team}
}

// Spread builds a spread descriptor; line is signed from the team's view.
func Spread(team string, line float64) Descriptor {
	return Descriptor{Market: odds.MarketSpread, Team: team, Line: line}
}

// Total builds a totals descriptor.
func Total(side odds.Side, line float64) Descriptor {
	return Descriptor{Market: odds.MarketTotal, Side: side, Line: line}
}

// Valid reports whether the descriptor can be graded.
func (d Descriptor) Valid() bool {
	switch d.Market {
	case odds.MarketMoneyline:
		return strings.TrimSpace(d.Team) != ""
	case odds.MarketSpread:
		return strings.TrimSpace(d.Team) != "" && finite(d.Line)
	case odds.MarketTotal:
		return (d.Side == odds.SideOver || d.Side == odds.SideUnder) && finite(d.Line)
	}
	return false
}

// String renders the persisted form: "Lions", "Lions +3.5", "Over 220.5".
func (d Descriptor) String() string {
	switch d.Market {
	case odds.MarketSpread:
		return d.Team + " " + formatSigned(d.Line)
	case odds.MarketTotal:
		side := string(d.Side)
		if side != "" {
			side = strings.ToUpper(side[:1]) + side[1:]
		}
		return side + " " + strconv.FormatFloat(d.Line, 'f', -1, 64)
	}
	return d.Team
}

// Key identifies the position a descriptor takes inside its market,
// ignoring the line: "lions" for both "Lions +3.5" and "Lions +4".
func (d Descriptor) Key() string {
	if d.Market == odds.MarketTotal {
		return string(d.Side)
	}
	return odds.FoldLabel(d.Team)
}

// Opposes reports whether d and o take opposite sides of the same market.
func (d Descriptor) Opposes(o Descriptor) bool {
	if d.Market != o.Market || !d.Valid() || !o.Valid() {
		return false
	}
	return d.Key() != o.Key()
}

// ParseDescriptor turns a stored selection string back into a Descriptor.
func ParseDescriptor(market odds.MarketType, s string) (Descriptor, error) {
	s = strings.TrimSpace(s)
	switch market {
	case odds.MarketMoneyline:
		if s == "" {
			return Descriptor{}, fmt.Errorf("%w: empty moneyline team", ErrMalformedDescriptor)
		}
		return Moneyline(s), nil

	case odds.MarketSpread:
		i := strings.LastIndexByte(s, ' ')
		if i <= 0 {
			return Descriptor{}, fmt.Errorf("%w: spread %q has no line", ErrMalformedDescriptor, s)
		}
		line, err := parseLine(s[i+1:])
		if err != nil {
			return Descriptor{}, fmt.Errorf("%w: spread line %q", ErrMalformedDescriptor, s[i+1:])
		}
		return Spread(strings.TrimSpace(s[:i]), line), nil

	case odds.MarketTotal:
		fields := strings.Fields(s)
		if len(fields) != 2 {
			return Descriptor{}, fmt.Errorf("%w: total %q", ErrMalformedDescriptor, s)
		}
		side, ok := odds.ParseSide(fields[0])
		if !ok {
			return Descriptor{}, fmt.Errorf("%w: total side %q", ErrMalformedDescriptor, fields[0])
		}
		line, err := parseLine(fields[1])
		if err != nil {
			return Descriptor{}, fmt.Errorf("%w: total line %q", ErrMalformedDescriptor, fields[1])
		}
		return Total(side, line), nil
	}
	return Descriptor{}, fmt.Errorf("%w: unknown market %q", ErrMalformedDescriptor, market)
}

// parseLine parses a spread or total line; NaN and infinities are rejected.
func parseLine(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if !finite(v) {
		return 0, fmt.Errorf("line %q is not finite", s)
	}
	return v, nil
}

func formatSigned(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v >= 0 {
		return "+" + s
	}
	return s
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
