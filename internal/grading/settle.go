package grading

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"smart-picks/internal/feed"
	"smart-picks/internal/ledger"
	"smart-picks/internal/odds"
)

// Grading input errors. Each one skips a single pick.
var (
	ErrMissingScore       = errors.New("missing participant score")
	ErrUnknownParticipant = errors.New("selection is not a participant")
)

// drawLabel is the three-way moneyline selection that wins on a tie.
const drawLabel = "draw"

// Final is a completed event's score keyed by the score feed's names.
type Final struct {
	Home      string
	Away      string
	HomeScore float64
	AwayScore float64
}

// String renders "Away 20 @ Home 21".
func (f Final) String() string {
	return fmt.Sprintf("%s %s @ %s %s", f.Away, formatScore(f.AwayScore), f.Home, formatScore(f.HomeScore))
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseFinal extracts both participants' scores from a score record.
func ParseFinal(rec feed.ScoreRecord) (Final, error) {
	f := Final{Home: rec.Home, Away: rec.Away}
	home, away := odds.FoldLabel(rec.Home), odds.FoldLabel(rec.Away)

	var haveHome, haveAway bool
	for _, s := range rec.Scores {
		v, err := strconv.ParseFloat(strings.TrimSpace(s.Score), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		switch odds.FoldLabel(s.Participant) {
		case home:
			f.HomeScore, haveHome = v, true
		case away:
			f.AwayScore, haveAway = v, true
		}
	}
	if !haveHome || !haveAway {
		return Final{}, fmt.Errorf("%w: %s @ %s", ErrMissingScore, rec.Away, rec.Home)
	}
	return f, nil
}

// Settle resolves a descriptor against a final score.
//
//	h2h:    strictly higher score wins, equal is PUSH ("Draw" wins on a tie)
//	spread: (selection − opponent) + line, sign decides
//	total:  home + away against the line, Under mirrors Over
func Settle(d ledger.Descriptor, f Final) (ledger.Result, error) {
	if !d.Valid() {
		return ledger.ResultNone, fmt.Errorf("%w: %q", ledger.ErrMalformedDescriptor, d.String())
	}

	switch d.Market {
	case odds.MarketTotal:
		diff := f.HomeScore + f.AwayScore - d.Line
		if d.Side == odds.SideUnder {
			diff = -diff
		}
		return fromSign(diff), nil

	case odds.MarketMoneyline:
		if odds.FoldLabel(d.Team) == drawLabel {
			if f.HomeScore == f.AwayScore {
				return ledger.ResultWin, nil
			}
			return ledger.ResultLoss, nil
		}
		sel, opp, err := sides(d.Team, f)
		if err != nil {
			return ledger.ResultNone, err
		}
		return fromSign(sel - opp), nil

	case odds.MarketSpread:
		sel, opp, err := sides(d.Team, f)
		if err != nil {
			return ledger.ResultNone, err
		}
		return fromSign(sel - opp + d.Line), nil
	}
	return ledger.ResultNone, fmt.Errorf("%w: unknown market %q", ledger.ErrMalformedDescriptor, d.Market)
}

func sides(team string, f Final) (sel, opp float64, err error) {
	switch odds.FoldLabel(team) {
	case odds.FoldLabel(f.Home):
		return f.HomeScore, f.AwayScore, nil
	case odds.FoldLabel(f.Away):
		return f.AwayScore, f.HomeScore, nil
	}
	return 0, 0, fmt.Errorf("%w: %q in %s @ %s", ErrUnknownParticipant, team, f.Away, f.Home)
}

func fromSign(v float64) ledger.Result {
	switch {
	case v > 0:
		return ledger.ResultWin
	case v < 0:
		return ledger.ResultLoss
	}
	return ledger.ResultPush
}
