// Package selection is the risk gate: it turns ranked candidates into
// staked picks without breaching thresholds, position or exposure limits.
package selection

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"smart-picks/internal/analysis"
	"smart-picks/internal/ledger"
	"smart-picks/internal/odds"
)

// StakeMode selects how a stake is sized.
type StakeMode string

const (
	// StakeKelly is bankroll × min(kelly × KellyFraction, HardCapFraction).
	StakeKelly StakeMode = "kelly"
	// StakeUnit is a flat unit of bankroll × UnitFraction scaled by edge
	// and rank score, still bounded by HardCapFraction.
	StakeUnit StakeMode = "unit"
)

// SportPolicy is the per-sport part of Policy.
type SportPolicy struct {
	Threshold     float64 // minimum rank score
	MoneylineOnly bool
}

// Policy is the flat risk configuration for one run.
type Policy struct {
	Sports              map[string]SportPolicy
	MaxOpenPositions    int // 0 disables the limit
	MaxExposureFraction float64
	StakeMode           StakeMode
	KellyFraction       float64
	HardCapFraction     float64
	UnitFraction        float64
}

// Reason classifies a selection decision.
type Reason string

const (
	Accepted            Reason = "accepted"
	RejectNoEdge        Reason = "no_edge"
	RejectStarted       Reason = "event_started"
	RejectMoneylineOnly Reason = "moneyline_only"
	RejectThreshold     Reason = "below_threshold"
	RejectDuplicate     Reason = "duplicate"
	RejectOppositeSide  Reason = "opposite_side"
	RejectMaxPositions  Reason = "max_open_positions"
	RejectZeroStake     Reason = "zero_stake"
	RejectExposure      Reason = "exposure_cap"
)

// Decision records what happened to one candidate.
type Decision struct {
	Candidate analysis.Candidate
	Reason    Reason
	Stake     decimal.Decimal
	PickID    string
	Detail    string
}

// Accepted reports whether the candidate became a pick.
func (d Decision) Accepted() bool { return d.Reason == Accepted }

// Select walks candidates in rank order and appends every acceptable one
// to state as a PENDING pick. Decisions are returned in the same order,
// one per candidate. An error means the ledger refused an append after
// the gate passed it, which is an invariant violation.
func Select(cands []analysis.Candidate, state *ledger.State, bankroll decimal.Decimal, policy Policy, now time.Time) ([]ledger.Pick, []Decision, error) {
	ranked := append([]analysis.Candidate(nil), cands...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.RankScore != b.RankScore {
			return a.RankScore > b.RankScore
		}
		if a.Edge != b.Edge {
			return a.Edge > b.Edge
		}
		if a.Event.ID != b.Event.ID {
			return a.Event.ID < b.Event.ID
		}
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		return a.Selection < b.Selection
	})

	exposureCap := bankroll.Mul(decimal.NewFromFloat(policy.MaxExposureFraction)).Round(2)
	exposure := state.Exposure()
	openCount := state.OpenCount()

	var picks []ledger.Pick
	decisions := make([]Decision, 0, len(ranked))
	for _, c := range ranked {
		d := Decision{Candidate: c}
		sp := policy.Sports[c.Event.Sport]

		switch {
		case c.Edge <= 0 || c.RankScore <= 0:
			d.Reason = RejectNoEdge
		case !c.Event.StartTime.IsZero() && !c.Event.StartTime.After(now):
			d.Reason = RejectStarted
		case sp.MoneylineOnly && c.Market != odds.MarketMoneyline:
			d.Reason = RejectMoneylineOnly
		case c.RankScore < sp.Threshold:
			d.Reason = RejectThreshold
			d.Detail = fmt.Sprintf("score %.3f < %.3f", c.RankScore, sp.Threshold)
		}
		if d.Reason != "" {
			decisions = append(decisions, d)
			continue
		}

		p := newPick(c, now)
		d.PickID = p.ID
		if err := state.Conflict(p); err != nil {
			d.Reason = conflictReason(err)
			d.Detail = err.Error()
			decisions = append(decisions, d)
			continue
		}
		if policy.MaxOpenPositions > 0 && openCount+1 > policy.MaxOpenPositions {
			d.Reason = RejectMaxPositions
			decisions = append(decisions, d)
			continue
		}

		p.Stake = Stake(c, bankroll, policy)
		d.Stake = p.Stake
		if !p.Stake.IsPositive() {
			d.Reason = RejectZeroStake
			decisions = append(decisions, d)
			continue
		}
		if exposure.Add(p.Stake).GreaterThan(exposureCap) {
			d.Reason = RejectExposure
			d.Detail = fmt.Sprintf("exposure %s + %s > %s", exposure.StringFixed(2), p.Stake.StringFixed(2), exposureCap.StringFixed(2))
			decisions = append(decisions, d)
			continue
		}

		if err := state.Append(p); err != nil {
			return picks, decisions, fmt.Errorf("appending pick %s: %w", p.ID, err)
		}
		exposure = exposure.Add(p.Stake)
		openCount++
		d.Reason = Accepted
		decisions = append(decisions, d)
		picks = append(picks, p)
	}
	return picks, decisions, nil
}

// Stake sizes a candidate under the policy's stake mode.
func Stake(c analysis.Candidate, bankroll decimal.Decimal, policy Policy) decimal.Decimal {
	if policy.StakeMode == StakeUnit {
		stake := analysis.DynamicStake(bankroll, policy.UnitFraction, c.Edge*100, c.RankScore)
		if policy.HardCapFraction > 0 {
			limit := bankroll.Mul(decimal.NewFromFloat(policy.HardCapFraction)).RoundDown(2)
			stake = decimal.Min(stake, limit)
		}
		return stake
	}
	return analysis.KellyStake(bankroll, c.ModelProb, c.Price, policy.KellyFraction, policy.HardCapFraction)
}

func newPick(c analysis.Candidate, now time.Time) ledger.Pick {
	return ledger.Pick{
		ID:          ledger.PickID(c.Event.Sport, c.Event.ID, c.Descriptor),
		EventID:     c.Event.ID,
		Sport:       c.Event.Sport,
		Home:        c.Event.Home,
		Away:        c.Event.Away,
		StartTime:   c.Event.StartTime,
		Market:      c.Market,
		Descriptor:  c.Descriptor,
		Selection:   c.Descriptor.String(),
		Price:       c.Price,
		ImpliedProb: c.ImpliedProb,
		ModelProb:   c.ModelProb,
		Edge:        c.Edge,
		RankScore:   c.RankScore,
		PlacedAt:    now.UTC(),
		Status:      ledger.StatusPending,
	}
}

func conflictReason(err error) Reason {
	if errors.Is(err, ledger.ErrOppositeSide) {
		return RejectOppositeSide
	}
	return RejectDuplicate
}
