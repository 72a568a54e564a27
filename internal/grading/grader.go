// Package grading settles unresolved picks against final scores.
package grading

import (
	"fmt"
	"time"

	"smart-picks/internal/feed"
	"smart-picks/internal/ledger"
	"smart-picks/internal/odds"
)

// Problem is a pick that could not be graded because its inputs were bad.
type Problem struct {
	PickID  string
	EventID string
	Err     error
}

// Summary counts what one grading pass did.
type Summary struct {
	Graded       int
	Wins         int
	Losses       int
	Pushes       int
	Unmatched    int // no score record for the event
	NotCompleted int
	Problems     []Problem
	Resolved     []ledger.Pick
}

type nameKey struct {
	sport, home, away string
}

// nameMatchWindow bounds how far a name-matched record's start may be from
const nameMatchWindow = 24 * time.Hour

// scoreIndex finds a score record by event id, falling back to the
// participants' names when feeds disagree on ids.
type scoreIndex struct {
	byID   map[string]feed.ScoreRecord
	byName map[nameKey][]feed.ScoreRecord
}

func newScoreIndex(scores []feed.ScoreRecord) scoreIndex {
	idx := scoreIndex{
		byID:   make(map[string]feed.ScoreRecord, len(scores)),
		byName: make(map[nameKey][]feed.ScoreRecord, len(scores)),
	}
	for _, rec := range scores {
		if rec.EventID != "" {
			idx.byID[rec.EventID] = rec
		}
		key := nameKey{rec.Sport, odds.FoldLabel(rec.Home), odds.FoldLabel(rec.Away)}
		idx.byName[key] = append(idx.byName[key], rec)
	}
	return idx
}

// lookup matches by id first. A name match must start within
// nameMatchWindow of the pick; a record without a start time is used only
// when it is the sole record for those names. Completed records win over
// unfinished ones, then the closest start.
func (idx scoreIndex) lookup(p ledger.Pick) (feed.ScoreRecord, bool) {
	if rec, ok := idx.byID[p.EventID]; ok {
		return rec, true
	}
	recs := idx.byName[nameKey{p.Sport, odds.FoldLabel(p.Home), odds.FoldLabel(p.Away)}]

	var (
		best  feed.ScoreRecord
		found bool
		gap   time.Duration
	)
	for _, rec := range recs {
		var d time.Duration
		if rec.StartTime.IsZero() || p.StartTime.IsZero() {
			if len(recs) > 1 {
				continue
			}
		} else {
			d = rec.StartTime.Sub(p.StartTime)
			if d < 0 {
				d = -d
			}
			if d > nameMatchWindow {
				continue
			}
		}
		switch {
		case !found,
			rec.Completed && !best.Completed,
			rec.Completed == best.Completed && d < gap:
			best, found, gap = rec, true, d
		}
	}
	return best, found
}

// Grade resolves every unresolved pick whose event has a completed score.
// CLOSED picks are never touched, so a second pass over the same feed is a
// no-op. Picks with a missing or unfinished event stay as they are; picks
// with malformed inputs stay as they are and are reported in Problems.
// An error means the ledger rejected a resolution.
func Grade(state *ledger.State, scores []feed.ScoreRecord, now time.Time) (Summary, error) {
	var sum Summary
	idx := newScoreIndex(scores)

	for _, p := range state.Unresolved() {
		rec, ok := idx.lookup(p)
		if !ok {
			sum.Unmatched++
			continue
		}
		if !rec.Completed {
			sum.NotCompleted++
			continue
		}

		d, err := descriptorOf(p)
		if err != nil {
			sum.Problems = append(sum.Problems, Problem{PickID: p.ID, EventID: p.EventID, Err: err})
			continue
		}
		final, err := ParseFinal(rec)
		if err != nil {
			sum.Problems = append(sum.Problems, Problem{PickID: p.ID, EventID: p.EventID, Err: err})
			continue
		}
		result, err := Settle(d, final)
		if err != nil {
			sum.Problems = append(sum.Problems, Problem{PickID: p.ID, EventID: p.EventID, Err: err})
			continue
		}

		profit := ledger.ProfitFor(result, p.Stake, p.Price)
		if err := state.Resolve(p.ID, result, profit, final.String(), now.UTC()); err != nil {
			return sum, fmt.Errorf("resolving pick %s: %w", p.ID, err)
		}
		graded, _ := state.Get(p.ID)
		sum.Resolved = append(sum.Resolved, graded)
		sum.Graded++
		switch result {
		case ledger.ResultWin:
			sum.Wins++
		case ledger.ResultLoss:
			sum.Losses++
		case ledger.ResultPush:
			sum.Pushes++
		}
	}
	return sum, nil
}

// descriptorOf returns the pick's typed selection. Picks loaded from a row
// whose selection failed to parse carry an invalid descriptor; the stored
// text is tried once more so the error names it.
func descriptorOf(p ledger.Pick) (ledger.Descriptor, error) {
	if p.Descriptor.Valid() && p.Descriptor.Market == p.Market {
		return p.Descriptor, nil
	}
	return ledger.ParseDescriptor(p.Market, p.Selection)
}

// ManualScore is the final-score text recorded by Override.
const ManualScore = "manual"

// Override closes one pick with an explicit result, for events the score
// feed never settles.
func Override(state *ledger.State, id string, result ledger.Result, now time.Time) (ledger.Pick, error) {
	if result == ledger.ResultNone {
		return ledger.Pick{}, fmt.Errorf("overriding pick %s: empty result", id)
	}
	p, ok := state.Get(id)
	if !ok {
		return ledger.Pick{}, fmt.Errorf("overriding pick %s: %w", id, ledger.ErrPickNotFound)
	}
	profit := ledger.ProfitFor(result, p.Stake, p.Price)
	if err := state.Resolve(id, result, profit, ManualScore, now.UTC()); err != nil {
		return ledger.Pick{}, fmt.Errorf("overriding pick %s: %w", id, err)
	}
	p, _ = state.Get(id)
	return p, nil
}
