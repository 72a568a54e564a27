package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// State is the full ordered sequence of picks. Bankroll is never stored
// here: it is always a fold over CLOSED picks in placed_at order.
type State struct {
	picks []Pick
	index map[string]int
}

// placedBefore is the ledger order: placed_at, then pick_id so picks
// placed in the same instant replay identically after a reload.
func placedBefore(a, b Pick) bool {
	if !a.PlacedAt.Equal(b.PlacedAt) {
		return a.PlacedAt.Before(b.PlacedAt)
	}
	return a.ID < b.ID
}

// NewState orders picks by PlacedAt and rejects duplicate ids.
func NewState(picks []Pick) (*State, error) {
	s := &State{picks: append([]Pick(nil), picks...)}
	sort.SliceStable(s.picks, func(i, j int) bool {
		return placedBefore(s.picks[i], s.picks[j])
	})
	if err := s.reindex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *State) reindex() error {
	s.index = make(map[string]int, len(s.picks))
	for i, p := range s.picks {
		if _, dup := s.index[p.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePick, p.ID)
		}
		s.index[p.ID] = i
	}
	return nil
}

// Len returns the number of picks.
func (s *State) Len() int { return len(s.picks) }

// Picks returns a copy of every pick in placed_at order.
func (s *State) Picks() []Pick {
	return append([]Pick(nil), s.picks...)
}

// Get looks up a pick by id.
func (s *State) Get(id string) (Pick, bool) {
	i, ok := s.index[id]
	if !ok {
		return Pick{}, false
	}
	return s.picks[i], true
}

// Unresolved returns PENDING and OPEN picks in placed_at order.
func (s *State) Unresolved() []Pick {
	var out []Pick
	for _, p := range s.picks {
		if p.Status.Unresolved() {
			out = append(out, p)
		}
	}
	return out
}

// OpenCount is the number of unresolved picks.
func (s *State) OpenCount() int {
	n := 0
	for _, p := range s.picks {
		if p.Status.Unresolved() {
			n++
		}
	}
	return n
}

// Exposure is the total stake riding on unresolved picks.
func (s *State) Exposure() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.picks {
		if p.Status.Unresolved() {
			total = total.Add(p.Stake)
		}
	}
	return total
}

// Conflict reports why p could not be appended: a pick with the same id
// exists, or an unresolved pick holds the other side of p's market.
func (s *State) Conflict(p Pick) error {
	if _, dup := s.index[p.ID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicatePick, p.ID)
	}
	for _, q := range s.picks {
		if !q.Status.Unresolved() || q.EventID != p.EventID || q.Market != p.Market {
			continue
		}
		if q.Descriptor.Opposes(p.Descriptor) {
			return fmt.Errorf("%w: %s holds %q against %q", ErrOppositeSide, q.ID, q.Selection, p.Selection)
		}
	}
	return nil
}

// Append adds a new unresolved pick, keeping placed_at order.
func (s *State) Append(p Pick) error {
	if !p.Status.Unresolved() {
		return fmt.Errorf("appending pick %s: status %s is not PENDING/OPEN", p.ID, p.Status)
	}
	if err := s.Conflict(p); err != nil {
		return err
	}

	i := sort.Search(len(s.picks), func(i int) bool {
		return placedBefore(p, s.picks[i])
	})
	s.picks = append(s.picks, Pick{})
	copy(s.picks[i+1:], s.picks[i:])
	s.picks[i] = p
	return s.reindex()
}

// Resolve closes an unresolved pick. A CLOSED pick is terminal.
func (s *State) Resolve(id string, result Result, profit decimal.Decimal, finalScore string, at time.Time) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPickNotFound, id)
	}
	p := &s.picks[i]
	if p.Status == StatusClosed {
		return fmt.Errorf("%w: %s", ErrAlreadyClosed, id)
	}
	p.Status = StatusClosed
	p.Result = result
	p.Profit = profit
	p.FinalScore = finalScore
	p.ResolvedAt = at
	return nil
}

// RefreshStatuses moves unresolved picks between PENDING (event not yet
// started) and OPEN (started). Returns how many changed.
func (s *State) RefreshStatuses(now time.Time) int {
	changed := 0
	for i := range s.picks {
		p := &s.picks[i]
		if !p.Status.Unresolved() || p.StartTime.IsZero() {
			continue
		}
		next := StatusPending
		if !p.StartTime.After(now) {
			next = StatusOpen
		}
		if p.Status != next {
			p.Status = next
			changed++
		}
	}
	return changed
}

// Bankroll folds CLOSED profits over start.
func (s *State) Bankroll(start decimal.Decimal) decimal.Decimal {
	bankroll := start
	for _, p := range s.picks {
		if p.Status == StatusClosed {
			bankroll = bankroll.Add(p.Profit)
		}
	}
	return bankroll
}

// Replay rewrites every cached BankrollAfter from the fold. Unresolved
// picks carry no bankroll_after.
func (s *State) Replay(start decimal.Decimal) {
	bankroll := start
	for i := range s.picks {
		p := &s.picks[i]
		if p.Status != StatusClosed {
			p.BankrollAfter = decimal.Zero
			continue
		}
		bankroll = bankroll.Add(p.Profit)
		p.BankrollAfter = bankroll
	}
}

// Verify checks that every stored BankrollAfter matches the fold.
func (s *State) Verify(start decimal.Decimal) error {
	bankroll := start
	for _, p := range s.picks {
		if p.Status != StatusClosed {
			continue
		}
		bankroll = bankroll.Add(p.Profit)
		if !p.BankrollAfter.Equal(bankroll) {
			return fmt.Errorf("%w: pick %s stores %s, replay gives %s",
				ErrReplayMismatch, p.ID, p.BankrollAfter.StringFixed(2), bankroll.StringFixed(2))
		}
	}
	return nil
}
