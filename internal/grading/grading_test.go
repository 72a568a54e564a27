package grading

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-picks/internal/feed"
	"smart-picks/internal/ledger"
	"smart-picks/internal/odds"
)

var placed = time.Date(2026, 10, 11, 16, 0, 0, 0, time.UTC)

func pick(event string, d ledger.Descriptor, stake string, price int) ledger.Pick {
	return ledger.Pick{
		ID:         ledger.PickID("americanfootball_nfl", event, d),
		EventID:    event,
		Sport:      "americanfootball_nfl",
		Home:       "Home",
		Away:       "Lions",
		StartTime:  placed.Add(time.Hour),
		Market:     d.Market,
		Descriptor: d,
		Selection:  d.String(),
		Price:      price,
		Stake:      decimal.RequireFromString(stake),
		PlacedAt:   placed,
		Status:     ledger.StatusOpen,
	}
}

func final(event string, lions, home string) feed.ScoreRecord {
	return feed.ScoreRecord{
		EventID:   event,
		Sport:     "americanfootball_nfl",
		Home:      "Home",
		Away:      "Lions",
		Completed: true,
		Scores: []feed.ParticipantScore{
			{Participant: "Home", Score: home},
			{Participant: "Lions", Score: lions},
		},
	}
}

func TestSettle(t *testing.T) {
	f := func(lions, home float64) Final {
		return Final{Home: "Home", Away: "Lions", HomeScore: home, AwayScore: lions}
	}

	tests := []struct {
		name  string
		d     ledger.Descriptor
		final Final
		want  ledger.Result
	}{
		{"moneyline win", ledger.Moneyline("Lions"), f(24, 21), ledger.ResultWin},
		{"moneyline loss", ledger.Moneyline("Lions"), f(20, 21), ledger.ResultLoss},
		{"moneyline tie pushes", ledger.Moneyline("Home"), f(2, 2), ledger.ResultPush},
		{"moneyline case-insensitive", ledger.Moneyline("  lions "), f(3, 1), ledger.ResultWin},
		{"draw wins on tie", ledger.Moneyline("Draw"), f(1, 1), ledger.ResultWin},
		{"draw loses otherwise", ledger.Moneyline("Draw"), f(2, 1), ledger.ResultLoss},
		{"underdog covers in a loss", ledger.Spread("Lions", 3.5), f(20, 21), ledger.ResultWin},
		{"favorite fails to cover", ledger.Spread("Home", -3.5), f(20, 21), ledger.ResultLoss},
		{"spread lands on the number", ledger.Spread("Home", -3), f(18, 21), ledger.ResultPush},
		{"under loses at 46", ledger.Total(odds.SideUnder, 45.5), f(25, 21), ledger.ResultLoss},
		{"under wins at 45", ledger.Total(odds.SideUnder, 45.5), f(24, 21), ledger.ResultWin},
		{"under pushes at exactly 45.5", ledger.Total(odds.SideUnder, 45.5), f(24.5, 21), ledger.ResultPush},
		{"over wins", ledger.Total(odds.SideOver, 220.5), f(110, 111), ledger.ResultWin},
		{"over pushes on whole line", ledger.Total(odds.SideOver, 42), f(21, 21), ledger.ResultPush},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Settle(tt.d, tt.final)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettle_Errors(t *testing.T) {
	f := Final{Home: "Home", Away: "Lions", HomeScore: 1, AwayScore: 2}

	_, err := Settle(ledger.Moneyline("Bears"), f)
	assert.ErrorIs(t, err, ErrUnknownParticipant)

	_, err = Settle(ledger.Descriptor{Market: odds.MarketTotal}, f)
	assert.ErrorIs(t, err, ledger.ErrMalformedDescriptor)
}

func TestParseFinal(t *testing.T) {
	f, err := ParseFinal(final("ev1", "20", "21"))
	require.NoError(t, err)
	assert.Equal(t, 21.0, f.HomeScore)
	assert.Equal(t, 20.0, f.AwayScore)
	assert.Equal(t, "Lions 20 @ Home 21", f.String())

	rec := final("ev1", "", "21")
	_, err = ParseFinal(rec)
	assert.ErrorIs(t, err, ErrMissingScore)

	rec.Scores = rec.Scores[:1]
	_, err = ParseFinal(rec)
	assert.ErrorIs(t, err, ErrMissingScore)

	for _, score := range []string{"NaN", "Inf", "+Inf", "-Inf"} {
		_, err = ParseFinal(final("ev1", score, "21"))
		assert.ErrorIs(t, err, ErrMissingScore, "score %q", score)
	}
}

func TestGrade(t *testing.T) {
	spread := pick("ev1", ledger.Spread("Lions", 3.5), "10", -110)
	under := pick("ev2", ledger.Total(odds.SideUnder, 45.5), "10", -150)
	pending := pick("ev3", ledger.Moneyline("Lions"), "10", 120)
	unknown := pick("ev4", ledger.Moneyline("Lions"), "10", 120)

	state, err := ledger.NewState([]ledger.Pick{spread, under, pending, unknown})
	require.NoError(t, err)

	inProgress := final("ev3", "7", "3")
	inProgress.Completed = false
	scores := []feed.ScoreRecord{
		final("ev1", "20", "21"),
		final("ev2", "24", "21"),
		inProgress,
	}

	now := placed.Add(6 * time.Hour)
	sum, err := Grade(state, scores, now)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Graded)
	assert.Equal(t, 2, sum.Wins)
	assert.Equal(t, 1, sum.NotCompleted)
	assert.Equal(t, 1, sum.Unmatched)
	assert.Empty(t, sum.Problems)
	require.Len(t, sum.Resolved, 2)

	got, _ := state.Get(spread.ID)
	assert.Equal(t, ledger.StatusClosed, got.Status)
	assert.Equal(t, ledger.ResultWin, got.Result)
	assert.True(t, got.Profit.Equal(decimal.RequireFromString("9.09")), "profit %s", got.Profit)
	assert.Equal(t, "Lions 20 @ Home 21", got.FinalScore)
	assert.Equal(t, now, got.ResolvedAt)

	got, _ = state.Get(under.ID)
	assert.True(t, got.Profit.Equal(decimal.RequireFromString("6.67")), "profit %s", got.Profit)

	got, _ = state.Get(pending.ID)
	assert.Equal(t, ledger.StatusOpen, got.Status)
	got, _ = state.Get(unknown.ID)
	assert.Equal(t, ledger.StatusOpen, got.Status)
}

func TestGrade_Idempotent(t *testing.T) {
	p := pick("ev1", ledger.Moneyline("Lions"), "10", -150)
	state, err := ledger.NewState([]ledger.Pick{p})
	require.NoError(t, err)
	scores := []feed.ScoreRecord{final("ev1", "3", "1")}

	_, err = Grade(state, scores, placed.Add(5*time.Hour))
	require.NoError(t, err)
	before := state.Picks()

	// a corrected feed must not regrade a closed pick
	sum, err := Grade(state, []feed.ScoreRecord{final("ev1", "0", "1")}, placed.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, sum.Graded)
	assert.Equal(t, before, state.Picks())
}

func TestGrade_FallsBackToNames(t *testing.T) {
	p := pick("ev-old-id", ledger.Moneyline("Lions"), "10", 100)
	state, err := ledger.NewState([]ledger.Pick{p})
	require.NoError(t, err)

	rec := final("ev-new-id", "28", "14")
	rec.Home = "  HOME"
	rec.Scores[0].Participant = "  HOME"

	sum, err := Grade(state, []feed.ScoreRecord{rec}, placed.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Wins)
}

func TestGrade_NameFallbackRespectsStartTime(t *testing.T) {
	kickoff := placed.Add(time.Hour)

	tests := []struct {
		name       string
		records    func() []feed.ScoreRecord
		wantResult ledger.Result
		unmatched  int
	}{
		{
			name: "earlier meeting is ignored",
			records: func() []feed.ScoreRecord {
				old := final("ev-week2", "10", "31")
				old.StartTime = kickoff.Add(-14 * 24 * time.Hour)
				return []feed.ScoreRecord{old}
			},
			unmatched: 1,
		},
		{
			name: "same-day record grades, earlier meeting skipped",
			records: func() []feed.ScoreRecord {
				old := final("ev-week2", "10", "31")
				old.StartTime = kickoff.Add(-14 * 24 * time.Hour)
				today := final("ev-today", "28", "14")
				today.StartTime = kickoff.Add(2 * time.Minute)
				return []feed.ScoreRecord{old, today}
			},
			wantResult: ledger.ResultWin,
		},
		{
			name: "undated record is ambiguous next to another",
			records: func() []feed.ScoreRecord {
				old := final("ev-week2", "10", "31")
				old.StartTime = kickoff.Add(-14 * 24 * time.Hour)
				undated := final("ev-undated", "28", "14")
				return []feed.ScoreRecord{old, undated}
			},
			unmatched: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pick("ev-old-id", ledger.Moneyline("Lions"), "10", 100)
			state, err := ledger.NewState([]ledger.Pick{p})
			require.NoError(t, err)

			sum, err := Grade(state, tt.records(), placed.Add(5*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, tt.unmatched, sum.Unmatched)

			got, _ := state.Get(p.ID)
			assert.Equal(t, tt.wantResult, got.Result)
		})
	}
}

func TestGrade_MalformedInputsLeavePickUntouched(t *testing.T) {
	bad := pick("ev1", ledger.Spread("Lions", 3.5), "10", -110)
	bad.Descriptor = ledger.Descriptor{}
	bad.Selection = "Lions plus three"

	noScore := pick("ev2", ledger.Moneyline("Lions"), "10", -110)
	noScore.PlacedAt = placed.Add(time.Minute)

	nanScore := pick("ev3", ledger.Moneyline("Lions"), "10", -110)
	nanScore.PlacedAt = placed.Add(2 * time.Minute)

	nanLine := pick("ev4", ledger.Total(odds.SideOver, 45.5), "10", -110)
	nanLine.Descriptor = ledger.Descriptor{}
	nanLine.Selection = "Over NaN"
	nanLine.PlacedAt = placed.Add(3 * time.Minute)

	state, err := ledger.NewState([]ledger.Pick{bad, noScore, nanScore, nanLine})
	require.NoError(t, err)

	scores := []feed.ScoreRecord{
		final("ev1", "20", "21"),
		final("ev2", "17", ""),
		final("ev3", "NaN", "21"),
		final("ev4", "24", "21"),
	}
	sum, err := Grade(state, scores, placed.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, sum.Graded)
	require.Len(t, sum.Problems, 4)
	assert.ErrorIs(t, sum.Problems[0].Err, ledger.ErrMalformedDescriptor)
	assert.ErrorIs(t, sum.Problems[1].Err, ErrMissingScore)
	assert.ErrorIs(t, sum.Problems[2].Err, ErrMissingScore)
	assert.ErrorIs(t, sum.Problems[3].Err, ledger.ErrMalformedDescriptor)

	for _, p := range state.Picks() {
		assert.Equal(t, ledger.StatusOpen, p.Status)
		assert.Equal(t, ledger.ResultNone, p.Result)
	}
}

func TestOverride(t *testing.T) {
	p := pick("ev1", ledger.Moneyline("Lions"), "10", -150)
	state, err := ledger.NewState([]ledger.Pick{p})
	require.NoError(t, err)

	got, err := Override(state, p.ID, ledger.ResultWin, placed)
	require.NoError(t, err)
	assert.Equal(t, ManualScore, got.FinalScore)
	assert.True(t, got.Profit.Equal(decimal.RequireFromString("6.67")))

	_, err = Override(state, p.ID, ledger.ResultLoss, placed)
	assert.ErrorIs(t, err, ledger.ErrAlreadyClosed)

	_, err = Override(state, "missing", ledger.ResultLoss, placed)
	assert.ErrorIs(t, err, ledger.ErrPickNotFound)
}
