package alerts

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"smart-picks/internal/analysis"
	"smart-picks/internal/grading"
	"smart-picks/internal/ledger"
	"smart-picks/internal/odds"
	"smart-picks/internal/selection"
)

func TestCheckCooldownSuppresses(t *testing.T) {
	n := NewNotifier(1 * time.Second)

	// First call should not suppress
	if n.checkCooldown("test-key") {
		t.Error("first call should not be suppressed")
	}

	// Immediate second call should suppress
	if !n.checkCooldown("test-key") {
		t.Error("second call within cooldown should be suppressed")
	}
}

func TestCheckCooldownExpires(t *testing.T) {
	n := NewNotifier(10 * time.Millisecond)

	if n.checkCooldown("test-key") {
		t.Error("first call should not be suppressed")
	}

	time.Sleep(15 * time.Millisecond)

	if n.checkCooldown("test-key") {
		t.Error("call after cooldown should not be suppressed")
	}
}

func TestCheckCooldownDifferentKeys(t *testing.T) {
	n := NewNotifier(1 * time.Second)

	if n.checkCooldown("key-a") {
		t.Error("first call for key-a should not be suppressed")
	}
	if n.checkCooldown("key-b") {
		t.Error("first call for key-b should not be suppressed")
	}
	if !n.checkCooldown("key-a") {
		t.Error("second call for key-a should be suppressed")
	}
}

func TestAlertPickCooldown(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(1 * time.Second)
	n.SetOutput(&buf)

	d := ledger.Spread("Lions", 3.5)
	p := ledger.Pick{
		ID:        ledger.PickID("americanfootball_nfl", "ev1", d),
		Sport:     "americanfootball_nfl",
		Home:      "Packers",
		Away:      "Lions",
		Market:    odds.MarketSpread,
		Selection: d.String(),
		Price:     -110,
		Stake:     decimal.RequireFromString("4.5"),
		Edge:      0.031,
	}

	n.AlertPick(p)
	n.AlertPick(p)

	out := buf.String()
	if strings.Count(out, "PICK:") != 1 {
		t.Errorf("expected one PICK line, got %q", out)
	}
	if !strings.Contains(out, "Lions +3.5 (Lions @ Packers) -110") || !strings.Contains(out, "stake=$4.50") {
		t.Errorf("unexpected alert format: %q", out)
	}
}

func TestLogDecision(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(1 * time.Second)
	n.SetOutput(&buf)

	c := analysis.Candidate{
		CanonicalLine: odds.CanonicalLine{
			Event:  odds.Event{ID: "ev1", Sport: "basketball_nba", Home: "Lakers", Away: "Celtics"},
			Market: odds.MarketMoneyline,
			Price:  120,
		},
		Descriptor: ledger.Moneyline("Celtics"),
		Edge:       0.01,
		RankScore:  0.8,
	}

	n.LogDecision(selection.Decision{Candidate: c, Reason: selection.Accepted})
	n.LogDecision(selection.Decision{Candidate: c, Reason: selection.RejectThreshold, Detail: "score 0.800 < 1.200"})
	n.LogDecision(selection.Decision{Candidate: c, Reason: selection.RejectThreshold})

	out := buf.String()
	if strings.Count(out, "SKIP") != 1 {
		t.Errorf("expected one SKIP line, got %q", out)
	}
	if !strings.Contains(out, "SKIP below_threshold") || !strings.Contains(out, "score 0.800 < 1.200") {
		t.Errorf("unexpected decision format: %q", out)
	}
}

func TestLogGradeProblem(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(1 * time.Second)
	n.SetOutput(&buf)

	n.LogGradeProblem(grading.Problem{PickID: "p1", EventID: "ev1", Err: errors.New("bad line")})
	if !strings.Contains(buf.String(), "GRADE PROBLEM [p1 event=ev1]: bad line") {
		t.Errorf("unexpected problem format: %q", buf.String())
	}
}

func TestCleanupOldAlerts(t *testing.T) {
	n := NewNotifier(1 * time.Hour)

	// Manually insert an old alert
	n.mu.Lock()
	n.lastAlerts["old-key"] = time.Now().Add(-2 * time.Hour)
	n.lastAlerts["fresh-key"] = time.Now()
	n.mu.Unlock()

	n.CleanupOldAlerts()

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.lastAlerts["old-key"]; ok {
		t.Error("old alert should have been cleaned up")
	}
	if _, ok := n.lastAlerts["fresh-key"]; !ok {
		t.Error("fresh alert should not have been cleaned up")
	}
}
