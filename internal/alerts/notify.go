package alerts

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"smart-picks/internal/grading"
	"smart-picks/internal/ledger"
	"smart-picks/internal/selection"
)

// Notifier writes the decision log: accepted picks, rejections, grading
// results and problems.
type Notifier struct {
	mu         sync.Mutex
	lastAlerts map[string]time.Time // Dedupe alerts
	cooldown   time.Duration        // Minimum time between same alerts
	logger     *log.Logger
}

// NewNotifier creates a new notifier
func NewNotifier(cooldown time.Duration) *Notifier {
	return &Notifier{
		lastAlerts: make(map[string]time.Time),
		cooldown:   cooldown,
		logger:     log.Default(),
	}
}

// SetOutput redirects the decision log.
func (n *Notifier) SetOutput(w io.Writer) {
	n.logger = log.New(w, "", log.LstdFlags)
}

// checkCooldown reports whether key was alerted within the cooldown, and
// records it otherwise.
func (n *Notifier) checkCooldown(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if lastTime, ok := n.lastAlerts[key]; ok {
		if time.Since(lastTime) < n.cooldown {
			return true
		}
	}
	n.lastAlerts[key] = time.Now()
	return false
}

// AlertPick logs a newly accepted pick.
func (n *Notifier) AlertPick(p ledger.Pick) {
	if n.checkCooldown("pick-" + p.ID) {
		return
	}
	n.logger.Printf("PICK: %s %s %s (%s) %+d | stake=$%s edge=%.2f%% model=%.1f%% score=%.3f",
		p.Sport, strings.ToUpper(string(p.Market)), p.Selection, p.Matchup(), p.Price,
		p.Stake.StringFixed(2), p.Edge*100, p.ModelProb*100, p.RankScore,
	)
}

// LogDecision logs a rejected candidate. Rejections are expected control
// flow, so the same rejection is only logged once per cooldown.
func (n *Notifier) LogDecision(d selection.Decision) {
	if d.Accepted() {
		return
	}
	c := d.Candidate
	key := fmt.Sprintf("reject-%s-%s-%s-%s", c.Event.ID, c.Market, c.Descriptor.Key(), d.Reason)
	if n.checkCooldown(key) {
		return
	}

	detail := ""
	if d.Detail != "" {
		detail = " | " + d.Detail
	}
	n.logger.Printf("SKIP %s: %s %s %s (%s @ %s) %+d edge=%.2f%% score=%.3f%s",
		d.Reason, c.Event.Sport, strings.ToUpper(string(c.Market)), c.Descriptor.String(),
		c.Event.Away, c.Event.Home, c.Price, c.Edge*100, c.RankScore, detail,
	)
}

// LogGraded logs a pick closed by grading.
func (n *Notifier) LogGraded(p ledger.Pick) {
	n.logger.Printf("GRADED: %s %s %s -> %s %s | %s",
		p.Sport, p.Selection, fmt.Sprintf("%+d", p.Price), p.Result, p.Profit.StringFixed(2), p.FinalScore)
}

// LogGradeProblem reports a pick left unresolved because of bad input.
func (n *Notifier) LogGradeProblem(pr grading.Problem) {
	if n.checkCooldown("problem-" + pr.PickID) {
		return
	}
	n.logger.Printf("GRADE PROBLEM [%s event=%s]: %v", pr.PickID, pr.EventID, pr.Err)
}

// LogRun logs a run completion
func (n *Notifier) LogRun(sports, candidates, picks, graded int) {
	n.logger.Printf("Run complete: %d sports, %d candidates, %d new picks, %d graded", sports, candidates, picks, graded)
}

// LogError logs an error
func (n *Notifier) LogError(context string, err error) {
	n.logger.Printf("ERROR [%s]: %v", context, err)
}

// LogStartup logs run startup
func (n *Notifier) LogStartup(config string) {
	n.logger.Printf("Run started |%s", config)
}

// CleanupOldAlerts removes stale alert records
func (n *Notifier) CleanupOldAlerts() {
	n.mu.Lock()
	defer n.mu.Unlock()
	cutoff := time.Now().Add(-1 * time.Hour)
	for key, t := range n.lastAlerts {
		if t.Before(cutoff) {
			delete(n.lastAlerts, key)
		}
	}
}
