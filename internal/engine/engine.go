package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"smart-picks/internal/alerts"
	"smart-picks/internal/analysis"
	"smart-picks/internal/config"
	"smart-picks/internal/feed"
	"smart-picks/internal/grading"
	"smart-picks/internal/ledger"
	"smart-picks/internal/metrics"
	"smart-picks/internal/odds"
	"smart-picks/internal/report"
	"smart-picks/internal/selection"
)

// cleanupInterval is how often the loop forgets old alert cooldowns.
const cleanupInterval = 10 * time.Minute

// Engine runs the pick pipeline: grade what can be graded, snapshot the
// bankroll, score today's quotes, select picks and save the ledger.
type Engine struct {
	source   feed.Source
	store    ledger.Store
	export   ledger.Store
	notifier *alerts.Notifier
	metrics  *metrics.RunMetrics
	cfg      config.Config
	scorer   *analysis.Scorer
	policy   selection.Policy
	now      func() time.Time
}

// Result is everything one run produced.
type Result struct {
	Before     report.Snapshot
	After      report.Snapshot
	Grading    grading.Summary
	Scores     []feed.ScoreRecord
	Candidates []analysis.Candidate
	Decisions  []selection.Decision
	Picks      []ledger.Pick
	State      *ledger.State
}

// New creates a new Engine with all dependencies.
func New(
	source feed.Source,
	store ledger.Store,
	notifier *alerts.Notifier,
	m *metrics.RunMetrics,
	cfg config.Config,
) *Engine {
	if m == nil {
		m = metrics.New()
	}
	return &Engine{
		source:   source,
		store:    store,
		notifier: notifier,
		metrics:  m,
		cfg:      cfg,
		scorer:   analysis.NewScorer(analysis.DefaultConfig(), SportWeights(cfg), Adjustments(cfg)),
		policy:   PolicyFromConfig(cfg),
		now:      time.Now,
	}
}

// WithExport mirrors the ledger to a second store after every run.
func (e *Engine) WithExport(store ledger.Store) *Engine {
	e.export = store
	return e
}

// WithClock replaces the wall clock.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// PolicyFromConfig builds the selector policy.
func PolicyFromConfig(cfg config.Config) selection.Policy {
	p := selection.Policy{
		Sports:              make(map[string]selection.SportPolicy, len(cfg.Sports)),
		MaxOpenPositions:    cfg.MaxOpenPositions,
		MaxExposureFraction: cfg.MaxExposureFraction,
		StakeMode:           selection.StakeMode(cfg.StakeMode),
		KellyFraction:       cfg.KellyFraction,
		HardCapFraction:     cfg.HardCapFraction,
		UnitFraction:        cfg.UnitFraction,
	}
	for _, s := range cfg.Sports {
		p.Sports[s.Key] = selection.SportPolicy{Threshold: s.Threshold, MoneylineOnly: s.MoneylineOnly}
	}
	return p
}

// SportWeights maps sport keys to rank score weights.
func SportWeights(cfg config.Config) map[string]float64 {
	w := make(map[string]float64, len(cfg.Sports))
	for _, s := range cfg.Sports {
		w[s.Key] = s.Weight
	}
	return w
}

// Adjustments returns the configured team adjustments, or nil when the
// policy file defines none.
func Adjustments(cfg config.Config) analysis.AdjustmentSource {
	if len(cfg.Ratings) == 0 && len(cfg.Injuries) == 0 && len(cfg.Fatigue) == 0 {
		return nil
	}
	return analysis.StaticAdjustments{Ratings: cfg.Ratings, Injuries: cfg.Injuries, Fatigue: cfg.Fatigue}
}

// Run executes RunOnce every interval until ctx is cancelled. A run that
// fails on a ledger invariant stops the loop.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if _, err := e.RunOnce(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	slog.Info("Starting run loop", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Run loop stopped gracefully")
			return nil

		case <-cleanupTicker.C:
			e.notifier.CleanupOldAlerts()

		case <-ticker.C:
			if _, err := e.RunOnce(ctx); err != nil {
				return err
			}
		}
	}
}

// RunOnce performs a single pass. Grading completes before the snapshot
// that feeds the selector. Feed failures skip the sport; ledger invariant
// violations abort the run without saving.
func (e *Engine) RunOnce(ctx context.Context) (Result, error) {
	began := time.Now()
	res, err := e.runOnce(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.metrics.RecordRun(status, time.Since(began).Seconds())
	return res, err
}

func (e *Engine) runOnce(ctx context.Context) (Result, error) {
	var res Result
	start := decimal.NewFromFloat(e.cfg.StartingBankroll).Round(2)
	now := e.now().UTC()

	state, err := ledger.Open(ctx, e.store, start)
	if err != nil {
		return res, fmt.Errorf("opening ledger: %w", err)
	}
	res.State = state

	res.Scores = e.fetchScores(ctx)
	res.Grading, err = grading.Grade(state, res.Scores, now)
	if err != nil {
		return res, fmt.Errorf("grading: %w", err)
	}
	for _, p := range res.Grading.Resolved {
		e.notifier.LogGraded(p)
		e.metrics.RecordGraded(p.Sport, string(p.Result))
	}
	for _, pr := range res.Grading.Problems {
		e.notifier.LogGradeProblem(pr)
	}
	e.metrics.RecordMalformed("grade", len(res.Grading.Problems))

	if n := state.RefreshStatuses(now); n > 0 {
		slog.Debug("Refreshed pick statuses", "changed", n)
	}

	res.Before = report.Build(state, start)
	slog.Info("Ledger snapshot",
		"bankroll", res.Before.Bankroll.StringFixed(2),
		"open", res.Before.Open,
		"pending", res.Before.Pending,
		"exposure", res.Before.Exposure.StringFixed(2),
	)

	res.Candidates = e.buildCandidates(ctx)

	res.Picks, res.Decisions, err = selection.Select(res.Candidates, state, res.Before.Bankroll, e.policy, now)
	if err != nil {
		return res, fmt.Errorf("selecting picks: %w", err)
	}
	for _, d := range res.Decisions {
		e.notifier.LogDecision(d)
		e.metrics.RecordDecision(d.Candidate.Event.Sport, string(d.Reason), d.Accepted(), d.Candidate.RankScore)
	}
	for _, p := range res.Picks {
		e.notifier.AlertPick(p)
	}

	if err := ledger.Commit(ctx, e.store, state, start); err != nil {
		return res, fmt.Errorf("committing ledger: %w", err)
	}
	if e.export != nil {
		if err := e.export.Save(ctx, state.Picks()); err != nil {
			e.notifier.LogError("exporting ledger", err)
		}
	}

	res.After = report.Build(state, start)
	e.metrics.UpdateLedger(res.After.Bankroll, res.After.Exposure, res.After.Open, res.After.Pending)
	e.notifier.LogRun(len(e.cfg.Sports), len(res.Candidates), len(res.Picks), res.Grading.Graded)
	return res, nil
}

func (e *Engine) fetchScores(ctx context.Context) []feed.ScoreRecord {
	var all []feed.ScoreRecord
	for _, sport := range e.cfg.Sports {
		scores, err := e.source.Scores(ctx, sport.Key)
		if err != nil {
			e.notifier.LogError("fetching scores "+sport.Key, err)
			e.metrics.RecordFeedError(sport.Key, "scores")
			continue
		}
		all = append(all, scores...)
	}
	return all
}

func (e *Engine) buildCandidates(ctx context.Context) []analysis.Candidate {
	normCfg := odds.NormalizeConfig{
		Rule:        e.cfg.PriceRule,
		MaxAbsPrice: e.cfg.MaxAbsPrice,
		MinBooks:    e.cfg.MinBooks,
		VigMethod:   e.cfg.VigMethod,
	}

	var all []analysis.Candidate
	for _, sport := range e.cfg.Sports {
		quotes, err := e.source.Quotes(ctx, sport.Key)
		if err != nil {
			e.notifier.LogError("fetching quotes "+sport.Key, err)
			e.metrics.RecordFeedError(sport.Key, "quotes")
			continue
		}
		e.metrics.RecordQuotes(sport.Key, len(quotes))

		lines := odds.Normalize(quotes, normCfg)
		cands := e.scorer.Score(lines)
		e.metrics.RecordMalformed("score", len(lines)-len(cands))
		for _, c := range cands {
			e.metrics.RecordCandidate(sport.Key, string(c.Market))
		}
		slog.Debug("Scored sport", "sport", sport.Key, "quotes", len(quotes), "lines", len(lines), "candidates", len(cands))
		all = append(all, cands...)
	}
	return all
}
