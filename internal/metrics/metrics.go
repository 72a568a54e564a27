// Package metrics exposes Prometheus metrics for pick runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// RunMetrics collects per-run counters and ledger gauges on a private
// registry.
type RunMetrics struct {
	registry *prometheus.Registry

	QuotesTotal     *prometheus.CounterVec
	CandidatesTotal *prometheus.CounterVec
	DecisionsTotal  *prometheus.CounterVec
	GradedTotal     *prometheus.CounterVec
	MalformedTotal  *prometheus.CounterVec
	FeedErrors      *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec

	Bankroll      prometheus.Gauge
	Exposure      prometheus.Gauge
	OpenPositions *prometheus.GaugeVec
	RankScore     *prometheus.HistogramVec
}

// New creates and registers every metric.
func New() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),

		QuotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartpicks_quote_records_total",
				Help: "Raw bookmaker market records received",
			},
			[]string{"sport"},
		),
		CandidatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartpicks_candidates_total",
				Help: "Scored candidates produced from canonical lines",
			},
			[]string{"sport", "market"},
		),
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartpicks_selection_decisions_total",
				Help: "Selector decisions by reason",
			},
			[]string{"sport", "reason"},
		),
		GradedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartpicks_picks_graded_total",
				Help: "Picks closed by grading",
			},
			[]string{"sport", "result"},
		),
		MalformedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartpicks_malformed_inputs_total",
				Help: "Inputs skipped as malformed",
			},
			[]string{"stage"},
		),
		FeedErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartpicks_feed_errors_total",
				Help: "Failed quote or score fetches",
			},
			[]string{"sport", "feed"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smartpicks_run_duration_seconds",
				Help:    "Wall time of a full run",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"status"},
		),

		Bankroll: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smartpicks_bankroll_dollars",
			Help: "Bankroll from the ledger fold",
		}),
		Exposure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smartpicks_exposure_dollars",
			Help: "Stake riding on unresolved picks",
		}),
		OpenPositions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "smartpicks_open_positions",
				Help: "Unresolved picks by status",
			},
			[]string{"status"},
		),
		RankScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smartpicks_rank_score",
				Help:    "Rank score of accepted picks",
				Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
			},
			[]string{"sport"},
		),
	}

	m.registry.MustRegister(
		m.QuotesTotal,
		m.CandidatesTotal,
		m.DecisionsTotal,
		m.GradedTotal,
		m.MalformedTotal,
		m.FeedErrors,
		m.RunDuration,
		m.Bankroll,
		m.Exposure,
		m.OpenPositions,
		m.RankScore,
	)
	return m
}

// Registry returns the underlying registry.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *RunMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordQuotes counts raw records fetched for a sport.
func (m *RunMetrics) RecordQuotes(sport string, n int) {
	m.QuotesTotal.WithLabelValues(sport).Add(float64(n))
}

// RecordCandidate counts one scored candidate.
func (m *RunMetrics) RecordCandidate(sport, market string) {
	m.CandidatesTotal.WithLabelValues(sport, market).Inc()
}

// RecordDecision counts one selector decision; accepted picks also feed
// the rank score histogram.
func (m *RunMetrics) RecordDecision(sport, reason string, accepted bool, score float64) {
	m.DecisionsTotal.WithLabelValues(sport, reason).Inc()
	if accepted {
		m.RankScore.WithLabelValues(sport).Observe(score)
	}
}

// RecordGraded counts one closed pick.
func (m *RunMetrics) RecordGraded(sport, result string) {
	m.GradedTotal.WithLabelValues(sport, result).Inc()
}

// RecordMalformed counts skipped inputs at a stage (normalize, score, grade).
func (m *RunMetrics) RecordMalformed(stage string, n int) {
	if n > 0 {
		m.MalformedTotal.WithLabelValues(stage).Add(float64(n))
	}
}

// RecordFeedError counts a failed fetch; feed is "quotes" or "scores".
func (m *RunMetrics) RecordFeedError(sport, feed string) {
	m.FeedErrors.WithLabelValues(sport, feed).Inc()
}

// RecordRun observes the duration of a run.
func (m *RunMetrics) RecordRun(status string, durationSec float64) {
	m.RunDuration.WithLabelValues(status).Observe(durationSec)
}

// UpdateLedger sets the ledger gauges.
func (m *RunMetrics) UpdateLedger(bankroll, exposure decimal.Decimal, open, pending int) {
	m.Bankroll.Set(DecimalToFloat64(bankroll))
	m.Exposure.Set(DecimalToFloat64(exposure))
	m.OpenPositions.WithLabelValues("open").Set(float64(open))
	m.OpenPositions.WithLabelValues("pending").Set(float64(pending))
}

// DecimalToFloat64 converts for gauges; precision loss is irrelevant there.
func DecimalToFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
