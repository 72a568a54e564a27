package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"smart-picks/internal/alerts"
	"smart-picks/internal/grading"
	"smart-picks/internal/ledger"
	"smart-picks/internal/metrics"
	"smart-picks/internal/report"
)

// Handler serves the ledger over HTTP. Every request reloads the ledger,
// and grades are serialized so one process writes at a time.
type Handler struct {
	mu       sync.Mutex
	store    ledger.Store
	export   ledger.Store
	start    decimal.Decimal
	notifier *alerts.Notifier
	metrics  *metrics.RunMetrics
	now      func() time.Time
}

// NewHandler creates a handler over store.
func NewHandler(store ledger.Store, start decimal.Decimal, notifier *alerts.Notifier, m *metrics.RunMetrics) *Handler {
	if m == nil {
		m = metrics.New()
	}
	return &Handler{
		store:    store,
		start:    start.Round(2),
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

// WithExport mirrors the ledger to a second store after every grade.
func (h *Handler) WithExport(store ledger.Store) *Handler {
	h.export = store
	return h
}

// WithClock replaces the clock used for resolved_at.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// GradeRequest is the body of POST /grade.
type GradeRequest struct {
	BetID   string `json:"bet_id"`
	Outcome string `json:"outcome"`
}

// GradeResponse is returned by a successful grade.
type GradeResponse struct {
	Status   string          `json:"status"`
	Pick     PickView        `json:"pick"`
	Bankroll decimal.Decimal `json:"bankroll"`
}

// PickView is the JSON form of a ledger pick.
type PickView struct {
	ID            string          `json:"id"`
	EventID       string          `json:"event_id"`
	Sport         string          `json:"sport"`
	Matchup       string          `json:"matchup"`
	StartTime     time.Time       `json:"start_time"`
	Market        string          `json:"market"`
	Selection     string          `json:"selection"`
	Price         int             `json:"price"`
	Stake         decimal.Decimal `json:"stake"`
	ModelProb     float64         `json:"model_prob"`
	Edge          float64         `json:"edge"`
	RankScore     float64         `json:"rank_score"`
	PlacedAt      time.Time       `json:"placed_at"`
	Status        string          `json:"status"`
	Result        string          `json:"result,omitempty"`
	Profit        decimal.Decimal `json:"profit"`
	FinalScore    string          `json:"final_score,omitempty"`
	BankrollAfter decimal.Decimal `json:"bankroll_after"`
}

func viewOf(p ledger.Pick) PickView {
	return PickView{
		ID:            p.ID,
		EventID:       p.EventID,
		Sport:         p.Sport,
		Matchup:       p.Matchup(),
		StartTime:     p.StartTime,
		Market:        string(p.Market),
		Selection:     p.Selection,
		Price:         p.Price,
		Stake:         p.Stake,
		ModelProb:     p.ModelProb,
		Edge:          p.Edge,
		RankScore:     p.RankScore,
		PlacedAt:      p.PlacedAt,
		Status:        string(p.Status),
		Result:        string(p.Result),
		Profit:        p.Profit,
		FinalScore:    p.FinalScore,
		BankrollAfter: p.BankrollAfter,
	}
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "smart-picks-grader",
	})
}

// Snapshot returns the analytics snapshot of the current ledger.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	state, ok := h.load(w, r)
	if !ok {
		return
	}
	snap := report.Build(state, h.start)
	h.metrics.UpdateLedger(snap.Bankroll, snap.Exposure, snap.Open, snap.Pending)
	respondJSON(w, http.StatusOK, snap)
}

// ListPicks returns unresolved picks, or every pick with ?status=all.
func (h *Handler) ListPicks(w http.ResponseWriter, r *http.Request) {
	state, ok := h.load(w, r)
	if !ok {
		return
	}
	picks := state.Unresolved()
	if r.URL.Query().Get("status") == "all" {
		picks = state.Picks()
	}
	views := make([]PickView, 0, len(picks))
	for _, p := range picks {
		views = append(views, viewOf(p))
	}
	respondJSON(w, http.StatusOK, views)
}

// GetPick returns one pick by id.
func (h *Handler) GetPick(w http.ResponseWriter, r *http.Request) {
	state, ok := h.load(w, r)
	if !ok {
		return
	}
	p, found := state.Get(chi.URLParam(r, "id"))
	if !found {
		respondError(w, http.StatusNotFound, "pick not found")
		return
	}
	respondJSON(w, http.StatusOK, viewOf(p))
}

// Grade closes one pick with a manual outcome and saves the ledger.
func (h *Handler) Grade(w http.ResponseWriter, r *http.Request) {
	var req GradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.BetID == "" || req.Outcome == "" {
		respondError(w, http.StatusBadRequest, "bet_id and outcome required")
		return
	}
	result, ok := ledger.ParseResult(req.Outcome)
	if !ok || result == ledger.ResultNone {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown outcome: %s", req.Outcome))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.load(w, r)
	if !ok {
		return
	}
	p, err := grading.Override(state, req.BetID, result, h.now())
	switch {
	case errors.Is(err, ledger.ErrPickNotFound):
		respondError(w, http.StatusNotFound, "pick not found")
		return
	case errors.Is(err, ledger.ErrAlreadyClosed):
		respondError(w, http.StatusConflict, "pick already closed")
		return
	case err != nil:
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ledger.Commit(r.Context(), h.store, state, h.start); err != nil {
		slog.Error("Saving graded ledger failed", "pick_id", p.ID, "err", err)
		respondError(w, http.StatusInternalServerError, "could not save ledger")
		return
	}
	if h.export != nil {
		if err := h.export.Save(r.Context(), state.Picks()); err != nil {
			h.notifier.LogError("exporting ledger", err)
		}
	}

	p, _ = state.Get(p.ID)
	h.notifier.LogGraded(p)
	h.metrics.RecordGraded(p.Sport, string(p.Result))
	snap := report.Build(state, h.start)
	h.metrics.UpdateLedger(snap.Bankroll, snap.Exposure, snap.Open, snap.Pending)

	respondJSON(w, http.StatusOK, GradeResponse{
		Status:   "ok",
		Pick:     viewOf(p),
		Bankroll: snap.Bankroll,
	})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*ledger.State, bool) {
	state, err := ledger.Open(r.Context(), h.store, h.start)
	if err != nil {
		slog.Error("Loading ledger failed", "err", err)
		respondError(w, http.StatusInternalServerError, "could not load ledger")
		return nil, false
	}
	return state, true
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Encoding response failed", "err", err)
	}
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}
