package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oddsFixture = `[{
  "id": "ev1",
  "sport_key": "basketball_nba",
  "commence_time": "2026-10-15T23:00:00Z",
  "home_team": "Boston Celtics",
  "away_team": "New York Knicks",
  "bookmakers": [{
    "key": "draftkings",
    "markets": [
      {"key": "h2h", "outcomes": [{"name": "Boston Celtics", "price": -150}, {"name": "New York Knicks", "price": 130}]},
      {"key": "totals", "outcomes": [{"name": "Over", "price": -110, "point": 220.5}, {"name": "Under", "price": -110, "point": 220.5}]}
    ]
  }]
}]`

const scoresFixture = `[{
  "id": "ev1",
  "sport_key": "basketball_nba",
  "completed": true,
  "home_team": "Boston Celtics",
  "away_team": "New York Knicks",
  "scores": [{"name": "Boston Celtics", "score": "110"}, {"name": "New York Knicks", "score": "102"}]
}]`

func TestOddsAPIClientQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/basketball_nba/odds", r.URL.Path)
		assert.Equal(t, "american", r.URL.Query().Get("oddsFormat"))
		w.Write([]byte(oddsFixture))
	}))
	defer srv.Close()

	c := NewOddsAPIClient("key", 100, 1).WithBaseURL(srv.URL)
	records, err := c.Quotes(context.Background(), "basketball_nba")
	require.NoError(t, err)
	require.Len(t, records, 2)

	h2h := records[0]
	assert.Equal(t, "ev1", h2h.EventID)
	assert.Equal(t, "draftkings", h2h.Bookmaker)
	assert.Equal(t, "h2h", h2h.Market)
	require.Len(t, h2h.Outcomes, 2)
	require.NotNil(t, h2h.Outcomes[0].Price)
	assert.Equal(t, -150, *h2h.Outcomes[0].Price)

	totals := records[1]
	require.NotNil(t, totals.Outcomes[0].Point)
	assert.Equal(t, 220.5, *totals.Outcomes[0].Point)
}

func TestOddsAPIClientScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/basketball_nba/scores", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("daysFrom"))
		w.Write([]byte(scoresFixture))
	}))
	defer srv.Close()

	c := NewOddsAPIClient("key", 100, 3).WithBaseURL(srv.URL)
	records, err := c.Scores(context.Background(), "basketball_nba")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Completed)
	assert.Equal(t, "110", records[0].Scores[0].Score)
}

func TestRateLimitedClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewRateLimitedClient(1000, requestTimeout, 3)
	c.backoff = 0
	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRateLimitedClientGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewRateLimitedClient(1000, requestTimeout, 1)
	c.backoff = 0
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "basketball_nba.scores.json"),
		[]byte(`[{"event_id":"ev1","completed":true,"scores":[{"participant":"A","score":"1"}]}]`), 0o644))

	src := NewFileSource(dir)

	scores, err := src.Scores(context.Background(), "basketball_nba")
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "basketball_nba", scores[0].Sport)

	quotes, err := src.Quotes(context.Background(), "basketball_nba")
	require.NoError(t, err)
	assert.Empty(t, quotes)
}
