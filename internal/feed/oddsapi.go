package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"time"
)

const (
	oddsAPIBaseURL = "https://api.the-odds-api.com/v4/sports"
	requestTimeout = 10 * time.Second
	maxRetries     = 3
)

// OddsAPIClient fetches quotes and scores from the-odds-api v4.
type OddsAPIClient struct {
	apiKey   string
	baseURL  string
	regions  string
	markets  string
	daysFrom int
	client   *RateLimitedClient
}

// NewOddsAPIClient creates a client for the given key. daysFrom bounds the
// score lookback window.
func NewOddsAPIClient(apiKey string, requestsPerSec float64, daysFrom int) *OddsAPIClient {
	return &OddsAPIClient{
		apiKey:   apiKey,
		baseURL:  oddsAPIBaseURL,
		regions:  "us",
		markets:  "h2h,spreads,totals",
		daysFrom: daysFrom,
		client:   NewRateLimitedClient(requestsPerSec, requestTimeout, maxRetries),
	}
}

// WithBaseURL points the client at another host (used by tests).
func (c *OddsAPIClient) WithBaseURL(base string) *OddsAPIClient {
	c.baseURL = base
	return c
}

type apiEvent struct {
	ID           string         `json:"id"`
	SportKey     string         `json:"sport_key"`
	CommenceTime time.Time      `json:"commence_time"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	Bookmakers   []apiBookmaker `json:"bookmakers"`
}

type apiBookmaker struct {
	Key     string      `json:"key"`
	Markets []apiMarket `json:"markets"`
}

type apiMarket struct {
	Key      string       `json:"key"`
	Outcomes []apiOutcome `json:"outcomes"`
}

type apiOutcome struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
	Point *float64 `json:"point"`
}

type apiScoreEvent struct {
	ID           string    `json:"id"`
	SportKey     string    `json:"sport_key"`
	CommenceTime time.Time `json:"commence_time"`
	Completed    bool      `json:"completed"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	Scores       []struct {
		Name  string `json:"name"`
		Score string `json:"score"`
	} `json:"scores"`
}

// Quotes fetches upcoming odds for a sport key and flattens them into one
// QuoteRecord per (event, bookmaker, market).
func (c *OddsAPIClient) Quotes(ctx context.Context, sport string) ([]QuoteRecord, error) {
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("regions", c.regions)
	q.Set("markets", c.markets)
	q.Set("oddsFormat", "american")

	body, err := c.client.Get(ctx, fmt.Sprintf("%s/%s/odds?%s", c.baseURL, sport, q.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetching odds for %s: %w", sport, err)
	}

	var events []apiEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("parsing odds for %s: %w", sport, err)
	}

	var records []QuoteRecord
	for _, ev := range events {
		for _, bm := range ev.Bookmakers {
			for _, m := range bm.Markets {
				rec := QuoteRecord{
					EventID:   ev.ID,
					Sport:     sport,
					Home:      ev.HomeTeam,
					Away:      ev.AwayTeam,
					StartTime: ev.CommenceTime,
					Bookmaker: bm.Key,
					Market:    m.Key,
				}
				for _, o := range m.Outcomes {
					out := Outcome{Selection: o.Name, Point: o.Point}
					if o.Price != nil {
						p := int(math.Round(*o.Price))
						out.Price = &p
					}
					rec.Outcomes = append(rec.Outcomes, out)
				}
				records = append(records, rec)
			}
		}
	}
	return records, nil
}

// Scores fetches recent and completed scores for a sport key.
func (c *OddsAPIClient) Scores(ctx context.Context, sport string) ([]ScoreRecord, error) {
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("daysFrom", fmt.Sprintf("%d", c.daysFrom))

	body, err := c.client.Get(ctx, fmt.Sprintf("%s/%s/scores?%s", c.baseURL, sport, q.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetching scores for %s: %w", sport, err)
	}

	var events []apiScoreEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("parsing scores for %s: %w", sport, err)
	}

	records := make([]ScoreRecord, 0, len(events))
	for _, ev := range events {
		rec := ScoreRecord{
			EventID:   ev.ID,
			Sport:     sport,
			Home:      ev.HomeTeam,
			Away:      ev.AwayTeam,
			StartTime: ev.CommenceTime,
			Completed: ev.Completed,
		}
		for _, s := range ev.Scores {
			rec.Scores = append(rec.Scores, ParticipantScore{Participant: s.Name, Score: s.Score})
		}
		records = append(records, rec)
	}
	return records, nil
}
