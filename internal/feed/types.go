package feed

import (
	"context"
	"time"
)

// Outcome is one priced selection inside a bookmaker market.
type Outcome struct {
	Selection string   `json:"selection"`
	Price     *int     `json:"price"`           // American odds; nil when the book has no price
	Point     *float64 `json:"point,omitempty"` // spread or total line
}

// QuoteRecord is one bookmaker's market for one event.
type QuoteRecord struct {
	EventID   string    `json:"event_id"`
	Sport     string    `json:"sport"`
	Home      string    `json:"home"`
	Away      string    `json:"away"`
	StartTime time.Time `json:"start_time"`
	Bookmaker string    `json:"bookmaker"`
	Market    string    `json:"market"`
	Outcomes  []Outcome `json:"outcomes"`
}

// ParticipantScore is a raw score line; Score stays a string because feeds
// send "" or "-" for games that have not started.
type ParticipantScore struct {
	Participant string `json:"participant"`
	Score       string `json:"score"`
}

// ScoreRecord is the latest known state of one event.
type ScoreRecord struct {
	EventID   string             `json:"event_id"`
	Sport     string             `json:"sport"`
	Home      string             `json:"home"`
	Away      string             `json:"away"`
	StartTime time.Time          `json:"start_time,omitempty"`
	Completed bool               `json:"completed"`
	Scores    []ParticipantScore `json:"scores"`
}

// QuoteSource supplies the current quotes for a sport.
type QuoteSource interface {
	Quotes(ctx context.Context, sport string) ([]QuoteRecord, error)
}

// ScoreSource supplies recent score records for a sport.
type ScoreSource interface {
	Scores(ctx context.Context, sport string) ([]ScoreRecord, error)
}

// Source is both halves of a market-data provider.
type Source interface {
	QuoteSource
	ScoreSource
}
