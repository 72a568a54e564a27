package analysis

import (
	"errors"
	"math"
	"testing"
	"time"

	"smart-picks/internal/ledger"
	"smart-picks/internal/odds"
)

func TestImpliedProbability(t *testing.T) {
	tests := []struct {
		price    int
		expected float64
		wantErr  bool
	}{
		{100, 0.5, false},
		{-100, 0.5, false},
		{-150, 0.6, false},
		{0, 0, true},
		{50, 0, true},
	}

	for _, tt := range tests {
		got, err := ImpliedProbability(tt.price)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPrice) {
				t.Errorf("ImpliedProbability(%d) err = %v, want ErrInvalidPrice", tt.price, err)
			}
			continue
		}
		if err != nil || math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("ImpliedProbability(%d) = %v, %v; want %v", tt.price, got, err, tt.expected)
		}
	}
}

func TestShrinkToward(t *testing.T) {
	tests := []struct {
		name      string
		observed  float64
		prior     float64
		bookCount int
		expected  float64
	}{
		{"full weight", 0.6, 0.5, 6, 0.6},
		{"above full weight", 0.6, 0.5, 10, 0.6},
		{"one book", 0.6, 0.5, 1, 0.5 + 0.1*math.Pow(1.0/6, 1.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShrinkToward(tt.observed, tt.prior, tt.bookCount, 6)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("ShrinkToward = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestModelProbabilityClamped(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name string
		fair float64
		adj  Adjustments
		min  float64
		max  float64
	}{
		{"no adjustments", 0.55, Adjustments{}, 0.55, 0.55},
		{"floor", 0.02, Adjustments{InjuryPenalty: 0.5, FatiguePenalty: 0.5}, 0.01, 0.01},
		{"ceiling", 0.985, Adjustments{RatingDiff: 100}, 0.99, 0.99},
		{"penalty clamped to 0.1", 0.5, Adjustments{InjuryPenalty: 0.4}, 0.4, 0.4},
		{"negative penalty ignored", 0.5, Adjustments{InjuryPenalty: -0.3}, 0.5, 0.5},
		{"positive rating helps", 0.5, Adjustments{RatingDiff: 5}, 0.52, 0.56},
		{"negative rating hurts", 0.5, Adjustments{RatingDiff: -5}, 0.44, 0.48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ModelProbability(tt.fair, tt.adj, cfg)
			if got < tt.min-1e-9 || got > tt.max+1e-9 {
				t.Errorf("ModelProbability = %v, want in [%v, %v]", got, tt.min, tt.max)
			}
		})
	}
}

func TestExpectedValue(t *testing.T) {
	// 55% at even money: 0.55*1 - 0.45 = 0.10
	if got := ExpectedValue(0.55, 100); math.Abs(got-0.10) > 1e-9 {
		t.Errorf("ExpectedValue = %v, want 0.10", got)
	}
	if got := ExpectedValue(0.55, 0); got != 0 {
		t.Errorf("ExpectedValue at price 0 = %v, want 0", got)
	}
}

func TestDescriptorFor(t *testing.T) {
	ev := odds.Event{ID: "ev1", Home: "Home", Away: "Lions", StartTime: time.Now()}

	d, err := DescriptorFor(odds.CanonicalLine{Event: ev, Market: odds.MarketSpread, Selection: "lions", Label: "Lions", Point: 3.5, HasPoint: true})
	if err != nil || d != ledger.Spread("Lions", 3.5) {
		t.Errorf("spread descriptor = %+v, %v", d, err)
	}

	d, err = DescriptorFor(odds.CanonicalLine{Event: ev, Market: odds.MarketTotal, Selection: "under", Label: "Under", Point: 45.5, HasPoint: true})
	if err != nil || d.String() != "Under 45.5" {
		t.Errorf("total descriptor = %+v, %v", d, err)
	}

	_, err = DescriptorFor(odds.CanonicalLine{Event: ev, Market: odds.MarketMoneyline})
	if !errors.Is(err, ledger.ErrMalformedDescriptor) {
		t.Errorf("empty moneyline label should be malformed, got %v", err)
	}
}
