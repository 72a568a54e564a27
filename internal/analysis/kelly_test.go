package analysis

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateKelly(t *testing.T) {
	tests := []struct {
		name        string
		trueProb    float64
		b           float64
		expectedMin float64
		expectedMax float64
	}{
		{"Positive edge at even money", 0.55, 1.0, 0.099, 0.101},
		{"No edge", 0.50, 1.0, 0.0, 0.0},
		{"Negative edge", 0.45, 1.0, 0.0, 0.0},
		{"Big edge on underdog", 0.40, 2.0, 0.099, 0.101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateKelly(tt.trueProb, tt.b)

			if result < tt.expectedMin || result > tt.expectedMax {
				t.Errorf("CalculateKelly(%v, %v) = %v, expected between %v and %v",
					tt.trueProb, tt.b, result, tt.expectedMin, tt.expectedMax)
			}
		})
	}
}

func TestCalculateKellyEdgeCases(t *testing.T) {
	cases := []struct {
		trueProb float64
		b        float64
	}{
		{0.5, 0},  // No payout
		{0.5, -1}, // Negative payout
		{0, 1},    // Zero probability
		{1, 1},    // Probability of 1
		{-0.5, 1}, // Negative probability
	}

	for _, tc := range cases {
		if result := CalculateKelly(tc.trueProb, tc.b); result != 0 {
			t.Errorf("CalculateKelly(%v, %v) = %v, expected 0 for invalid input", tc.trueProb, tc.b, result)
		}
	}
}

func TestCalculateKellyDecimal(t *testing.T) {
	// 3.0 odds, 40% true prob: (0.4*2 - 0.6)/2 = 0.1
	if got := CalculateKellyDecimal(0.40, 3.0); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("CalculateKellyDecimal = %v, want 0.1", got)
	}
}

func TestCalculateKellyAmerican(t *testing.T) {
	// -150 pays b = 2/3. p = 0.65: (0.65*2/3 - 0.35)/(2/3) = 0.125
	if got := CalculateKellyAmerican(0.65, -150); math.Abs(got-0.125) > 1e-9 {
		t.Errorf("CalculateKellyAmerican = %v, want 0.125", got)
	}
	if got := CalculateKellyAmerican(0.65, 0); got != 0 {
		t.Errorf("zero price should give 0, got %v", got)
	}
}

func TestCappedKellyFraction(t *testing.T) {
	tests := []struct {
		name     string
		p        float64
		price    int
		unit     float64
		cap      float64
		expected float64
	}{
		{"quarter Kelly under cap", 0.65, -150, 0.25, 0.05, 0.03125},
		{"capped", 0.65, -150, 1.0, 0.05, 0.05},
		{"no edge", 0.55, -150, 0.25, 0.05, 0},
		{"no cap", 0.65, -150, 1.0, 0, 0.125},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CappedKellyFraction(tt.p, tt.price, tt.unit, tt.cap)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("CappedKellyFraction = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestKellyStake(t *testing.T) {
	stake := KellyStake(decimal.NewFromInt(200), 0.65, -150, 0.25, 0.05)
	if !stake.Equal(decimal.RequireFromString("6.25")) {
		t.Errorf("KellyStake = %s, want 6.25", stake)
	}

	if s := KellyStake(decimal.Zero, 0.65, -150, 0.25, 0.05); !s.IsZero() {
		t.Errorf("zero bankroll should stake 0, got %s", s)
	}
}

func TestDynamicStake(t *testing.T) {
	bankroll := decimal.NewFromInt(200)

	// base unit 2.00; multiplier 1 + 5/50 + 2/20 = 1.2
	if got := DynamicStake(bankroll, 0.01, 5, 2); !got.Equal(decimal.RequireFromString("2.4")) {
		t.Errorf("DynamicStake = %s, want 2.40", got)
	}
	// bounded at 3 units
	if got := DynamicStake(bankroll, 0.01, 500, 100); !got.Equal(decimal.NewFromInt(6)) {
		t.Errorf("DynamicStake = %s, want 6.00", got)
	}
}
