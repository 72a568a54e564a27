package odds

import (
	"math"
	"testing"
)

func TestAmericanToImplied(t *testing.T) {
	tests := []struct {
		name     string
		odds     int
		expected float64
		delta    float64
	}{
		{"Even money +100", 100, 0.5, 1e-12},
		{"Even money -100", -100, 0.5, 1e-12},
		{"Favorite -150", -150, 0.6, 0.001},
		{"Underdog +150", 150, 0.4, 0.001},
		{"Heavy favorite -300", -300, 0.75, 0.001},
		{"Big underdog +300", 300, 0.25, 0.001},
		{"Standard -110", -110, 0.5238, 0.001},
		{"Zero odds", 0, 0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AmericanToImplied(tt.odds)
			if math.Abs(result-tt.expected) > tt.delta {
				t.Errorf("AmericanToImplied(%d) = %v, want %v", tt.odds, result, tt.expected)
			}
		})
	}
}

func TestAmericanToImpliedInUnitInterval(t *testing.T) {
	for _, price := range []int{-100000, -10000, -1000, -101, -100, 100, 101, 1000, 10000, 100000} {
		p := AmericanToImplied(price)
		if p <= 0 || p >= 1 {
			t.Errorf("AmericanToImplied(%d) = %v, want in (0,1)", price, p)
		}
	}
}

func TestAmericanToImpliedMonotonicForFavorites(t *testing.T) {
	prev := AmericanToImplied(-100)
	for price := -110; price >= -1000; price -= 10 {
		p := AmericanToImplied(price)
		if p <= prev {
			t.Fatalf("implied(%d) = %v not above implied(%d) = %v", price, p, price+10, prev)
		}
		prev = p
	}
}

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		odds     int
		expected float64
	}{
		{-150, 1.0 + 100.0/150.0},
		{120, 2.2},
		{100, 2.0},
		{-100, 2.0},
		{0, 0},
	}

	for _, tt := range tests {
		if got := AmericanToDecimal(tt.odds); math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("AmericanToDecimal(%d) = %v, want %v", tt.odds, got, tt.expected)
		}
	}
}

func TestValidPrice(t *testing.T) {
	tests := []struct {
		price  int
		maxAbs int
		valid  bool
	}{
		{0, 10000, false},
		{50, 10000, false},
		{-99, 10000, false},
		{100, 10000, true},
		{-110, 10000, true},
		{10000, 10000, true},
		{10001, 10000, false},
		{-25000, 10000, false},
		{-25000, 0, true},
	}

	for _, tt := range tests {
		if got := ValidPrice(tt.price, tt.maxAbs); got != tt.valid {
			t.Errorf("ValidPrice(%d, %d) = %v, want %v", tt.price, tt.maxAbs, got, tt.valid)
		}
	}
}

func TestImpliedToAmericanRoundTrip(t *testing.T) {
	for _, price := range []int{-300, -150, -110, 120, 250} {
		if got := ImpliedToAmerican(AmericanToImplied(price)); got != price {
			t.Errorf("round trip of %d gave %d", price, got)
		}
	}
}
