package odds

import (
	"math"
	"testing"
)

func TestRemoveVig(t *testing.T) {
	tests := []struct {
		name     string
		implied  []float64
		expected []float64
		delta    float64
	}{
		{
			name:     "Standard -110/-110",
			implied:  []float64{0.5238, 0.5238},
			expected: []float64{0.5, 0.5},
			delta:    0.001,
		},
		{
			name:     "Favorite -150/+130",
			implied:  []float64{0.6, 0.4348},
			expected: []float64{0.58, 0.42},
			delta:    0.01,
		},
		{
			name:     "Three-way soccer market",
			implied:  []float64{0.5, 0.3, 0.3},
			expected: []float64{0.4545, 0.2727, 0.2727},
			delta:    0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RemoveVig(tt.implied)
			if len(result) != len(tt.expected) {
				t.Fatalf("RemoveVig returned %d probs, want %d", len(result), len(tt.expected))
			}

			sum := 0.0
			for i := range result {
				if math.Abs(result[i]-tt.expected[i]) > tt.delta {
					t.Errorf("RemoveVig prob[%d] = %v, want %v", i, result[i], tt.expected[i])
				}
				sum += result[i]
			}
			if math.Abs(sum-1.0) > 0.001 {
				t.Errorf("RemoveVig probs should sum to 1, got %v", sum)
			}
		})
	}
}

func TestRemoveVigFromAmerican(t *testing.T) {
	tests := []struct {
		name      string
		oddsA     int
		oddsB     int
		expectedA float64
		expectedB float64
		delta     float64
	}{
		{"Standard -110/-110", -110, -110, 0.5, 0.5, 0.001},
		{"Even money", 100, -100, 0.5, 0.5, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resultA, resultB := RemoveVigFromAmerican(tt.oddsA, tt.oddsB)

			if math.Abs(resultA-tt.expectedA) > tt.delta {
				t.Errorf("RemoveVigFromAmerican probA = %v, want %v", resultA, tt.expectedA)
			}
			if math.Abs(resultB-tt.expectedB) > tt.delta {
				t.Errorf("RemoveVigFromAmerican probB = %v, want %v", resultB, tt.expectedB)
			}
		})
	}
}

func TestRemoveVigEdgeCases(t *testing.T) {
	if RemoveVig([]float64{0, 0.5}) != nil {
		t.Error("RemoveVig should return nil for zero input")
	}
	if RemoveVig([]float64{-0.5, 0.5}) != nil {
		t.Error("RemoveVig should return nil for negative input")
	}
	if RemoveVigPower([]float64{1.0, 0.5}) != nil {
		t.Error("RemoveVigPower should return nil for probability of 1")
	}
}

func TestRemoveVigPowerDeflatesLongshot(t *testing.T) {
	implied := []float64{AmericanToImplied(-300), AmericanToImplied(250)}

	mult := RemoveVig(implied)
	power := RemoveVigPower(implied)

	if math.Abs(power[0]+power[1]-1.0) > 1e-6 {
		t.Errorf("power probs should sum to 1, got %v", power[0]+power[1])
	}
	if power[1] >= mult[1] {
		t.Errorf("power method should shade the longshot below multiplicative: %v >= %v", power[1], mult[1])
	}
}

func TestRemoveVigWith(t *testing.T) {
	implied := []float64{0.55, 0.5}
	if got := RemoveVigWith("unknown", implied); math.Abs(got[0]-RemoveVig(implied)[0]) > 1e-12 {
		t.Error("unknown method should fall back to multiplicative")
	}
	if got := RemoveVigWith(VigPower, implied); math.Abs(got[0]-RemoveVigPower(implied)[0]) > 1e-12 {
		t.Error("power method not dispatched")
	}
}
