package odds

import "math"

// VigMethod selects how the bookmaker margin is stripped from a market.
type VigMethod string

const (
	// VigMultiplicative scales every outcome by the overround.
	VigMultiplicative VigMethod = "multiplicative"
	// VigPower raises every outcome to a common exponent, which deflates
	// longshots more than favorites.
	VigPower VigMethod = "power"
)

// RemoveVig removes the vig/juice from an n-way market.
// Returns fair probabilities that sum to 1.0, or nil if any input is non-positive.
//
// Method: Multiplicative vig removal (proportional)
// trueProb_i = implied_i / sum(implied)
func RemoveVig(implied []float64) []float64 {
	total := 0.0
	for _, p := range implied {
		if p <= 0 {
			return nil
		}
		total += p
	}
	if total <= 0 {
		return nil
	}

	out := make([]float64, len(implied))
	for i, p := range implied {
		out[i] = p / total
	}
	return out
}

// RemoveVigPower removes vig using the Power method.
// Finds k such that sum(p_i^k) = 1, then trueProb_i = p_i^k.
func RemoveVigPower(implied []float64) []float64 {
	sum := 0.0
	for _, p := range implied {
		if p <= 0 || p >= 1 {
			return nil
		}
		sum += p
	}

	out := make([]float64, len(implied))
	if math.Abs(sum-1.0) < 1e-9 {
		copy(out, implied)
		return out
	}

	k := findPowerExponent(implied)
	for i, p := range implied {
		out[i] = math.Pow(p, k)
	}
	return out
}

// RemoveVigWith dispatches on method; unknown methods fall back to multiplicative.
func RemoveVigWith(method VigMethod, implied []float64) []float64 {
	if method == VigPower {
		return RemoveVigPower(implied)
	}
	return RemoveVig(implied)
}

// RemoveVigFromAmerican converts a two-way American market to vig-free probabilities.
func RemoveVigFromAmerican(oddsA, oddsB int) (float64, float64) {
	fair := RemoveVig([]float64{AmericanToImplied(oddsA), AmericanToImplied(oddsB)})
	if fair == nil {
		return 0, 0
	}
	return fair[0], fair[1]
}

// findPowerExponent finds k such that sum(p_i^k) = 1 using bisection search.
// For 0 < p < 1, higher k makes p^k smaller, so overround markets need k > 1.
func findPowerExponent(ps []float64) float64 {
	const (
		tolerance = 1e-9
		maxIters  = 100
	)

	low, high := 0.01, 10.0

	for i := 0; i < maxIters; i++ {
		mid := (low + high) / 2
		currentSum := 0.0
		for _, p := range ps {
			currentSum += math.Pow(p, mid)
		}

		if math.Abs(currentSum-1.0) < tolerance {
			return mid
		}

		if currentSum > 1 {
			low = mid
		} else {
			high = mid
		}
	}

	return (low + high) / 2
}
