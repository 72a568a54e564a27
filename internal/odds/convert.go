package odds

import "math"

// DefaultMaxAbsPrice is the sanity band for American prices; anything
// beyond it is treated as a feed error.
const DefaultMaxAbsPrice = 10000

// ValidPrice reports whether an American price is usable. Prices strictly
// between -100 and +100 do not exist in American notation, and 0 is never
// a price.
func ValidPrice(price, maxAbs int) bool {
	if price > -100 && price < 100 {
		return false
	}
	if maxAbs > 0 && (price > maxAbs || price < -maxAbs) {
		return false
	}
	return true
}

// AmericanToImplied converts American odds to implied probability
// Example: -150 → 0.6 (60%), +150 → 0.4 (40%)
// A price of 0 has no meaning and returns 0; callers must discard it.
func AmericanToImplied(odds int) float64 {
	if odds == 0 {
		return 0
	}

	if odds > 0 {
		// Underdog: probability = 100 / (odds + 100)
		return 100.0 / (float64(odds) + 100.0)
	}
	// Favorite: probability = |odds| / (|odds| + 100)
	return math.Abs(float64(odds)) / (math.Abs(float64(odds)) + 100.0)
}

// AmericanToDecimal converts American odds to decimal odds (stake included).
// Example: -150 → 1.6667, +120 → 2.2
func AmericanToDecimal(odds int) float64 {
	if odds == 0 {
		return 0
	}
	if odds > 0 {
		return 1 + float64(odds)/100.0
	}
	return 1 + 100.0/math.Abs(float64(odds))
}

// ImpliedToAmerican converts a probability back to the nearest American price.
func ImpliedToAmerican(p float64) int {
	if p <= 0 || p >= 1 {
		return 0
	}
	if p > 0.5 {
		return -int(math.Round(p / (1 - p) * 100))
	}
	return int(math.Round((1 - p) / p * 100))
}

// BetterPrice reports whether a pays the bettor more than b.
// In American notation this is plain integer order: +150 > +120 > -110 > -150.
func BetterPrice(a, b int) bool {
	return a > b
}
