package analysis

import (
	"math"

	"github.com/shopspring/decimal"

	"smart-picks/internal/odds"
)

// CalculateKelly computes the full Kelly fraction for net odds b.
// Kelly formula: f* = (p * b - q) / b
// where: p = probability of winning, q = 1-p, b = decimal odds minus 1
// Floored at 0 and capped at 1.
func CalculateKelly(trueProb, b float64) float64 {
	if b <= 0 || trueProb <= 0 || trueProb >= 1 {
		return 0
	}

	p := trueProb
	q := 1.0 - p

	kelly := (p*b - q) / b

	kelly = math.Max(0, kelly)
	kelly = math.Min(kelly, 1.0) // Never bet more than 100% of bankroll

	return kelly
}

// CalculateKellyDecimal computes Kelly for decimal odds d (stake included).
func CalculateKellyDecimal(trueProb, decimalOdds float64) float64 {
	return CalculateKelly(trueProb, decimalOdds-1)
}

// CalculateKellyAmerican computes Kelly for an American price.
func CalculateKellyAmerican(trueProb float64, price int) float64 {
	if price == 0 {
		return 0
	}
	return CalculateKelly(trueProb, odds.AmericanToDecimal(price)-1)
}

// CappedKellyFraction scales Kelly by unitFraction and never exceeds hardCap.
// stake fraction = min(f × unitFraction, hardCap)
func CappedKellyFraction(trueProb float64, price int, unitFraction, hardCap float64) float64 {
	f := CalculateKellyAmerican(trueProb, price) * unitFraction
	if hardCap > 0 {
		f = math.Min(f, hardCap)
	}
	return math.Max(0, f)
}

// KellyStake is the dollar stake, rounded down to the cent, for a bankroll.
func KellyStake(bankroll decimal.Decimal, trueProb float64, price int, unitFraction, hardCap float64) decimal.Decimal {
	f := CappedKellyFraction(trueProb, price, unitFraction, hardCap)
	if f <= 0 || !bankroll.IsPositive() {
		return decimal.Zero
	}
	return bankroll.Mul(fractionDecimal(f)).RoundDown(2)
}

// DynamicStake is flat unit staking scaled by conviction: a base unit of
// bankroll × unitFraction multiplied by 1 + ev/50 + score/20, bounded to
// [0.5, 3] units.
func DynamicStake(bankroll decimal.Decimal, unitFraction, evPoints, score float64) decimal.Decimal {
	if !bankroll.IsPositive() || unitFraction <= 0 {
		return decimal.Zero
	}
	multiplier := 1.0 + math.Max(evPoints, 0)/50.0 + math.Max(score, 0)/20.0
	multiplier = math.Max(0.5, math.Min(multiplier, 3.0))
	return bankroll.Mul(fractionDecimal(unitFraction * multiplier)).RoundDown(2)
}

// fractionDecimal drops float noise below a millionth so that 0.03125 does
// not round down a cent as 0.031249999.
func fractionDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(6)
}
