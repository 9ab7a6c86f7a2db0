// Package risk holds the pure position-sizing math. Every function is a plain
// input→output computation so callers can property-test it without a venue.
package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

// PositionSize converts account balance and signal confidence into a position
// size in base-currency units. Risk is scaled by confidence and capped by
// volatility (3x ATR); the result is rounded to 8 decimal places.
// Returns 0 when price or ATR is non-positive.
func PositionSize(balance, confidence, price, atr, riskPct float64) float64 {
	if price <= 0 || atr <= 0 {
		return 0
	}
	riskAmount := balance * riskPct * confidence
	capped := math.Min(riskAmount/(atr*3), riskAmount)
	return roundTo(capped/price, 8)
}

// Leverage interpolates linearly between minLev and maxLev by confidence,
// rounded to 2 decimals. Confidence outside [0,1] extrapolates; callers are
// expected to pass a value from the unit interval.
func Leverage(confidence, minLev, maxLev float64) float64 {
	return roundTo(minLev+(maxLev-minLev)*confidence, 2)
}

func roundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	out, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return out
}
