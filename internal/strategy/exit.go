package strategy

import "talon/internal/exchange"

// DefaultExitWindow is the number of consecutive adverse closes that forces an
// exit.
const DefaultExitWindow = 3

// ShouldExit reports whether every one of the last window closes sits on the
// adverse side of the fast EMA (below it for longs, above it for shorts).
// A single favorable bar inside the window resets the signal: this is a streak
// requirement, not a majority vote.
func ShouldExit(side string, closes, fastEMA []float64, window int) bool {
	if window <= 0 {
		window = DefaultExitWindow
	}
	if len(closes) < window || len(fastEMA) < window {
		return false
	}
	adverse := 0
	for k := 0; k < window; k++ {
		c := closes[len(closes)-window+k]
		e := fastEMA[len(fastEMA)-window+k]
		switch side {
		case exchange.PositionShort:
			if c > e {
				adverse++
			}
		default:
			if c < e {
				adverse++
			}
		}
	}
	return adverse == window
}
