// Package strategy contains the stateless per-cycle decision functions: the
// trailing SL/TP adjuster and the adverse-close exit check. Both take all
// history they need as explicit inputs.
package strategy

import (
	"math"

	"talon/internal/exchange"
	"talon/internal/logger"
)

// TrailingConfig tunes the adjuster. Zero values fall back to the defaults the
// engine has always run with.
type TrailingConfig struct {
	TrailATRFactor float64 // SL distance in ATR units, default 1.0
	TPATRFactor    float64 // TP distance in ATR units, default 2.0
	StepThreshold  float64 // minimum SL improvement in ATR units, default 0.3
	ClampPct       float64 // mark-price safety offset, default 0.001
}

func (c TrailingConfig) withDefaults() TrailingConfig {
	if c.TrailATRFactor <= 0 {
		c.TrailATRFactor = 1.0
	}
	if c.TPATRFactor <= 0 {
		c.TPATRFactor = 2.0
	}
	if c.StepThreshold <= 0 {
		c.StepThreshold = 0.3
	}
	if c.ClampPct <= 0 {
		c.ClampPct = 0.001
	}
	return c
}

// TrailingInput is one full market observation for one position.
type TrailingInput struct {
	Side      string // "long" or "short"
	Close     float64
	PrevSL    float64
	PrevTP    float64
	MarkPrice float64
	ATR       float64
	FastEMA   float64
}

// UpdateTrailingLevels recomputes the protective levels for an open position.
//
// The TP ratchets with price and never retreats; the SL candidate is the
// tighter of (close ∓ trail·ATR) and the fast EMA, accepted only when the
// improvement clears a dynamic step that shrinks as unrealized profit grows.
// Finally both levels are clamped away from the mark price so an amendment can
// never trigger the moment it lands.
func UpdateTrailingLevels(in TrailingInput, cfg TrailingConfig) (newSL, newTP float64) {
	cfg = cfg.withDefaults()

	// Profit estimate relative to the previous TP anchor. The denominator can
	// be non-positive for small TPs against a large ATR; treat that as flat.
	profit := 0.0
	if baseline := in.PrevTP - 2*in.ATR; in.PrevTP > 0 && baseline > 0 {
		profit = (in.Close - baseline) / baseline
	}
	dynamicStep := cfg.StepThreshold * math.Max(1, math.Abs(profit)*10)

	if in.Side == exchange.PositionShort {
		if in.Close < in.PrevTP && in.PrevTP > 0 {
			newTP = in.Close - in.ATR*cfg.TPATRFactor
		} else {
			newTP = math.Min(in.PrevTP, in.Close-in.ATR*cfg.TPATRFactor)
		}

		candSL := math.Min(in.Close+in.ATR*cfg.TrailATRFactor, in.FastEMA)
		newSL = in.PrevSL
		if candSL < in.PrevSL {
			newSL = candSL
		}
		if in.PrevSL-newSL < in.ATR*dynamicStep {
			newSL = in.PrevSL
		}

		if newSL <= in.MarkPrice {
			newSL = in.MarkPrice * (1 + cfg.ClampPct)
			logger.Debugf("trailing: clamped short SL above mark=%.8f", in.MarkPrice)
		}
		if newTP >= in.MarkPrice {
			newTP = in.MarkPrice * (1 - cfg.ClampPct)
			logger.Debugf("trailing: clamped short TP below mark=%.8f", in.MarkPrice)
		}
		return newSL, newTP
	}

	// long
	if in.Close > in.PrevTP && in.PrevTP > 0 {
		newTP = in.Close + in.ATR*cfg.TPATRFactor
	} else {
		newTP = math.Max(in.PrevTP, in.Close+in.ATR*cfg.TPATRFactor)
	}

	candSL := math.Max(in.Close-in.ATR*cfg.TrailATRFactor, in.FastEMA)
	newSL = in.PrevSL
	if candSL > in.PrevSL {
		newSL = candSL
	}
	if newSL-in.PrevSL < in.ATR*dynamicStep {
		newSL = in.PrevSL
	}

	if newSL >= in.MarkPrice {
		newSL = in.MarkPrice * (1 - cfg.ClampPct)
		logger.Debugf("trailing: clamped long SL below mark=%.8f", in.MarkPrice)
	}
	if newTP <= in.MarkPrice {
		newTP = in.MarkPrice * (1 + cfg.ClampPct)
		logger.Debugf("trailing: clamped long TP above mark=%.8f", in.MarkPrice)
	}
	return newSL, newTP
}
