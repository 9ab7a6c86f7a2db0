// Package signal is the boundary to the directional model. The engine only
// sees a side and a confidence; where they come from (a served classifier, a
// canned test double) is behind the Provider interface.
package signal

import (
	"context"

	"talon/internal/exchange"
	"talon/internal/market"
)

// Signal is one directional call from the model.
type Signal struct {
	Side       string  // "long" or "short"
	Confidence float64 // [0,1]
}

// OrderSide maps the signal direction to the entry order side.
func (s Signal) OrderSide() string {
	if s.Side == exchange.PositionShort {
		return exchange.SideSell
	}
	return exchange.SideBuy
}

// Provider evaluates a market snapshot. ok is false when the model abstains.
type Provider interface {
	Evaluate(ctx context.Context, snap *market.Snapshot) (sig Signal, ok bool, err error)
}
