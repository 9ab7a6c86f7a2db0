// Package executor turns a sized entry decision into a venue-side bracket
// order: protective SL/TP offsets from volatility, policy floors, validation,
// and submission with bounded retry.
package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"talon/internal/exchange"
	"talon/internal/logger"

	"github.com/google/uuid"
)

// ErrInvalidBracket means the computed take-profit does not clear the entry
// price on the correct side. Nothing is submitted in that case.
var ErrInvalidBracket = errors.New("invalid bracket: take-profit does not clear entry")

// Config carries the bracket policy constants.
type Config struct {
	StopATRMult     float64 // stop distance in ATR units, default 1.5
	RewardRiskRatio float64 // TP distance = ATR * ratio * StopATRMult, default 2
	MinStopPct      float64 // stop never tighter than this fraction of entry, default 0.005
	DefaultTPPct    float64 // TP never closer than this fraction of entry, default 0.10
	RetryAttempts   int     // transient-failure retries, default 3
	RetryDelay      time.Duration
}

func (c Config) withDefaults() Config {
	if c.StopATRMult <= 0 {
		c.StopATRMult = 1.5
	}
	if c.RewardRiskRatio <= 0 {
		c.RewardRiskRatio = 2
	}
	if c.MinStopPct <= 0 {
		c.MinStopPct = 0.005
	}
	if c.DefaultTPPct <= 0 {
		c.DefaultTPPct = 0.10
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	return c
}

// Bracket is the resolved protective pair for an entry.
type Bracket struct {
	StopLoss   float64
	TakeProfit float64
}

type Executor struct {
	client exchange.Client
	cfg    Config
}

func New(client exchange.Client, cfg Config) *Executor {
	return &Executor{client: client, cfg: cfg.withDefaults()}
}

// ComputeBracket derives SL/TP from entry price and ATR.
//
// The ATR stop is floored against a percentage-of-entry minimum distance by
// taking whichever candidate loses less; the ATR target is widened against a
// percentage-of-entry default by taking whichever candidate pays more.
func (e *Executor) ComputeBracket(side string, entry, atr float64) (Bracket, error) {
	c := e.cfg
	var sl, tp float64
	if side == exchange.SideSell {
		sl = math.Min(entry+atr*c.StopATRMult, entry*(1+c.MinStopPct))
		tp = math.Min(entry-atr*c.RewardRiskRatio*c.StopATRMult, entry*(1-c.DefaultTPPct))
		if tp >= entry {
			return Bracket{}, fmt.Errorf("%w: side=sell tp=%.8f entry=%.8f", ErrInvalidBracket, tp, entry)
		}
	} else {
		sl = math.Max(entry-atr*c.StopATRMult, entry*(1-c.MinStopPct))
		tp = math.Max(entry+atr*c.RewardRiskRatio*c.StopATRMult, entry*(1+c.DefaultTPPct))
		if tp <= entry {
			return Bracket{}, fmt.Errorf("%w: side=buy tp=%.8f entry=%.8f", ErrInvalidBracket, tp, entry)
		}
	}
	return Bracket{StopLoss: sl, TakeProfit: tp}, nil
}

// PlaceBracketOrder computes the protective levels, validates them and submits
// a market entry with the bracket attached. Transport failures are retried up
// to RetryAttempts with a fixed delay; a venue rejection aborts immediately.
// A nil order with a non-nil error always means no position was opened.
func (e *Executor) PlaceBracketOrder(ctx context.Context, symbol, side string, amount, entryPrice, atr, leverage float64) (*exchange.Order, error) {
	if entryPrice <= 0 || atr <= 0 {
		return nil, fmt.Errorf("bracket order requires entry price and atr (got entry=%.8f atr=%.8f)", entryPrice, atr)
	}
	bracket, err := e.ComputeBracket(side, entryPrice, atr)
	if err != nil {
		return nil, err
	}

	req := exchange.OrderRequest{
		Symbol:     symbol,
		Type:       exchange.OrderTypeMarket,
		Side:       side,
		Amount:     amount,
		StopLoss:   bracket.StopLoss,
		TakeProfit: bracket.TakeProfit,
		Leverage:   leverage,
		ClientID:   uuid.NewString(),
	}

	var lastErr error
	for attempt := 1; attempt <= e.cfg.RetryAttempts; attempt++ {
		order, err := e.client.CreateOrder(ctx, req)
		if err == nil {
			logger.Infof("executor: bracket order placed id=%s symbol=%s side=%s amount=%.8f sl=%.8f tp=%.8f",
				order.ID, symbol, side, amount, bracket.StopLoss, bracket.TakeProfit)
			return order, nil
		}
		if !exchange.IsNetwork(err) {
			logger.Errorf("executor: venue rejected bracket order symbol=%s: %v", symbol, err)
			return nil, err
		}
		lastErr = err
		logger.Warnf("executor: transient failure placing bracket order symbol=%s attempt=%d/%d: %v",
			symbol, attempt, e.cfg.RetryAttempts, err)
		if attempt == e.cfg.RetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.cfg.RetryDelay):
		}
	}
	return nil, fmt.Errorf("bracket order failed after %d attempts: %w", e.cfg.RetryAttempts, lastErr)
}
