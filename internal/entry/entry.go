// Package entry opens new positions: ask the model, size the trade, place the
// bracket, book the ledger record.
package entry

import (
	"context"
	"errors"
	"fmt"

	"talon/internal/exchange"
	"talon/internal/ledger"
	"talon/internal/logger"
	"talon/internal/market"
	"talon/internal/notifier"
	"talon/internal/risk"
	"talon/internal/signal"
)

// BracketPlacer is what the controller needs from the order executor.
type BracketPlacer interface {
	PlaceBracketOrder(ctx context.Context, symbol, side string, amount, entryPrice, atr, leverage float64) (*exchange.Order, error)
}

type Config struct {
	RiskPct     float64 // fraction of balance risked per trade, default 0.01
	MinLeverage float64 // default 2
	MaxLeverage float64 // default 25
}

func (c Config) withDefaults() Config {
	if c.RiskPct <= 0 {
		c.RiskPct = 0.01
	}
	if c.MinLeverage <= 0 {
		c.MinLeverage = 2
	}
	if c.MaxLeverage <= 0 {
		c.MaxLeverage = 25
	}
	return c
}

type Controller struct {
	client    exchange.Client
	store     *ledger.Store
	snapshots market.SnapshotProvider
	signals   signal.Provider
	placer    BracketPlacer
	notify    notifier.Notifier
	cfg       Config
}

func New(client exchange.Client, store *ledger.Store, snapshots market.SnapshotProvider, signals signal.Provider, placer BracketPlacer, notify notifier.Notifier, cfg Config) *Controller {
	if notify == nil {
		notify = notifier.Nop{}
	}
	return &Controller{
		client:    client,
		store:     store,
		snapshots: snapshots,
		signals:   signals,
		placer:    placer,
		notify:    notify,
		cfg:       cfg.withDefaults(),
	}
}

// CheckAndPlace evaluates one symbol and opens a position when the model says
// so. A symbol with a live ledger record is left alone: one open round trip
// per symbol, always.
func (c *Controller) CheckAndPlace(ctx context.Context, symbol string) error {
	_, err := c.store.OpenTradeBySymbol(ctx, symbol)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ledger.ErrNoOpenTrade) {
		return err
	}

	snap, err := c.snapshots.Snapshot(ctx, symbol)
	if err != nil {
		return err
	}
	sig, ok, err := c.signals.Evaluate(ctx, snap)
	if err != nil {
		return fmt.Errorf("entry: signal for %s: %w", symbol, err)
	}
	if !ok {
		return nil
	}

	balance, err := c.client.FetchBalance(ctx)
	if err != nil {
		return fmt.Errorf("entry: fetch balance: %w", err)
	}

	price := snap.LastClose
	size := risk.PositionSize(balance.Total, sig.Confidence, price, snap.ATR, c.cfg.RiskPct)
	if size <= 0 {
		logger.Debugf("entry: %s sized to zero (balance=%.2f conf=%.2f atr=%.8f), skipping", symbol, balance.Total, sig.Confidence, snap.ATR)
		return nil
	}
	leverage := risk.Leverage(sig.Confidence, c.cfg.MinLeverage, c.cfg.MaxLeverage)
	side := sig.OrderSide()

	logger.Infof("entry: placing %s %s conf=%.2f size=%.8f lev=%.2f price=%.8f",
		side, symbol, sig.Confidence, size, leverage, price)

	order, err := c.placer.PlaceBracketOrder(ctx, symbol, side, size, price, snap.ATR, leverage)
	if err != nil {
		return fmt.Errorf("entry: bracket for %s: %w", symbol, err)
	}

	if err := c.store.LogTrade(ctx, ledger.TradeRecord{
		OrderID:    order.ID,
		Symbol:     symbol,
		Side:       side,
		Size:       size,
		EntryPrice: price,
		ATR:        snap.ATR,
		Confidence: sig.Confidence,
	}); err != nil {
		// The position exists on the venue; a missing ledger row is worse than
		// a duplicate alarm. Reconciliation cannot repair an unbooked entry.
		return fmt.Errorf("entry: ledger append for %s order=%s: %w", symbol, order.ID, err)
	}
	if err := c.notify.SendText(fmt.Sprintf("Opened %s %s conf=%.2f size=%.6f @ %.6f", side, symbol, sig.Confidence, size, price)); err != nil {
		logger.Debugf("entry: notify open failed: %v", err)
	}
	return nil
}
