// Package manager runs the management cycle over open positions:
// reconciliation against venue history, the forced-exit check, trailing SL/TP
// amendments with audit, and the shutdown liquidation path.
package manager

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"talon/internal/exchange"
	"talon/internal/ledger"
	"talon/internal/logger"
	"talon/internal/market"
	"talon/internal/notifier"
	"talon/internal/strategy"
)

type Config struct {
	Trailing        strategy.TrailingConfig
	ExitWindow      int           // consecutive adverse closes that force an exit, default 3
	AmendEpsilonRel float64       // relative change that counts as a real amendment, default 5e-9
	Backpressure    time.Duration // pause after each amendment push, default 300ms
}

func (c Config) withDefaults() Config {
	if c.ExitWindow <= 0 {
		c.ExitWindow = strategy.DefaultExitWindow
	}
	if c.AmendEpsilonRel <= 0 {
		c.AmendEpsilonRel = 5e-9
	}
	if c.Backpressure <= 0 {
		c.Backpressure = 300 * time.Millisecond
	}
	return c
}

type Manager struct {
	client    exchange.Client
	store     *ledger.Store
	snapshots market.SnapshotProvider
	notify    notifier.Notifier
	cfg       Config

	checkpointMu sync.Mutex
	checkpoint   time.Time // zero until the first reconcile sweep

	now   func() time.Time
	pause func(time.Duration)
}

func New(client exchange.Client, store *ledger.Store, snapshots market.SnapshotProvider, notify notifier.Notifier, cfg Config) *Manager {
	if notify == nil {
		notify = notifier.Nop{}
	}
	return &Manager{
		client:    client,
		store:     store,
		snapshots: snapshots,
		notify:    notify,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
		pause:     time.Sleep,
	}
}

// RunCycle performs one management pass: reconcile first, then handle each
// open position independently. A failure on one symbol never aborts the rest.
func (m *Manager) RunCycle(ctx context.Context) error {
	if err := m.Reconcile(ctx); err != nil {
		logger.Warnf("manager: reconcile sweep failed: %v", err)
	}
	positions, err := m.client.FetchPositions(ctx)
	if err != nil {
		return fmt.Errorf("manager: fetch positions: %w", err)
	}
	for _, pos := range positions {
		if pos.Size == 0 {
			continue
		}
		if err := m.managePosition(ctx, pos); err != nil {
			logger.Errorf("manager: %s cycle failed: %v", pos.Symbol, err)
		}
	}
	return nil
}

func (m *Manager) managePosition(ctx context.Context, pos exchange.Position) error {
	snap, err := m.snapshots.Snapshot(ctx, pos.Symbol)
	if err != nil {
		return err
	}

	if strategy.ShouldExit(pos.Side, snap.Closes, snap.FastEMA, m.cfg.ExitWindow) {
		logger.Infof("manager: %s hit %d adverse closes, forcing exit", pos.Symbol, m.cfg.ExitWindow)
		return m.ClosePosition(ctx, pos, snap.LastClose)
	}

	ticker, err := m.client.FetchTicker(ctx, pos.Symbol)
	if err != nil {
		return fmt.Errorf("fetch ticker: %w", err)
	}
	fastEMA := 0.0
	if n := len(snap.FastEMA); n > 0 {
		fastEMA = snap.FastEMA[n-1]
	}
	newSL, newTP := strategy.UpdateTrailingLevels(strategy.TrailingInput{
		Side:      pos.Side,
		Close:     snap.LastClose,
		PrevSL:    pos.StopLoss,
		PrevTP:    pos.TakeProfit,
		MarkPrice: ticker.Mark,
		ATR:       snap.ATR,
		FastEMA:   fastEMA,
	}, m.cfg.Trailing)

	eps := snap.LastClose * m.cfg.AmendEpsilonRel
	if math.Abs(newSL-pos.StopLoss) <= eps && math.Abs(newTP-pos.TakeProfit) <= eps {
		return nil
	}

	if err := m.client.AmendPositionStops(ctx, pos.Symbol, newSL, newTP); err != nil {
		return fmt.Errorf("amend stops: %w", err)
	}
	logger.Infof("manager: %s levels amended sl=%.8f->%.8f tp=%.8f->%.8f",
		pos.Symbol, pos.StopLoss, newSL, pos.TakeProfit, newTP)

	// Audit only once the venue has confirmed the amendment.
	trade, err := m.store.OpenTradeBySymbol(ctx, pos.Symbol)
	switch {
	case errors.Is(err, ledger.ErrNoOpenTrade):
		logger.Warnf("manager: %s amended but no open ledger record to audit", pos.Symbol)
	case err != nil:
		return err
	default:
		if err := m.store.LogAmendment(ctx, ledger.AmendmentRecord{
			OrderID: trade.OrderID,
			OldSL:   pos.StopLoss,
			NewSL:   newSL,
			OldTP:   pos.TakeProfit,
			NewTP:   newTP,
		}); err != nil {
			return fmt.Errorf("log amendment: %w", err)
		}
	}

	// Give the venue room between consecutive amendment pushes.
	m.pause(m.cfg.Backpressure)
	return nil
}

// ClosePosition submits an offsetting market order and finalizes the matching
// ledger record as a manual close.
func (m *Manager) ClosePosition(ctx context.Context, pos exchange.Position, exitPrice float64) error {
	_, err := m.client.CreateOrder(ctx, exchange.OrderRequest{
		Symbol:     pos.Symbol,
		Type:       exchange.OrderTypeMarket,
		Side:       exchange.ClosingSide(pos.Side),
		Amount:     math.Abs(pos.Size),
		ReduceOnly: true,
	})
	if err != nil {
		return fmt.Errorf("close order: %w", err)
	}
	logger.Infof("manager: closed %s %s position @ %.8f", pos.Symbol, pos.Side, exitPrice)

	trade, err := m.store.OpenTradeBySymbol(ctx, pos.Symbol)
	if errors.Is(err, ledger.ErrNoOpenTrade) {
		logger.Warnf("manager: no open trade found for %s to finalize", pos.Symbol)
		return nil
	}
	if err != nil {
		return err
	}
	if err := m.store.UpdateTradeExit(ctx, trade.OrderID, exitPrice, ledger.CloseTypeManual, nil); err != nil {
		if errors.Is(err, ledger.ErrNoOpenTrade) {
			return nil
		}
		return fmt.Errorf("finalize trade %s: %w", trade.OrderID, err)
	}
	if err := m.notify.SendText(fmt.Sprintf("Closed %s %s @ %.6f", pos.Symbol, pos.Side, exitPrice)); err != nil {
		logger.Debugf("manager: notify close failed: %v", err)
	}
	return nil
}

// CloseAllPositions is the orderly liquidation path used at shutdown. Each
// symbol is handled independently; failures are logged and skipped so one bad
// symbol cannot leave the rest open.
func (m *Manager) CloseAllPositions(ctx context.Context) error {
	positions, err := m.client.FetchPositions(ctx)
	if err != nil {
		return fmt.Errorf("manager: fetch positions for liquidation: %w", err)
	}
	for _, pos := range positions {
		if pos.Size == 0 {
			continue
		}
		ticker, err := m.client.FetchTicker(ctx, pos.Symbol)
		if err != nil {
			logger.Errorf("manager: liquidation ticker for %s failed: %v", pos.Symbol, err)
			continue
		}
		if err := m.ClosePosition(ctx, pos, ticker.Last); err != nil {
			logger.Errorf("manager: liquidating %s failed: %v", pos.Symbol, err)
		}
	}
	return nil
}
