package manager

import (
	"context"
	"errors"
	"time"

	"talon/internal/ledger"
	"talon/internal/logger"
)

// First sweep looks this far back into venue history.
const reconcileLookback = 30 * 24 * time.Hour

const reconcileFetchLimit = 100

// Reconcile syncs still-open ledger records against the venue's closed-order
// history. The venue can close a position on its own (bracket trigger) with no
// local code path involved; this sweep books those exits.
//
// Idempotent: only records with a null exit time are ever mutated, so seeing
// the same closed order twice is a no-op the second time. A failed fetch for
// one symbol is skipped without blocking the others and never moves the
// checkpoint backwards.
func (m *Manager) Reconcile(ctx context.Context) error {
	m.checkpointMu.Lock()
	since := m.checkpoint
	m.checkpointMu.Unlock()
	sweepStart := m.now().UTC()
	if since.IsZero() {
		since = sweepStart.Add(-reconcileLookback)
	}

	symbols, err := m.store.OpenSymbols(ctx)
	if err != nil {
		return err
	}

	for _, symbol := range symbols {
		orders, err := m.client.FetchClosedOrders(ctx, symbol, since, reconcileFetchLimit)
		if err != nil {
			logger.Warnf("manager: reconcile fetch for %s failed: %v", symbol, err)
			continue
		}
		for _, order := range orders {
			// The closed-order feed also carries the position's own entry fill
			// (same venue order id the ledger is keyed by). Only orders with
			// closing semantics may finalize a record.
			if order.CloseType == "" {
				continue
			}
			closeType := order.CloseType
			err := m.store.UpdateTradeExit(ctx, order.ID, order.AvgPrice, closeType, map[string]any{
				"venue_order_id": order.ID,
				"client_id":      order.ClientID,
				"order_type":     order.Type,
			})
			if errors.Is(err, ledger.ErrNoOpenTrade) {
				continue
			}
			if err != nil {
				logger.Errorf("manager: reconcile update for %s order=%s failed: %v", symbol, order.ID, err)
				continue
			}
			logger.Infof("manager: reconciled venue-side close %s order=%s exit=%.8f type=%s",
				symbol, order.ID, order.AvgPrice, closeType)
		}
	}

	m.checkpointMu.Lock()
	m.checkpoint = sweepStart
	m.checkpointMu.Unlock()
	return nil
}
