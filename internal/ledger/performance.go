package ledger

import (
	"context"
	"math"
	"time"
)

// Performance aggregates a window of trades. Pointer fields are nil when the
// metric is undefined for the window (empty set, no losses, too few trades).
type Performance struct {
	Trades       int      `json:"trades"`
	WinRate      *float64 `json:"win_rate"`
	MaxDrawdown  *float64 `json:"max_drawdown"`
	ProfitFactor *float64 `json:"profit_factor"`
	SharpeRatio  *float64 `json:"sharpe_ratio"`
}

// CalculatePerformance filters trades by entry time within [start,end] and
// computes win rate, max drawdown over the baseline-anchored equity curve,
// profit factor and a sharpe-like pnl mean/stdev ratio. Open trades count with
// pnl 0, matching their contribution to realized equity.
func (s *Store) CalculatePerformance(ctx context.Context, start, end time.Time) (Performance, error) {
	trades, err := s.Trades(ctx, start, end)
	if err != nil {
		return Performance{}, err
	}
	if len(trades) == 0 {
		return Performance{}, nil
	}

	baseline := 0.0
	var row baselineRecord
	if err := s.db.WithContext(ctx).First(&row, 1).Error; err == nil {
		baseline = row.InitialBalance
	}

	pnls := make([]float64, len(trades))
	wins := 0
	grossWin, grossLoss := 0.0, 0.0
	for i, t := range trades {
		pnl := 0.0
		if t.Pnl != nil {
			pnl = *t.Pnl
		}
		pnls[i] = pnl
		switch {
		case pnl > 0:
			wins++
			grossWin += pnl
		case pnl < 0:
			grossLoss += -pnl
		}
	}

	perf := Performance{Trades: len(trades)}
	winRate := float64(wins) / float64(len(trades))
	perf.WinRate = &winRate

	// The baseline anchors the curve but is not a peak candidate: a window
	// whose first trade loses has drawn down from nothing yet.
	equity := baseline
	peak := 0.0
	maxDD := 0.0
	for i, pnl := range pnls {
		equity += pnl
		if i == 0 || equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	perf.MaxDrawdown = &maxDD

	if grossLoss > 0 {
		pf := grossWin / grossLoss
		perf.ProfitFactor = &pf
	}

	if sharpe, ok := meanOverStdev(pnls); ok {
		perf.SharpeRatio = &sharpe
	}
	return perf, nil
}

// meanOverStdev returns mean/stdev using the sample standard deviation.
// Undefined for fewer than 2 values or zero variance.
func meanOverStdev(vals []float64) (float64, bool) {
	if len(vals) < 2 {
		return 0, false
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	variance := 0.0
	for _, v := range vals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(vals) - 1)
	if variance == 0 {
		return 0, false
	}
	return mean / math.Sqrt(variance), true
}
