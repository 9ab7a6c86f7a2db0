package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logClosedTrade(t *testing.T, s *Store, id string, exitDelta float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.LogTrade(ctx, TradeRecord{
		OrderID: id, Symbol: "SYM-" + id, Side: "buy", Size: 1, EntryPrice: 100, ATR: 1,
	}))
	require.NoError(t, s.UpdateTradeExit(ctx, id, 100+exitDelta, CloseTypeManual, nil))
}

func TestPerformanceEmptyWindow(t *testing.T) {
	s := openTestStore(t)
	perf, err := s.CalculatePerformance(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Zero(t, perf.Trades)
	assert.Nil(t, perf.WinRate)
	assert.Nil(t, perf.MaxDrawdown)
	assert.Nil(t, perf.ProfitFactor)
	assert.Nil(t, perf.SharpeRatio)
}

func TestPerformanceSingleWin(t *testing.T) {
	s := openTestStore(t)
	logClosedTrade(t, s, "p-1", 10)

	perf, err := s.CalculatePerformance(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, perf.Trades)
	require.NotNil(t, perf.WinRate)
	assert.Equal(t, 1.0, *perf.WinRate)
	require.NotNil(t, perf.MaxDrawdown)
	assert.Zero(t, *perf.MaxDrawdown)
	// No losses: profit factor undefined. One trade: sharpe undefined.
	assert.Nil(t, perf.ProfitFactor)
	assert.Nil(t, perf.SharpeRatio)
}

func TestPerformanceMixedTrades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.InitialBalance(ctx, func(context.Context) (float64, error) { return 100, nil })
	require.NoError(t, err)

	logClosedTrade(t, s, "m-1", 10)  // equity 110, peak 110
	logClosedTrade(t, s, "m-2", -22) // equity 88, dd (110-88)/110 = 0.2
	logClosedTrade(t, s, "m-3", 6)   // equity 94

	perf, err := s.CalculatePerformance(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, perf.Trades)
	require.NotNil(t, perf.WinRate)
	assert.InDelta(t, 2.0/3.0, *perf.WinRate, 1e-9)
	require.NotNil(t, perf.MaxDrawdown)
	assert.InDelta(t, 0.2, *perf.MaxDrawdown, 1e-9)
	require.NotNil(t, perf.ProfitFactor)
	assert.InDelta(t, 16.0/22.0, *perf.ProfitFactor, 1e-9)
	require.NotNil(t, perf.SharpeRatio)
}

func TestPerformanceFirstTradeLossIsNotADrawdown(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.InitialBalance(ctx, func(context.Context) (float64, error) { return 1000, nil })
	require.NoError(t, err)

	// The curve's first point is its own peak; the baseline never counts.
	logClosedTrade(t, s, "d-1", -10)

	perf, err := s.CalculatePerformance(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, perf.MaxDrawdown)
	assert.Zero(t, *perf.MaxDrawdown)
}

func TestPerformanceDrawdownAfterPeak(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.InitialBalance(ctx, func(context.Context) (float64, error) { return 1000, nil })
	require.NoError(t, err)

	logClosedTrade(t, s, "e-1", -10)  // equity 990, peak 990
	logClosedTrade(t, s, "e-2", 110)  // equity 1100, peak 1100
	logClosedTrade(t, s, "e-3", -220) // equity 880, dd (1100-880)/1100 = 0.2

	perf, err := s.CalculatePerformance(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, perf.MaxDrawdown)
	assert.InDelta(t, 0.2, *perf.MaxDrawdown, 1e-9)
}

func TestPerformanceCountsOpenTradesAsFlat(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	logClosedTrade(t, s, "f-1", 10)
	require.NoError(t, s.LogTrade(ctx, TradeRecord{
		OrderID: "f-open", Symbol: "OPEN", Side: "buy", Size: 1, EntryPrice: 100,
	}))

	perf, err := s.CalculatePerformance(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, perf.Trades)
	require.NotNil(t, perf.WinRate)
	assert.InDelta(t, 0.5, *perf.WinRate, 1e-9)
}

func TestPerformanceIdenticalPnlsHaveNoSharpe(t *testing.T) {
	s := openTestStore(t)
	logClosedTrade(t, s, "z-1", 5)
	logClosedTrade(t, s, "z-2", 5)

	perf, err := s.CalculatePerformance(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Nil(t, perf.SharpeRatio)
}
