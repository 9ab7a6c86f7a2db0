package manager

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"talon/internal/exchange"
	"talon/internal/ledger"
	"talon/internal/market"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) FetchBalance(ctx context.Context) (exchange.Balance, error) {
	return exchange.Balance{}, nil
}

func (m *mockClient) FetchPositions(ctx context.Context) ([]exchange.Position, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]exchange.Position), args.Error(1)
}

func (m *mockClient) FetchTicker(ctx context.Context, symbol string) (exchange.Ticker, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(exchange.Ticker), args.Error(1)
}

func (m *mockClient) CreateOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*exchange.Order), args.Error(1)
}

func (m *mockClient) AmendPositionStops(ctx context.Context, symbol string, stopLoss, takeProfit float64) error {
	args := m.Called(ctx, symbol, stopLoss, takeProfit)
	return args.Error(0)
}

func (m *mockClient) FetchClosedOrders(ctx context.Context, symbol string, since time.Time, limit int) ([]exchange.Order, error) {
	args := m.Called(ctx, symbol, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]exchange.Order), args.Error(1)
}

type cannedSnapshots struct {
	snaps map[string]*market.Snapshot
	err   error
}

func (c *cannedSnapshots) Snapshot(ctx context.Context, symbol string) (*market.Snapshot, error) {
	if c.err != nil {
		return nil, c.err
	}
	snap, ok := c.snaps[symbol]
	if !ok {
		return nil, errors.New("no snapshot for " + symbol)
	}
	return snap, nil
}

func openTestStore(t *testing.T) *ledger.Store {
	t.Helper()
	s, err := ledger.Open(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestManager(client *mockClient, store *ledger.Store, snaps *cannedSnapshots) *Manager {
	m := New(client, store, snaps, nil, Config{})
	m.pause = func(time.Duration) {}
	return m
}

// Snapshot with the last three closes above the EMA: healthy long.
func healthyLongSnapshot() *market.Snapshot {
	return &market.Snapshot{
		Symbol:    "BTCUSDT",
		Closes:    []float64{101, 104, 105, 105},
		FastEMA:   []float64{100, 103, 103, 103},
		ATR:       2,
		LastClose: 105,
	}
}

// Snapshot with the last three closes below the EMA: forced exit for a long.
func adverseLongSnapshot() *market.Snapshot {
	return &market.Snapshot{
		Symbol:    "BTCUSDT",
		Closes:    []float64{105, 99, 98, 97},
		FastEMA:   []float64{100, 100, 100, 100},
		ATR:       2,
		LastClose: 97,
	}
}

func TestRunCycleForcesExitOnAdverseStreak(t *testing.T) {
	client := &mockClient{}
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.LogTrade(ctx, ledger.TradeRecord{
		OrderID: "o-1", Symbol: "BTCUSDT", Side: "buy", Size: 2, EntryPrice: 100, ATR: 2,
	}))

	client.On("FetchClosedOrders", mock.Anything, "BTCUSDT", mock.Anything, mock.Anything).Return([]exchange.Order{}, nil)
	client.On("FetchPositions", mock.Anything).Return([]exchange.Position{{
		Symbol: "BTCUSDT", Side: exchange.PositionLong, Size: 2, EntryPrice: 100, StopLoss: 99.5, TakeProfit: 110,
	}}, nil)
	client.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Symbol == "BTCUSDT" && req.Side == exchange.SideSell && req.ReduceOnly && req.Amount == 2
	})).Return(&exchange.Order{ID: "close-1"}, nil)

	m := newTestManager(client, store, &cannedSnapshots{snaps: map[string]*market.Snapshot{
		"BTCUSDT": adverseLongSnapshot(),
	}})

	require.NoError(t, m.RunCycle(ctx))
	client.AssertExpectations(t)

	trades, err := store.Trades(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.NotNil(t, trades[0].ExitPrice)
	assert.InDelta(t, 97, *trades[0].ExitPrice, 1e-9)
	assert.Equal(t, ledger.CloseTypeManual, *trades[0].CloseType)
}

func TestRunCycleAmendsTrailingLevelsAndAudits(t *testing.T) {
	client := &mockClient{}
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.LogTrade(ctx, ledger.TradeRecord{
		OrderID: "o-2", Symbol: "BTCUSDT", Side: "buy", Size: 1, EntryPrice: 100, ATR: 2,
	}))

	client.On("FetchClosedOrders", mock.Anything, "BTCUSDT", mock.Anything, mock.Anything).Return([]exchange.Order{}, nil)
	client.On("FetchPositions", mock.Anything).Return([]exchange.Position{{
		Symbol: "BTCUSDT", Side: exchange.PositionLong, Size: 1, EntryPrice: 100, StopLoss: 99.5, TakeProfit: 110,
	}}, nil)
	client.On("FetchTicker", mock.Anything, "BTCUSDT").Return(exchange.Ticker{Last: 105, Mark: 105.2}, nil)
	client.On("AmendPositionStops", mock.Anything, "BTCUSDT", 103.0, 110.0).Return(nil)

	m := newTestManager(client, store, &cannedSnapshots{snaps: map[string]*market.Snapshot{
		"BTCUSDT": healthyLongSnapshot(),
	}})

	require.NoError(t, m.RunCycle(ctx))
	client.AssertExpectations(t)

	rows, err := store.Amendments(ctx, "o-2")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 99.5, rows[0].OldSL, 1e-9)
	assert.InDelta(t, 103, rows[0].NewSL, 1e-9)
	assert.InDelta(t, 110, rows[0].NewTP, 1e-9)
}

func TestRunCycleSkipsAmendBelowEpsilon(t *testing.T) {
	client := &mockClient{}
	store := openTestStore(t)

	client.On("FetchClosedOrders", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]exchange.Order{}, nil)
	// Venue already carries the levels the adjuster would produce.
	client.On("FetchPositions", mock.Anything).Return([]exchange.Position{{
		Symbol: "BTCUSDT", Side: exchange.PositionLong, Size: 1, EntryPrice: 100, StopLoss: 103, TakeProfit: 110,
	}}, nil)
	client.On("FetchTicker", mock.Anything, "BTCUSDT").Return(exchange.Ticker{Last: 105, Mark: 105.2}, nil)

	m := newTestManager(client, store, &cannedSnapshots{snaps: map[string]*market.Snapshot{
		"BTCUSDT": healthyLongSnapshot(),
	}})

	require.NoError(t, m.RunCycle(context.Background()))
	client.AssertNotCalled(t, "AmendPositionStops", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunCycleIsolatesPerSymbolFailures(t *testing.T) {
	client := &mockClient{}
	store := openTestStore(t)

	client.On("FetchPositions", mock.Anything).Return([]exchange.Position{
		{Symbol: "BADUSDT", Side: exchange.PositionLong, Size: 1, EntryPrice: 100, StopLoss: 99, TakeProfit: 110},
		{Symbol: "BTCUSDT", Side: exchange.PositionLong, Size: 1, EntryPrice: 100, StopLoss: 103, TakeProfit: 110},
	}, nil)
	client.On("FetchTicker", mock.Anything, "BTCUSDT").Return(exchange.Ticker{Last: 105, Mark: 105.2}, nil)

	// BADUSDT has no snapshot and fails; BTCUSDT must still be managed.
	m := newTestManager(client, store, &cannedSnapshots{snaps: map[string]*market.Snapshot{
		"BTCUSDT": healthyLongSnapshot(),
	}})

	require.NoError(t, m.RunCycle(context.Background()))
	client.AssertCalled(t, "FetchTicker", mock.Anything, "BTCUSDT")
}

func TestReconcileBooksVenueSideClose(t *testing.T) {
	client := &mockClient{}
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.LogTrade(ctx, ledger.TradeRecord{
		OrderID: "o-9", Symbol: "BTCUSDT", Side: "buy", Size: 1, EntryPrice: 100, ATR: 2,
	}))
	client.On("FetchClosedOrders", mock.Anything, "BTCUSDT", mock.Anything, mock.Anything).Return([]exchange.Order{{
		ID: "o-9", ClientID: "tln-o-9-tp", Type: "TAKE_PROFIT_MARKET", AvgPrice: 108, CloseType: "sl_tp",
	}}, nil)

	m := newTestManager(client, store, &cannedSnapshots{})
	require.NoError(t, m.Reconcile(ctx))

	trades, err := store.Trades(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, trades[0].ExitPrice)
	assert.InDelta(t, 108, *trades[0].ExitPrice, 1e-9)
	assert.Equal(t, ledger.CloseTypeSLTP, *trades[0].CloseType)

	// Seeing the same closed order again is a no-op, not an error.
	require.NoError(t, m.Reconcile(ctx))
}

func TestReconcileIgnoresEntryFill(t *testing.T) {
	client := &mockClient{}
	store := openTestStore(t)
	ctx := context.Background()

	// The closed-order feed reports the entry market order itself as FILLED,
	// keyed by the same venue id the ledger record was booked under. It has no
	// closing semantics and must not terminate the record.
	require.NoError(t, store.LogTrade(ctx, ledger.TradeRecord{
		OrderID: "12345", Symbol: "BTCUSDT", Side: "buy", Size: 1, EntryPrice: 100, ATR: 2,
	}))
	client.On("FetchClosedOrders", mock.Anything, "BTCUSDT", mock.Anything, mock.Anything).Return([]exchange.Order{{
		ID: "12345", ClientID: "8f14e45f-ceea-467f-9c9d-27f5a7a1b2c3", Type: "market", AvgPrice: 100.02,
	}}, nil)

	m := newTestManager(client, store, &cannedSnapshots{})
	require.NoError(t, m.Reconcile(ctx))

	open, err := store.OpenTradeBySymbol(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, open.Open())
	assert.Nil(t, open.ExitPrice)

	// A later trigger fill for the same entry still closes it.
	client.ExpectedCalls = nil
	client.On("FetchClosedOrders", mock.Anything, "BTCUSDT", mock.Anything, mock.Anything).Return([]exchange.Order{{
		ID: "12345", ClientID: "tln-12345-sl", Type: "stop_market", AvgPrice: 97, CloseType: "sl_tp",
	}}, nil)
	require.NoError(t, m.Reconcile(ctx))

	trades, err := store.Trades(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, trades[0].ExitPrice)
	assert.InDelta(t, 97, *trades[0].ExitPrice, 1e-9)
}

func TestReconcileFetchFailureLeavesRecordOpen(t *testing.T) {
	client := &mockClient{}
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.LogTrade(ctx, ledger.TradeRecord{
		OrderID: "o-10", Symbol: "BTCUSDT", Side: "buy", Size: 1, EntryPrice: 100,
	}))
	client.On("FetchClosedOrders", mock.Anything, "BTCUSDT", mock.Anything, mock.Anything).
		Return(nil, &exchange.NetworkError{Op: "closed orders", Err: errors.New("timeout")})

	m := newTestManager(client, store, &cannedSnapshots{})
	require.NoError(t, m.Reconcile(ctx))

	open, err := store.OpenTradeBySymbol(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, open.Open())
}

func TestCloseAllPositionsIsolatesFailures(t *testing.T) {
	client := &mockClient{}
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.LogTrade(ctx, ledger.TradeRecord{
		OrderID: "o-11", Symbol: "ETHUSDT", Side: "sell", Size: 3, EntryPrice: 100,
	}))

	client.On("FetchPositions", mock.Anything).Return([]exchange.Position{
		{Symbol: "BADUSDT", Side: exchange.PositionLong, Size: 1},
		{Symbol: "ETHUSDT", Side: exchange.PositionShort, Size: 3},
	}, nil)
	client.On("FetchTicker", mock.Anything, "BADUSDT").
		Return(exchange.Ticker{}, &exchange.NetworkError{Op: "ticker", Err: errors.New("timeout")})
	client.On("FetchTicker", mock.Anything, "ETHUSDT").Return(exchange.Ticker{Last: 95, Mark: 95}, nil)
	client.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Symbol == "ETHUSDT" && req.Side == exchange.SideBuy && req.ReduceOnly
	})).Return(&exchange.Order{ID: "liq-1"}, nil)

	m := newTestManager(client, store, &cannedSnapshots{})
	require.NoError(t, m.CloseAllPositions(ctx))

	trades, err := store.Trades(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, trades[0].Pnl)
	assert.InDelta(t, 15, *trades[0].Pnl, 1e-9) // short: 3 * (100-95)
}
