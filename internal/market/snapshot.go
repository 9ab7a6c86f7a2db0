package market

import (
	"context"
	"fmt"

	"github.com/markcheno/go-talib"
)

// Snapshot is one market observation for one symbol: the close series, the
// fast EMA series aligned with it, and the latest ATR.
type Snapshot struct {
	Symbol    string
	Closes    []float64
	FastEMA   []float64
	ATR       float64
	LastClose float64
}

// SnapshotProvider is what the entry and management paths depend on. Tests
// substitute canned snapshots.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, symbol string) (*Snapshot, error)
}

// Config sets the timeframe and indicator periods of a provider.
type Config struct {
	Interval      string // e.g. "3m" for management, "5m" for entries
	Limit         int    // bars to fetch, default 300
	ATRPeriod     int    // default 20
	FastEMAPeriod int    // default 40
}

func (c Config) withDefaults() Config {
	if c.Interval == "" {
		c.Interval = "5m"
	}
	if c.Limit <= 0 {
		c.Limit = 300
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = 20
	}
	if c.FastEMAPeriod <= 0 {
		c.FastEMAPeriod = 40
	}
	return c
}

// Provider builds snapshots from a kline source with talib indicators.
type Provider struct {
	src KlineSource
	cfg Config
}

func NewProvider(src KlineSource, cfg Config) *Provider {
	return &Provider{src: src, cfg: cfg.withDefaults()}
}

func (p *Provider) Snapshot(ctx context.Context, symbol string) (*Snapshot, error) {
	candles, err := p.src.FetchKlines(ctx, symbol, p.cfg.Interval, p.cfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("market: fetch klines %s %s: %w", symbol, p.cfg.Interval, err)
	}
	need := p.cfg.ATRPeriod + 1
	if p.cfg.FastEMAPeriod+1 > need {
		need = p.cfg.FastEMAPeriod + 1
	}
	if len(candles) < need {
		return nil, fmt.Errorf("market: %s needs %d bars, got %d", symbol, need, len(candles))
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}

	atrSeries := talib.Atr(highs, lows, closes, p.cfg.ATRPeriod)
	emaSeries := talib.Ema(closes, p.cfg.FastEMAPeriod)

	return &Snapshot{
		Symbol:    symbol,
		Closes:    closes,
		FastEMA:   emaSeries,
		ATR:       atrSeries[len(atrSeries)-1],
		LastClose: closes[len(closes)-1],
	}, nil
}
