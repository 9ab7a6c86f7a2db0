// Package market supplies the per-symbol snapshots the engine consumes: recent
// closes, the fast EMA series and the latest ATR, computed from venue klines.
package market

import "context"

// Candle is one closed OHLCV bar.
type Candle struct {
	OpenTime  int64 // ms since epoch
	CloseTime int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// KlineSource fetches historical bars for a symbol, oldest first.
type KlineSource interface {
	FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}
