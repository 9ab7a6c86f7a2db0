// Package exchange defines the capability surface the engine needs from a
// trading venue. Adapters (binance futures, test fakes) implement Client so the
// entry and management paths never touch a concrete SDK.
package exchange

import (
	"context"
	"time"
)

type Client interface {
	// FetchBalance returns the account balance in the stake currency.
	FetchBalance(ctx context.Context) (Balance, error)

	// FetchPositions lists every open position, including venue-side SL/TP.
	FetchPositions(ctx context.Context) ([]Position, error)

	// FetchTicker returns the latest trade price and mark price for a symbol.
	FetchTicker(ctx context.Context, symbol string) (Ticker, error)

	// CreateOrder submits an order. Bracket levels travel with the request and
	// become venue-side trigger orders.
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)

	// AmendPositionStops replaces the protective levels of an open position.
	AmendPositionStops(ctx context.Context, symbol string, stopLoss, takeProfit float64) error

	// FetchClosedOrders returns orders closed since the given time, newest last.
	FetchClosedOrders(ctx context.Context, symbol string, since time.Time, limit int) ([]Order, error)
}
