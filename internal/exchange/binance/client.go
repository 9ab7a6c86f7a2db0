// Package binance adapts the USD-M futures SDK to the exchange.Client
// capability surface. The bracket is realized venue-side as a market entry
// plus close-position STOP_MARKET / TAKE_PROFIT_MARKET trigger orders.
package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"talon/internal/exchange"
	"talon/internal/logger"
	"talon/internal/market"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const maxKlineLimit = 1500

// Trigger orders carry a client id derived from the entry order id so closed
// trigger fills can be reconciled back to the ledger's entry key.
const triggerIDPrefix = "tln-"

type Client struct {
	cfg    Config
	client *futures.Client
}

var (
	_ exchange.Client    = (*Client)(nil)
	_ market.KlineSource = (*Client)(nil)
)

func New(cfg Config) *Client {
	final := cfg.withDefaults()
	c := futures.NewClient(final.APIKey, final.APISecret)
	if final.RESTBaseURL != "" {
		c.BaseURL = final.RESTBaseURL
	}
	c.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Client{cfg: final, client: c}
}

// classify maps SDK failures onto the engine's error taxonomy: an API error is
// a venue rejection, everything else is transport.
func classify(op string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return &exchange.ExchangeError{Code: int(apiErr.Code), Msg: apiErr.Message}
	}
	return &exchange.NetworkError{Op: op, Err: err}
}

func (c *Client) FetchBalance(ctx context.Context) (exchange.Balance, error) {
	balances, err := c.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return exchange.Balance{}, classify("fetch_balance", err)
	}
	for _, b := range balances {
		if b.Asset != c.cfg.StakeAsset {
			continue
		}
		return exchange.Balance{
			Currency:  b.Asset,
			Total:     parseFloat(b.Balance),
			Available: parseFloat(b.AvailableBalance),
			UpdatedAt: time.Now().UTC(),
		}, nil
	}
	return exchange.Balance{}, fmt.Errorf("binance: no %s balance in account", c.cfg.StakeAsset)
}

func (c *Client) FetchPositions(ctx context.Context) ([]exchange.Position, error) {
	risks, err := c.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, classify("fetch_positions", err)
	}
	var out []exchange.Position
	for _, r := range risks {
		amt := parseFloat(r.PositionAmt)
		if amt == 0 {
			continue
		}
		pos := exchange.Position{
			Symbol:     r.Symbol,
			Side:       exchange.PositionLong,
			Size:       amt,
			EntryPrice: parseFloat(r.EntryPrice),
			Leverage:   parseFloat(r.Leverage),
			UpdatedAt:  time.Now().UTC(),
		}
		if amt < 0 {
			pos.Side = exchange.PositionShort
			pos.Size = -amt
		}
		sl, tp, err := c.triggerLevels(ctx, r.Symbol)
		if err != nil {
			logger.Warnf("binance: reading trigger orders for %s failed: %v", r.Symbol, err)
		}
		pos.StopLoss, pos.TakeProfit = sl, tp
		out = append(out, pos)
	}
	return out, nil
}

// triggerLevels reads the open close-position trigger orders for a symbol.
func (c *Client) triggerLevels(ctx context.Context, symbol string) (sl, tp float64, err error) {
	orders, err := c.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, 0, classify("list_open_orders", err)
	}
	for _, o := range orders {
		switch o.Type {
		case futures.OrderTypeStopMarket:
			sl = parseFloat(o.StopPrice)
		case futures.OrderTypeTakeProfitMarket:
			tp = parseFloat(o.StopPrice)
		}
	}
	return sl, tp, nil
}

func (c *Client) FetchTicker(ctx context.Context, symbol string) (exchange.Ticker, error) {
	prices, err := c.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return exchange.Ticker{}, classify("fetch_ticker", err)
	}
	t := exchange.Ticker{Symbol: symbol, UpdatedAt: time.Now().UTC()}
	for _, p := range prices {
		if p.Symbol == symbol {
			t.Last = parseFloat(p.Price)
		}
	}
	premiums, err := c.client.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return exchange.Ticker{}, classify("fetch_mark_price", err)
	}
	for _, p := range premiums {
		if p.Symbol == symbol {
			t.Mark = parseFloat(p.MarkPrice)
		}
	}
	if t.Mark == 0 {
		t.Mark = t.Last
	}
	return t, nil
}

func (c *Client) CreateOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.Order, error) {
	if req.Leverage > 0 {
		_, err := c.client.NewChangeLeverageService().
			Symbol(req.Symbol).
			Leverage(int(req.Leverage)).
			Do(ctx)
		if err != nil {
			return nil, classify("change_leverage", err)
		}
	}

	svc := c.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(orderSide(req.Side)).
		Quantity(formatFloat(req.Amount))
	if req.ClientID != "" {
		svc = svc.NewClientOrderID(req.ClientID)
	}
	if req.ReduceOnly {
		svc = svc.ReduceOnly(true)
	}
	if req.Type == exchange.OrderTypeLimit {
		svc = svc.Type(futures.OrderTypeLimit).
			Price(formatFloat(req.Price)).
			TimeInForce(futures.TimeInForceTypeGTC)
	} else {
		svc = svc.Type(futures.OrderTypeMarket)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, classify("create_order", err)
	}
	order := mapCreateResponse(resp)

	// Attach the venue-side bracket. If a trigger fails to land the position is
	// momentarily unprotected; the management cycle re-arms it on the next
	// amendment pass, so we report but do not unwind.
	closing := opposite(req.Side)
	if req.StopLoss > 0 {
		if err := c.placeTrigger(ctx, req.Symbol, closing, futures.OrderTypeStopMarket, req.StopLoss, order.ID+"-sl"); err != nil {
			logger.Errorf("binance: stop-loss trigger for %s failed: %v", req.Symbol, err)
		}
	}
	if req.TakeProfit > 0 {
		if err := c.placeTrigger(ctx, req.Symbol, closing, futures.OrderTypeTakeProfitMarket, req.TakeProfit, order.ID+"-tp"); err != nil {
			logger.Errorf("binance: take-profit trigger for %s failed: %v", req.Symbol, err)
		}
	}
	return order, nil
}

func (c *Client) placeTrigger(ctx context.Context, symbol, side string, typ futures.OrderType, price float64, clientSuffix string) error {
	_, err := c.client.NewCreateOrderService().
		Symbol(symbol).
		Side(orderSide(side)).
		Type(typ).
		StopPrice(formatFloat(price)).
		ClosePosition(true).
		NewClientOrderID(triggerIDPrefix + clientSuffix).
		Do(ctx)
	if err != nil {
		return classify("create_trigger_order", err)
	}
	return nil
}

// AmendPositionStops replaces the protective levels by cancelling the current
// close-position triggers and re-placing them at the new prices.
func (c *Client) AmendPositionStops(ctx context.Context, symbol string, stopLoss, takeProfit float64) error {
	open, err := c.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return classify("list_open_orders", err)
	}
	var entryID string
	closing := ""
	for _, o := range open {
		if o.Type != futures.OrderTypeStopMarket && o.Type != futures.OrderTypeTakeProfitMarket {
			continue
		}
		closing = strings.ToLower(string(o.Side))
		if id, _, ok := splitTriggerID(o.ClientOrderID); ok {
			entryID = id
		}
		if _, err := c.client.NewCancelOrderService().Symbol(symbol).OrderID(o.OrderID).Do(ctx); err != nil {
			return classify("cancel_trigger_order", err)
		}
	}
	if closing == "" {
		// No existing triggers to learn the closing side from; derive it from
		// the live position instead.
		positions, err := c.FetchPositions(ctx)
		if err != nil {
			return err
		}
		for _, p := range positions {
			if p.Symbol == symbol {
				closing = exchange.ClosingSide(p.Side)
			}
		}
		if closing == "" {
			return fmt.Errorf("binance: no open position for %s to amend", symbol)
		}
	}
	if stopLoss > 0 {
		if err := c.placeTrigger(ctx, symbol, closing, futures.OrderTypeStopMarket, stopLoss, entryID+"-sl"); err != nil {
			return err
		}
	}
	if takeProfit > 0 {
		if err := c.placeTrigger(ctx, symbol, closing, futures.OrderTypeTakeProfitMarket, takeProfit, entryID+"-tp"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) FetchClosedOrders(ctx context.Context, symbol string, since time.Time, limit int) ([]exchange.Order, error) {
	svc := c.client.NewListOrdersService().Symbol(symbol)
	if !since.IsZero() {
		svc = svc.StartTime(since.UnixMilli())
	}
	if limit > 0 {
		svc = svc.Limit(limit)
	}
	orders, err := svc.Do(ctx)
	if err != nil {
		return nil, classify("fetch_closed_orders", err)
	}
	var out []exchange.Order
	for _, o := range orders {
		if o.Status != futures.OrderStatusTypeFilled {
			continue
		}
		out = append(out, mapOrder(o))
	}
	return out, nil
}

// FetchKlines implements market.KlineSource.
func (c *Client) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	kls, err := c.client.NewKlinesService().
		Symbol(symbol).
		Interval(strings.ToLower(strings.TrimSpace(interval))).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, classify("fetch_klines", err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
		})
	}
	return out, nil
}

func orderSide(side string) futures.SideType {
	if side == exchange.SideSell {
		return futures.SideTypeSell
	}
	return futures.SideTypeBuy
}

func opposite(side string) string {
	if side == exchange.SideSell {
		return exchange.SideBuy
	}
	return exchange.SideSell
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
