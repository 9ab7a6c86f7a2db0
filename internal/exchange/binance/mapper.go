package binance

import (
	"strconv"
	"strings"
	"time"

	"talon/internal/exchange"

	"github.com/adshao/go-binance/v2/futures"
)

func mapCreateResponse(o *futures.CreateOrderResponse) *exchange.Order {
	return &exchange.Order{
		ID:        strconv.FormatInt(o.OrderID, 10),
		ClientID:  o.ClientOrderID,
		Symbol:    o.Symbol,
		Side:      strings.ToLower(string(o.Side)),
		Type:      strings.ToLower(string(o.Type)),
		Status:    strings.ToLower(string(o.Status)),
		Amount:    parseFloat(o.OrigQuantity),
		Price:     parseFloat(o.Price),
		AvgPrice:  parseFloat(o.AvgPrice),
		UpdatedAt: time.UnixMilli(o.UpdateTime).UTC(),
	}
}

// mapOrder folds a filled venue order into the engine's descriptor. Trigger
// fills are reported under the entry order id they protect, so reconciliation
// matches them against the ledger without knowing venue details.
func mapOrder(o *futures.Order) exchange.Order {
	out := exchange.Order{
		ID:        strconv.FormatInt(o.OrderID, 10),
		ClientID:  o.ClientOrderID,
		Symbol:    o.Symbol,
		Side:      strings.ToLower(string(o.Side)),
		Type:      strings.ToLower(string(o.Type)),
		Status:    exchange.OrderStatusClosed,
		Amount:    parseFloat(o.OrigQuantity),
		Price:     parseFloat(o.Price),
		AvgPrice:  parseFloat(o.AvgPrice),
		UpdatedAt: time.UnixMilli(o.UpdateTime).UTC(),
	}
	if entryID, _, ok := splitTriggerID(o.ClientOrderID); ok {
		out.ID = entryID
		out.CloseType = "sl_tp"
		return out
	}
	switch o.Type {
	case futures.OrderTypeStopMarket, futures.OrderTypeTakeProfitMarket:
		out.CloseType = "sl_tp"
	case futures.OrderTypeMarket:
		if o.ReduceOnly || o.ClosePosition {
			out.CloseType = "manual"
		}
	}
	return out
}

// splitTriggerID parses "tln-<entryID>-sl" / "tln-<entryID>-tp".
func splitTriggerID(clientID string) (entryID, kind string, ok bool) {
	if !strings.HasPrefix(clientID, triggerIDPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(clientID, triggerIDPrefix)
	idx := strings.LastIndex(rest, "-")
	if idx <= 0 {
		return "", "", false
	}
	entryID, kind = rest[:idx], rest[idx+1:]
	if kind != "sl" && kind != "tp" {
		return "", "", false
	}
	return entryID, kind, true
}
