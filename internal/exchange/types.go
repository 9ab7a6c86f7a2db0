package exchange

import "time"

const (
	SideBuy  = "buy"
	SideSell = "sell"

	PositionLong  = "long"
	PositionShort = "short"

	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"

	OrderStatusClosed = "closed"
)

// Position is the venue's view of an open position. The engine only reads it
// and requests amendments; it never owns the lifecycle.
type Position struct {
	Symbol     string
	Side       string  // "long" or "short"
	Size       float64 // contract magnitude, 0 when flat
	EntryPrice float64
	Leverage   float64
	StopLoss   float64 // 0 if not set
	TakeProfit float64 // 0 if not set
	UpdatedAt  time.Time
}

// Balance is the stake-currency account balance.
type Balance struct {
	Currency  string
	Total     float64
	Available float64
	UpdatedAt time.Time
}

// Ticker carries the two prices the engine cares about: last trade and mark.
type Ticker struct {
	Symbol    string
	Last      float64
	Mark      float64
	UpdatedAt time.Time
}

// OrderRequest describes an order submission, bracket levels included.
type OrderRequest struct {
	Symbol     string
	Type       string // "market" or "limit"
	Side       string // "buy" or "sell"
	Amount     float64
	Price      float64 // limit orders only
	StopLoss   float64 // 0 = no stop attached
	TakeProfit float64 // 0 = no target attached
	Leverage   float64 // 0 = leave venue default
	ReduceOnly bool
	ClientID   string
}

// Order is the venue's order descriptor.
type Order struct {
	ID        string
	ClientID  string
	Symbol    string
	Side      string
	Type      string
	Status    string
	Amount    float64
	Price     float64
	AvgPrice  float64 // average fill price
	CloseType string  // venue order-type metadata ("sl_tp", "manual", ...), "" if unknown
	UpdatedAt time.Time
}

// EntrySide maps a position side to the order side that opens it.
func EntrySide(positionSide string) string {
	if positionSide == PositionShort {
		return SideSell
	}
	return SideBuy
}

// ClosingSide maps a position side to the order side that offsets it.
func ClosingSide(positionSide string) string {
	if positionSide == PositionLong {
		return SideSell
	}
	return SideBuy
}

// PositionSide maps an entry order side to the resulting position side.
func PositionSide(orderSide string) string {
	if orderSide == SideSell {
		return PositionShort
	}
	return PositionLong
}
