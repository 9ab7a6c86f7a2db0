package ledger

import (
	"time"

	"gorm.io/datatypes"
)

// Close types recorded on a finalized trade.
const (
	CloseTypeManual  = "manual"
	CloseTypeSLTP    = "sl_tp"
	CloseTypeUnknown = "unknown"
)

// TradeRecord is one round trip. A record is created at entry with the exit
// fields null and mutated exactly once, into its terminal filled state, by
// either the explicit close path or reconciliation. Records are never deleted.
type TradeRecord struct {
	OrderID       string         `gorm:"column:order_id;primaryKey"`
	EntryTime     time.Time      `gorm:"column:entry_time;index"`
	ExitTime      *time.Time     `gorm:"column:exit_time"`
	Symbol        string         `gorm:"column:symbol;index"`
	Side          string         `gorm:"column:side"` // "buy" or "sell" (entry side)
	Size          float64        `gorm:"column:size"`
	EntryPrice    float64        `gorm:"column:entry_price"`
	ExitPrice     *float64       `gorm:"column:exit_price"`
	Pnl           *float64       `gorm:"column:pnl"`
	DurationHours *float64       `gorm:"column:duration"`
	ATR           float64        `gorm:"column:atr"`
	RRRatio       *float64       `gorm:"column:rr_ratio"`
	Confidence    float64        `gorm:"column:confidence"`
	CloseType     *string        `gorm:"column:close_type"`
	CloseMeta     datatypes.JSON `gorm:"column:close_meta"`
}

func (TradeRecord) TableName() string { return "trades" }

// Open reports whether the record still tracks a live position.
func (t *TradeRecord) Open() bool { return t.ExitTime == nil }

// AmendmentRecord is one row of the append-only SL/TP audit log.
type AmendmentRecord struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	OrderID   string    `gorm:"column:order_id;index"`
	Timestamp time.Time `gorm:"column:timestamp"`
	OldSL     float64   `gorm:"column:old_sl"`
	NewSL     float64   `gorm:"column:new_sl"`
	OldTP     float64   `gorm:"column:old_tp"`
	NewTP     float64   `gorm:"column:new_tp"`
}

func (AmendmentRecord) TableName() string { return "sl_tp_updates" }

// baselineRecord is the single write-once equity-curve origin.
type baselineRecord struct {
	ID             int64     `gorm:"column:id;primaryKey"`
	InitialBalance float64   `gorm:"column:initial_balance"`
	CapturedAt     time.Time `gorm:"column:captured_at"`
}

func (baselineRecord) TableName() string { return "balance_baseline" }
