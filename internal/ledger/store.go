// Package ledger is the authoritative local record of round-trip trades: the
// trades table, the SL/TP amendment audit log, the write-once balance baseline
// and the performance queries over all of it. Backed by gorm + sqlite.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNoOpenTrade is returned when an exit update finds no open record for the
// order id. The ledger is left untouched.
var ErrNoOpenTrade = errors.New("ledger: no open trade for order id")

// ErrOpenTradeExists guards the one-open-record-per-symbol invariant.
var ErrOpenTradeExists = errors.New("ledger: symbol already has an open trade")

type Store struct {
	db *gorm.DB

	// Serializes writers (entry appends vs. cycle/reconciliation mutations).
	// Stricter than the per-order-id minimum, and never held across venue I/O.
	mu sync.Mutex

	now func() time.Time
}

// Open opens (creating if necessary) the ledger database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("ledger: db path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ledger: create db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	if err := db.AutoMigrate(&TradeRecord{}, &AmendmentRecord{}, &baselineRecord{}); err != nil {
		return nil, fmt.Errorf("ledger: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: one writer, a little read parallelism.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LogTrade appends a new open record. Exit fields stay null until the round
// trip completes. Fails when the symbol already has an open record.
func (s *Store) LogTrade(ctx context.Context, rec TradeRecord) error {
	if strings.TrimSpace(rec.OrderID) == "" {
		return fmt.Errorf("ledger: order id is required")
	}
	if rec.EntryTime.IsZero() {
		rec.EntryTime = s.now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	if err := s.db.WithContext(ctx).Model(&TradeRecord{}).
		Where("symbol = ? AND exit_time IS NULL", rec.Symbol).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrOpenTradeExists, rec.Symbol)
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// UpdateTradeExit finalizes the single open record for orderID: exit price,
// pnl, duration, realized reward/risk and close type. Returns ErrNoOpenTrade
// (and mutates nothing) when no open record matches, so replaying the same
// closed order is a no-op.
func (s *Store) UpdateTradeExit(ctx context.Context, orderID string, exitPrice float64, closeType string, meta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec TradeRecord
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND exit_time IS NULL", orderID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoOpenTrade
	}
	if err != nil {
		return err
	}

	now := s.now().UTC()
	direction := 1.0
	if rec.Side == "sell" {
		direction = -1.0
	}
	pnl := rec.Size * (exitPrice - rec.EntryPrice) * direction
	duration := now.Sub(rec.EntryTime).Hours()

	rec.ExitTime = &now
	rec.ExitPrice = &exitPrice
	rec.Pnl = &pnl
	rec.DurationHours = &duration
	if denom := rec.ATR * rec.Size; denom > 0 {
		rr := math.Abs(pnl) / denom
		rec.RRRatio = &rr
	}
	if closeType == "" {
		closeType = CloseTypeUnknown
	}
	rec.CloseType = &closeType
	if len(meta) > 0 {
		if raw, err := json.Marshal(meta); err == nil {
			rec.CloseMeta = raw
		}
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

// OpenTradeBySymbol returns the most recent open record for symbol, or
// ErrNoOpenTrade.
func (s *Store) OpenTradeBySymbol(ctx context.Context, symbol string) (*TradeRecord, error) {
	var rec TradeRecord
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND exit_time IS NULL", symbol).
		Order("entry_time DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoOpenTrade
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// OpenSymbols lists the symbols that currently have an open record.
func (s *Store) OpenSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := s.db.WithContext(ctx).Model(&TradeRecord{}).
		Where("exit_time IS NULL").
		Distinct("symbol").
		Pluck("symbol", &symbols).Error
	return symbols, err
}

// LogAmendment appends one row to the SL/TP audit log.
func (s *Store) LogAmendment(ctx context.Context, rec AmendmentRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithContext(ctx).Create(&rec).Error
}

// Amendments returns the audit trail for one order, oldest first.
func (s *Store) Amendments(ctx context.Context, orderID string) ([]AmendmentRecord, error) {
	var out []AmendmentRecord
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("timestamp ASC, id ASC").
		Find(&out).Error
	return out, err
}

// Trades returns records with entry_time inside [start,end] (inclusive),
// oldest first. Zero bounds are unbounded.
func (s *Store) Trades(ctx context.Context, start, end time.Time) ([]TradeRecord, error) {
	q := s.db.WithContext(ctx).Model(&TradeRecord{})
	if !start.IsZero() {
		q = q.Where("entry_time >= ?", start)
	}
	if !end.IsZero() {
		q = q.Where("entry_time <= ?", end)
	}
	var out []TradeRecord
	err := q.Order("entry_time ASC").Find(&out).Error
	return out, err
}

// InitialBalance returns the persisted equity-curve origin, capturing it from
// fetch on first use. Once written it is never overwritten.
func (s *Store) InitialBalance(ctx context.Context, fetch func(context.Context) (float64, error)) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row baselineRecord
	err := s.db.WithContext(ctx).First(&row, 1).Error
	if err == nil {
		return row.InitialBalance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	if fetch == nil {
		return 0, fmt.Errorf("ledger: baseline not captured and no balance source given")
	}
	balance, err := fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("ledger: capture baseline balance: %w", err)
	}
	row = baselineRecord{ID: 1, InitialBalance: balance, CapturedAt: s.now().UTC()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, err
	}
	return balance, nil
}
