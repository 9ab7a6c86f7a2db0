// Package app wires the components together and runs the two cycles plus the
// reporting server until shutdown.
package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"talon/internal/config"
	"talon/internal/entry"
	"talon/internal/exchange"
	"talon/internal/exchange/binance"
	"talon/internal/executor"
	"talon/internal/ledger"
	"talon/internal/logger"
	"talon/internal/manager"
	httpapi "talon/internal/transport/http"
	"talon/internal/market"
	"talon/internal/notifier"
	"talon/internal/scheduler"
	"talon/internal/signal"
	"talon/internal/strategy"
)

type App struct {
	cfg    *config.Config
	store  *ledger.Store
	client exchange.Client
	mgr    *manager.Manager
	entry  *entry.Controller
	http   *httpapi.Server

	entryEvery  time.Duration
	manageEvery time.Duration
}

// NewApp builds the full dependency graph from config without starting
// anything.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	// Config.Validate already checks these, but NewApp accepts any config, so
	// reject a zero interval here rather than hand it to a cycle loop.
	entryEvery, ok := scheduler.ParseIntervalDuration(cfg.Trading.EntryInterval)
	if !ok {
		return nil, fmt.Errorf("invalid trading.entry_interval %q", cfg.Trading.EntryInterval)
	}
	manageEvery, ok := scheduler.ParseIntervalDuration(cfg.Trading.ManageInterval)
	if !ok {
		return nil, fmt.Errorf("invalid trading.manage_interval %q", cfg.Trading.ManageInterval)
	}

	client := binance.New(binance.Config{
		APIKey:      cfg.Exchange.APIKey,
		APISecret:   cfg.Exchange.APISecret,
		RESTBaseURL: cfg.Exchange.RESTBaseURL,
		StakeAsset:  cfg.Exchange.StakeAsset,
		HTTPTimeout: time.Duration(cfg.Exchange.TimeoutSeconds) * time.Second,
	})

	store, err := ledger.Open(cfg.Ledger.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	snapshots := market.NewProvider(client, market.Config{
		Interval:      cfg.Market.Interval,
		Limit:         cfg.Market.FetchLimit,
		ATRPeriod:     cfg.Market.ATRPeriod,
		FastEMAPeriod: cfg.Market.FastEMAPeriod,
	})

	signals := signal.NewModelClient(cfg.Model.URL, time.Duration(cfg.Model.TimeoutSeconds)*time.Second)

	var notify notifier.Notifier = notifier.Nop{}
	if cfg.Notify.Telegram.Enabled {
		notify = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
	}

	placer := executor.New(client, executor.Config{
		StopATRMult:     cfg.Trading.StopATRMult,
		RewardRiskRatio: cfg.Trading.RewardRiskRatio,
		MinStopPct:      cfg.Trading.MinStopPct,
		DefaultTPPct:    cfg.Trading.DefaultTPPct,
		RetryAttempts:   cfg.Trading.OrderRetries,
		RetryDelay:      time.Duration(cfg.Trading.OrderRetryWaitMS) * time.Millisecond,
	})

	mgr := manager.New(client, store, snapshots, notify, manager.Config{
		Trailing: strategy.TrailingConfig{
			TrailATRFactor: cfg.Trading.TrailATRFactor,
			TPATRFactor:    cfg.Trading.TPATRFactor,
			StepThreshold:  cfg.Trading.StepThreshold,
			ClampPct:       cfg.Trading.ClampPct,
		},
		ExitWindow:      cfg.Trading.ExitWindow,
		AmendEpsilonRel: cfg.Trading.AmendEpsilonRel,
		Backpressure:    time.Duration(cfg.Trading.BackpressureMS) * time.Millisecond,
	})

	entryCtl := entry.New(client, store, snapshots, signals, placer, notify, entry.Config{
		RiskPct:     cfg.Trading.RiskPct,
		MinLeverage: cfg.Trading.MinLeverage,
		MaxLeverage: cfg.Trading.MaxLeverage,
	})

	httpSrv, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:   cfg.App.HTTPAddr,
		Store:  store,
		Client: client,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build http server: %w", err)
	}

	return &App{
		cfg:         cfg,
		store:       store,
		client:      client,
		mgr:         mgr,
		entry:       entryCtl,
		http:        httpSrv,
		entryEvery:  entryEvery,
		manageEvery: manageEvery,
	}, nil
}

// Run starts the entry sweep, the management cycle and the HTTP server, and
// blocks until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}

	if balance, err := a.store.InitialBalance(ctx, func(ctx context.Context) (float64, error) {
		b, err := a.client.FetchBalance(ctx)
		if err != nil {
			return 0, err
		}
		return b.Total, nil
	}); err != nil {
		logger.Warnf("app: baseline balance not captured: %v", err)
	} else {
		logger.Infof("app: equity baseline %.2f %s", balance, a.cfg.Exchange.StakeAsset)
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		scheduler.Loop(ctx, "entry", a.entryEvery, func(ctx context.Context) {
			for _, symbol := range a.cfg.Trading.Symbols {
				if ctx.Err() != nil {
					return
				}
				if err := a.entry.CheckAndPlace(ctx, symbol); err != nil {
					logger.Errorf("app: entry sweep %s: %v", symbol, err)
				}
			}
		})
		return nil
	})

	group.Go(func() error {
		scheduler.Loop(ctx, "manage", a.manageEvery, func(ctx context.Context) {
			if err := a.mgr.RunCycle(ctx); err != nil {
				logger.Errorf("app: management cycle: %v", err)
			}
		})
		return nil
	})

	return group.Wait()
}

// Shutdown liquidates all open positions and closes the ledger. Runs on a
// fresh context because the run context is already cancelled by this point.
func (a *App) Shutdown(timeout time.Duration) {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	logger.Infof("app: shutting down, closing open positions")
	if err := a.mgr.CloseAllPositions(ctx); err != nil {
		logger.Errorf("app: liquidation at shutdown failed: %v", err)
	}
	if err := a.store.Close(); err != nil {
		logger.Errorf("app: closing ledger failed: %v", err)
	}
}
