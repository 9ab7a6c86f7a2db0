package config

import (
	"fmt"
	"strings"

	"talon/internal/scheduler"
)

func validate(c *Config) error {
	if err := c.Exchange.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Model.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (e *ExchangeConfig) validate() error {
	if e.Name != "binance" {
		return fmt.Errorf("exchange.name only supports binance, got %q", e.Name)
	}
	if strings.TrimSpace(e.APIKey) == "" || strings.TrimSpace(e.APISecret) == "" {
		return fmt.Errorf("exchange.api_key and exchange.api_secret are required")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if _, ok := scheduler.ParseIntervalDuration(m.Interval); !ok {
		return fmt.Errorf("market.interval is not a valid interval: %q", m.Interval)
	}
	if m.FetchLimit < m.ATRPeriod+1 || m.FetchLimit < m.FastEMAPeriod+1 {
		return fmt.Errorf("market.fetch_limit (%d) too small for the indicator periods", m.FetchLimit)
	}
	return nil
}

func (m *ModelConfig) validate() error {
	if strings.TrimSpace(m.URL) == "" {
		return fmt.Errorf("model.url is required")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if len(t.Symbols) == 0 {
		return fmt.Errorf("trading.symbols requires at least one symbol")
	}
	for _, s := range t.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("trading.symbols contains an empty entry")
		}
	}
	if t.RiskPct > 1 {
		return fmt.Errorf("trading.risk_pct must be within (0, 1], got %v", t.RiskPct)
	}
	if t.MaxLeverage < t.MinLeverage {
		return fmt.Errorf("trading.max_leverage (%v) below trading.min_leverage (%v)", t.MaxLeverage, t.MinLeverage)
	}
	if _, ok := scheduler.ParseIntervalDuration(t.EntryInterval); !ok {
		return fmt.Errorf("trading.entry_interval is not a valid interval: %q", t.EntryInterval)
	}
	if _, ok := scheduler.ParseIntervalDuration(t.ManageInterval); !ok {
		return fmt.Errorf("trading.manage_interval is not a valid interval: %q", t.ManageInterval)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if tg.Enabled && (strings.TrimSpace(tg.BotToken) == "" || strings.TrimSpace(tg.ChatID) == "") {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}
