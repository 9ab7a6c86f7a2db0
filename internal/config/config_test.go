package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
exchange:
  api_key: key
  api_secret: secret
model:
  url: http://localhost:8000/v1/signal
trading:
  symbols: [BTCUSDT]
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "binance", cfg.Exchange.Name)
	assert.Equal(t, "https://fapi.binance.com", cfg.Exchange.RESTBaseURL)
	assert.Equal(t, "USDT", cfg.Exchange.StakeAsset)
	assert.Equal(t, "5m", cfg.Market.Interval)
	assert.Equal(t, 300, cfg.Market.FetchLimit)
	assert.Equal(t, 20, cfg.Market.ATRPeriod)
	assert.Equal(t, 40, cfg.Market.FastEMAPeriod)
	assert.Equal(t, 0.01, cfg.Trading.RiskPct)
	assert.Equal(t, 2.0, cfg.Trading.MinLeverage)
	assert.Equal(t, 25.0, cfg.Trading.MaxLeverage)
	assert.Equal(t, 1.5, cfg.Trading.StopATRMult)
	assert.Equal(t, 0.005, cfg.Trading.MinStopPct)
	assert.Equal(t, 3, cfg.Trading.ExitWindow)
	assert.Equal(t, "5m", cfg.Trading.EntryInterval)
	assert.Equal(t, "3m", cfg.Trading.ManageInterval)
	assert.Equal(t, "/data/db/talon_trades.db", cfg.Ledger.DBPath)
	assert.False(t, cfg.Notify.Telegram.Enabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
  risk_pct: 0.02
  exit_window: 5
market:
  interval: 15m
`))
	require.NoError(t, err)
	assert.Equal(t, 0.02, cfg.Trading.RiskPct)
	assert.Equal(t, 5, cfg.Trading.ExitWindow)
	assert.Equal(t, "15m", cfg.Market.Interval)
}

func TestLoadRejectsMissingCredentials(t *testing.T) {
	_, err := Load(writeConfig(t, `
model:
  url: http://localhost:8000
trading:
  symbols: [BTCUSDT]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestLoadRejectsMissingSymbols(t *testing.T) {
	_, err := Load(writeConfig(t, `
exchange:
  api_key: key
  api_secret: secret
model:
  url: http://localhost:8000
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbols")
}

func TestLoadRejectsMissingModelURL(t *testing.T) {
	_, err := Load(writeConfig(t, `
exchange:
  api_key: key
  api_secret: secret
trading:
  symbols: [BTCUSDT]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model.url")
}

func TestLoadRejectsBadIntervals(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
  entry_interval: soon
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry_interval")
}

func TestLoadRejectsLeverageInversion(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
  min_leverage: 10
  max_leverage: 5
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_leverage")
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadTelegramRequiresCredentialsWhenEnabled(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
notify:
  telegram:
    enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
}
