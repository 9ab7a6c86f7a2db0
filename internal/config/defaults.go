package config

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9992"
	defaultAppLogPath  = "/data/logs/talon-live.log"

	defaultExchangeName    = "binance"
	defaultExchangeREST    = "https://fapi.binance.com"
	defaultExchangeStake   = "USDT"
	defaultExchangeTimeout = 15

	defaultMarketInterval   = "5m"
	defaultMarketFetchLimit = 300
	defaultMarketATRPeriod  = 20
	defaultMarketEMAPeriod  = 40

	defaultModelTimeout = 30

	defaultTradingRiskPct         = 0.01
	defaultTradingMinLeverage     = 2
	defaultTradingMaxLeverage     = 25
	defaultTradingStopATRMult     = 1.5
	defaultTradingRewardRisk      = 2.0
	defaultTradingMinStopPct      = 0.005
	defaultTradingDefaultTPPct    = 0.10
	defaultTradingOrderRetries    = 3
	defaultTradingRetryWaitMS     = 1000
	defaultTradingTrailATRFactor  = 1.0
	defaultTradingTPATRFactor     = 2.0
	defaultTradingStepThreshold   = 0.3
	defaultTradingClampPct        = 0.001
	defaultTradingExitWindow      = 3
	defaultTradingAmendEpsilonRel = 5e-9
	defaultTradingBackpressureMS  = 300
	defaultTradingEntryInterval   = "5m"
	defaultTradingManageInterval  = "3m"

	defaultLedgerDBPath = "/data/db/talon_trades.db"
)

func (c *Config) applyDefaults() {
	c.App.applyDefaults()
	c.Exchange.applyDefaults()
	c.Market.applyDefaults()
	c.Model.applyDefaults()
	c.Trading.applyDefaults()
	c.Ledger.applyDefaults()
}

func (a *AppConfig) applyDefaults() {
	if a.Env == "" {
		a.Env = defaultAppEnv
	}
	if a.LogLevel == "" {
		a.LogLevel = defaultAppLogLevel
	}
	if a.HTTPAddr == "" {
		a.HTTPAddr = defaultAppHTTPAddr
	}
	if a.LogPath == "" {
		a.LogPath = defaultAppLogPath
	}
}

func (e *ExchangeConfig) applyDefaults() {
	if e.Name == "" {
		e.Name = defaultExchangeName
	}
	if e.RESTBaseURL == "" {
		e.RESTBaseURL = defaultExchangeREST
	}
	if e.StakeAsset == "" {
		e.StakeAsset = defaultExchangeStake
	}
	if e.TimeoutSeconds <= 0 {
		e.TimeoutSeconds = defaultExchangeTimeout
	}
}

func (m *MarketConfig) applyDefaults() {
	if m.Interval == "" {
		m.Interval = defaultMarketInterval
	}
	if m.FetchLimit <= 0 {
		m.FetchLimit = defaultMarketFetchLimit
	}
	if m.ATRPeriod <= 0 {
		m.ATRPeriod = defaultMarketATRPeriod
	}
	if m.FastEMAPeriod <= 0 {
		m.FastEMAPeriod = defaultMarketEMAPeriod
	}
}

func (m *ModelConfig) applyDefaults() {
	if m.TimeoutSeconds <= 0 {
		m.TimeoutSeconds = defaultModelTimeout
	}
}

func (t *TradingConfig) applyDefaults() {
	if t.RiskPct <= 0 {
		t.RiskPct = defaultTradingRiskPct
	}
	if t.MinLeverage <= 0 {
		t.MinLeverage = defaultTradingMinLeverage
	}
	if t.MaxLeverage <= 0 {
		t.MaxLeverage = defaultTradingMaxLeverage
	}
	if t.StopATRMult <= 0 {
		t.StopATRMult = defaultTradingStopATRMult
	}
	if t.RewardRiskRatio <= 0 {
		t.RewardRiskRatio = defaultTradingRewardRisk
	}
	if t.MinStopPct <= 0 {
		t.MinStopPct = defaultTradingMinStopPct
	}
	if t.DefaultTPPct <= 0 {
		t.DefaultTPPct = defaultTradingDefaultTPPct
	}
	if t.OrderRetries <= 0 {
		t.OrderRetries = defaultTradingOrderRetries
	}
	if t.OrderRetryWaitMS <= 0 {
		t.OrderRetryWaitMS = defaultTradingRetryWaitMS
	}
	if t.TrailATRFactor <= 0 {
		t.TrailATRFactor = defaultTradingTrailATRFactor
	}
	if t.TPATRFactor <= 0 {
		t.TPATRFactor = defaultTradingTPATRFactor
	}
	if t.StepThreshold <= 0 {
		t.StepThreshold = defaultTradingStepThreshold
	}
	if t.ClampPct <= 0 {
		t.ClampPct = defaultTradingClampPct
	}
	if t.ExitWindow <= 0 {
		t.ExitWindow = defaultTradingExitWindow
	}
	if t.AmendEpsilonRel <= 0 {
		t.AmendEpsilonRel = defaultTradingAmendEpsilonRel
	}
	if t.BackpressureMS <= 0 {
		t.BackpressureMS = defaultTradingBackpressureMS
	}
	if t.EntryInterval == "" {
		t.EntryInterval = defaultTradingEntryInterval
	}
	if t.ManageInterval == "" {
		t.ManageInterval = defaultTradingManageInterval
	}
}

func (l *LedgerConfig) applyDefaults() {
	if l.DBPath == "" {
		l.DBPath = defaultLedgerDBPath
	}
}
