package config

// Config is the top-level configuration carrier.
type Config struct {
	App      AppConfig      `toml:"app"`
	Exchange ExchangeConfig `toml:"exchange"`
	Market   MarketConfig   `toml:"market"`
	Model    ModelConfig    `toml:"model"`
	Trading  TradingConfig  `toml:"trading"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Notify   NotifyConfig   `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

type ExchangeConfig struct {
	Name           string `toml:"name"`
	APIKey         string `toml:"api_key"`
	APISecret      string `toml:"api_secret"`
	RESTBaseURL    string `toml:"rest_base_url"`
	StakeAsset     string `toml:"stake_asset"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type MarketConfig struct {
	Interval      string `toml:"interval"`
	FetchLimit    int    `toml:"fetch_limit"`
	ATRPeriod     int    `toml:"atr_period"`
	FastEMAPeriod int    `toml:"fast_ema_period"`
}

// ModelConfig points at the external signal model endpoint.
type ModelConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TradingConfig covers sizing, bracket construction, trailing and the cycle
// cadence. All factors are expressed against ATR unless the name says pct.
type TradingConfig struct {
	Symbols []string `toml:"symbols"`

	RiskPct     float64 `toml:"risk_pct"`
	MinLeverage float64 `toml:"min_leverage"`
	MaxLeverage float64 `toml:"max_leverage"`

	StopATRMult      float64 `toml:"stop_atr_mult"`
	RewardRiskRatio  float64 `toml:"reward_risk_ratio"`
	MinStopPct       float64 `toml:"min_stop_pct"`
	DefaultTPPct     float64 `toml:"default_tp_pct"`
	OrderRetries     int     `toml:"order_retries"`
	OrderRetryWaitMS int     `toml:"order_retry_wait_ms"`

	TrailATRFactor float64 `toml:"trail_atr_factor"`
	TPATRFactor    float64 `toml:"tp_atr_factor"`
	StepThreshold  float64 `toml:"step_threshold"`
	ClampPct       float64 `toml:"clamp_pct"`

	ExitWindow      int     `toml:"exit_window"`
	AmendEpsilonRel float64 `toml:"amend_epsilon_rel"`
	BackpressureMS  int     `toml:"backpressure_ms"`

	EntryInterval  string `toml:"entry_interval"`
	ManageInterval string `toml:"manage_interval"`
}

type LedgerConfig struct {
	DBPath string `toml:"db_path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}
