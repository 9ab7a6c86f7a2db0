package binance

import (
	"strings"
	"time"
)

type Config struct {
	APIKey      string
	APISecret   string
	RESTBaseURL string // empty = SDK default (testnet override lives in config)
	StakeAsset  string // default "USDT"
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	c.RESTBaseURL = strings.TrimSpace(c.RESTBaseURL)
	if c.StakeAsset == "" {
		c.StakeAsset = "USDT"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	return c
}
