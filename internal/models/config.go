package models

import "time"

// Config is the process-level configuration loaded from the JSON config
// file. API credentials never live here; they come from the environment.
type Config struct {
	Exchange        string       `json:"exchange"` // "binance" or "paper"
	Symbols         []string     `json:"symbols"`
	StartingCapital float64      `json:"starting_capital"`
	Grid            GridDefaults `json:"grid"`

	PollIntervalSec         int     `json:"poll_interval_sec"`
	VolatilityRefreshSec    int     `json:"volatility_refresh_sec"`
	RebalanceMinIntervalSec int     `json:"rebalance_min_interval_sec"`
	RequestTimeoutSec       int     `json:"request_timeout_sec"`
	RetryAttempts           int     `json:"retry_attempts"`
	RetryInitialDelayMs     int     `json:"retry_initial_delay_ms"`
	RetryMaxDelayMs         int     `json:"retry_max_delay_ms"`
	MinGridCapitalUSD       float64 `json:"min_grid_capital_usd"`
	CompoundReserveFraction float64 `json:"compound_reserve_fraction"`

	DBPath    string    `json:"db_path,omitempty"` // empty disables persistence
	LogConfig LogConfig `json:"log"`
}

// GridDefaults seeds GridConfiguration for every new grid; CreateGrid
// overrides pieces of it when smart range is enabled.
type GridDefaults struct {
	SpacingPct      float64 `json:"spacing_pct"`
	LevelsAbove     int     `json:"levels_above"`
	LevelsBelow     int     `json:"levels_below"`
	OrderSizeUSD    float64 `json:"order_size_usd"`
	ProfitTargetPct float64 `json:"profit_target_pct"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	MaxCapitalUSD   float64 `json:"max_capital_usd"`
	UseSmartRange   bool    `json:"use_smart_range"`
	PriceTick       float64 `json:"price_tick"`
	QuantityStep    float64 `json:"quantity_step"`
}

// LogConfig controls the zap/lumberjack logging setup.
type LogConfig struct {
	Level      string `json:"level"`       // "debug", "info", "warn", "error"
	Output     string `json:"output"`      // "console", "file", "both"
	File       string `json:"file"`        // log file path
	MaxSize    int    `json:"max_size"`    // max size of one log file (MB)
	MaxBackups int    `json:"max_backups"` // rotated files to keep
	MaxAge     int    `json:"max_age"`     // days to keep rotated files
	Compress   bool   `json:"compress"`
}

// PollInterval returns the monitor poll interval with its default applied.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.PollIntervalSec) * time.Second
}

// VolatilityRefresh returns the volatility cache TTL with its default.
func (c *Config) VolatilityRefresh() time.Duration {
	if c.VolatilityRefreshSec <= 0 {
		return time.Hour
	}
	return time.Duration(c.VolatilityRefreshSec) * time.Second
}

// RebalanceMinInterval returns the minimum gap between rebalances.
func (c *Config) RebalanceMinInterval() time.Duration {
	if c.RebalanceMinIntervalSec <= 0 {
		return time.Hour
	}
	return time.Duration(c.RebalanceMinIntervalSec) * time.Second
}

// RequestTimeout returns the per-call exchange timeout with its default.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.RequestTimeoutSec) * time.Second
}
