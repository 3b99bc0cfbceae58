package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

// Load reads the JSON config file into a Config and applies defaults for
// everything the file leaves unset.
func Load(path string) (*models.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	cfg := &models.Config{}
	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *models.Config) {
	if cfg.Exchange == "" {
		cfg.Exchange = "paper"
	}
	if cfg.StartingCapital <= 0 {
		cfg.StartingCapital = 200
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryInitialDelayMs <= 0 {
		cfg.RetryInitialDelayMs = 500
	}
	if cfg.RetryMaxDelayMs <= 0 {
		cfg.RetryMaxDelayMs = 8000
	}
	if cfg.MinGridCapitalUSD <= 0 {
		cfg.MinGridCapitalUSD = 20
	}
	if cfg.CompoundReserveFraction <= 0 {
		cfg.CompoundReserveFraction = 0.05
	}

	g := &cfg.Grid
	if g.SpacingPct <= 0 {
		g.SpacingPct = 0.5
	}
	if g.LevelsAbove <= 0 {
		g.LevelsAbove = 5
	}
	if g.LevelsBelow <= 0 {
		g.LevelsBelow = 5
	}
	if g.OrderSizeUSD <= 0 {
		g.OrderSizeUSD = 20
	}
	if g.ProfitTargetPct <= 0 {
		g.ProfitTargetPct = 1.0
	}
	if g.StopLossPct <= 0 {
		g.StopLossPct = 5.0
	}
	if g.MaxCapitalUSD <= 0 {
		g.MaxCapitalUSD = 100
	}
}

func validate(cfg *models.Config) error {
	if len(cfg.Symbols) == 0 {
		return fmt.Errorf("config: at least one symbol is required")
	}
	if cfg.CompoundReserveFraction >= 1 {
		return fmt.Errorf("config: compound_reserve_fraction must be below 1, got %.2f", cfg.CompoundReserveFraction)
	}
	return nil
}
