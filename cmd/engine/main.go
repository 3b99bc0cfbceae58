package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/raxxex/arbtronx-live-trading/internal/config"
	"github.com/raxxex/arbtronx-live-trading/internal/engine"
	"github.com/raxxex/arbtronx-live-trading/internal/exchange"
	"github.com/raxxex/arbtronx-live-trading/internal/logger"
	"github.com/raxxex/arbtronx-live-trading/internal/models"
	"github.com/raxxex/arbtronx-live-trading/internal/persistence"
	"github.com/raxxex/arbtronx-live-trading/internal/reporter"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	flag.Parse()

	// a default console logger until the config is loaded
	logger.Init(models.LogConfig{Level: "info", Output: "console"})

	if err := godotenv.Load(); err != nil {
		logger.S().Info("No .env file found, reading credentials from the environment")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.S().Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.LogConfig)
	defer logger.S().Sync()

	ex, cleanup, err := buildExchange(cfg)
	if err != nil {
		logger.S().Fatalf("Failed to initialize exchange: %v", err)
	}
	defer cleanup()

	eng := engine.New(cfg, ex)

	var repo persistence.StateRepository
	if cfg.DBPath != "" {
		repo, err = persistence.NewBadgerRepository(cfg.DBPath)
		if err != nil {
			logger.S().Fatalf("Failed to open state database: %v", err)
		}
		defer repo.Close()

		state, err := repo.LoadState()
		if err != nil {
			logger.S().Fatalf("Failed to load persisted state: %v", err)
		}
		if state != nil {
			eng.RestoreState(state)
		}
	}

	ctx := context.Background()
	for _, symbol := range cfg.Symbols {
		result := eng.CreateGrid(ctx, symbol)
		if !result.Success {
			logger.S().Errorw("Initial grid creation failed",
				"symbol", symbol, "reason", result.Reason, "message", result.Message)
			continue
		}
		logger.S().Infow("Initial grid created",
			"symbol", symbol,
			"grid_id", result.GridID,
			"orders_placed", result.OrdersPlaced,
			"capital_used", result.CapitalUsed)
	}

	eng.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.S().Info("Shutting down")
	eng.Stop()

	stop := eng.StopAllGrids(ctx)
	logger.S().Infow("Unwound grids",
		"grids_stopped", stop.GridsStopped,
		"orders_cancelled", stop.OrdersCancelled,
		"capital_released", stop.CapitalReleased)

	if repo != nil {
		if err := repo.SaveState(eng.SnapshotState()); err != nil {
			logger.S().Errorf("Failed to save state: %v", err)
		} else {
			logger.S().Info("State saved")
		}
	}

	logger.S().Info("Final roadmap\n" + reporter.RenderRoadmap(eng.GetPhaseRoadmapStatus()))
}

// buildExchange selects the trading venue from the configuration. The
// paper exchange needs no credentials; Binance reads its API keys from
// the environment.
func buildExchange(cfg *models.Config) (exchange.Exchange, func(), error) {
	switch cfg.Exchange {
	case "binance":
		apiKey := os.Getenv("BINANCE_API_KEY")
		secretKey := os.Getenv("BINANCE_SECRET_KEY")
		if apiKey == "" || secretKey == "" {
			logger.S().Fatal("BINANCE_API_KEY and BINANCE_SECRET_KEY must be set for the binance exchange")
		}
		b := exchange.NewBinanceExchange(apiKey, secretKey, logger.S())
		b.StartPriceStreams(cfg.Symbols)
		return b, func() { b.Close() }, nil
	default:
		logger.S().Info("Using paper exchange")
		return exchange.NewPaperExchange(), func() {}, nil
	}
}
