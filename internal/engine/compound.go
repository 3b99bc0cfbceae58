package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/raxxex/arbtronx-live-trading/internal/logger"
	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

// AutoCompoundAndRebalance folds an updated total balance back into the
// roadmap and, when the rebalance window allows it, tears down every grid
// and recreates them with the new capital split evenly across the
// configured symbols. The capital update always happens; rebalancing is
// gated on the minimum interval and on at least one grid being active.
func (e *Engine) AutoCompoundAndRebalance(ctx context.Context, newBalance float64) models.CompoundResult {
	e.mu.RLock()
	enabled := e.autoCompound
	activeGrids := len(e.grids)
	sinceRebalance := time.Since(e.lastRebalance)
	e.mu.RUnlock()

	if !enabled {
		return models.CompoundResult{
			NewBalance: newBalance,
			Reason:     models.ReasonCompoundingDisabled,
			Message:    "auto-compounding disabled",
		}
	}

	logger.S().Infow("Auto-compounding", "new_balance", newBalance)
	e.phases.UpdateCapital(newBalance)

	if sinceRebalance < e.cfg.RebalanceMinInterval() || activeGrids == 0 {
		return models.CompoundResult{
			Success:    true,
			NewBalance: newBalance,
			Message:    "capital updated, no rebalancing needed",
		}
	}

	logger.S().Infow("Rebalancing all grids", "new_balance", newBalance)

	stop := e.StopAllGrids(ctx)
	logger.S().Infow("Grids stopped for rebalance",
		"grids_stopped", stop.GridsStopped,
		"orders_cancelled", stop.OrdersCancelled)

	reserve := e.cfg.CompoundReserveFraction
	if reserve <= 0 || reserve >= 1 {
		reserve = 0.05
	}
	available := newBalance * (1 - reserve)
	capitalPerGrid := available / float64(len(e.cfg.Symbols))

	created := 0
	for _, symbol := range e.cfg.Symbols {
		if capitalPerGrid < e.minGridCapital() {
			logger.S().Warnw("Per-grid capital below minimum, skipping",
				"symbol", symbol, "capital_per_grid", capitalPerGrid)
			continue
		}
		defaults := e.cfg.Grid
		defaults.MaxCapitalUSD = capitalPerGrid
		defaults.OrderSizeUSD = math.Min(capitalPerGrid/10, 50)

		result := e.CreateGridWithConfig(ctx, symbol, defaults)
		if result.Success {
			created++
			logger.S().Infow("Rebalanced grid",
				"symbol", symbol, "capital", capitalPerGrid)
		} else {
			logger.S().Errorw("Rebalance grid creation failed",
				"symbol", symbol, "reason", result.Reason, "message", result.Message)
		}
	}

	e.mu.Lock()
	e.lastRebalance = time.Now()
	e.mu.Unlock()

	return models.CompoundResult{
		Success:        true,
		Rebalanced:     true,
		NewBalance:     newBalance,
		CapitalPerGrid: capitalPerGrid,
		GridsCreated:   created,
		Message:        fmt.Sprintf("auto-compounded and rebalanced %d grids", created),
	}
}

func (e *Engine) minGridCapital() float64 {
	if e.cfg.MinGridCapitalUSD <= 0 {
		return 20
	}
	return e.cfg.MinGridCapitalUSD
}
