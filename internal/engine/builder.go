package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raxxex/arbtronx-live-trading/internal/exchange"
	"github.com/raxxex/arbtronx-live-trading/internal/logger"
	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

// CreateGrid builds a grid for the symbol using the configured defaults.
func (e *Engine) CreateGrid(ctx context.Context, symbol string) models.GridCreateResult {
	return e.CreateGridWithConfig(ctx, symbol, e.cfg.Grid)
}

// CreateGridWithConfig builds a grid with explicit defaults, overriding
// the process configuration. Used by the rebalancer to resize grids.
//
// Creation is all-or-nothing: if any initial buy order fails to place,
// every order already placed is cancelled and the grid is never
// registered.
func (e *Engine) CreateGridWithConfig(ctx context.Context, symbol string, defaults models.GridDefaults) models.GridCreateResult {
	e.mu.Lock()
	_, inFlight := e.pending[symbol]
	if e.gridBySymbol(symbol) != nil || inFlight {
		e.mu.Unlock()
		return models.GridCreateResult{
			Symbol:  symbol,
			Reason:  models.ReasonGridAlreadyActive,
			Message: fmt.Sprintf("a grid for %s is already active", symbol),
		}
	}
	// reserve the symbol so a concurrent CreateGrid cannot pass the
	// duplicate check while this one is still placing orders
	e.pending[symbol] = struct{}{}
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.pending, symbol)
		e.mu.Unlock()
	}()

	currentPrice, err := e.ex.GetTicker(ctx, symbol)
	if err != nil {
		logger.S().Errorw("Failed to fetch ticker for grid creation", "symbol", symbol, "error", err)
		return models.GridCreateResult{
			Symbol:  symbol,
			Reason:  models.ReasonNoExchangeConnection,
			Message: fmt.Sprintf("failed to fetch price for %s: %v", symbol, err),
		}
	}

	spacing := defaults.SpacingPct
	levelsAbove := defaults.LevelsAbove
	levelsBelow := defaults.LevelsBelow
	regime := models.RegimeUnknown

	if defaults.UseSmartRange {
		r := e.rangeCalc.ComputeRange(ctx, symbol, defaults.SpacingPct, currentPrice)
		spacing = r.FinalSpacingPct
		regime = r.Regime
		switch r.Regime {
		case models.RegimeLow:
			levelsAbove = minInt(8, levelsAbove+2)
			levelsBelow = minInt(8, levelsBelow+2)
		case models.RegimeHigh:
			levelsAbove = maxInt(3, levelsAbove-1)
			levelsBelow = maxInt(3, levelsBelow-1)
		case models.RegimeExtreme:
			levelsAbove = maxInt(2, levelsAbove-2)
			levelsBelow = maxInt(2, levelsBelow-2)
		}
		logger.S().Infow("Smart grid range applied",
			"symbol", symbol,
			"base_spacing_pct", defaults.SpacingPct,
			"final_spacing_pct", spacing,
			"regime", r.Regime,
			"levels_above", levelsAbove,
			"levels_below", levelsBelow)
	}

	config := models.GridConfiguration{
		Symbol:          symbol,
		Exchange:        e.ex.Name(),
		CenterPrice:     currentPrice,
		GridSpacingPct:  spacing,
		LevelsAbove:     levelsAbove,
		LevelsBelow:     levelsBelow,
		OrderSizeUSD:    defaults.OrderSizeUSD,
		ProfitTargetPct: defaults.ProfitTargetPct,
		StopLossPct:     defaults.StopLossPct,
		MaxCapitalUSD:   defaults.MaxCapitalUSD,
		UseSmartRange:   defaults.UseSmartRange,
	}

	gridID := newID("grid")
	levels := buildLevels(config, defaults.PriceTick)

	placed, capitalUsed, placeErr := e.placeInitialOrders(ctx, gridID, config, defaults, levels)
	if placeErr != nil {
		e.rollbackOrders(ctx, placed)
		reason := models.ReasonFailedToPlaceOrders
		if errors.Is(placeErr, exchange.ErrInsufficientBalance) {
			reason = models.ReasonInsufficientBalance
		}
		logger.S().Errorw("Grid creation rolled back",
			"grid_id", gridID, "symbol", symbol, "error", placeErr)
		return models.GridCreateResult{
			Symbol:  symbol,
			Reason:  reason,
			Message: fmt.Sprintf("failed to place grid orders: %v", placeErr),
		}
	}

	now := time.Now()
	g := &grid{
		id:            gridID,
		config:        config,
		levels:        levels,
		totalInvested: capitalUsed,
		createdAt:     now,
		lastUpdate:    now,
	}
	g.cycleID = e.cycles.StartCycle(symbol, capitalUsed, spacing, regime)

	e.mu.Lock()
	e.grids[gridID] = g
	for _, o := range placed {
		e.orders[o.ID] = o
	}
	e.stats[gridID] = &models.GridStats{
		GridID:       gridID,
		Symbol:       symbol,
		ActiveOrders: countActive(placed),
		CreatedAt:    now,
	}
	e.totalGridsCreated++
	e.mu.Unlock()

	logger.S().Infow("Grid created",
		"grid_id", gridID,
		"symbol", symbol,
		"center_price", currentPrice,
		"spacing_pct", spacing,
		"levels_below", levelsBelow,
		"levels_above", levelsAbove,
		"orders_placed", countActive(placed),
		"capital_used", capitalUsed)

	return models.GridCreateResult{
		Success:      true,
		GridID:       gridID,
		Symbol:       symbol,
		OrdersPlaced: countActive(placed),
		GridLevels:   len(levels),
		CapitalUsed:  capitalUsed,
		Message:      fmt.Sprintf("grid created for %s", symbol),
	}
}

// buildLevels computes the price ladder, below-center levels first,
// sorted ascending by index.
func buildLevels(config models.GridConfiguration, priceTick float64) []*models.GridLevel {
	increment := config.CenterPrice * config.GridSpacingPct / 100
	levels := make([]*models.GridLevel, 0, config.LevelsBelow+config.LevelsAbove)

	for i := config.LevelsBelow; i >= 1; i-- {
		levels = append(levels, &models.GridLevel{
			Index: -i,
			Price: roundToStep(config.CenterPrice-increment*float64(i), priceTick),
		})
	}
	for i := 1; i <= config.LevelsAbove; i++ {
		levels = append(levels, &models.GridLevel{
			Index: i,
			Price: roundToStep(config.CenterPrice+increment*float64(i), priceTick),
		})
	}
	return levels
}

// placeInitialOrders submits a buy at every below-center level and builds
// PENDING sell placeholders above center. Sell placeholders activate only
// once a filled buy produces inventory, so they cost no capital here.
// Returns every order created so far even on error, for rollback.
func (e *Engine) placeInitialOrders(ctx context.Context, gridID string, config models.GridConfiguration, defaults models.GridDefaults, levels []*models.GridLevel) ([]*models.GridOrder, float64, error) {
	var placed []*models.GridOrder
	capitalUsed := 0.0

	for _, level := range levels {
		if level.Index < 0 {
			quantity := roundToStep(config.OrderSizeUSD/level.Price, defaults.QuantityStep)
			order := &models.GridOrder{
				ID:        newID("buy"),
				GridID:    gridID,
				Symbol:    config.Symbol,
				Side:      models.SideBuy,
				Price:     level.Price,
				Quantity:  quantity,
				Level:     level.Index,
				Status:    models.OrderPending,
				Exchange:  config.Exchange,
				CreatedAt: time.Now(),
			}

			exchangeOrderID, err := e.submitWithRetry(ctx, config.Symbol, models.SideBuy, quantity, level.Price)
			if err != nil {
				order.Status = models.OrderFailed
				placed = append(placed, order)
				return placed, capitalUsed, err
			}
			order.Status = models.OrderActive
			order.ExchangeOrderID = exchangeOrderID
			level.BuyOrderID = order.ID
			placed = append(placed, order)
			capitalUsed += config.OrderSizeUSD
			continue
		}

		quantity := roundToStep(config.OrderSizeUSD/level.Price, defaults.QuantityStep)
		placeholder := &models.GridOrder{
			ID:        newID("sell"),
			GridID:    gridID,
			Symbol:    config.Symbol,
			Side:      models.SideSell,
			Price:     level.Price,
			Quantity:  quantity,
			Level:     level.Index,
			Status:    models.OrderPending,
			Exchange:  config.Exchange,
			CreatedAt: time.Now(),
		}
		level.SellOrderID = placeholder.ID
		placed = append(placed, placeholder)
	}

	return placed, capitalUsed, nil
}

// rollbackOrders cancels every live order from a failed grid creation.
// Cancellation failures are logged and skipped; the orders were never
// registered so there is nothing to leak.
func (e *Engine) rollbackOrders(ctx context.Context, orders []*models.GridOrder) {
	for _, o := range orders {
		if o.Status != models.OrderActive {
			o.Status = models.OrderCancelled
			continue
		}
		if err := e.cancelWithRetry(ctx, o.ExchangeOrderID, o.Symbol); err != nil {
			logger.S().Errorw("Rollback cancel failed", "order_id", o.ID, "error", err)
			continue
		}
		o.Status = models.OrderCancelled
	}
}

func countActive(orders []*models.GridOrder) int {
	n := 0
	for _, o := range orders {
		if o.Status == models.OrderActive {
			n++
		}
	}
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
