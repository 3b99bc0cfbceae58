package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/raxxex/arbtronx-live-trading/internal/logger"
	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

const dailyPnLKeyLayout = "2006-01-02"

// StopGrid cancels every live order of one grid and removes it from the
// active set. The grid is marked as stopping first so the monitor stops
// filling it while the teardown runs. It stays registered (and paused)
// if any cancellation keeps failing after retries, so the caller can
// stop it again rather than leak live orders.
func (e *Engine) StopGrid(ctx context.Context, gridID string) (models.StopResult, error) {
	e.mu.Lock()
	g, ok := e.grids[gridID]
	if !ok {
		e.mu.Unlock()
		return models.StopResult{Reason: models.ReasonGridNotFound},
			fmt.Errorf("grid %s not found", gridID)
	}
	g.stopping = true
	var live []*models.GridOrder
	for _, o := range e.orders {
		if o.GridID == gridID && !o.Status.IsTerminal() {
			live = append(live, o)
		}
	}
	cycleID := g.cycleID
	invested := g.totalInvested
	e.mu.Unlock()

	cancelled := 0
	failed := 0
	for _, o := range live {
		if o.Status == models.OrderPending || o.ExchangeOrderID == "" {
			// placeholder, nothing resting on the exchange
			e.mu.Lock()
			if o.Status != models.OrderCancelled {
				o.Status = models.OrderCancelled
				cancelled++
			}
			e.mu.Unlock()
			continue
		}
		if err := e.cancelWithRetry(ctx, o.ExchangeOrderID, o.Symbol); err != nil {
			failed++
			logger.S().Errorw("Failed to cancel order while stopping grid",
				"grid_id", gridID, "order_id", o.ID, "error", err)
			continue
		}
		e.mu.Lock()
		o.Status = models.OrderCancelled
		cancelled++
		e.mu.Unlock()
	}

	if failed > 0 {
		return models.StopResult{OrdersCancelled: cancelled},
			fmt.Errorf("grid %s: %d orders could not be cancelled", gridID, failed)
	}

	e.cycles.CompleteCycle(cycleID)

	e.mu.Lock()
	delete(e.grids, gridID)
	for id, o := range e.orders {
		if o.GridID == gridID {
			delete(e.orders, id)
		}
	}
	e.mu.Unlock()

	logger.S().Infow("Grid stopped",
		"grid_id", gridID, "orders_cancelled", cancelled, "capital_released", invested)
	return models.StopResult{
		GridsStopped:    1,
		OrdersCancelled: cancelled,
		CapitalReleased: invested,
	}, nil
}

// StopAllGrids stops every active grid. Grids whose cancellations fail
// stay active and are reported in the log; the returned totals cover
// what actually stopped.
func (e *Engine) StopAllGrids(ctx context.Context) models.StopResult {
	e.mu.RLock()
	ids := make([]string, 0, len(e.grids))
	for id := range e.grids {
		ids = append(ids, id)
	}
	e.mu.RUnlock()

	var total models.StopResult
	for _, id := range ids {
		result, err := e.StopGrid(ctx, id)
		total.OrdersCancelled += result.OrdersCancelled
		if err != nil {
			logger.S().Errorw("Grid left active after failed stop", "grid_id", id, "error", err)
			continue
		}
		total.GridsStopped += result.GridsStopped
		total.CapitalReleased += result.CapitalReleased
	}

	logger.S().Infow("Stopped grids",
		"grids_stopped", total.GridsStopped, "orders_cancelled", total.OrdersCancelled)
	return total
}

// RecordCompletedCycle feeds one finished profit cycle into the roadmap:
// the completed-cycle ledger, the phase tracker and the daily P&L.
func (e *Engine) RecordCompletedCycle(symbol string, profit, initialCapital float64) models.CycleRecordResult {
	roiPct := 0.0
	if initialCapital > 0 {
		roiPct = profit / initialCapital * 100
	}

	e.mu.Lock()
	now := time.Now()
	record := models.CompletedCycle{
		CycleID:        newID("cycle"),
		Symbol:         symbol,
		StartTime:      now.Add(-time.Hour),
		EndTime:        now,
		InitialCapital: initialCapital,
		FinalCapital:   initialCapital + profit,
		Profit:         profit,
		ROIPct:         roiPct,
		Phase:          e.phases.CurrentPhase(),
		CycleNumber:    len(e.completedCycles) + 1,
	}
	e.completedCycles = append(e.completedCycles, record)
	e.dailyPnL[now.Format(dailyPnLKeyLayout)] += profit
	e.mu.Unlock()

	e.phases.RecordCycle(profit, roiPct)

	logger.S().Infow("Cycle recorded",
		"symbol", symbol, "profit", profit, "roi_pct", roiPct, "phase", record.Phase)

	return models.CycleRecordResult{
		CycleID:     record.CycleID,
		Profit:      profit,
		ROIPct:      roiPct,
		Phase:       record.Phase,
		TotalCycles: record.CycleNumber,
	}
}

// GetActiveGridsStatus returns a snapshot of every active grid.
func (e *Engine) GetActiveGridsStatus() models.ActiveGridsStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	status := models.ActiveGridsStatus{
		TotalActiveGrids: len(e.grids),
		Grids:            make([]models.GridStatus, 0, len(e.grids)),
	}

	for id, g := range e.grids {
		active := e.activeOrderCount(id)
		status.TotalCapitalUsed += g.totalInvested
		status.TotalActiveOrders += active

		stats := models.GridStats{}
		if s := e.stats[id]; s != nil {
			stats = *s
			stats.ActiveOrders = active
		}
		status.Grids = append(status.Grids, models.GridStatus{
			GridID:        id,
			Config:        g.config,
			Stats:         stats,
			TotalInvested: g.totalInvested,
			RealizedPnL:   g.realizedPnL,
			CreatedAt:     g.createdAt,
			LastUpdate:    g.lastUpdate,
		})
	}

	sort.Slice(status.Grids, func(i, j int) bool {
		return status.Grids[i].GridID < status.Grids[j].GridID
	})
	return status
}

// GetLivePnLStatus assembles the live P&L payload: today's and the
// week's P&L, roadmap totals, current phase progress and the five most
// recent completed cycles.
func (e *Engine) GetLivePnLStatus() models.LivePnLStatus {
	e.mu.RLock()
	now := time.Now()
	todayPnL := e.dailyPnL[now.Format(dailyPnLKeyLayout)]
	weekPnL := 0.0
	for i := 0; i < 7; i++ {
		weekPnL += e.dailyPnL[now.AddDate(0, 0, -i).Format(dailyPnLKeyLayout)]
	}

	avgROI := 0.0
	if len(e.completedCycles) > 0 {
		for _, c := range e.completedCycles {
			avgROI += c.ROIPct
		}
		avgROI /= float64(len(e.completedCycles))
	}

	recent := make([]models.CompletedCycle, 0, 5)
	start := maxInt(0, len(e.completedCycles)-5)
	recent = append(recent, e.completedCycles[start:]...)
	e.mu.RUnlock()

	phaseStatus := e.phases.PhaseStatus()
	overview := e.phases.RoadmapOverview()

	return models.LivePnLStatus{
		PnL: models.LivePnL{
			TodayPnL:        todayPnL,
			WeekPnL:         weekPnL,
			TotalProfit:     overview.TotalProfit,
			TotalCycles:     overview.TotalCyclesCompleted,
			AvgROIPerCycle:  avgROI,
			CurrentCapital:  phaseStatus.CurrentCapital,
			StartingCapital: overview.StartingCapital,
		},
		PhaseProgress:      phaseStatus,
		CompletionEstimate: e.phases.EstimateCompletion(),
		RecentCycles:       recent,
	}
}

// GetPhaseRoadmapStatus returns the complete roadmap view.
func (e *Engine) GetPhaseRoadmapStatus() models.RoadmapStatus {
	e.mu.RLock()
	lastRebalance := e.lastRebalance
	autoCompound := e.autoCompound
	totalCompleted := len(e.completedCycles)
	e.mu.RUnlock()

	return models.RoadmapStatus{
		Overview:            e.phases.RoadmapOverview(),
		CurrentPhase:        e.phases.PhaseStatus(),
		CompletionEstimate:  e.phases.EstimateCompletion(),
		AutoCompoundEnabled: autoCompound,
		LastRebalanceTime:   lastRebalance,
		TotalCompleted:      totalCompleted,
	}
}

// GenerateGridVisualization builds the level-by-level snapshot for the
// symbol's active grid at the current market price.
func (e *Engine) GenerateGridVisualization(ctx context.Context, symbol string) (models.GridVisualization, error) {
	currentPrice, err := e.ex.GetTicker(ctx, symbol)
	if err != nil {
		return models.GridVisualization{}, fmt.Errorf("fetch price for %s: %w", symbol, err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	g := e.gridBySymbol(symbol)
	if g == nil {
		return models.GridVisualization{}, fmt.Errorf("no active grid for %s", symbol)
	}

	viz := models.GridVisualization{
		Symbol:       symbol,
		CurrentPrice: currentPrice,
		UpdatedAt:    time.Now(),
	}

	minPrice, maxPrice := math.Inf(1), math.Inf(-1)
	for _, level := range g.levels {
		if level.Price < minPrice {
			minPrice = level.Price
		}
		if level.Price > maxPrice {
			maxPrice = level.Price
		}
		for _, orderID := range []string{level.BuyOrderID, level.SellOrderID} {
			if orderID == "" {
				continue
			}
			order, ok := e.orders[orderID]
			if !ok {
				continue
			}
			viz.Levels = append(viz.Levels, visualizationLevel(level, order, currentPrice))

			capital := order.Quantity * order.Price
			viz.TotalCapital += capital
			if order.Status == models.OrderFilled {
				viz.FilledCapital += capital
			} else {
				viz.PendingCapital += capital
			}
			if order.Side == models.SideBuy {
				viz.BuyLevels++
			} else {
				viz.SellLevels++
			}
		}
	}
	viz.TotalLevels = len(viz.Levels)
	for _, l := range viz.Levels {
		if l.ProfitPotentialPct > 0 {
			viz.ProfitLevels++
		} else if l.ProfitPotentialPct < 0 {
			viz.LossLevels++
		}
	}
	if g.config.CenterPrice > 0 && viz.TotalLevels > 0 {
		viz.GridRangePct = (maxPrice - minPrice) / g.config.CenterPrice * 100
	}

	sort.Slice(viz.Levels, func(i, j int) bool {
		return viz.Levels[i].Price > viz.Levels[j].Price
	})
	return viz, nil
}

func visualizationLevel(level *models.GridLevel, order *models.GridOrder, currentPrice float64) models.VisualizationLevel {
	filledQty := 0.0
	fillPct := 0.0
	if order.Status == models.OrderFilled {
		filledQty = order.Quantity
		fillPct = 100
	}

	profitPotential := 0.0
	if order.Side == models.SideBuy && level.Price > 0 {
		profitPotential = (currentPrice - level.Price) / level.Price * 100
	} else if order.Side == models.SideSell && currentPrice > 0 {
		profitPotential = (order.Price - currentPrice) / currentPrice * 100
	}

	distance := 0.0
	if currentPrice > 0 {
		distance = math.Abs(currentPrice-order.Price) / currentPrice * 100
	}

	return models.VisualizationLevel{
		Level:                 level.Index,
		Price:                 order.Price,
		Side:                  order.Side,
		OrderID:               order.ID,
		Status:                order.Status,
		Quantity:              order.Quantity,
		FilledQuantity:        filledQty,
		FillPct:               fillPct,
		ProfitPotentialPct:    profitPotential,
		DistanceFromMarketPct: distance,
	}
}

// SnapshotState exports the persistent reporting ledgers. Live grids and
// their exchange orders are deliberately excluded; they are rebuilt on
// startup.
func (e *Engine) SnapshotState() *models.EngineState {
	e.mu.RLock()
	completed := make([]models.CompletedCycle, len(e.completedCycles))
	copy(completed, e.completedCycles)
	daily := make(map[string]float64, len(e.dailyPnL))
	for k, v := range e.dailyPnL {
		daily[k] = v
	}
	totalProfit := e.totalProfit
	totalCycles := e.totalCycles
	e.mu.RUnlock()

	return &models.EngineState{
		Version:         1,
		StartingCapital: e.cfg.StartingCapital,
		TotalProfit:     totalProfit,
		TotalCycles:     totalCycles,
		CompletedCycles: completed,
		DailyPnL:        daily,
		Roadmap:         e.phases.Snapshot(),
		LastUpdateTime:  time.Now(),
	}
}

// RestoreState loads a previously persisted snapshot into the engine's
// reporting ledgers.
func (e *Engine) RestoreState(state *models.EngineState) {
	if state == nil {
		return
	}

	e.mu.Lock()
	e.completedCycles = append([]models.CompletedCycle(nil), state.CompletedCycles...)
	e.dailyPnL = make(map[string]float64, len(state.DailyPnL))
	for k, v := range state.DailyPnL {
		e.dailyPnL[k] = v
	}
	e.totalProfit = state.TotalProfit
	e.totalCycles = state.TotalCycles
	e.mu.Unlock()

	e.phases.Restore(state.Roadmap)
	logger.S().Infow("Engine state restored",
		"completed_cycles", len(state.CompletedCycles),
		"total_profit", state.TotalProfit)
}
