package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"github.com/raxxex/arbtronx-live-trading/internal/exchange"
	"github.com/raxxex/arbtronx-live-trading/internal/logger"
	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

const centerDeviationThresholdPct = 5.0

// Start launches the monitoring loop. Calling Start on a running engine
// is a no-op.
func (e *Engine) Start() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.wg.Add(1)
	go e.run()
	logger.S().Infow("Grid monitor started", "poll_interval", e.cfg.PollInterval())
}

// Stop halts the monitoring loop and waits for the in-flight tick to
// finish. Active grids keep their orders; call StopAllGrids to unwind
// them.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if !e.running {
		return
	}
	close(e.stopCh)
	e.wg.Wait()
	e.running = false
	logger.S().Info("Grid monitor stopped")
}

func (e *Engine) run() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick runs one monitoring pass: prices for every active grid are fetched
// concurrently, then each grid's fills are processed sequentially so
// order-state mutation stays single-writer.
func (e *Engine) tick() {
	e.mu.RLock()
	type gridRef struct {
		id     string
		symbol string
	}
	refs := make([]gridRef, 0, len(e.grids))
	for id, g := range e.grids {
		if g.stopping {
			continue
		}
		refs = append(refs, gridRef{id: id, symbol: g.config.Symbol})
	}
	e.mu.RUnlock()

	if len(refs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.RequestTimeout())
	defer cancel()

	prices := make([]float64, len(refs))
	errs := make([]error, len(refs))
	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			prices[i], errs[i] = e.ex.GetTicker(ctx, symbol)
		}(i, ref.symbol)
	}
	wg.Wait()

	for i, ref := range refs {
		if errs[i] != nil {
			logger.S().Warnw("Price fetch failed, skipping grid this tick",
				"grid_id", ref.id, "symbol", ref.symbol, "error", errs[i])
			continue
		}
		e.processGrid(ctx, ref.id, prices[i])
	}
}

// processGrid detects fills for one grid at the given price. Buy fills
// are handled before sell fills so a level is never closed and reopened
// out of order within one tick.
func (e *Engine) processGrid(ctx context.Context, gridID string, currentPrice float64) {
	e.mu.RLock()
	g, ok := e.grids[gridID]
	if !ok || g.stopping {
		e.mu.RUnlock()
		return
	}
	config := g.config
	var buyFills, sellFills []string
	for _, o := range e.orders {
		if o.GridID != gridID || o.Status != models.OrderActive {
			continue
		}
		switch o.Side {
		case models.SideBuy:
			if currentPrice <= o.Price {
				buyFills = append(buyFills, o.ID)
			}
		case models.SideSell:
			if currentPrice >= o.Price {
				sellFills = append(sellFills, o.ID)
			}
		}
	}
	e.mu.RUnlock()

	for _, orderID := range buyFills {
		e.handleBuyFill(ctx, gridID, orderID, currentPrice)
	}
	for _, orderID := range sellFills {
		e.handleSellFill(ctx, gridID, orderID, currentPrice)
	}

	if config.CenterPrice > 0 {
		deviation := math.Abs(currentPrice-config.CenterPrice) / config.CenterPrice * 100
		if deviation > centerDeviationThresholdPct {
			logger.S().Warnw("Price deviated from grid center",
				"grid_id", gridID,
				"symbol", config.Symbol,
				"center_price", config.CenterPrice,
				"current_price", currentPrice,
				"deviation_pct", deviation)
		}
	}

	e.mu.Lock()
	if g, ok := e.grids[gridID]; ok {
		g.lastUpdate = time.Now()
	}
	e.mu.Unlock()
}

// handleBuyFill marks a filled buy and submits the profit sell at the
// same level. The sell is tagged with its expected profit so completion
// can credit it without recomputing.
func (e *Engine) handleBuyFill(ctx context.Context, gridID, orderID string, fillPrice float64) {
	e.mu.Lock()
	g, gok := e.grids[gridID]
	order, ook := e.orders[orderID]
	if !gok || g.stopping || !ook || order.Status != models.OrderActive {
		e.mu.Unlock()
		return
	}
	order.Status = models.OrderFilled
	order.FilledAt = time.Now()
	order.FilledPrice = fillPrice

	level := levelByIndex(g.levels, order.Level)
	// one live sell per level
	if level != nil && level.SellOrderID != "" {
		if existing, ok := e.orders[level.SellOrderID]; ok && existing.Status == models.OrderActive {
			e.mu.Unlock()
			logger.S().Warnw("Level already has a live sell, skipping profit sell",
				"grid_id", gridID, "level", order.Level)
			return
		}
	}
	config := g.config
	e.mu.Unlock()

	logger.S().Infow("Buy order filled",
		"grid_id", gridID, "order_id", orderID, "fill_price", fillPrice, "level", order.Level)

	sellPrice := fillPrice * (1 + config.ProfitTargetPct/100)
	sell := &models.GridOrder{
		ID:             newID("sell"),
		GridID:         gridID,
		Symbol:         config.Symbol,
		Side:           models.SideSell,
		Price:          sellPrice,
		Quantity:       order.Quantity,
		Level:          order.Level,
		Status:         models.OrderPending,
		Exchange:       config.Exchange,
		CreatedAt:      time.Now(),
		ExpectedProfit: (sellPrice - fillPrice) * order.Quantity,
	}

	exchangeOrderID, err := e.submitWithRetry(ctx, config.Symbol, models.SideSell, sell.Quantity, sellPrice)
	if err != nil {
		sell.Status = models.OrderFailed
		logger.S().Errorw("Failed to place profit sell order",
			"grid_id", gridID, "level", order.Level, "error", err)
	} else {
		sell.Status = models.OrderActive
		sell.ExchangeOrderID = exchangeOrderID
		logger.S().Infow("Profit sell order placed",
			"grid_id", gridID,
			"level", order.Level,
			"buy_price", fillPrice,
			"sell_price", sellPrice,
			"expected_profit", sell.ExpectedProfit)
	}

	e.mu.Lock()
	if current, alive := e.grids[gridID]; !alive || current.stopping {
		// the grid was stopped while the sell was in flight; unwind it
		// instead of leaving an ownerless order on the exchange
		e.mu.Unlock()
		e.unwindStrayOrder(ctx, sell)
		return
	}
	e.orders[sell.ID] = sell
	if level := levelByIndex(g.levels, order.Level); level != nil && sell.Status == models.OrderActive {
		level.SellOrderID = sell.ID
	}
	e.mu.Unlock()
}

// unwindStrayOrder cancels an order that was placed for a grid which was
// stopped while the placement was in flight.
func (e *Engine) unwindStrayOrder(ctx context.Context, order *models.GridOrder) {
	if order.Status != models.OrderActive {
		return
	}
	if err := e.cancelWithRetry(ctx, order.ExchangeOrderID, order.Symbol); err != nil {
		logger.S().Errorw("Failed to cancel stray order for stopped grid",
			"grid_id", order.GridID, "order_id", order.ID, "error", err)
		return
	}
	order.Status = models.OrderCancelled
	logger.S().Infow("Cancelled stray order for stopped grid",
		"grid_id", order.GridID, "order_id", order.ID)
}

// handleSellFill completes a profit cycle: credit the tagged profit,
// bump stats, re-arm the level with a fresh buy, and feed the roadmap.
func (e *Engine) handleSellFill(ctx context.Context, gridID, orderID string, fillPrice float64) {
	e.mu.Lock()
	g, gok := e.grids[gridID]
	order, ook := e.orders[orderID]
	if !gok || g.stopping || !ook || order.Status != models.OrderActive {
		e.mu.Unlock()
		return
	}
	order.Status = models.OrderFilled
	order.FilledAt = time.Now()
	order.FilledPrice = fillPrice

	profit := order.ExpectedProfit
	g.realizedPnL += profit
	e.totalProfit += profit
	e.totalCycles++

	stats := e.stats[gridID]
	if stats != nil {
		stats.TotalCycles++
		stats.TotalProfit += profit
		if profit > 0 {
			stats.ProfitableCycles++
		}
		stats.WinRate = float64(stats.ProfitableCycles) / float64(stats.TotalCycles) * 100
		stats.LastCycleAt = time.Now()
	}

	config := g.config
	cycleID := g.cycleID
	invested := g.totalInvested
	realized := g.realizedPnL
	trades := 0
	if stats != nil {
		trades = stats.TotalCycles * 2
	}
	e.mu.Unlock()

	logger.S().Infow("Profit cycle completed",
		"grid_id", gridID,
		"order_id", orderID,
		"level", order.Level,
		"profit", profit)

	e.cycles.UpdateCycle(cycleID, invested+realized, trades)
	e.RecordCompletedCycle(config.Symbol, profit, config.OrderSizeUSD)

	// re-arm the level with a replacement buy at the original ladder price
	e.mu.RLock()
	level := levelByIndex(g.levels, order.Level)
	var levelPrice float64
	rearm := false
	if level != nil {
		prior, exists := e.orders[level.BuyOrderID]
		if level.BuyOrderID == "" || !exists || prior.Status.IsTerminal() {
			levelPrice = level.Price
			rearm = true
		}
	}
	e.mu.RUnlock()
	if !rearm {
		return
	}

	buy := &models.GridOrder{
		ID:        newID("buy"),
		GridID:    gridID,
		Symbol:    config.Symbol,
		Side:      models.SideBuy,
		Price:     levelPrice,
		Quantity:  order.Quantity,
		Level:     order.Level,
		Status:    models.OrderPending,
		Exchange:  config.Exchange,
		CreatedAt: time.Now(),
	}

	exchangeOrderID, err := e.submitWithRetry(ctx, config.Symbol, models.SideBuy, buy.Quantity, levelPrice)
	if err != nil {
		buy.Status = models.OrderFailed
		logger.S().Errorw("Failed to place replacement buy order",
			"grid_id", gridID, "level", order.Level, "error", err)
	} else {
		buy.Status = models.OrderActive
		buy.ExchangeOrderID = exchangeOrderID
		logger.S().Infow("Replacement buy order placed",
			"grid_id", gridID, "level", order.Level, "price", levelPrice)
	}

	e.mu.Lock()
	if current, alive := e.grids[gridID]; !alive || current.stopping {
		e.mu.Unlock()
		e.unwindStrayOrder(ctx, buy)
		return
	}
	e.orders[buy.ID] = buy
	if level := levelByIndex(g.levels, order.Level); level != nil && buy.Status == models.OrderActive {
		level.BuyOrderID = buy.ID
	}
	e.mu.Unlock()
}

// submitWithRetry places a limit order, retrying transient failures with
// exponential backoff. Permanent rejections surface immediately.
func (e *Engine) submitWithRetry(ctx context.Context, symbol string, side models.OrderSide, quantity, price float64) (string, error) {
	b := &backoff.Backoff{
		Min:    time.Duration(e.retryInitialDelayMs()) * time.Millisecond,
		Max:    time.Duration(e.retryMaxDelayMs()) * time.Millisecond,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt < e.retryAttempts(); attempt++ {
		id, err := e.ex.PlaceOrder(ctx, symbol, side, exchange.TypeLimit, quantity, price)
		if err == nil {
			return id, nil
		}
		if exchange.IsPermanent(err) {
			return "", err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
	return "", lastErr
}

// cancelWithRetry cancels an exchange order with the same backoff policy.
// An already-gone order counts as success.
func (e *Engine) cancelWithRetry(ctx context.Context, exchangeOrderID, symbol string) error {
	b := &backoff.Backoff{
		Min:    time.Duration(e.retryInitialDelayMs()) * time.Millisecond,
		Max:    time.Duration(e.retryMaxDelayMs()) * time.Millisecond,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt < e.retryAttempts(); attempt++ {
		err := e.ex.CancelOrder(ctx, exchangeOrderID, symbol)
		if err == nil || errors.Is(err, exchange.ErrOrderNotFound) {
			return nil
		}
		if exchange.IsPermanent(err) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
	return lastErr
}

func (e *Engine) retryAttempts() int {
	if e.cfg.RetryAttempts <= 0 {
		return 3
	}
	return e.cfg.RetryAttempts
}

func (e *Engine) retryInitialDelayMs() int {
	if e.cfg.RetryInitialDelayMs <= 0 {
		return 500
	}
	return e.cfg.RetryInitialDelayMs
}

func (e *Engine) retryMaxDelayMs() int {
	if e.cfg.RetryMaxDelayMs <= 0 {
		return 8000
	}
	return e.cfg.RetryMaxDelayMs
}

func levelByIndex(levels []*models.GridLevel, index int) *models.GridLevel {
	for _, l := range levels {
		if l.Index == index {
			return l
		}
	}
	return nil
}
