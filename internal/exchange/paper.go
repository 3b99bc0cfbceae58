package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

// PaperExchange is an in-memory Exchange used for paper trading and tests.
// Prices and candle history are fed in by the caller; orders rest on the
// book until cancelled. Fill detection is the engine's job, so a resting
// order never transitions on its own.
type PaperExchange struct {
	mu         sync.Mutex
	prices     map[string]float64
	candles    map[string][]models.Candle
	openOrders map[string]*PaperOrder
	balances   map[string]models.Balance
	nextID     int64

	// Failure injection for tests. PlaceErr fails PlaceOrder after
	// FailAfterPlaced successful placements; CancelErr fails every cancel.
	PlaceErr        error
	FailAfterPlaced int
	CancelErr       error

	// Test hooks, invoked at the start of the call outside the book lock
	// so a test can hold an operation open. Set before any concurrent use.
	PlaceHook  func()
	TickerHook func()

	placedCount    int
	cancelledCount int
}

// PaperOrder is one resting order on the paper book.
type PaperOrder struct {
	ID       string
	Symbol   string
	Side     models.OrderSide
	Type     string
	Quantity float64
	Price    float64
}

// NewPaperExchange creates an empty paper exchange.
func NewPaperExchange() *PaperExchange {
	return &PaperExchange{
		prices:     make(map[string]float64),
		candles:    make(map[string][]models.Candle),
		openOrders: make(map[string]*PaperOrder),
		balances:   make(map[string]models.Balance),
		nextID:     1,
	}
}

func (e *PaperExchange) Name() string { return "paper" }

// SetPrice sets the current ticker price for a symbol.
func (e *PaperExchange) SetPrice(symbol string, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prices[symbol] = price
}

// SetCandles installs the candle history returned by GetCandles.
func (e *PaperExchange) SetCandles(symbol string, candles []models.Candle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.candles[symbol] = candles
}

// SetBalance sets one asset balance.
func (e *PaperExchange) SetBalance(asset string, free, used float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balances[asset] = models.Balance{Asset: asset, Free: free, Used: used, Total: free + used}
}

func (e *PaperExchange) GetTicker(_ context.Context, symbol string) (float64, error) {
	if e.TickerHook != nil {
		e.TickerHook()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	price, ok := e.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no price set for %s", symbol)
	}
	return price, nil
}

func (e *PaperExchange) GetCandles(_ context.Context, symbol, _ string, limit int) ([]models.Candle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	candles := e.candles[symbol]
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	out := make([]models.Candle, len(candles))
	copy(out, candles)
	return out, nil
}

func (e *PaperExchange) PlaceOrder(_ context.Context, symbol string, side models.OrderSide, orderType string, quantity, price float64) (string, error) {
	if e.PlaceHook != nil {
		e.PlaceHook()
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.PlaceErr != nil && e.placedCount >= e.FailAfterPlaced {
		return "", e.PlaceErr
	}

	if quantity <= 0 || (orderType == TypeLimit && price <= 0) {
		return "", fmt.Errorf("%w: qty=%f price=%f", ErrInvalidOrder, quantity, price)
	}

	id := fmt.Sprintf("paper-%d", e.nextID)
	e.nextID++
	e.openOrders[id] = &PaperOrder{
		ID:       id,
		Symbol:   symbol,
		Side:     side,
		Type:     orderType,
		Quantity: quantity,
		Price:    price,
	}
	e.placedCount++
	return id, nil
}

func (e *PaperExchange) CancelOrder(_ context.Context, orderID, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.CancelErr != nil {
		return e.CancelErr
	}
	if _, ok := e.openOrders[orderID]; !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	delete(e.openOrders, orderID)
	e.cancelledCount++
	return nil
}

func (e *PaperExchange) GetBalances(_ context.Context) (map[string]models.Balance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]models.Balance, len(e.balances))
	for k, v := range e.balances {
		out[k] = v
	}
	return out, nil
}

// OpenOrders returns a copy of the resting order book.
func (e *PaperExchange) OpenOrders() []PaperOrder {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]PaperOrder, 0, len(e.openOrders))
	for _, o := range e.openOrders {
		out = append(out, *o)
	}
	return out
}

// PlacedCount returns how many orders have been accepted.
func (e *PaperExchange) PlacedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placedCount
}

// CancelledCount returns how many orders have been cancelled.
func (e *PaperExchange) CancelledCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelledCount
}
