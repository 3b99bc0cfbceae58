package engine

import (
	"sync"
	"time"

	"github.com/raxxex/arbtronx-live-trading/internal/cycles"
	"github.com/raxxex/arbtronx-live-trading/internal/exchange"
	"github.com/raxxex/arbtronx-live-trading/internal/models"
	"github.com/raxxex/arbtronx-live-trading/internal/phases"
	"github.com/raxxex/arbtronx-live-trading/internal/volatility"
)

// grid is the engine-internal state of one active grid. Levels hold order
// ids only; the orders themselves live in the engine's arena map.
type grid struct {
	id            string
	config        models.GridConfiguration
	levels        []*models.GridLevel
	cycleID       string
	totalInvested float64
	realizedPnL   float64
	createdAt     time.Time
	lastUpdate    time.Time
	// stopping is set the moment a stop begins; the monitor skips the
	// grid from then on so no new orders race the teardown.
	stopping bool
}

// Engine owns every active grid and drives the monitoring loop. Grid and
// order state is mutated only with e.mu held; the reporting operations
// read snapshots and never hand out live pointers.
type Engine struct {
	cfg       *models.Config
	ex        exchange.Exchange
	rangeCalc *volatility.RangeCalculator
	cycles    *cycles.Tracker
	phases    *phases.Tracker

	mu                sync.RWMutex
	grids             map[string]*grid
	pending           map[string]struct{} // symbols with a grid creation in flight
	orders            map[string]*models.GridOrder
	stats             map[string]*models.GridStats
	completedCycles   []models.CompletedCycle
	dailyPnL          map[string]float64
	totalProfit       float64
	totalCycles       int
	totalGridsCreated int
	autoCompound      bool
	lastRebalance     time.Time

	runMu   sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// New constructs an Engine. The volatility analyzer and range calculator
// are built over the same exchange the engine trades on.
func New(cfg *models.Config, ex exchange.Exchange) *Engine {
	analyzer := volatility.NewAnalyzer(ex, cfg.VolatilityRefresh())
	return &Engine{
		cfg:           cfg,
		ex:            ex,
		rangeCalc:     volatility.NewRangeCalculator(analyzer),
		cycles:        cycles.NewTracker(),
		phases:        phases.NewTracker(cfg.StartingCapital),
		grids:         make(map[string]*grid),
		pending:       make(map[string]struct{}),
		orders:        make(map[string]*models.GridOrder),
		stats:         make(map[string]*models.GridStats),
		dailyPnL:      make(map[string]float64),
		autoCompound:  true,
		lastRebalance: time.Now(),
	}
}

// Cycles exposes the cycle tracker for read-only reporting.
func (e *Engine) Cycles() *cycles.Tracker { return e.cycles }

// Phases exposes the phase tracker for read-only reporting.
func (e *Engine) Phases() *phases.Tracker { return e.phases }

// SetAutoCompound toggles auto-compounding. This is the only sanctioned
// way for callers to flip the flag.
func (e *Engine) SetAutoCompound(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoCompound = enabled
}

// AutoCompoundEnabled reports the current auto-compound setting.
func (e *Engine) AutoCompoundEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.autoCompound
}

// gridBySymbol returns the first active grid trading the symbol. Caller
// must hold e.mu.
func (e *Engine) gridBySymbol(symbol string) *grid {
	for _, g := range e.grids {
		if g.config.Symbol == symbol {
			return g
		}
	}
	return nil
}

// activeOrderCount counts ACTIVE orders belonging to a grid. Caller must
// hold e.mu.
func (e *Engine) activeOrderCount(gridID string) int {
	n := 0
	for _, o := range e.orders {
		if o.GridID == gridID && o.Status == models.OrderActive {
			n++
		}
	}
	return n
}
