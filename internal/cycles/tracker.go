package cycles

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/raxxex/arbtronx-live-trading/internal/logger"
	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

// Tracker records per-symbol trading cycles and recomputes aggregate
// performance analytics whenever a cycle completes. All methods are safe
// for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	active    map[string]*models.CycleMetrics
	completed map[string][]models.CycleMetrics
	analytics map[string]models.PerformanceAnalytics
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		active:    make(map[string]*models.CycleMetrics),
		completed: make(map[string][]models.CycleMetrics),
		analytics: make(map[string]models.PerformanceAnalytics),
	}
}

// StartCycle begins tracking a new cycle and returns its id.
func (t *Tracker) StartCycle(symbol string, startingCapital, gridSpacing float64, regime models.VolatilityRegime) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	cycleID := fmt.Sprintf("%s_%d", symbol, time.Now().UnixNano())
	t.active[cycleID] = &models.CycleMetrics{
		CycleID:          cycleID,
		Symbol:           symbol,
		StartTime:        time.Now(),
		StartingCapital:  startingCapital,
		PeakCapital:      startingCapital,
		FinalCapital:     startingCapital,
		VolatilityRegime: regime,
		GridSpacingUsed:  gridSpacing,
	}

	logger.S().Infow("Started cycle tracking", "symbol", symbol, "cycle_id", cycleID)
	return cycleID
}

// UpdateCycle refreshes an active cycle with the latest capital and trade
// count. Drawdown is maintained as the running peak-to-current gap, so it
// captures intra-cycle dips even when the cycle ends at a new peak.
func (t *Tracker) UpdateCycle(cycleID string, currentCapital float64, tradeCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cycle, ok := t.active[cycleID]
	if !ok {
		return
	}

	cycle.FinalCapital = currentCapital
	if currentCapital > cycle.PeakCapital {
		cycle.PeakCapital = currentCapital
	}
	if cycle.StartingCapital > 0 {
		cycle.ROIPct = (currentCapital - cycle.StartingCapital) / cycle.StartingCapital * 100
	}
	if cycle.PeakCapital > cycle.StartingCapital {
		drawdown := (cycle.PeakCapital - currentCapital) / cycle.PeakCapital * 100
		if drawdown > cycle.MaxDrawdownPct {
			cycle.MaxDrawdownPct = drawdown
		}
	}
	cycle.TotalTrades = tradeCount
	cycle.ProfitUSD = currentCapital - cycle.StartingCapital
}

// CompleteCycle seals an active cycle, moves it to the completed set and
// recomputes the symbol's analytics. Returns false if the id is unknown.
func (t *Tracker) CompleteCycle(cycleID string) (models.CycleMetrics, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cycle, ok := t.active[cycleID]
	if !ok {
		return models.CycleMetrics{}, false
	}

	cycle.EndTime = time.Now()
	cycle.DurationHours = cycle.EndTime.Sub(cycle.StartTime).Hours()
	cycle.IsComplete = true

	t.completed[cycle.Symbol] = append(t.completed[cycle.Symbol], *cycle)
	delete(t.active, cycleID)

	t.recomputeAnalytics(cycle.Symbol)

	logger.S().Infow("Completed cycle",
		"cycle_id", cycleID,
		"roi_pct", cycle.ROIPct,
		"duration_hours", cycle.DurationHours)
	return *cycle, true
}

// Analytics returns the latest aggregate for a symbol.
func (t *Tracker) Analytics(symbol string) (models.PerformanceAnalytics, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.analytics[symbol]
	return a, ok
}

// CompletedCycles returns a copy of the completed cycles for a symbol,
// oldest first.
func (t *Tracker) CompletedCycles(symbol string) []models.CycleMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.CycleMetrics, len(t.completed[symbol]))
	copy(out, t.completed[symbol])
	return out
}

// ActiveCycle returns the current state of an active cycle.
func (t *Tracker) ActiveCycle(cycleID string) (models.CycleMetrics, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.active[cycleID]
	if !ok {
		return models.CycleMetrics{}, false
	}
	return *c, true
}

// Symbols returns every symbol with at least one completed cycle.
func (t *Tracker) Symbols() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.completed))
	for s := range t.completed {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// recomputeAnalytics rebuilds the full aggregate from every completed
// cycle of the symbol. Caller must hold t.mu.
func (t *Tracker) recomputeAnalytics(symbol string) {
	completed := t.completed[symbol]
	if len(completed) == 0 {
		return
	}

	activeForSymbol := 0
	for _, c := range t.active {
		if c.Symbol == symbol {
			activeForSymbol++
		}
	}

	rois := make([]float64, 0, len(completed))
	profits := make([]float64, 0, len(completed))
	durations := make([]float64, 0, len(completed))
	maxDrawdown := 0.0
	for _, c := range completed {
		rois = append(rois, c.ROIPct)
		profits = append(profits, c.ProfitUSD)
		if c.DurationHours > 0 {
			durations = append(durations, c.DurationHours)
		}
		if c.MaxDrawdownPct > maxDrawdown {
			maxDrawdown = c.MaxDrawdownPct
		}
	}

	avgROI := mean(rois)
	roiStd := stdDev(rois)

	sharpe := 0.0
	if len(rois) > 1 && roiStd > 0 {
		sharpe = avgROI / roiStd
	}

	var negatives []float64
	for _, r := range rois {
		if r < 0 {
			negatives = append(negatives, r)
		}
	}
	sortino := sharpe
	if len(negatives) > 1 {
		if downside := stdDev(negatives); downside != 0 {
			sortino = avgROI / math.Abs(downside)
		} else {
			sortino = 0
		}
	}

	wins := 0
	grossProfit, grossLoss := 0.0, 0.0
	for i, r := range rois {
		if r > 0 {
			wins++
		}
		if profits[i] > 0 {
			grossProfit += profits[i]
		} else if profits[i] < 0 {
			grossLoss += -profits[i]
		}
	}
	profitFactor := math.Inf(1)
	if grossLoss > 0 {
		profitFactor = grossProfit / grossLoss
	}

	consistency := 100.0
	if roiStd > 0 {
		consistency = math.Abs(avgROI) / roiStd
	}

	t.analytics[symbol] = models.PerformanceAnalytics{
		Symbol:             symbol,
		TotalCycles:        len(completed) + activeForSymbol,
		CompletedCycles:    len(completed),
		AvgCycleDuration:   mean(durations),
		AvgROIPerCycle:     avgROI,
		BestCycleROI:       maxOf(rois),
		WorstCycleROI:      minOf(rois),
		TotalProfit:        sum(profits),
		MaxDrawdownPct:     maxDrawdown,
		SharpeRatio:        sharpe,
		SortinoRatio:       sortino,
		WinRate:            float64(wins) / float64(len(rois)) * 100,
		ProfitFactor:       profitFactor,
		Volatility:         roiStd,
		ConsistencyScore:   consistency,
		RiskAdjustedReturn: avgROI / math.Max(maxDrawdown, 1),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

func sum(values []float64) float64 {
	s := 0.0
	for _, v := range values {
		s += v
	}
	return s
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
