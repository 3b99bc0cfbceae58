package cycles

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

func TestStartCycleInitialState(t *testing.T) {
	tr := NewTracker()
	id := tr.StartCycle("BTC/USDT", 500, 0.5, models.RegimeMedium)

	cycle, ok := tr.ActiveCycle(id)
	require.True(t, ok)
	assert.Equal(t, "BTC/USDT", cycle.Symbol)
	assert.Equal(t, 500.0, cycle.StartingCapital)
	assert.Equal(t, 500.0, cycle.PeakCapital)
	assert.Equal(t, 500.0, cycle.FinalCapital)
	assert.Equal(t, models.RegimeMedium, cycle.VolatilityRegime)
	assert.False(t, cycle.IsComplete)
}

func TestUpdateCycleTracksRunningDrawdown(t *testing.T) {
	tr := NewTracker()
	id := tr.StartCycle("BTC/USDT", 1000, 0.5, models.RegimeMedium)

	// Rally to a peak, dip, then recover past the peak. The dip must
	// remain visible in max drawdown after recovery.
	tr.UpdateCycle(id, 1100, 2)
	tr.UpdateCycle(id, 990, 4)
	tr.UpdateCycle(id, 1200, 6)

	cycle, ok := tr.ActiveCycle(id)
	require.True(t, ok)
	assert.Equal(t, 1200.0, cycle.PeakCapital)
	assert.Equal(t, 1200.0, cycle.FinalCapital)
	assert.InDelta(t, 20.0, cycle.ROIPct, 1e-9)
	assert.InDelta(t, (1100.0-990.0)/1100.0*100, cycle.MaxDrawdownPct, 1e-9)
	assert.Equal(t, 6, cycle.TotalTrades)
}

func TestUpdateCycleUnknownIDIsNoop(t *testing.T) {
	tr := NewTracker()
	tr.UpdateCycle("missing", 100, 1)
	_, ok := tr.ActiveCycle("missing")
	assert.False(t, ok)
}

func TestCompleteCycleSealsAndMoves(t *testing.T) {
	tr := NewTracker()
	id := tr.StartCycle("ETH/USDT", 200, 0.8, models.RegimeHigh)
	tr.UpdateCycle(id, 250, 3)

	cycle, ok := tr.CompleteCycle(id)
	require.True(t, ok)
	assert.True(t, cycle.IsComplete)
	assert.False(t, cycle.EndTime.IsZero())
	assert.InDelta(t, 25.0, cycle.ROIPct, 1e-9)

	_, stillActive := tr.ActiveCycle(id)
	assert.False(t, stillActive)
	assert.Len(t, tr.CompletedCycles("ETH/USDT"), 1)

	_, again := tr.CompleteCycle(id)
	assert.False(t, again, "completing twice must fail the second time")
}

func completeWithROI(t *testing.T, tr *Tracker, symbol string, starting, final float64) {
	t.Helper()
	id := tr.StartCycle(symbol, starting, 0.5, models.RegimeMedium)
	tr.UpdateCycle(id, final, 1)
	_, ok := tr.CompleteCycle(id)
	require.True(t, ok)
}

func TestAnalyticsAllWinners(t *testing.T) {
	tr := NewTracker()
	completeWithROI(t, tr, "BTC/USDT", 100, 110) // +10%
	completeWithROI(t, tr, "BTC/USDT", 100, 120) // +20%

	a, ok := tr.Analytics("BTC/USDT")
	require.True(t, ok)
	assert.Equal(t, 2, a.CompletedCycles)
	assert.InDelta(t, 15.0, a.AvgROIPerCycle, 1e-9)
	assert.InDelta(t, 20.0, a.BestCycleROI, 1e-9)
	assert.InDelta(t, 10.0, a.WorstCycleROI, 1e-9)
	assert.InDelta(t, 30.0, a.TotalProfit, 1e-9)
	assert.Equal(t, 100.0, a.WinRate)
	assert.True(t, math.IsInf(a.ProfitFactor, 1), "no losses means infinite profit factor")
	// stdev of {10,20} is 7.0710..., sharpe = 15/7.071 ≈ 2.1213
	assert.InDelta(t, 15.0/math.Sqrt(50), a.SharpeRatio, 1e-9)
	// fewer than two losers: sortino falls back to sharpe
	assert.Equal(t, a.SharpeRatio, a.SortinoRatio)
}

func TestAnalyticsMixedOutcomes(t *testing.T) {
	tr := NewTracker()
	completeWithROI(t, tr, "BTC/USDT", 100, 120) // +20, +20%
	completeWithROI(t, tr, "BTC/USDT", 100, 95)  // -5, -5%
	completeWithROI(t, tr, "BTC/USDT", 100, 90)  // -10, -10%

	a, ok := tr.Analytics("BTC/USDT")
	require.True(t, ok)
	assert.InDelta(t, 5.0, a.TotalProfit, 1e-9)
	assert.InDelta(t, 100.0/3, a.WinRate, 1e-9)
	assert.InDelta(t, 20.0/15.0, a.ProfitFactor, 1e-9)
	// two losers: sortino uses downside deviation, not sharpe
	assert.NotEqual(t, a.SharpeRatio, a.SortinoRatio)
	downside := math.Sqrt(math.Pow(-5-(-7.5), 2) + math.Pow(-10-(-7.5), 2))
	assert.InDelta(t, a.AvgROIPerCycle/downside, a.SortinoRatio, 1e-9)
}

func TestAnalyticsIdenticalCyclesConsistency(t *testing.T) {
	tr := NewTracker()
	completeWithROI(t, tr, "BTC/USDT", 100, 110)
	completeWithROI(t, tr, "BTC/USDT", 100, 110)

	a, ok := tr.Analytics("BTC/USDT")
	require.True(t, ok)
	assert.Equal(t, 0.0, a.Volatility)
	assert.Equal(t, 100.0, a.ConsistencyScore, "zero spread means maximum consistency")
	assert.Equal(t, 0.0, a.SharpeRatio)
}

func TestAnalyticsRiskAdjustedReturnFloorsDrawdown(t *testing.T) {
	tr := NewTracker()
	completeWithROI(t, tr, "BTC/USDT", 100, 110)
	completeWithROI(t, tr, "BTC/USDT", 100, 112)

	a, ok := tr.Analytics("BTC/USDT")
	require.True(t, ok)
	// no drawdown recorded: denominator floors at 1
	assert.InDelta(t, a.AvgROIPerCycle, a.RiskAdjustedReturn, 1e-9)
}

func TestAnalyticsCountsActiveCycles(t *testing.T) {
	tr := NewTracker()
	completeWithROI(t, tr, "BTC/USDT", 100, 105)
	tr.StartCycle("BTC/USDT", 100, 0.5, models.RegimeLow)

	// analytics snapshot is from the completion, before the new start
	a, ok := tr.Analytics("BTC/USDT")
	require.True(t, ok)
	assert.Equal(t, 1, a.CompletedCycles)

	completeWithROI(t, tr, "ETH/USDT", 100, 101)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, tr.Symbols())
}

func TestAnalyticsRecomputeIdempotent(t *testing.T) {
	tr := NewTracker()
	completeWithROI(t, tr, "BTC/USDT", 100, 110)
	completeWithROI(t, tr, "BTC/USDT", 100, 90)

	first, ok := tr.Analytics("BTC/USDT")
	require.True(t, ok)

	// recomputing over the unchanged completed set changes nothing
	tr.mu.Lock()
	tr.recomputeAnalytics("BTC/USDT")
	tr.mu.Unlock()
	second, ok := tr.Analytics("BTC/USDT")
	require.True(t, ok)
	assert.Equal(t, first, second)

	// completing a cycle for another symbol leaves this one untouched
	completeWithROI(t, tr, "ETH/USDT", 100, 105)
	third, ok := tr.Analytics("BTC/USDT")
	require.True(t, ok)
	assert.Equal(t, first, third)
}
