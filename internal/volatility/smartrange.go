package volatility

import (
	"context"
	"math"

	"github.com/raxxex/arbtronx-live-trading/internal/logger"
	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

// RangeCalculator turns volatility metrics into grid spacing
// recommendations.
type RangeCalculator struct {
	analyzer *Analyzer
}

// NewRangeCalculator creates a RangeCalculator backed by the analyzer.
func NewRangeCalculator(analyzer *Analyzer) *RangeCalculator {
	return &RangeCalculator{analyzer: analyzer}
}

// ComputeRange fetches current volatility for the symbol and derives the
// spacing recommendation from it.
func (c *RangeCalculator) ComputeRange(ctx context.Context, symbol string, baseSpacingPct, currentPrice float64) models.SmartGridRange {
	vol := c.analyzer.GetVolatility(ctx, symbol)
	r := RangeFromVolatility(vol, baseSpacingPct, currentPrice)
	logger.S().Infow("Smart grid range computed",
		"symbol", symbol,
		"final_spacing_pct", r.FinalSpacingPct,
		"regime", r.Regime,
		"levels", r.RecommendedLevels)
	return r
}

// RangeFromVolatility derives grid spacing from volatility metrics. It is
// deterministic given its inputs.
//
// Spacing blends three estimates: 40% from ATR as a fraction of price,
// 30% from the standard deviation of returns, and 30% from the score
// bucket recommendation. The blend is then scaled by the regime
// multiplier and clamped to [0.2, 2.5] percent.
func RangeFromVolatility(vol models.MarketVolatility, baseSpacingPct, currentPrice float64) models.SmartGridRange {
	atrPct := 0.0
	if currentPrice > 0 {
		atrPct = vol.ATR24h / currentPrice * 100
	}
	atrBased := clamp(atrPct*0.8, 0.2, 2.0)
	stdBased := clamp(vol.StdDev24h*100*1.2, 0.3, 1.5)

	smart := atrBased*0.4 + stdBased*0.3 + vol.RecommendedSpacingPct*0.3

	regime := RegimeForScore(vol.VolatilityScore)
	final := smart * regimeMultiplier(regime)
	final = clamp(final, 0.2, 2.5)

	levels := RecommendedLevels(regime)

	confidence := 0.7
	if vol.Confidence == "HIGH" {
		confidence = 0.9
	}

	return models.SmartGridRange{
		Symbol:             vol.Symbol,
		BaseSpacingPct:     baseSpacingPct,
		ATRBasedSpacing:    atrBased,
		StdDevBasedSpacing: stdBased,
		SmartSpacingPct:    smart,
		FinalSpacingPct:    final,
		Regime:             regime,
		GridWidthUSD:       final / 100 * currentPrice * float64(levels) * 2,
		RecommendedLevels:  levels,
		ConfidenceScore:    confidence,
	}
}

// RegimeForScore buckets a 0-100 volatility score.
func RegimeForScore(score float64) models.VolatilityRegime {
	switch {
	case score < 20:
		return models.RegimeLow
	case score < 40:
		return models.RegimeMedium
	case score < 70:
		return models.RegimeHigh
	default:
		return models.RegimeExtreme
	}
}

// RecommendedLevels is the per-side level count for a regime. Calmer
// markets get more levels for frequent trading, volatile markets fewer.
func RecommendedLevels(regime models.VolatilityRegime) int {
	switch regime {
	case models.RegimeLow:
		return 8
	case models.RegimeMedium:
		return 6
	case models.RegimeHigh:
		return 5
	case models.RegimeExtreme:
		return 4
	default:
		return 5
	}
}

func regimeMultiplier(regime models.VolatilityRegime) float64 {
	switch regime {
	case models.RegimeLow:
		return 0.8
	case models.RegimeMedium:
		return 1.0
	case models.RegimeHigh:
		return 1.2
	case models.RegimeExtreme:
		return 1.5
	default:
		return 1.0
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
