package volatility

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/raxxex/arbtronx-live-trading/internal/exchange"
	"github.com/raxxex/arbtronx-live-trading/internal/logger"
	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

const (
	shortWindowCandles = 24
	longWindowCandles  = 72
	atrPeriod          = 14
	candleTimeframe    = "1h"
)

// Analyzer computes ATR and standard-deviation based volatility metrics
// from historical candles. Results are cached per (symbol, exchange) and
// refreshed once the cache entry is older than the refresh interval.
type Analyzer struct {
	exchange exchange.Exchange
	refresh  time.Duration

	mu    sync.Mutex
	cache map[string]models.MarketVolatility
}

// NewAnalyzer creates an Analyzer over the given exchange. refresh is the
// cache TTL; zero or negative falls back to one hour.
func NewAnalyzer(ex exchange.Exchange, refresh time.Duration) *Analyzer {
	if refresh <= 0 {
		refresh = time.Hour
	}
	return &Analyzer{
		exchange: ex,
		refresh:  refresh,
		cache:    make(map[string]models.MarketVolatility),
	}
}

// GetVolatility returns the volatility metrics for a symbol, serving a
// cached value when it is still fresh. Failures degrade to a documented
// default instead of an error so grid creation never blocks on indicator
// data. A transient fetch failure returns the default without caching it,
// so the next call can recover; a series that is too short is cached for
// the TTL because refetching would return the same data.
func (a *Analyzer) GetVolatility(ctx context.Context, symbol string) models.MarketVolatility {
	cacheKey := symbol + "_" + a.exchange.Name()

	a.mu.Lock()
	if cached, ok := a.cache[cacheKey]; ok && time.Since(cached.UpdatedAt) < a.refresh {
		a.mu.Unlock()
		return cached
	}
	a.mu.Unlock()

	logger.S().Debugw("Calculating market volatility", "symbol", symbol)

	short, err := a.exchange.GetCandles(ctx, symbol, candleTimeframe, shortWindowCandles)
	if err != nil {
		logger.S().Warnw("Failed to fetch short-window candles, using default volatility",
			"symbol", symbol, "error", err)
		return defaultVolatility(symbol)
	}
	long, err := a.exchange.GetCandles(ctx, symbol, candleTimeframe, longWindowCandles)
	if err != nil {
		logger.S().Warnw("Failed to fetch long-window candles, using default volatility",
			"symbol", symbol, "error", err)
		return defaultVolatility(symbol)
	}
	if len(short) < 2 || len(long) < 2 {
		return a.storeDefault(cacheKey, symbol)
	}

	stdShort := stdDev(returns(short))
	stdLong := stdDev(returns(long))
	rangeShort := priceRange(short)
	score := math.Min(100, (stdShort*100+rangeShort*50)*2)

	spacing, confidence := scoreSpacing(score)

	vol := models.MarketVolatility{
		Symbol:                symbol,
		ATR24h:                atr(short, atrPeriod),
		ATR72h:                atr(long, atrPeriod),
		StdDev24h:             stdShort,
		StdDev72h:             stdLong,
		PriceRange24h:         rangeShort,
		VolatilityScore:       score,
		RecommendedSpacingPct: spacing,
		Confidence:            confidence,
		UpdatedAt:             time.Now(),
	}

	a.mu.Lock()
	a.cache[cacheKey] = vol
	a.mu.Unlock()

	logger.S().Infow("Volatility calculated",
		"symbol", symbol, "score", score, "spacing_pct", spacing)
	return vol
}

func (a *Analyzer) storeDefault(cacheKey, symbol string) models.MarketVolatility {
	vol := defaultVolatility(symbol)
	a.mu.Lock()
	a.cache[cacheKey] = vol
	a.mu.Unlock()
	return vol
}

// defaultVolatility is the fallback when candle data is missing or too
// short: a medium score with LOW confidence.
func defaultVolatility(symbol string) models.MarketVolatility {
	return models.MarketVolatility{
		Symbol:                symbol,
		ATR24h:                0.01,
		ATR72h:                0.01,
		StdDev24h:             0.01,
		StdDev72h:             0.01,
		PriceRange24h:         0.02,
		VolatilityScore:       30.0,
		RecommendedSpacingPct: 0.5,
		Confidence:            "LOW",
		UpdatedAt:             time.Now(),
	}
}

// scoreSpacing maps a 0-100 volatility score to a recommended spacing
// percentage and a confidence label.
func scoreSpacing(score float64) (float64, string) {
	switch {
	case score < 20:
		return 0.3, "HIGH"
	case score < 40:
		return 0.5, "HIGH"
	case score < 70:
		return 0.8, "MEDIUM"
	default:
		return 1.2, "MEDIUM"
	}
}

// atr computes the mean true range over the most recent period candles,
// or over all available true ranges if fewer.
func atr(candles []models.Candle, period int) float64 {
	if len(candles) < period {
		return 0.01
	}
	trueRanges := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]
		tr := cur.High - cur.Low
		if v := math.Abs(cur.High - prev.Close); v > tr {
			tr = v
		}
		if v := math.Abs(cur.Low - prev.Close); v > tr {
			tr = v
		}
		trueRanges = append(trueRanges, tr)
	}
	if len(trueRanges) == 0 {
		return 0.01
	}
	n := period
	if len(trueRanges) < n {
		n = len(trueRanges)
	}
	sum := 0.0
	for _, tr := range trueRanges[len(trueRanges)-n:] {
		sum += tr
	}
	return sum / float64(n)
}

// returns computes simple period-over-period close returns.
func returns(candles []models.Candle) []float64 {
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev > 0 {
			out = append(out, (candles[i].Close-prev)/prev)
		}
	}
	return out
}

// stdDev is the sample standard deviation; series shorter than 2 fall
// back to 0.01 so downstream spacing math stays non-degenerate.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0.01
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

// priceRange is (max close - min close) / min close over the series.
func priceRange(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	minClose, maxClose := candles[0].Close, candles[0].Close
	for _, c := range candles[1:] {
		if c.Close < minClose {
			minClose = c.Close
		}
		if c.Close > maxClose {
			maxClose = c.Close
		}
	}
	if minClose <= 0 {
		return 0
	}
	return (maxClose - minClose) / minClose
}
