package volatility

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

// stubExchange serves canned candles and counts fetches.
type stubExchange struct {
	candles    []models.Candle
	err        error
	fetchCount int
}

func (s *stubExchange) Name() string { return "stub" }

func (s *stubExchange) GetTicker(context.Context, string) (float64, error) { return 0, nil }

func (s *stubExchange) GetCandles(_ context.Context, _ string, _ string, limit int) ([]models.Candle, error) {
	s.fetchCount++
	if s.err != nil {
		return nil, s.err
	}
	if limit > len(s.candles) {
		limit = len(s.candles)
	}
	return s.candles[:limit], nil
}

func (s *stubExchange) PlaceOrder(context.Context, string, models.OrderSide, string, float64, float64) (string, error) {
	return "", nil
}

func (s *stubExchange) CancelOrder(context.Context, string, string) error { return nil }

func (s *stubExchange) GetBalances(context.Context) (map[string]models.Balance, error) {
	return nil, nil
}

func makeCandles(n int, base, step float64) []models.Candle {
	candles := make([]models.Candle, n)
	price := base
	for i := range candles {
		candles[i] = models.Candle{
			OpenTime: time.Now().Add(-time.Duration(n-i) * time.Hour),
			Open:     price,
			High:     price * 1.005,
			Low:      price * 0.995,
			Close:    price + step,
			Volume:   10,
		}
		price += step
	}
	return candles
}

func TestGetVolatilityComputesMetrics(t *testing.T) {
	ex := &stubExchange{candles: makeCandles(72, 100, 0.2)}
	a := NewAnalyzer(ex, time.Hour)

	vol := a.GetVolatility(context.Background(), "BTC/USDT")

	assert.Equal(t, "BTC/USDT", vol.Symbol)
	assert.Greater(t, vol.ATR24h, 0.0)
	assert.Greater(t, vol.StdDev24h, 0.0)
	assert.GreaterOrEqual(t, vol.VolatilityScore, 0.0)
	assert.LessOrEqual(t, vol.VolatilityScore, 100.0)
	assert.NotEqual(t, "LOW", vol.Confidence, "real data should not carry the fallback confidence")
}

func TestGetVolatilityServesCacheWithinTTL(t *testing.T) {
	ex := &stubExchange{candles: makeCandles(72, 100, 0.2)}
	a := NewAnalyzer(ex, time.Hour)

	first := a.GetVolatility(context.Background(), "BTC/USDT")
	fetchesAfterFirst := ex.fetchCount
	second := a.GetVolatility(context.Background(), "BTC/USDT")

	assert.Equal(t, fetchesAfterFirst, ex.fetchCount, "cached call must not refetch")
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestGetVolatilityDefaultsOnFetchError(t *testing.T) {
	ex := &stubExchange{err: errors.New("network down")}
	a := NewAnalyzer(ex, time.Hour)

	vol := a.GetVolatility(context.Background(), "ETH/USDT")

	assert.Equal(t, 30.0, vol.VolatilityScore)
	assert.Equal(t, 0.5, vol.RecommendedSpacingPct)
	assert.Equal(t, "LOW", vol.Confidence)
}

func TestGetVolatilityRecoversAfterFetchError(t *testing.T) {
	ex := &stubExchange{err: errors.New("network down")}
	a := NewAnalyzer(ex, time.Hour)

	vol := a.GetVolatility(context.Background(), "BTC/USDT")
	assert.Equal(t, "LOW", vol.Confidence)

	// the fallback is not cached: once candles are available again the
	// next call computes real metrics instead of serving the default
	ex.err = nil
	ex.candles = makeCandles(72, 100, 0.2)
	vol = a.GetVolatility(context.Background(), "BTC/USDT")
	assert.NotEqual(t, "LOW", vol.Confidence,
		"a transient fetch failure must not pin the fallback for the TTL")
	assert.Greater(t, vol.ATR24h, 0.01)
}

func TestGetVolatilityDefaultsOnShortSeries(t *testing.T) {
	ex := &stubExchange{candles: makeCandles(1, 100, 0.2)}
	a := NewAnalyzer(ex, time.Hour)

	vol := a.GetVolatility(context.Background(), "ETH/USDT")

	assert.Equal(t, 30.0, vol.VolatilityScore)
	assert.Equal(t, "LOW", vol.Confidence)
}

func TestRangeFromVolatilitySpacingBounds(t *testing.T) {
	for _, score := range []float64{0, 10, 19.9, 20, 39.9, 40, 69.9, 70, 100} {
		for _, atr := range []float64{0.0001, 0.5, 5, 50} {
			vol := models.MarketVolatility{
				Symbol:          "BTC/USDT",
				ATR24h:          atr,
				StdDev24h:       0.02,
				VolatilityScore: score,
			}
			vol.RecommendedSpacingPct, vol.Confidence = scoreSpacing(score)

			r := RangeFromVolatility(vol, 0.5, 100)
			assert.GreaterOrEqual(t, r.FinalSpacingPct, 0.2, "score=%v atr=%v", score, atr)
			assert.LessOrEqual(t, r.FinalSpacingPct, 2.5, "score=%v atr=%v", score, atr)
		}
	}
}

func TestRangeFromVolatilityRegimeLevelsNonIncreasing(t *testing.T) {
	prevLevels := 1 << 30
	for _, score := range []float64{5, 25, 50, 90} {
		vol := models.MarketVolatility{Symbol: "BTC/USDT", ATR24h: 0.5, StdDev24h: 0.01, VolatilityScore: score}
		vol.RecommendedSpacingPct, vol.Confidence = scoreSpacing(score)

		r := RangeFromVolatility(vol, 0.5, 100)
		assert.LessOrEqual(t, r.RecommendedLevels, prevLevels, "score=%v", score)
		prevLevels = r.RecommendedLevels
	}
}

func TestRangeFromVolatilityRegimes(t *testing.T) {
	cases := []struct {
		score  float64
		regime models.VolatilityRegime
		levels int
	}{
		{10, models.RegimeLow, 8},
		{30, models.RegimeMedium, 6},
		{55, models.RegimeHigh, 5},
		{85, models.RegimeExtreme, 4},
	}
	for _, tc := range cases {
		r := RangeFromVolatility(models.MarketVolatility{VolatilityScore: tc.score, StdDev24h: 0.01, ATR24h: 0.5}, 0.5, 100)
		assert.Equal(t, tc.regime, r.Regime, "score=%v", tc.score)
		assert.Equal(t, tc.levels, r.RecommendedLevels, "score=%v", tc.score)
	}
}

func TestRangeFromVolatilityDeterministic(t *testing.T) {
	vol := models.MarketVolatility{
		Symbol:                "BTC/USDT",
		ATR24h:                0.8,
		StdDev24h:             0.015,
		VolatilityScore:       35,
		RecommendedSpacingPct: 0.5,
		Confidence:            "HIGH",
	}
	a := RangeFromVolatility(vol, 0.5, 120)
	b := RangeFromVolatility(vol, 0.5, 120)
	require.Equal(t, a, b)
}

func TestAtrMatchesHandComputation(t *testing.T) {
	candles := []models.Candle{
		{High: 102, Low: 98, Close: 100},
		{High: 104, Low: 99, Close: 103},
		{High: 106, Low: 101, Close: 105},
	}
	// TR[1] = max(104-99, |104-100|, |99-100|) = 5
	// TR[2] = max(106-101, |106-103|, |101-103|) = 5
	got := atr(candles, 2)
	assert.InDelta(t, 5.0, got, 1e-9)
}

func TestAtrShortSeriesFallsBack(t *testing.T) {
	assert.Equal(t, 0.01, atr(makeCandles(5, 100, 0.1), 14))
}
