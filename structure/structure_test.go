package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpizzy812/futures-scenario-engine/indicator"
	"github.com/kpizzy812/futures-scenario-engine/market"
)

func flatSeries(n int, price, wiggle float64) []market.Kline {
	klines := make([]market.Kline, n)
	for i := 0; i < n; i++ {
		klines[i] = market.Kline{
			OpenTime: int64(i) * 3600000,
			Open:     price,
			High:     price + wiggle,
			Low:      price - wiggle,
			Close:    price,
			Volume:   100,
		}
	}
	return klines
}

func TestVolatilityRegimeReachesVeryLow(t *testing.T) {
	ind := indicator.Set{HasATR: true, ATRPercent: 0.3}
	assert.Equal(t, RegimeVeryLow, volatilityRegime(ind))
}

func TestVolatilityRegimeBuckets(t *testing.T) {
	cases := []struct {
		pct  float64
		want VolatilityRegime
	}{
		{0.79, RegimeVeryLow},
		{0.8, RegimeCompression},
		{1.49, RegimeCompression},
		{1.5, RegimeNormal},
		{2.49, RegimeNormal},
		{2.5, RegimeExpansion},
		{10, RegimeExpansion},
	}
	for _, c := range cases {
		got := volatilityRegime(indicator.Set{HasATR: true, ATRPercent: c.pct})
		assert.Equal(t, c.want, got, "atr_percent=%v", c.pct)
	}
}

func TestSwingDetectionPicksRecentNotLargest(t *testing.T) {
	klines := flatSeries(40, 100, 0.5)
	// A large early spike and a smaller late spike; recency selection
	// must keep the late one among the kept swings, not discard it for
	// being smaller in magnitude (spec bug #2).
	klines[5].High = 200
	klines[30].High = 110

	a := NewAnalyzer(5, 50, 30)
	highs, _ := findSwings(klines, a.SwingMinSeparation, 5)

	foundLate := false
	for _, idx := range highs {
		if idx == 30 {
			foundLate = true
		}
	}
	assert.True(t, foundLate, "the more recent, smaller swing high must be retained")
}

func TestRangePositionClampedAndComputed(t *testing.T) {
	klines := flatSeries(60, 100, 5)
	klines[len(klines)-1].Close = 97
	a := NewAnalyzer(5, 50, 30)
	ind := indicator.Compute(klines)
	s := a.Summarize(klines, "1h", ind)

	require.Greater(t, s.RangeHigh, s.RangeLow)
	assert.GreaterOrEqual(t, s.CurrentPositionInRange, 0.0)
	assert.LessOrEqual(t, s.CurrentPositionInRange, 1.0)
}

func TestTrendStateSidewaysWhenEMAsInterleaved(t *testing.T) {
	klines := flatSeries(220, 100, 0.2)
	ind := indicator.Compute(klines)
	state := trendState(klines, ind)
	assert.Equal(t, TrendSidewaysWeak, state, "a flat series keeps EMA20/EMA50/close within the ATR band")
}

func TestTrendStateBullishOnSustainedUptrend(t *testing.T) {
	klines := make([]market.Kline, 220)
	price := 100.0
	for i := range klines {
		open := price
		price += 1.5
		klines[i] = market.Kline{
			OpenTime: int64(i) * 3600000,
			Open:     open,
			High:     price + 1,
			Low:      open - 1,
			Close:    price,
			Volume:   100,
		}
	}
	ind := indicator.Compute(klines)
	state := trendState(klines, ind)
	assert.Contains(t, []TrendState{TrendBullishWeak, TrendBullishStrong}, state)
}

func TestSummarizeEmptySeriesIsSafe(t *testing.T) {
	a := NewAnalyzer(5, 50, 30)
	s := a.Summarize(nil, "1h", indicator.Set{})
	assert.Equal(t, RegimeNormal, s.VolatilityRegime)
	assert.Empty(t, s.SwingHighs)
}

func TestLookbackWindowDiffersByTimeframe(t *testing.T) {
	assert.True(t, isDaily("1d"))
	assert.True(t, isDaily("1w"))
	assert.False(t, isDaily("1h"))
	assert.False(t, isDaily("15m"))
}
