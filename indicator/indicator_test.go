package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpizzy812/futures-scenario-engine/market"
)

func risingSeries(n int, start float64) []market.Kline {
	klines := make([]market.Kline, n)
	price := start
	for i := 0; i < n; i++ {
		open := price
		price += 10
		klines[i] = market.Kline{
			OpenTime: int64(i) * 3600000,
			Open:     open,
			High:     price + 2,
			Low:      open - 2,
			Close:    price,
			Volume:   100 + float64(i),
		}
	}
	return klines
}

func TestComputeOmitsShortWindows(t *testing.T) {
	klines := risingSeries(10, 100)
	s := Compute(klines)

	assert.False(t, s.HasEMA50, "EMA50 should be omitted, not zeroed, for a 10-bar series")
	assert.False(t, s.HasEMA200)
	assert.False(t, s.HasMACD, "MACD needs 26 bars")
}

func TestRSIBoundedAndMaxedOnPureUptrend(t *testing.T) {
	klines := risingSeries(30, 100)
	rsi := calculateRSI(klines, 14)
	require.GreaterOrEqual(t, rsi, 0.0)
	require.LessOrEqual(t, rsi, 100.0)
	assert.Equal(t, 100.0, rsi, "a pure uptrend has zero average loss, RSI saturates at 100")
}

func TestATRPercentRecomputedFromCloseEveryCall(t *testing.T) {
	klines := risingSeries(60, 100)
	s := Compute(klines)
	require.True(t, s.HasATR)
	closePrice := klines[len(klines)-1].Close
	assert.InDelta(t, s.ATR/closePrice*100, s.ATRPercent, 1e-9)
}

func TestEMASeededBySMA(t *testing.T) {
	klines := risingSeries(25, 100)
	ema := calculateEMA(klines, 20)
	assert.Greater(t, ema, 0.0)
}
