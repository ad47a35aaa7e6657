package indicator

import "github.com/kpizzy812/futures-scenario-engine/market"

// detectCandlestickPatterns scans the last few bars for the handful of
// single/double-candle patterns that matter for entry/invalidation
// framing. New relative to the teacher; written in the same
// no-allocation-heavy, plain-loop style as the rest of this package.
func detectCandlestickPatterns(klines []market.Kline) []string {
	var patterns []string
	n := len(klines)
	if n == 0 {
		return patterns
	}

	last := klines[n-1]
	if isBullishEngulfing(klines) {
		patterns = append(patterns, "bullish_engulfing")
	}
	if isBearishEngulfing(klines) {
		patterns = append(patterns, "bearish_engulfing")
	}
	if isDoji(last) {
		patterns = append(patterns, "doji")
	}
	if isHammer(last) {
		patterns = append(patterns, "hammer")
	}
	if isShootingStar(last) {
		patterns = append(patterns, "shooting_star")
	}
	return patterns
}

func bodySize(k market.Kline) float64 {
	if k.Close >= k.Open {
		return k.Close - k.Open
	}
	return k.Open - k.Close
}

func rangeSize(k market.Kline) float64 {
	return k.High - k.Low
}

func isBullishEngulfing(klines []market.Kline) bool {
	if len(klines) < 2 {
		return false
	}
	prev, cur := klines[len(klines)-2], klines[len(klines)-1]
	return prev.Close < prev.Open && // prior bar bearish
		cur.Close > cur.Open && // current bar bullish
		cur.Open <= prev.Close &&
		cur.Close >= prev.Open
}

func isBearishEngulfing(klines []market.Kline) bool {
	if len(klines) < 2 {
		return false
	}
	prev, cur := klines[len(klines)-2], klines[len(klines)-1]
	return prev.Close > prev.Open && // prior bar bullish
		cur.Close < cur.Open && // current bar bearish
		cur.Open >= prev.Close &&
		cur.Close <= prev.Open
}

func isDoji(k market.Kline) bool {
	r := rangeSize(k)
	if r == 0 {
		return false
	}
	return bodySize(k)/r < 0.1
}

func isHammer(k market.Kline) bool {
	r := rangeSize(k)
	if r == 0 {
		return false
	}
	body := bodySize(k)
	lowerWick := minF(k.Open, k.Close) - k.Low
	upperWick := k.High - maxF(k.Open, k.Close)
	return lowerWick > body*2 && upperWick < body*0.5 && body/r < 0.4
}

func isShootingStar(k market.Kline) bool {
	r := rangeSize(k)
	if r == 0 {
		return false
	}
	body := bodySize(k)
	upperWick := k.High - maxF(k.Open, k.Close)
	lowerWick := minF(k.Open, k.Close) - k.Low
	return upperWick > body*2 && lowerWick < body*0.5 && body/r < 0.4
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
