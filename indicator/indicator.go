// Package indicator is the pure, no-I/O Indicator Engine (spec §4.2).
// EMA/MACD/RSI/ATR are ported in algorithm from the teacher's
// market/data.go (calculateEMA, calculateMACD, calculateRSI,
// calculateATR); Bollinger Bands, ADX, OBV, MACD signal/histogram and
// candlestick-pattern detection are new, written in the same plain-loop
// style over []market.Kline.
package indicator

import (
	"math"

	"github.com/kpizzy812/futures-scenario-engine/market"
)

// Set holds the computed indicators at the latest bar of a series. A
// field is left at its zero value (and omitted by the caller) when the
// series was too short for that window — indicators are never faked as
// zero per the "omitted, not zero" edge-case rule.
type Set struct {
	RSI14        float64
	HasRSI14     bool
	MACDLine     float64
	MACDSignal   float64
	MACDHist     float64
	HasMACD      bool
	EMA20        float64
	EMA50        float64
	EMA200       float64
	SMA20        float64
	HasEMA20     bool
	HasEMA50     bool
	HasEMA200    bool
	HasSMA20     bool
	BollUpper    float64
	BollMiddle   float64
	BollLower    float64
	HasBollinger bool
	ATR          float64
	ATRPercent   float64
	HasATR       bool
	ADX          float64
	HasADX       bool
	VWAP         float64
	HasVWAP      bool
	OBV          float64
	HasOBV       bool
	Patterns     []string
}

// Compute derives the full indicator set from an ascending-time OHLCV
// series. The series itself is never mutated.
func Compute(klines []market.Kline) Set {
	var s Set
	if len(klines) == 0 {
		return s
	}
	closePrice := klines[len(klines)-1].Close

	if len(klines) >= 14 {
		s.RSI14 = calculateRSI(klines, 14)
		s.HasRSI14 = true
	}
	if len(klines) >= 26 {
		s.MACDLine, s.MACDSignal, s.MACDHist = macdWithSignal(klines)
		s.HasMACD = true
	}
	if len(klines) >= 20 {
		s.EMA20 = calculateEMA(klines, 20)
		s.HasEMA20 = true
		s.SMA20 = calculateSMA(klines, 20)
		s.HasSMA20 = true
		upper, mid, lower := bollingerBands(klines, 20, 2.0)
		s.BollUpper, s.BollMiddle, s.BollLower = upper, mid, lower
		s.HasBollinger = true
	}
	if len(klines) >= 50 {
		s.EMA50 = calculateEMA(klines, 50)
		s.HasEMA50 = true
	}
	if len(klines) >= 200 {
		s.EMA200 = calculateEMA(klines, 200)
		s.HasEMA200 = true
	}
	if len(klines) >= 15 {
		s.ATR = calculateATR(klines, 14)
		if closePrice > 0 {
			s.ATRPercent = s.ATR / closePrice * 100
		}
		s.HasATR = true
	}
	if len(klines) >= 28 {
		s.ADX = calculateADX(klines, 14)
		s.HasADX = true
	}
	if len(klines) >= 1 {
		s.VWAP = sessionVWAP(klines)
		s.HasVWAP = true
		s.OBV = calculateOBV(klines)
		s.HasOBV = true
	}
	s.Patterns = detectCandlestickPatterns(klines)

	return s
}

// calculateEMA ports market.calculateEMA: SMA-seeded, then the standard
// 2/(period+1) recursion.
func calculateEMA(klines []market.Kline, period int) float64 {
	if len(klines) < period {
		return 0
	}
	multiplier := 2.0 / float64(period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += klines[i].Close
	}
	ema := sum / float64(period)

	for i := period; i < len(klines); i++ {
		ema = (klines[i].Close-ema)*multiplier + ema
	}
	return ema
}

func calculateSMA(klines []market.Kline, period int) float64 {
	if len(klines) < period {
		return 0
	}
	window := klines[len(klines)-period:]
	var sum float64
	for _, k := range window {
		sum += k.Close
	}
	return sum / float64(period)
}

// calculateMACD ports market.calculateMACD (EMA12 - EMA26, line only);
// macdWithSignal supplements it with the signal line (9-period EMA of
// the MACD line) and histogram required by the §3 Indicator Set contract.
func calculateMACD(klines []market.Kline) float64 {
	if len(klines) < 26 {
		return 0
	}
	ema12 := calculateEMA(klines, 12)
	ema26 := calculateEMA(klines, 26)
	return ema12 - ema26
}

func macdWithSignal(klines []market.Kline) (line, signal, hist float64) {
	if len(klines) < 26 {
		return 0, 0, 0
	}
	// Build the MACD line series so the signal line (EMA9 of the MACD
	// line) can be computed; at least 9 trailing MACD points are needed
	// for a meaningful signal, else the signal degenerates to the line.
	start := 26
	series := make([]float64, 0, len(klines)-start+1)
	for i := start; i <= len(klines); i++ {
		series = append(series, calculateMACD(klines[:i]))
	}
	line = series[len(series)-1]

	period := 9
	if len(series) < period {
		return line, line, 0
	}
	multiplier := 2.0 / float64(period+1)
	var sum float64
	for i := 0; i < period; i++ {
		sum += series[i]
	}
	sig := sum / float64(period)
	for i := period; i < len(series); i++ {
		sig = (series[i]-sig)*multiplier + sig
	}
	signal = sig
	hist = line - signal
	return line, signal, hist
}

// calculateRSI ports market.calculateRSI: Wilder-smoothed average
// gain/loss, returns 100 when avgLoss is zero.
func calculateRSI(klines []market.Kline, period int) float64 {
	if len(klines) < period+1 {
		return 0
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		change := klines[i].Close - klines[i-1].Close
		if change > 0 {
			gainSum += change
		} else {
			lossSum += -change
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	for i := period + 1; i < len(klines); i++ {
		change := klines[i].Close - klines[i-1].Close
		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// calculateATR ports market.calculateATR: Wilder-smoothed true range.
func calculateATR(klines []market.Kline, period int) float64 {
	if len(klines) < period+1 {
		return 0
	}

	trueRange := func(i int) float64 {
		high, low, prevClose := klines[i].High, klines[i].Low, klines[i-1].Close
		tr1 := high - low
		tr2 := math.Abs(high - prevClose)
		tr3 := math.Abs(low - prevClose)
		return math.Max(tr1, math.Max(tr2, tr3))
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += trueRange(i)
	}
	atr := sum / float64(period)

	for i := period + 1; i < len(klines); i++ {
		atr = (atr*float64(period-1) + trueRange(i)) / float64(period)
	}
	return atr
}

func bollingerBands(klines []market.Kline, period int, stdDevMult float64) (upper, middle, lower float64) {
	if len(klines) < period {
		return 0, 0, 0
	}
	window := klines[len(klines)-period:]
	middle = calculateSMA(klines, period)

	var sumSq float64
	for _, k := range window {
		diff := k.Close - middle
		sumSq += diff * diff
	}
	stdDev := math.Sqrt(sumSq / float64(period))

	upper = middle + stdDevMult*stdDev
	lower = middle - stdDevMult*stdDev
	return upper, middle, lower
}

// calculateADX computes the average directional index over `period`
// using Wilder smoothing of +DM/-DM and the true range, the standard
// textbook formula. New relative to the teacher (which never computes
// trend-strength).
func calculateADX(klines []market.Kline, period int) float64 {
	n := len(klines)
	if n < period*2 {
		return 0
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)

	for i := 1; i < n; i++ {
		upMove := klines[i].High - klines[i-1].High
		downMove := klines[i-1].Low - klines[i].Low

		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}

		high, low, prevClose := klines[i].High, klines[i].Low, klines[i-1].Close
		tr1 := high - low
		tr2 := math.Abs(high - prevClose)
		tr3 := math.Abs(low - prevClose)
		tr[i] = math.Max(tr1, math.Max(tr2, tr3))
	}

	smooth := func(values []float64) []float64 {
		out := make([]float64, len(values))
		var sum float64
		for i := 1; i <= period; i++ {
			sum += values[i]
		}
		out[period] = sum
		for i := period + 1; i < len(values); i++ {
			out[i] = out[i-1] - out[i-1]/float64(period) + values[i]
		}
		return out
	}

	smoothTR := smooth(tr)
	smoothPlusDM := smooth(plusDM)
	smoothMinusDM := smooth(minusDM)

	dxValues := make([]float64, 0, n)
	for i := period; i < n; i++ {
		if smoothTR[i] == 0 {
			continue
		}
		plusDI := 100 * smoothPlusDM[i] / smoothTR[i]
		minusDI := 100 * smoothMinusDM[i] / smoothTR[i]
		sumDI := plusDI + minusDI
		if sumDI == 0 {
			continue
		}
		dx := 100 * math.Abs(plusDI-minusDI) / sumDI
		dxValues = append(dxValues, dx)
	}

	if len(dxValues) < period {
		if len(dxValues) == 0 {
			return 0
		}
		var sum float64
		for _, v := range dxValues {
			sum += v
		}
		return sum / float64(len(dxValues))
	}

	var adx float64
	for i := 0; i < period; i++ {
		adx += dxValues[i]
	}
	adx /= float64(period)
	for i := period; i < len(dxValues); i++ {
		adx = (adx*float64(period-1) + dxValues[i]) / float64(period)
	}
	return adx
}

func calculateOBV(klines []market.Kline) float64 {
	if len(klines) == 0 {
		return 0
	}
	obv := 0.0
	for i := 1; i < len(klines); i++ {
		switch {
		case klines[i].Close > klines[i-1].Close:
			obv += klines[i].Volume
		case klines[i].Close < klines[i-1].Close:
			obv -= klines[i].Volume
		}
	}
	return obv
}
