// Package structure is the Price-Structure Summarizer (spec §4.3). The
// teacher never computes swings, trend-state, or volatility regime;
// this package is new, structured as a lookback+threshold analyzer in
// the shape of other_examples' RegimeAnalyzer (a struct configuring the
// window/threshold, decomposed into sub-analyses composed into one
// record) but implementing the spec's own swing/trend/regime rules
// rather than that source's Wyckoff phases.
package structure

import (
	"math"

	"github.com/kpizzy812/futures-scenario-engine/indicator"
	"github.com/kpizzy812/futures-scenario-engine/market"
)

const defaultSwingMinSeparation = 5

// SwingPoint is a local extremum, carried with its distance from the
// series' last close and its index for ordering.
type SwingPoint struct {
	Price       float64
	DistancePct float64
	Idx         int
}

type VolatilityRegime string

const (
	RegimeVeryLow     VolatilityRegime = "very_low"
	RegimeCompression VolatilityRegime = "compression"
	RegimeNormal      VolatilityRegime = "normal"
	RegimeExpansion   VolatilityRegime = "expansion"
)

type TrendState string

const (
	TrendBullishStrong TrendState = "bullish_strong"
	TrendBullishWeak   TrendState = "bullish_weak"
	TrendBearishStrong TrendState = "bearish_strong"
	TrendBearishWeak   TrendState = "bearish_weak"
	TrendSidewaysWeak  TrendState = "sideways_weak"
)

// Summary is the Price Structure record of spec §3.
type Summary struct {
	SwingHighs []SwingPoint
	SwingLows  []SwingPoint

	RangeHigh              float64
	RangeLow               float64
	RangeSizePct           float64
	CurrentPositionInRange float64

	TrendState map[string]TrendState // timeframe -> state; this package fills its own timeframe key

	VolatilityRegime VolatilityRegime

	DistanceToSupportPct    float64
	DistanceToResistancePct float64
}

// Analyzer configures the lookback/separation parameters (spec §6
// config: lookback_intraday=50, lookback_daily=30, swing_min_separation=5).
type Analyzer struct {
	SwingMinSeparation int
	LookbackIntraday   int
	LookbackDaily      int
}

func NewAnalyzer(swingMinSeparation, lookbackIntraday, lookbackDaily int) *Analyzer {
	if swingMinSeparation <= 0 {
		swingMinSeparation = defaultSwingMinSeparation
	}
	return &Analyzer{
		SwingMinSeparation: swingMinSeparation,
		LookbackIntraday:   lookbackIntraday,
		LookbackDaily:      lookbackDaily,
	}
}

// isDaily reports whether a timeframe is daily-or-longer for the
// purposes of picking the range lookback window (50 intraday, 30 daily+).
func isDaily(timeframe string) bool {
	switch timeframe {
	case "1d", "1w":
		return true
	default:
		return false
	}
}

// Summarize computes the full Price Structure record for one timeframe.
func (a *Analyzer) Summarize(klines []market.Kline, timeframe string, ind indicator.Set) Summary {
	var s Summary
	s.TrendState = make(map[string]TrendState)

	if len(klines) == 0 {
		s.VolatilityRegime = RegimeNormal
		return s
	}

	lookback := a.LookbackIntraday
	if isDaily(timeframe) {
		lookback = a.LookbackDaily
	}
	window := klines
	if len(klines) > lookback {
		window = klines[len(klines)-lookback:]
	}

	s.RangeHigh, s.RangeLow = rangeHighLow(window)
	currentPrice := klines[len(klines)-1].Close

	if s.RangeHigh > s.RangeLow {
		s.RangeSizePct = (s.RangeHigh - s.RangeLow) / s.RangeLow * 100
		s.CurrentPositionInRange = clamp01((currentPrice - s.RangeLow) / (s.RangeHigh - s.RangeLow))
	}

	highIdx, lowIdx := findSwings(klines, a.SwingMinSeparation, 5)
	s.SwingHighs = toSwingPoints(klines, highIdx, currentPrice, true)
	s.SwingLows = toSwingPoints(klines, lowIdx, currentPrice, false)

	s.TrendState[timeframe] = trendState(klines, ind)

	s.VolatilityRegime = volatilityRegime(ind)

	nearestSupport, nearestResistance := nearestLevels(s.SwingLows, s.SwingHighs, s.RangeLow, s.RangeHigh, currentPrice)
	if nearestSupport > 0 {
		s.DistanceToSupportPct = (currentPrice - nearestSupport) / currentPrice * 100
	}
	if nearestResistance > 0 {
		s.DistanceToResistancePct = (nearestResistance - currentPrice) / currentPrice * 100
	}

	return s
}

func rangeHighLow(klines []market.Kline) (high, low float64) {
	high, low = klines[0].High, klines[0].Low
	for _, k := range klines {
		if k.High > high {
			high = k.High
		}
		if k.Low < low {
			low = k.Low
		}
	}
	return high, low
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// findSwings is a local-peak finder: index i is a swing high when it is
// the maximum High within [i-minSep, i+minSep], and symmetrically for
// swing lows. Bars within minSep bars of the series end can't yet be
// confirmed and are excluded, matching standard swing-confirmation
// practice.
func findSwings(klines []market.Kline, minSep, maxCount int) (highs, lows []int) {
	n := len(klines)
	for i := minSep; i < n-minSep; i++ {
		isHigh, isLow := true, true
		for j := i - minSep; j <= i+minSep; j++ {
			if j == i {
				continue
			}
			if klines[j].High >= klines[i].High {
				isHigh = false
			}
			if klines[j].Low <= klines[i].Low {
				isLow = false
			}
		}
		if isHigh {
			highs = append(highs, i)
		}
		if isLow {
			lows = append(lows, i)
		}
	}

	// Keep the *last* maxCount by index (recency), never the highest by
	// magnitude — selecting the highest-priced peaks discards recent
	// structure (spec bug #2).
	if len(highs) > maxCount {
		highs = highs[len(highs)-maxCount:]
	}
	if len(lows) > maxCount {
		lows = lows[len(lows)-maxCount:]
	}
	return highs, lows
}

// toSwingPoints attaches the confirmed extremum price (High for swing
// highs, Low for swing lows) and its distance from the current price to
// each index findSwings picked.
func toSwingPoints(klines []market.Kline, indices []int, currentPrice float64, isHigh bool) []SwingPoint {
	points := make([]SwingPoint, 0, len(indices))
	for _, idx := range indices {
		price := klines[idx].Low
		if isHigh {
			price = klines[idx].High
		}
		var distPct float64
		if currentPrice != 0 {
			distPct = (price - currentPrice) / currentPrice * 100
		}
		points = append(points, SwingPoint{Price: price, DistancePct: distPct, Idx: idx})
	}
	return points
}

// nearestLevels picks the closest swing low at or below the current
// price as support and the closest swing high at or above it as
// resistance, falling back to the range boundary when no swing
// qualifies on that side — the Level Extractor (spec §4.6) always has
// an ATR-based fallback, but this internal structural distance never
// goes empty either.
func nearestLevels(lows, highs []SwingPoint, rangeLow, rangeHigh, currentPrice float64) (support, resistance float64) {
	support = rangeLow
	for _, p := range lows {
		if p.Price <= currentPrice && p.Price > support {
			support = p.Price
		}
	}
	resistance = rangeHigh
	for _, p := range highs {
		if p.Price >= currentPrice && (resistance == rangeHigh || p.Price < resistance) {
			resistance = p.Price
		}
	}
	if resistance < currentPrice {
		resistance = rangeHigh
	}
	return support, resistance
}

// trendState derives bullish/bearish/sideways per spec §4.3: EMA-20 vs
// EMA-50 vs close, strengthened by ADX>30, sideways when EMAs are
// interleaved around close within 0.25*ATR.
func trendState(klines []market.Kline, ind indicator.Set) TrendState {
	if !ind.HasEMA20 || !ind.HasEMA50 {
		return TrendSidewaysWeak
	}
	close := klines[len(klines)-1].Close
	atr := ind.ATR

	band := 0.25 * atr
	emaSpread := math.Abs(ind.EMA20 - ind.EMA50)
	interleaved := emaSpread <= band &&
		math.Abs(close-ind.EMA20) <= band &&
		math.Abs(close-ind.EMA50) <= band

	if interleaved {
		return TrendSidewaysWeak
	}

	strong := ind.HasADX && ind.ADX > 30

	if close > ind.EMA20 && ind.EMA20 > ind.EMA50 {
		if strong {
			return TrendBullishStrong
		}
		return TrendBullishWeak
	}
	if close < ind.EMA20 && ind.EMA20 < ind.EMA50 {
		if strong {
			return TrendBearishStrong
		}
		return TrendBearishWeak
	}
	return TrendSidewaysWeak
}

// volatilityRegime applies the §3 thresholds on atr_percent. very_low
// must be reachable (<0.8) — spec bug #1; this is a plain if/else chain,
// not a lookup table, specifically so very_low is structurally reachable
// rather than accidentally shadowed by an earlier bucket.
func volatilityRegime(ind indicator.Set) VolatilityRegime {
	if !ind.HasATR {
		return RegimeNormal
	}
	switch {
	case ind.ATRPercent < 0.8:
		return RegimeVeryLow
	case ind.ATRPercent < 1.5:
		return RegimeCompression
	case ind.ATRPercent < 2.5:
		return RegimeNormal
	default:
		return RegimeExpansion
	}
}
