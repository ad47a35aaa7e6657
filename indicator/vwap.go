package indicator

import "github.com/kpizzy812/futures-scenario-engine/market"

// sessionVWAP computes a cumulative typical-price VWAP over the whole
// supplied series. Perpetual futures trade continuously, so unlike the
// teacher's session-anchored equities VWAP (calculateAnchoredVWAP,
// anchored at 9:30 ET) there is no market-open to anchor to; the series
// itself (the requested lookback window) stands in for "session".
func sessionVWAP(klines []market.Kline) float64 {
	var cumPV, cumVol float64
	for _, k := range klines {
		typicalPrice := (k.High + k.Low + k.Close) / 3
		cumPV += typicalPrice * k.Volume
		cumVol += k.Volume
	}
	if cumVol == 0 {
		return 0
	}
	return cumPV / cumVol
}

// RollingVWAPCollector adapts the teacher's VWAPCollector.CalculateSlope:
// it streams bars into a cumulative VWAP and reports the normalized
// slope of the last `window` VWAP points. The Price-Structure Summarizer
// does not call it.
type RollingVWAPCollector struct {
	bars []market.Kline
}

func NewRollingVWAPCollector() *RollingVWAPCollector {
	return &RollingVWAPCollector{}
}

func (c *RollingVWAPCollector) AddBar(bar market.Kline) {
	c.bars = append(c.bars, bar)
}

func (c *RollingVWAPCollector) VWAP() float64 {
	return sessionVWAP(c.bars)
}

// Slope reports (vwap_now - vwap_window_bars_ago) / vwap_window_bars_ago,
// mirroring the teacher's CalculateSlope normalization, over the last
// `window` bars of accumulated VWAP history.
func (c *RollingVWAPCollector) Slope(window int) float64 {
	if len(c.bars) < window+1 || window < 1 {
		return 0
	}
	vwapNow := sessionVWAP(c.bars)
	vwapPast := sessionVWAP(c.bars[:len(c.bars)-window])
	if vwapPast == 0 {
		return 0
	}
	return (vwapNow - vwapPast) / vwapPast
}
