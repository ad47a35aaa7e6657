// Package liquidation is the Liquidation Aggregator (spec §4.4). New
// component: binning/bias arithmetic over Binance USDM futures
// forceOrder events (adshao/go-binance/v2's futures websocket event
// shape), written in the plain-loop numeric style of market/data.go.
package liquidation

import (
	"math"
	"sort"
)

// Event is one forced-liquidation order as delivered by the Binance
// <symbol>@forceOrder websocket stream (go-binance/v2
// futures.WsLiquidationOrderEvent.LiquidationOrder, flattened to the
// fields this package needs).
type Event struct {
	Side         string // "BUY" liquidates a short, "SELL" liquidates a long
	Price        float64
	Quantity     float64
	TimestampUTC int64 // unix millis
}

type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

type Bias string

const (
	BiasLong    Bias = "long"
	BiasShort   Bias = "short"
	BiasNeutral Bias = "neutral"
)

type Bin struct {
	Price     float64
	Intensity Intensity
	VolumeUSD float64
}

// Clusters is the §3 "Liquidation Clusters" record. Field names are
// identical whether or not any events were supplied - the empty-data
// path returns this same shape with liq_pressure_bias: neutral and
// empty cluster lists, never a differently-shaped record (spec §4.4).
type Clusters struct {
	ClustersAbove   []Bin
	ClustersBelow   []Bin
	Last24hLiqSpike bool
	SpikeMagnitude  string // "low" | "medium" | "large", only meaningful when Last24hLiqSpike
	LiqPressureBias Bias
}

const longShortImbalanceRatio = 1.5

type accum struct {
	usd   float64
	count int
}

// Aggregate bins events around currentPrice and derives the full
// Clusters record. spanHours describes the window the events were
// collected over (drives hours_in_data for spike detection); bin_size
// is current_price*0.5%.
func Aggregate(events []Event, currentPrice float64, spanHours float64) Clusters {
	c := Clusters{LiqPressureBias: BiasNeutral}
	if currentPrice <= 0 || len(events) == 0 {
		return c
	}

	binSize := currentPrice * 0.005

	above := map[float64]*accum{}
	below := map[float64]*accum{}

	var longLiqUSD, shortLiqUSD, totalUSD, lastHourUSD float64
	var latestTs int64
	for _, e := range events {
		if e.TimestampUTC > latestTs {
			latestTs = e.TimestampUTC
		}
	}

	for _, e := range events {
		usd := e.Price * e.Quantity
		totalUSD += usd

		// floor(price/bin_size)*bin_size, never round() - rounding would
		// let a price sitting near a bin boundary oscillate between two
		// adjacent bins across consecutive events (spec §3).
		binPrice := math.Floor(e.Price/binSize) * binSize

		bucket := above
		if e.Price < currentPrice {
			bucket = below
		}
		if bucket[binPrice] == nil {
			bucket[binPrice] = &accum{}
		}
		bucket[binPrice].usd += usd
		bucket[binPrice].count++

		switch e.Side {
		case "SELL":
			longLiqUSD += usd
		case "BUY":
			shortLiqUSD += usd
		}

		if latestTs > 0 && latestTs-e.TimestampUTC <= 3600_000 {
			lastHourUSD += usd
		}
	}

	c.ClustersAbove = topBins(above)
	c.ClustersBelow = topBins(below)

	hoursInData := math.Max(1.0, spanHours)
	avgHourlyUSD := totalUSD / hoursInData
	if avgHourlyUSD > 0 && lastHourUSD > avgHourlyUSD*2 {
		c.Last24hLiqSpike = true
		ratio := lastHourUSD / avgHourlyUSD
		switch {
		case ratio >= 5:
			c.SpikeMagnitude = "large"
		case ratio >= 3:
			c.SpikeMagnitude = "medium"
		default:
			c.SpikeMagnitude = "low"
		}
	}

	// Longs liquidated (SELL-side) well in excess of shorts means forced
	// selling pressure just cleared out - bearish follow-through is the
	// base case, hence bias "short"; symmetrically for a short-liquidation
	// excess.
	switch {
	case longLiqUSD > 0 && longLiqUSD >= shortLiqUSD*longShortImbalanceRatio:
		c.LiqPressureBias = BiasShort
	case shortLiqUSD > 0 && shortLiqUSD >= longLiqUSD*longShortImbalanceRatio:
		c.LiqPressureBias = BiasLong
	default:
		c.LiqPressureBias = BiasNeutral
	}

	return c
}

// topBins sorts bins by USD volume descending and keeps the top 5,
// classifying intensity at the >1M / >500k / else-low thresholds.
func topBins(m map[float64]*accum) []Bin {
	bins := make([]Bin, 0, len(m))
	for price, a := range m {
		bins = append(bins, Bin{
			Price:     price,
			VolumeUSD: a.usd,
			Intensity: classifyIntensity(a.usd),
		})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].VolumeUSD > bins[j].VolumeUSD })
	if len(bins) > 5 {
		bins = bins[:5]
	}
	return bins
}

func classifyIntensity(usd float64) Intensity {
	switch {
	case usd > 1_000_000:
		return IntensityHigh
	case usd > 500_000:
		return IntensityMedium
	default:
		return IntensityLow
	}
}
