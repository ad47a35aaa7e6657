// Package levels is the Level Extractor (spec §4.6). New; pure
// arithmetic over indicator/structure outputs, in the same plain-loop
// numeric style as market/data.go. No example repo carries a
// level-deduplication library, so this is stdlib (math, sort) only.
package levels

import (
	"math"
	"sort"
)

const dedupeTolerance = 0.001 // 0.1%

// Candidates is the §3 "Candidate Level Set": two disjoint,
// distance-ordered, deduplicated lists.
type Candidates struct {
	Supports    []float64 // below current price, nearest first
	Resistances []float64 // above current price, nearest first
}

// Sources bundles every raw price this extractor draws candidates
// from. Zero values are simply ignored, so callers can pass whatever
// subset of sources they have without special-casing missing data.
type Sources struct {
	CurrentPrice float64
	ATR          float64

	IndicatorPivots []float64
	SwingHighs      []float64
	SwingLows       []float64
	EMA20           float64
	EMA50           float64
	EMA200          float64
	VWAP            float64
	RangeHigh       float64
	RangeLow        float64
}

// Extract merges every candidate source, splits into supports/
// resistances by side of current price, dedupes within 0.1% relative
// tolerance, and orders by distance. When either side ends up empty -
// the candidate set must never be empty (bug #6) - that side is filled
// with close ± k*ATR for k in {1,2,3}.
func Extract(src Sources) Candidates {
	all := collectCandidates(src)

	var supports, resistances []float64
	for _, p := range all {
		if p <= 0 || p == src.CurrentPrice {
			continue
		}
		if p < src.CurrentPrice {
			supports = append(supports, p)
		} else {
			resistances = append(resistances, p)
		}
	}

	supports = dedupeAndSort(supports, true, src.CurrentPrice)
	resistances = dedupeAndSort(resistances, false, src.CurrentPrice)

	if len(supports) == 0 || len(resistances) == 0 {
		fbSupports, fbResistances := atrFallback(src.CurrentPrice, src.ATR)
		if len(supports) == 0 {
			supports = fbSupports
		}
		if len(resistances) == 0 {
			resistances = fbResistances
		}
	}

	return Candidates{Supports: supports, Resistances: resistances}
}

func collectCandidates(src Sources) []float64 {
	var all []float64
	all = append(all, src.IndicatorPivots...)
	all = append(all, src.SwingHighs...)
	all = append(all, src.SwingLows...)
	all = append(all, src.EMA20, src.EMA50, src.EMA200, src.VWAP, src.RangeHigh, src.RangeLow)
	return all
}

// dedupeAndSort orders nearest-to-current-price first and drops any
// candidate within 0.1% relative tolerance of one already kept.
func dedupeAndSort(prices []float64, isSupport bool, currentPrice float64) []float64 {
	if len(prices) == 0 {
		return nil
	}
	sorted := append([]float64(nil), prices...)
	if isSupport {
		sort.Sort(sort.Reverse(sort.Float64Slice(sorted))) // nearest support = highest price below current
	} else {
		sort.Float64s(sorted) // nearest resistance = lowest price above current
	}

	var out []float64
	for _, p := range sorted {
		duplicate := false
		for _, kept := range out {
			if kept == 0 {
				continue
			}
			if math.Abs(p-kept)/kept < dedupeTolerance {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, p)
		}
	}
	return out
}

// atrFallback fabricates close ± k*ATR for k in {1,2,3} - the
// mandatory fallback (bug #6) guaranteeing at least 3 candidates on
// each side even when every other source is empty.
func atrFallback(currentPrice, atr float64) (supports, resistances []float64) {
	if atr <= 0 {
		atr = currentPrice * 0.01 // last-resort 1% synthetic ATR, never zero-width
	}
	for _, k := range []float64{1, 2, 3} {
		supports = append(supports, currentPrice-k*atr)
		resistances = append(resistances, currentPrice+k*atr)
	}
	return supports, resistances
}
