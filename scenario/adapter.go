package scenario

import (
	"math"
	"sort"
	"strconv"
)

// Adapter is the Scenario Adapter (spec §4.8): post-processes raw
// generated scenarios into ones that carry the adapter-added fields,
// repairs or drops invariant violations, enforces diversity, and
// truncates to max(MaxScenarios, 3).
type Adapter struct {
	MaxScenarios int
}

func NewAdapter(maxScenarios int) *Adapter {
	if maxScenarios < 1 {
		maxScenarios = 3
	}
	return &Adapter{MaxScenarios: maxScenarios}
}

// Adapt runs every scenario through field computation, invariant
// repair-or-drop (including the candidate-membership check against
// candidates, the flattened support/resistance levels from the
// Level/Zone Extractor), diversity filtering, and truncation, in that
// order. The second return value carries any diversity warnings (e.g.
// "no_short_candidate_produced") for the caller to fold into the
// response's data quality warnings.
func (a *Adapter) Adapt(scenarios []Scenario, timeframe string, atr, atrPercent float64, candidates []float64) ([]Scenario, []string) {
	adapted := make([]Scenario, 0, len(scenarios))
	for _, sc := range scenarios {
		sc = computeAdapterFields(sc, timeframe, atr, atrPercent)
		if repaired, ok := repairOrDrop(sc, candidates); ok {
			adapted = append(adapted, repaired)
		}
	}

	sort.SliceStable(adapted, func(i, j int) bool { return adapted[i].Confidence > adapted[j].Confidence })

	adapted, warnings := enforceDiversity(adapted)

	k := a.MaxScenarios
	if k < 3 {
		k = 3
	}
	if len(adapted) > k {
		adapted = adapted[:k]
	}
	return adapted, warnings
}

func computeAdapterFields(sc Scenario, timeframe string, atr, atrPercent float64) Scenario {
	entryMid := (sc.Entry.PriceMin + sc.Entry.PriceMax) / 2
	if entryMid != 0 {
		sc.StopPctOfEntry = math.Abs(entryMid-sc.StopLoss.Recommended) / entryMid * 100
	}
	if atr > 0 {
		sc.ATRMultipleStop = math.Abs(entryMid-sc.StopLoss.Recommended) / atr
	}

	sc.Leverage = capLeverage(sc.Leverage, atrPercent)

	sc.TimeValidHours = timeValidHours(timeframe)

	if len(sc.Conditions) > 0 {
		sc.EntryTrigger = sc.Conditions[0]
	}
	if n := len(sc.Why.Risks); n > 0 {
		end := n
		if end > 2 {
			end = 2
		}
		sc.NoTradeConditions = append([]string(nil), sc.Why.Risks[:end]...)
	}

	return sc
}

// capLeverage: max_safe = clamp(floor(10/atr_percent), 1, 20), formatted
// "{n}x"; recommended = max(1, floor(max_safe*0.6)), formatted
// "{lo}x-{hi}x" with lo = hi = recommended.
func capLeverage(lev Leverage, atrPercent float64) Leverage {
	if atrPercent <= 0 {
		atrPercent = 1 // avoid division by zero; treat as normal volatility
	}
	maxSafe := math.Floor(10 / atrPercent)
	if maxSafe < 1 {
		maxSafe = 1
	}
	if maxSafe > 20 {
		maxSafe = 20
	}
	recommended := math.Floor(maxSafe * 0.6)
	if recommended < 1 {
		recommended = 1
	}

	lev.ATRPct = atrPercent
	lev.VolatilityAdjusted = true
	lev.MaxSafe = formatLeverageNumber(maxSafe) + "x"
	lev.Recommended = formatLeverageRange(recommended, recommended)
	return lev
}

func formatLeverageRange(lo, hi float64) string {
	return formatLeverageNumber(lo) + "x-" + formatLeverageNumber(hi) + "x"
}

func formatLeverageNumber(v float64) string {
	return strconv.Itoa(int(v))
}

// timeValidHours: 15m->4, 1h->6, 4h->48, 1d->168, linear interpolation
// between anchor points for anything else.
func timeValidHours(timeframe string) float64 {
	anchors := map[string]float64{
		"15m": 4,
		"1h":  6,
		"4h":  48,
		"1d":  168,
	}
	if h, ok := anchors[timeframe]; ok {
		return h
	}

	minutes := timeframeMinutes(timeframe)
	type point struct {
		minutes float64
		hours   float64
	}
	points := []point{
		{15, 4}, {60, 6}, {240, 48}, {1440, 168},
	}
	if minutes <= points[0].minutes {
		return points[0].hours
	}
	if minutes >= points[len(points)-1].minutes {
		return points[len(points)-1].hours
	}
	for i := 1; i < len(points); i++ {
		if minutes <= points[i].minutes {
			lo, hi := points[i-1], points[i]
			frac := (minutes - lo.minutes) / (hi.minutes - lo.minutes)
			return lo.hours + frac*(hi.hours-lo.hours)
		}
	}
	return points[len(points)-1].hours
}

func timeframeMinutes(timeframe string) float64 {
	known := map[string]float64{
		"15m": 15, "1h": 60, "4h": 240, "6h": 360, "8h": 480,
		"12h": 720, "1d": 1440, "1w": 10080,
	}
	if m, ok := known[timeframe]; ok {
		return m
	}
	return 60
}

// repairOrDrop checks the §3 invariants for a scenario: target
// ordering is repaired once by clamping; every entry/stop/target price
// must then equal a candidate level within 0.1% (repaired by snapping
// to the nearest one); a scenario still invalid after both repairs is
// dropped rather than ever returned broken.
func repairOrDrop(sc Scenario, candidates []float64) (Scenario, bool) {
	sc = clampTargetOrdering(sc)
	sc, ok := snapPricesToCandidates(sc, candidates)
	if !ok {
		return sc, false
	}
	if !invariantsHold(sc) {
		return sc, false
	}
	return sc, true
}

// candidateTolerance is the §3 "within 0.1% of a candidate" relative
// tolerance, matching levels.dedupeTolerance.
const candidateTolerance = 0.001

// snapPricesToCandidates enforces the candidate-membership invariant
// on every price a scenario names: entry bounds, the recommended stop,
// and each target. A price within tolerance of a candidate is snapped
// to that candidate's exact value; one that isn't fails the scenario.
func snapPricesToCandidates(sc Scenario, candidates []float64) (Scenario, bool) {
	var ok bool
	if sc.Entry.PriceMin, ok = snapToCandidate(sc.Entry.PriceMin, candidates); !ok {
		return sc, false
	}
	if sc.Entry.PriceMax, ok = snapToCandidate(sc.Entry.PriceMax, candidates); !ok {
		return sc, false
	}
	if sc.StopLoss.Recommended, ok = snapToCandidate(sc.StopLoss.Recommended, candidates); !ok {
		return sc, false
	}
	for i := range sc.Targets {
		if sc.Targets[i].Price, ok = snapToCandidate(sc.Targets[i].Price, candidates); !ok {
			return sc, false
		}
	}
	return sc, true
}

// snapToCandidate finds the candidate closest to price by relative
// distance and, if within candidateTolerance, returns it in place of
// price. Returns price unchanged and false when no candidate is close
// enough, or when there are no candidates to check against.
func snapToCandidate(price float64, candidates []float64) (float64, bool) {
	if price == 0 || len(candidates) == 0 {
		return price, false
	}

	best := price
	bestDiff := math.MaxFloat64
	for _, c := range candidates {
		diff := math.Abs(price-c) / math.Abs(price)
		if diff < bestDiff {
			bestDiff = diff
			best = c
		}
	}
	if bestDiff <= candidateTolerance {
		return best, true
	}
	return price, false
}

func clampTargetOrdering(sc Scenario) Scenario {
	if len(sc.Targets) < 2 {
		return sc
	}
	sort.SliceStable(sc.Targets, func(i, j int) bool {
		if sc.Bias == BiasShort {
			return sc.Targets[i].Price > sc.Targets[j].Price
		}
		return sc.Targets[i].Price < sc.Targets[j].Price
	})
	return sc
}

func invariantsHold(sc Scenario) bool {
	if len(sc.Targets) == 0 {
		return false
	}

	switch sc.Bias {
	case BiasLong:
		if !(sc.StopLoss.Recommended < sc.Entry.PriceMin && sc.Entry.PriceMin <= sc.Entry.PriceMax) {
			return false
		}
		prev := sc.Entry.PriceMax
		for _, t := range sc.Targets {
			if t.Price <= prev {
				return false
			}
			prev = t.Price
		}
		if sc.Invalidation.Price >= sc.Entry.PriceMin {
			return false
		}
		if sc.Invalidation.Price <= sc.StopLoss.Conservative {
			return false
		}
	case BiasShort:
		if !(sc.StopLoss.Recommended > sc.Entry.PriceMax && sc.Entry.PriceMax >= sc.Entry.PriceMin) {
			return false
		}
		prev := sc.Entry.PriceMin
		for _, t := range sc.Targets {
			if t.Price >= prev {
				return false
			}
			prev = t.Price
		}
		if sc.Invalidation.Price <= sc.Entry.PriceMax {
			return false
		}
		if sc.Invalidation.Price >= sc.StopLoss.Conservative {
			return false
		}
	default:
		return true // neutral scenarios have no directional ordering to enforce
	}

	var sumPartial float64
	for _, t := range sc.Targets {
		sumPartial += t.PartialClosePct
	}
	if math.Abs(sumPartial-100) > 0.01 {
		return false
	}

	return true
}

// enforceDiversity ensures the best-confidence long and the
// best-confidence short scenario both survive truncation, when both
// biases appear in the generated set - promoted to the front in
// confidence order, the remainder following in their original
// (already confidence-sorted) order. Never fabricates a missing side;
// instead it reports which one is absent so the caller can surface it
// as a data quality warning (spec §8 S4).
func enforceDiversity(sorted []Scenario) ([]Scenario, []string) {
	if len(sorted) == 0 {
		return sorted, nil
	}

	bestLong := firstIndexOfBias(sorted, BiasLong)
	bestShort := firstIndexOfBias(sorted, BiasShort)
	if bestLong == -1 || bestShort == -1 {
		var warnings []string
		if bestLong == -1 {
			warnings = append(warnings, "no_long_candidate_produced")
		}
		if bestShort == -1 {
			warnings = append(warnings, "no_short_candidate_produced")
		}
		return sorted, warnings
	}

	pinned := map[int]bool{bestLong: true, bestShort: true}
	var head []Scenario
	if bestLong < bestShort {
		head = []Scenario{sorted[bestLong], sorted[bestShort]}
	} else {
		head = []Scenario{sorted[bestShort], sorted[bestLong]}
	}

	rest := make([]Scenario, 0, len(sorted)-2)
	for i, s := range sorted {
		if !pinned[i] {
			rest = append(rest, s)
		}
	}
	return append(head, rest...), nil
}

func firstIndexOfBias(scenarios []Scenario, bias Bias) int {
	for i, s := range scenarios {
		if s.Bias == bias {
			return i
		}
	}
	return -1
}
