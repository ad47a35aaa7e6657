package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longScenario(confidence float64) Scenario {
	return Scenario{
		Bias:       BiasLong,
		Confidence: confidence,
		Entry:      Entry{PriceMin: 100, PriceMax: 101},
		StopLoss:   StopLoss{Conservative: 95, Aggressive: 98, Recommended: 97},
		Targets: []Target{
			{Level: 1, Price: 105, PartialClosePct: 50},
			{Level: 2, Price: 110, PartialClosePct: 30},
			{Level: 3, Price: 115, PartialClosePct: 20},
		},
		Invalidation: Invalidation{Price: 96},
		Why:          Why{Risks: []string{"risk1", "risk2", "risk3"}},
		Conditions:   []string{"break above 101"},
	}
}

func shortScenario(confidence float64) Scenario {
	return Scenario{
		Bias:       BiasShort,
		Confidence: confidence,
		Entry:      Entry{PriceMin: 99, PriceMax: 100},
		StopLoss:   StopLoss{Conservative: 105, Aggressive: 102, Recommended: 103},
		Targets: []Target{
			{Level: 1, Price: 95, PartialClosePct: 50},
			{Level: 2, Price: 90, PartialClosePct: 30},
			{Level: 3, Price: 85, PartialClosePct: 20},
		},
		Invalidation: Invalidation{Price: 104},
		Why:          Why{Risks: []string{"r1", "r2"}},
		Conditions:   []string{"reject at 100"},
	}
}

// testCandidates covers every entry/stop/target price used by
// longScenario and shortScenario above, so tests not specifically
// exercising candidate-membership behavior are unaffected by it.
var testCandidates = []float64{85, 90, 95, 97, 99, 100, 101, 102, 103, 105, 110, 115}

func TestAdaptComputesLeverageCapAndStopPct(t *testing.T) {
	a := NewAdapter(3)
	out, _ := a.Adapt([]Scenario{longScenario(0.8)}, "1h", 2.0, 5.0, testCandidates) // atr_percent=5 -> max_safe=floor(10/5)=2
	require.Len(t, out, 1)
	assert.Equal(t, "2x", out[0].Leverage.MaxSafe)
	assert.Equal(t, "1x-1x", out[0].Leverage.Recommended) // floor(2*0.6)=1
	assert.Greater(t, out[0].StopPctOfEntry, 0.0)
	assert.Greater(t, out[0].ATRMultipleStop, 0.0)
}

func TestAdaptTimeValidHoursAnchors(t *testing.T) {
	assert.Equal(t, 4.0, timeValidHours("15m"))
	assert.Equal(t, 6.0, timeValidHours("1h"))
	assert.Equal(t, 48.0, timeValidHours("4h"))
	assert.Equal(t, 168.0, timeValidHours("1d"))
}

func TestAdaptDropsInvariantViolatingScenario(t *testing.T) {
	bad := longScenario(0.9)
	bad.StopLoss.Recommended = 102 // stop above entry min - violates long invariant
	a := NewAdapter(3)
	out, _ := a.Adapt([]Scenario{bad}, "1h", 2.0, 1.0, testCandidates)
	assert.Empty(t, out, "an irreparable invariant violation must be dropped, not repaired into something wrong")
}

func TestAdaptRepairsOutOfOrderTargets(t *testing.T) {
	sc := longScenario(0.9)
	sc.Targets[0], sc.Targets[2] = sc.Targets[2], sc.Targets[0] // shuffle ordering
	a := NewAdapter(3)
	out, _ := a.Adapt([]Scenario{sc}, "1h", 2.0, 1.0, testCandidates)
	require.Len(t, out, 1)
	for i := 1; i < len(out[0].Targets); i++ {
		assert.Greater(t, out[0].Targets[i].Price, out[0].Targets[i-1].Price)
	}
}

func TestAdaptEnforcesDiversityWhenBothBiasesPresent(t *testing.T) {
	scenarios := []Scenario{longScenario(0.9), longScenario(0.85), shortScenario(0.5)}
	a := NewAdapter(3)
	out, warnings := a.Adapt(scenarios, "1h", 2.0, 1.0, testCandidates)
	hasLong, hasShort := false, false
	for _, s := range out {
		if s.Bias == BiasLong {
			hasLong = true
		}
		if s.Bias == BiasShort {
			hasShort = true
		}
	}
	assert.True(t, hasLong)
	assert.True(t, hasShort, "the best short candidate must survive even at lower confidence than the top longs")
	assert.Empty(t, warnings, "both biases present - no diversity warning expected")
}

func TestAdaptNeverFabricatesMissingBias(t *testing.T) {
	scenarios := []Scenario{longScenario(0.9), longScenario(0.8)}
	a := NewAdapter(3)
	out, warnings := a.Adapt(scenarios, "1h", 2.0, 1.0, testCandidates)
	for _, s := range out {
		assert.NotEqual(t, BiasShort, s.Bias, "no short candidates existed; none should be fabricated")
	}
	assert.Contains(t, warnings, "no_short_candidate_produced")
}

func TestAdaptTruncatesToMaxScenarios(t *testing.T) {
	scenarios := []Scenario{longScenario(0.9), longScenario(0.8), longScenario(0.7), longScenario(0.6), longScenario(0.5)}
	a := NewAdapter(2)
	out, _ := a.Adapt(scenarios, "1h", 2.0, 1.0, testCandidates)
	assert.Len(t, out, 3, "max_scenarios floors at 3 per the k-policy even when configured lower")
}

func TestAdaptEntryTriggerAndNoTradeConditions(t *testing.T) {
	a := NewAdapter(3)
	out, _ := a.Adapt([]Scenario{longScenario(0.9)}, "1h", 2.0, 1.0, testCandidates)
	require.Len(t, out, 1)
	assert.Equal(t, "break above 101", out[0].EntryTrigger)
	assert.Len(t, out[0].NoTradeConditions, 2)
}

func TestAdaptSnapsPriceWithinTolerOfCandidate(t *testing.T) {
	sc := longScenario(0.9)
	sc.Entry.PriceMin = 100.05 // within 0.1% of candidate 100, not an exact match
	candidates := []float64{85, 90, 95, 97, 100, 101, 105, 110, 115}
	a := NewAdapter(3)
	out, _ := a.Adapt([]Scenario{sc}, "1h", 2.0, 1.0, candidates)
	require.Len(t, out, 1)
	assert.Equal(t, 100.0, out[0].Entry.PriceMin, "a price within 0.1%% of a candidate must snap to it exactly")
}

func TestAdaptDropsScenarioWithPriceFarFromAnyCandidate(t *testing.T) {
	sc := longScenario(0.9)
	sc.Targets[2].Price = 123.45 // nowhere near any candidate
	candidates := []float64{85, 90, 95, 97, 100, 101, 105, 110, 115}
	a := NewAdapter(3)
	out, _ := a.Adapt([]Scenario{sc}, "1h", 2.0, 1.0, candidates)
	assert.Empty(t, out, "a price with no candidate within 0.1%% must be dropped, not left floating")
}
