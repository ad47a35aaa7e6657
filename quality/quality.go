// Package quality implements the Quality Assessor (spec §4.9): a pure
// function scoring how complete the collected market data was, so a
// request that degraded gracefully (missing funding, missing
// liquidation history, a rate-limited secondary provider) still
// returns scenarios with an honest confidence signal attached, instead
// of silently pretending the data was whole.
package quality

// Sources records, per data source, whether the Collector was able to
// populate it for this request. Every field maps 1:1 onto a weighted
// presence check.
type Sources struct {
	PrimaryOHLCV bool
	MTF          bool
	Funding      bool
	OpenInterest bool
	LongShort    bool
	Liquidation  bool
	Sentiment    bool
}

const (
	weightPrimaryOHLCV = 40
	weightMTF          = 15
	weightFunding      = 10
	weightOpenInterest = 10
	weightLongShort    = 5
	weightLiquidation  = 15
	weightSentiment    = 5
)

// Report is the §3 data_quality record attached to an analysis response.
type Report struct {
	Completeness float64  `json:"completeness"`
	Warnings     []string `json:"warnings"`
	Sources      []string `json:"sources"`
}

// Assess scores completeness as the sum of weighted-present sources
// (weights sum to 100 by construction), and names exactly which
// sources were present vs. absent so a caller can see why confidence
// dropped.
func Assess(s Sources) Report {
	var completeness float64
	var present, warnings []string

	add := func(ok bool, weight float64, name, warningToken string) {
		if ok {
			completeness += weight
			present = append(present, name)
		} else {
			warnings = append(warnings, warningToken)
		}
	}

	add(s.PrimaryOHLCV, weightPrimaryOHLCV, "primary_ohlcv", "primary_ohlcv_unavailable")
	add(s.MTF, weightMTF, "multi_timeframe", "multi_timeframe_unavailable")
	add(s.Funding, weightFunding, "funding_rate", "funding_rate_unavailable")
	add(s.OpenInterest, weightOpenInterest, "open_interest", "open_interest_unavailable")
	add(s.LongShort, weightLongShort, "long_short_ratio", "long_short_ratio_unavailable")
	add(s.Liquidation, weightLiquidation, "liquidation_history", "liquidation_data_unavailable")
	add(s.Sentiment, weightSentiment, "sentiment", "sentiment_unavailable")

	return Report{
		Completeness: completeness,
		Warnings:     warnings,
		Sources:      present,
	}
}
