package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssessFullPresenceScoresHundred(t *testing.T) {
	r := Assess(Sources{
		PrimaryOHLCV: true, MTF: true, Funding: true, OpenInterest: true,
		LongShort: true, Liquidation: true, Sentiment: true,
	})
	assert.Equal(t, 100.0, r.Completeness)
	assert.Empty(t, r.Warnings)
	assert.Len(t, r.Sources, 7)
}

func TestAssessZeroPresenceScoresZero(t *testing.T) {
	r := Assess(Sources{})
	assert.Equal(t, 0.0, r.Completeness)
	assert.Len(t, r.Warnings, 7)
	assert.Empty(t, r.Sources)
}

func TestAssessPrimaryOHLCVDominatesWeight(t *testing.T) {
	r := Assess(Sources{PrimaryOHLCV: true})
	assert.Equal(t, 40.0, r.Completeness)
}

func TestAssessMissingFundingAddsWarning(t *testing.T) {
	r := Assess(Sources{PrimaryOHLCV: true, MTF: true, OpenInterest: true, LongShort: true, Liquidation: true, Sentiment: true})
	assert.Contains(t, r.Warnings, "funding_rate_unavailable")
	assert.Equal(t, 90.0, r.Completeness)
}

func TestAssessMissingLiquidationUsesSpecWarningToken(t *testing.T) {
	r := Assess(Sources{PrimaryOHLCV: true, MTF: true, Funding: true, OpenInterest: true, LongShort: true, Sentiment: true})
	assert.Contains(t, r.Warnings, "liquidation_data_unavailable")
	assert.GreaterOrEqual(t, r.Completeness, 85.0)
}

func TestAssessWeightsSumToHundred(t *testing.T) {
	total := weightPrimaryOHLCV + weightMTF + weightFunding + weightOpenInterest + weightLongShort + weightLiquidation + weightSentiment
	assert.Equal(t, 100, total)
}
