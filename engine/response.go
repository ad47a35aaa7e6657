// Package engine implements AnalyzeSymbol (spec §4/§5): the strict
// collect -> structure+aggregate -> score -> extract -> generate ->
// adapt -> assess pipeline that ties every other package together.
// Grounded in decision/engine.go's GetFullDecisionWithStrategy, which
// has the same shape (fetch data, ensure it's populated, hand off to
// the LLM, validate the response) generalized to the engine's own
// strict component order and context.Context deadline/cancellation.
package engine

import (
	"time"

	"github.com/kpizzy812/futures-scenario-engine/levels"
	"github.com/kpizzy812/futures-scenario-engine/marketcontext"
	"github.com/kpizzy812/futures-scenario-engine/quality"
	"github.com/kpizzy812/futures-scenario-engine/scenario"
)

// Response is the §3 analysis response record.
type Response struct {
	Success           bool                  `json:"success"`
	Symbol            string                `json:"symbol"`
	Timeframe         string                `json:"timeframe"`
	AnalysisTimestamp time.Time             `json:"analysis_timestamp"`
	CurrentPrice      float64               `json:"current_price"`
	MarketContext     marketcontext.Context `json:"market_context"`
	Scenarios         []scenario.Scenario   `json:"scenarios"`
	KeyLevels         levels.Candidates     `json:"key_levels"`
	DataQuality       quality.Report        `json:"data_quality"`
	Reasoning         string                `json:"reasoning,omitempty"`
}
