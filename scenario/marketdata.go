package scenario

import (
	"github.com/kpizzy812/futures-scenario-engine/indicator"
	"github.com/kpizzy812/futures-scenario-engine/levels"
	"github.com/kpizzy812/futures-scenario-engine/liquidation"
	"github.com/kpizzy812/futures-scenario-engine/marketcontext"
	"github.com/kpizzy812/futures-scenario-engine/structure"
)

// MarketData is the compact JSON object handed to the LLM - current
// price, context, structure, candidate levels, liquidation clusters,
// key indicators, and timeframe, deliberately flat and numeric rather
// than narrated (spec §4.7: "input is JSON, not prose").
type MarketData struct {
	Symbol       string  `json:"symbol"`
	Timeframe    string  `json:"timeframe"`
	CurrentPrice float64 `json:"current_price"`

	Context   marketcontext.Context `json:"context"`
	Structure structure.Summary     `json:"structure"`
	Levels    levels.Candidates     `json:"levels"`

	LiquidationClusters liquidation.Clusters `json:"liquidation_clusters"`

	RSI14      float64 `json:"rsi_14,omitempty"`
	MACDHist   float64 `json:"macd_hist,omitempty"`
	ATR        float64 `json:"atr,omitempty"`
	ATRPercent float64 `json:"atr_percent,omitempty"`
	EMA20      float64 `json:"ema_20,omitempty"`
	EMA50      float64 `json:"ema_50,omitempty"`
	VWAP       float64 `json:"vwap,omitempty"`
}

// BuildMarketData assembles the compact JSON object from each
// component's output. Indicator fields are only populated when the
// underlying window was long enough (omitted-not-zero propagates here
// too, via the Has* gates on ind).
func BuildMarketData(symbol, timeframe string, currentPrice float64, ind indicator.Set, str structure.Summary, cand levels.Candidates, liq liquidation.Clusters, ctx marketcontext.Context) MarketData {
	md := MarketData{
		Symbol:              symbol,
		Timeframe:           timeframe,
		CurrentPrice:        currentPrice,
		Context:             ctx,
		Structure:           str,
		Levels:              cand,
		LiquidationClusters: liq,
	}
	if ind.HasRSI14 {
		md.RSI14 = ind.RSI14
	}
	if ind.HasMACD {
		md.MACDHist = ind.MACDHist
	}
	if ind.HasATR {
		md.ATR = ind.ATR
		md.ATRPercent = ind.ATRPercent
	}
	if ind.HasEMA20 {
		md.EMA20 = ind.EMA20
	}
	if ind.HasEMA50 {
		md.EMA50 = ind.EMA50
	}
	if ind.HasVWAP {
		md.VWAP = ind.VWAP
	}
	return md
}
