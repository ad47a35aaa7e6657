// Package scenario implements the Scenario Generator (spec §4.7) and
// Scenario Adapter (spec §4.8). The LLM-response-parsing-with-repair
// idiom (XML-tag extraction, ```json fence extraction, unicode-punctuation
// normalization, thousand-separator/range-symbol rejection, truncation
// detection, graceful fallback) is ported from
// decision/engine.go's extractDecisions/fixMissingQuotes/validateJSONFormat,
// retargeted from []Decision to []Scenario.
package scenario

type Bias string

const (
	BiasLong    Bias = "long"
	BiasShort   Bias = "short"
	BiasNeutral Bias = "neutral"
)

type EntryType string

const (
	EntryLimitOrder  EntryType = "limit_order"
	EntryMarketOrder EntryType = "market_order"
)

type Entry struct {
	PriceMin float64   `json:"price_min"`
	PriceMax float64   `json:"price_max"`
	Type     EntryType `json:"type"`
	Reason   string    `json:"reason"`
}

type StopLoss struct {
	Conservative float64 `json:"conservative"`
	Aggressive   float64 `json:"aggressive"`
	Recommended  float64 `json:"recommended"`
	Reason       string  `json:"reason"`
}

type Target struct {
	Level           int     `json:"level"`
	Price           float64 `json:"price"`
	PartialClosePct float64 `json:"partial_close_pct"`
	RR              float64 `json:"rr"`
	Reason          string  `json:"reason"`
}

type Leverage struct {
	Recommended         string  `json:"recommended"`
	MaxSafe             string  `json:"max_safe"`
	VolatilityAdjusted  bool    `json:"volatility_adjusted"`
	ATRPct              float64 `json:"atr_pct"`
}

type Invalidation struct {
	Price     float64 `json:"price"`
	Condition string  `json:"condition"`
}

type Why struct {
	BullishFactors []string `json:"bullish_factors,omitempty"`
	BearishFactors []string `json:"bearish_factors,omitempty"`
	Risks          []string `json:"risks"`
}

// Scenario is the §3 "Scenario" record, including the fields the
// adapter adds after generation.
type Scenario struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Bias       Bias    `json:"bias"`
	Confidence float64 `json:"confidence"`

	Entry        Entry        `json:"entry"`
	StopLoss     StopLoss     `json:"stop_loss"`
	Targets      []Target     `json:"targets"`
	Leverage     Leverage     `json:"leverage"`
	Invalidation Invalidation `json:"invalidation"`
	Why          Why          `json:"why"`
	Conditions   []string     `json:"conditions"`

	// Adapter-added (spec §4.8 / §3)
	StopPctOfEntry    float64  `json:"stop_pct_of_entry"`
	ATRMultipleStop   float64  `json:"atr_multiple_stop"`
	TimeValidHours    float64  `json:"time_valid_hours"`
	EntryTrigger      string   `json:"entry_trigger"`
	NoTradeConditions []string `json:"no_trade_conditions"`
}

// rawScenario is the wire shape the LLM is asked to emit - a subset
// missing the adapter-added fields, matched against json.Unmarshal
// before those fields are computed.
type rawScenario struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Bias       Bias    `json:"bias"`
	Confidence float64 `json:"confidence"`

	Entry        Entry        `json:"entry"`
	StopLoss     StopLoss     `json:"stop_loss"`
	Targets      []Target     `json:"targets"`
	Leverage     Leverage     `json:"leverage"`
	Invalidation Invalidation `json:"invalidation"`
	Why          Why          `json:"why"`
	Conditions   []string     `json:"conditions"`
}
