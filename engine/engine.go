package engine

import (
	"context"
	"errors"
	"time"

	"github.com/kpizzy812/futures-scenario-engine/collector"
	"github.com/kpizzy812/futures-scenario-engine/errs"
	"github.com/kpizzy812/futures-scenario-engine/indicator"
	"github.com/kpizzy812/futures-scenario-engine/levels"
	"github.com/kpizzy812/futures-scenario-engine/liquidation"
	"github.com/kpizzy812/futures-scenario-engine/logger"
	"github.com/kpizzy812/futures-scenario-engine/marketcontext"
	"github.com/kpizzy812/futures-scenario-engine/mcp"
	"github.com/kpizzy812/futures-scenario-engine/quality"
	"github.com/kpizzy812/futures-scenario-engine/scenario"
	"github.com/kpizzy812/futures-scenario-engine/structure"
)

// Engine wires every component into the spec's fixed pipeline order:
// collect -> structure+aggregate -> score -> extract -> generate ->
// adapt -> assess. One Engine is built once per process and reused
// across requests; its LLM semaphore is the only per-request-bounding
// shared state beyond what Collector already owns.
type Engine struct {
	Collector       *collector.Collector
	StructureConfig StructureConfig
	Client          mcp.AIClient
	MaxScenarios    int
	Deadline        time.Duration

	llmSemaphore chan struct{}
	llmAcquire   time.Duration
}

// StructureConfig mirrors the Price-Structure Summarizer's tunables
// (spec §6: swing_min_separation=5, lookback_intraday=50,
// lookback_daily=30), held here rather than duplicated per request.
type StructureConfig struct {
	SwingMinSeparation int
	LookbackIntraday   int
	LookbackDaily      int
}

func New(coll *collector.Collector, client mcp.AIClient, structureCfg StructureConfig, maxScenarios int, deadline time.Duration, llmSemaphoreSize int, llmAcquireTimeout time.Duration) *Engine {
	if maxScenarios < 1 {
		maxScenarios = 3
	}
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	if llmSemaphoreSize < 1 {
		llmSemaphoreSize = 8
	}
	if llmAcquireTimeout <= 0 {
		llmAcquireTimeout = 5 * time.Second
	}
	return &Engine{
		Collector:       coll,
		StructureConfig: structureCfg,
		Client:          client,
		MaxScenarios:    maxScenarios,
		Deadline:        deadline,
		llmSemaphore:    make(chan struct{}, llmSemaphoreSize),
		llmAcquire:      llmAcquireTimeout,
	}
}

// AnalyzeSymbol runs the full pipeline under a bounded deadline. A
// collector failure on the primary OHLCV series is the only hard
// error; every later stage degrades into a warning on data_quality or
// an empty scenario set rather than aborting with a 5xx.
func (e *Engine) AnalyzeSymbol(ctx context.Context, symbol, timeframe string, maxScenarios int) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Deadline)
	defer cancel()

	if maxScenarios < 1 {
		maxScenarios = e.MaxScenarios
	}
	if maxScenarios > 5 {
		maxScenarios = 5
	}

	data, err := e.Collector.Collect(ctx, symbol, timeframe)
	if err != nil {
		return Response{}, classifyCollectError(err)
	}

	currentPrice := 0.0
	if n := len(data.PrimaryOHLCV); n > 0 {
		currentPrice = data.PrimaryOHLCV[n-1].Close
	}

	ind := indicator.Compute(data.PrimaryOHLCV)

	analyzer := structure.NewAnalyzer(e.StructureConfig.SwingMinSeparation, e.StructureConfig.LookbackIntraday, e.StructureConfig.LookbackDaily)
	str := analyzer.Summarize(data.PrimaryOHLCV, timeframe, ind)
	mergeMTFTrendState(str, analyzer, data, timeframe)

	liqClusters := liquidation.Aggregate(data.LiquidationEvents, currentPrice, 24)

	mtfDir, mtfConcordant := mtfConcordance(str, timeframe)

	inputs := marketcontext.Inputs{
		Timeframe:        timeframe,
		EMAStackBullish:  ind.HasEMA200 && ind.EMA20 > ind.EMA50 && ind.EMA50 > ind.EMA200,
		EMAStackBearish:  ind.HasEMA200 && ind.EMA20 < ind.EMA50 && ind.EMA50 < ind.EMA200,
		MTFConcordant:    mtfConcordant,
		MTFConcordantDir: mtfDir,
		RSI14:            ind.RSI14,
		HasRSI:           ind.HasRSI14,
		FundingRatePct:   data.FundingRatePct,
		HasFunding:       data.HasFunding,
		LongShortRatio:   data.LongShortRatio,
		HasLSR:           data.HasLSR,
		FearGreedIndex:   float64(data.SentimentIndex),
		HasSentiment:     data.HasSentiment,
		ADX:              ind.ADX,
		LiqPressureBias:  marketcontext.Bias(liqClusters.LiqPressureBias),
	}
	mktCtx := marketcontext.Score(inputs, string(str.TrendState[timeframe]), string(str.VolatilityRegime))

	candidates := levels.Extract(levels.Sources{
		CurrentPrice: currentPrice,
		ATR:          ind.ATR,
		SwingHighs:   swingPrices(str.SwingHighs),
		SwingLows:    swingPrices(str.SwingLows),
		EMA20:        ind.EMA20,
		EMA50:        ind.EMA50,
		EMA200:       ind.EMA200,
		VWAP:         ind.VWAP,
		RangeHigh:    str.RangeHigh,
		RangeLow:     str.RangeLow,
	})

	md := scenario.BuildMarketData(symbol, timeframe, currentPrice, ind, str, candidates, liqClusters, mktCtx)

	candidateList := make([]float64, 0, len(candidates.Supports)+len(candidates.Resistances))
	candidateList = append(candidateList, candidates.Supports...)
	candidateList = append(candidateList, candidates.Resistances...)

	scenarios, adapterWarnings, reasoning := e.generateAndAdapt(ctx, md, timeframe, ind, maxScenarios, candidateList)

	qualityReport := quality.Assess(data.Quality)
	qualityReport.Warnings = append(qualityReport.Warnings, adapterWarnings...)

	return Response{
		Success:           true,
		Symbol:            symbol,
		Timeframe:         timeframe,
		AnalysisTimestamp: time.Now().UTC(),
		CurrentPrice:      currentPrice,
		MarketContext:     mktCtx,
		Scenarios:         scenarios,
		KeyLevels:         candidates,
		DataQuality:       qualityReport,
		Reasoning:         reasoning,
	}, nil
}

// generateAndAdapt acquires the bounded LLM semaphore, runs the
// Scenario Generator, and adapts the result. A generation failure
// (soft-failure after 2 attempts, or a semaphore timeout) yields an
// empty scenario list rather than failing the whole request - the
// caller still gets market_context, key_levels and data_quality.
func (e *Engine) generateAndAdapt(ctx context.Context, md scenario.MarketData, timeframe string, ind indicator.Set, maxScenarios int, candidates []float64) ([]scenario.Scenario, []string, string) {
	acquireCtx, cancel := context.WithTimeout(ctx, e.llmAcquire)
	defer cancel()

	select {
	case e.llmSemaphore <- struct{}{}:
		defer func() { <-e.llmSemaphore }()
	case <-acquireCtx.Done():
		logger.Warnf("llm semaphore acquire timed out for %s %s", md.Symbol, md.Timeframe)
		return nil, nil, ""
	}

	gen := scenario.NewGenerator(e.Client)
	raw, reasoning, err := gen.Generate(ctx, md, maxScenarios)
	if err != nil {
		logger.Warnf("scenario generation failed for %s %s: %v", md.Symbol, md.Timeframe, err)
		return nil, []string{"scenario_generation_failed"}, ""
	}

	adapter := scenario.NewAdapter(maxScenarios)
	scenarios, warnings := adapter.Adapt(raw, timeframe, ind.ATR, ind.ATRPercent, candidates)
	return scenarios, warnings, reasoning
}

func swingPrices(points []structure.SwingPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}

// mergeMTFTrendState folds each available MTF series' own trend state
// into str.TrendState, so mtfConcordance below can compare the primary
// timeframe's trend against its higher timeframes.
func mergeMTFTrendState(str structure.Summary, analyzer *structure.Analyzer, data collector.CollectedData, primaryTimeframe string) {
	for tf, klines := range data.MTFOHLCV {
		if tf == primaryTimeframe || len(klines) == 0 {
			continue
		}
		ind := indicator.Compute(klines)
		mtfSummary := analyzer.Summarize(klines, tf, ind)
		for k, v := range mtfSummary.TrendState {
			str.TrendState[k] = v
		}
	}
}

// mtfConcordance reports whether the higher timeframes agree with the
// primary timeframe's trend direction (spec §4.5's mtf_concordant
// input), and which direction they agree on.
func mtfConcordance(str structure.Summary, primaryTimeframe string) (dir int, concordant bool) {
	primary, ok := str.TrendState[primaryTimeframe]
	if !ok {
		return 0, false
	}
	primaryDir := trendDirection(primary)
	if primaryDir == 0 {
		return 0, false
	}

	agree, total := 0, 0
	for tf, state := range str.TrendState {
		if tf == primaryTimeframe {
			continue
		}
		d := trendDirection(state)
		if d == 0 {
			continue
		}
		total++
		if d == primaryDir {
			agree++
		}
	}
	if total == 0 {
		return 0, false
	}
	return primaryDir, agree == total
}

// classifyCollectError maps a Collect failure to the spec §7 error
// kinds the HTTP layer switches on: a context deadline is Timeout, a
// missing primary OHLCV series is InsufficientData (never retried
// locally - the caller must re-request), anything else is Internal.
func classifyCollectError(err error) error {
	var insufficient *collector.InsufficientDataError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errs.New(errs.Timeout, err)
	case errors.As(err, &insufficient):
		return errs.New(errs.InsufficientData, err)
	default:
		return errs.New(errs.Internal, err)
	}
}

func trendDirection(state structure.TrendState) int {
	switch state {
	case structure.TrendBullishStrong, structure.TrendBullishWeak:
		return 1
	case structure.TrendBearishStrong, structure.TrendBearishWeak:
		return -1
	default:
		return 0
	}
}
