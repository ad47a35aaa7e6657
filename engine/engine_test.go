package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpizzy812/futures-scenario-engine/collector"
	"github.com/kpizzy812/futures-scenario-engine/errs"
	"github.com/kpizzy812/futures-scenario-engine/indicator"
	"github.com/kpizzy812/futures-scenario-engine/levels"
	"github.com/kpizzy812/futures-scenario-engine/market"
	"github.com/kpizzy812/futures-scenario-engine/mcp"
	"github.com/kpizzy812/futures-scenario-engine/structure"
)

type fakeProvider struct {
	klines []market.Kline
}

func (p *fakeProvider) Name() string { return "fake" }
func (p *fakeProvider) Klines(ctx context.Context, symbol, timeframe string, limit int) ([]market.Kline, error) {
	return p.klines, nil
}
func (p *fakeProvider) Funding(ctx context.Context, symbol string) (float64, bool, error) {
	return 0.01, true, nil
}
func (p *fakeProvider) OpenInterest(ctx context.Context, symbol string) (float64, bool, error) {
	return 1000, true, nil
}
func (p *fakeProvider) LongShortRatio(ctx context.Context, symbol string) (float64, bool, error) {
	return 1.1, true, nil
}

type fakeAIClient struct {
	response string
}

func (f *fakeAIClient) GetProvider() string { return "fake" }
func (f *fakeAIClient) IsConfigured() bool  { return true }
func (f *fakeAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.response, nil
}
func (f *fakeAIClient) CallWithMessages(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.response, nil
}
func (f *fakeAIClient) CallWithRequest(ctx context.Context, req *mcp.Request) (string, error) {
	return f.response, nil
}

const fakeScenarioResponse = `<reasoning>trend continuation</reasoning>
<scenarios>
` + "```json" + `
[{"id":"s1","name":"n","bias":"long","confidence":0.6,"entry":{"price_min":98,"price_max":100,"type":"limit_order","reason":"r"},"stop_loss":{"conservative":90,"aggressive":94,"recommended":95,"reason":"r"},"targets":[{"level":1,"price":105,"partial_close_pct":50,"rr":1,"reason":"r"},{"level":2,"price":110,"partial_close_pct":30,"rr":2,"reason":"r"},{"level":3,"price":115,"partial_close_pct":20,"rr":3,"reason":"r"}],"leverage":{"recommended":"2x","max_safe":"3x","volatility_adjusted":true,"atr_pct":1.5},"invalidation":{"price":94,"condition":"close below 94"},"why":{"bullish_factors":["f"],"risks":["r"]},"conditions":["c"]}]
` + "```" + `
</scenarios>`

func sampleKlines(n int) []market.Kline {
	out := make([]market.Kline, n)
	price := 100.0
	for i := range out {
		price += 0.1
		out[i] = market.Kline{OpenTime: int64(i), Open: price - 0.1, High: price + 0.5, Low: price - 0.5, Close: price, Volume: 100}
	}
	return out
}

// candidatePricedScenarioResponse builds a single-target long scenario
// whose entry/stop/target are drawn from the same candidate set the
// real pipeline computes for klines, so it survives the adapter's
// candidate-membership invariant (spec §3) instead of colliding with
// arbitrary hardcoded prices.
func candidatePricedScenarioResponse(t *testing.T, klines []market.Kline) string {
	t.Helper()
	currentPrice := klines[len(klines)-1].Close
	ind := indicator.Compute(klines)
	analyzer := structure.NewAnalyzer(5, 50, 30)
	str := analyzer.Summarize(klines, "1h", ind)
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
	require.GreaterOrEqual(t, len(candidates.Supports), 2, "fixture must yield at least 2 support candidates")
	require.GreaterOrEqual(t, len(candidates.Resistances), 1, "fixture must yield at least 1 resistance candidate")

	entry := candidates.Supports[0]
	stop := candidates.Supports[1]
	target := candidates.Resistances[0]
	conservative := stop - (entry-stop)*0.2
	invalidation := stop + (entry-stop)*0.3

	return fmt.Sprintf(`<reasoning>trend continuation</reasoning>
<scenarios>
`+"```json"+`
[{"id":"s1","name":"n","bias":"long","confidence":0.6,"entry":{"price_min":%v,"price_max":%v,"type":"limit_order","reason":"r"},"stop_loss":{"conservative":%v,"aggressive":%v,"recommended":%v,"reason":"r"},"targets":[{"level":1,"price":%v,"partial_close_pct":100,"rr":1,"reason":"r"}],"leverage":{"recommended":"2x","max_safe":"3x","volatility_adjusted":true,"atr_pct":1.5},"invalidation":{"price":%v,"condition":"close below stop"},"why":{"bullish_factors":["f"],"risks":["r"]},"conditions":["c"]}]
`+"```"+`
</scenarios>`, entry, entry, conservative, stop, stop, target, invalidation)
}

func TestAnalyzeSymbolFullPipeline(t *testing.T) {
	primary := &fakeProvider{klines: sampleKlines(250)}
	coll := collector.New(primary, nil, nil, "", nil)
	client := &fakeAIClient{response: candidatePricedScenarioResponse(t, primary.klines)}

	eng := New(coll, client, StructureConfig{SwingMinSeparation: 5, LookbackIntraday: 50, LookbackDaily: 30}, 3, 5*time.Second, 8, 5*time.Second)

	resp, err := eng.AnalyzeSymbol(context.Background(), "BTCUSDT", "1h", 3)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "BTCUSDT", resp.Symbol)
	require.Len(t, resp.Scenarios, 1)
	assert.NotEmpty(t, resp.KeyLevels.Supports)
	assert.NotEmpty(t, resp.KeyLevels.Resistances)
	assert.Greater(t, resp.DataQuality.Completeness, 0.0)
}

func TestAnalyzeSymbolFailsOnInsufficientPrimaryData(t *testing.T) {
	primary := &fakeProvider{klines: nil}
	coll := collector.New(primary, nil, nil, "", nil)
	client := &fakeAIClient{response: fakeScenarioResponse}

	eng := New(coll, client, StructureConfig{}, 3, 5*time.Second, 8, 5*time.Second)

	_, err := eng.AnalyzeSymbol(context.Background(), "BTCUSDT", "1h", 3)
	// primary OHLCV below the 50-bar floor (including entirely absent)
	// is the one fatal failure the pipeline does not degrade around.
	require.Error(t, err)
	ee, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.InsufficientData, ee.Kind)
}

func TestAnalyzeSymbolDegradesScenariosOnLLMFailure(t *testing.T) {
	primary := &fakeProvider{klines: sampleKlines(250)}
	coll := collector.New(primary, nil, nil, "", nil)
	client := &fakeAIClient{response: "not parseable json at all"}

	eng := New(coll, client, StructureConfig{SwingMinSeparation: 5, LookbackIntraday: 50, LookbackDaily: 30}, 3, 5*time.Second, 8, 5*time.Second)

	resp, err := eng.AnalyzeSymbol(context.Background(), "BTCUSDT", "1h", 3)
	require.NoError(t, err, "an LLM failure must degrade to an empty scenario list, not fail the whole request")
	assert.Empty(t, resp.Scenarios)
	assert.True(t, resp.Success)
}
