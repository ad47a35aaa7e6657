package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	bybit "github.com/bybit-exchange/bybit.go.api"

	"github.com/kpizzy812/futures-scenario-engine/market"
)

// BybitProvider is the secondary/failover provider (spec §4.1): wired
// behind the same Provider interface as BinanceProvider and selected by
// the Collector when Binance is rate-limited or returns 5xx, per the
// retry/failover idiom of provider/data_provider.go.
type BybitProvider struct {
	client *bybit.Client
}

func NewBybitProvider(apiKey, apiSecret string) *BybitProvider {
	return &BybitProvider{client: bybit.NewBybitHttpClient(apiKey, apiSecret, bybit.WithBaseURL(bybit.MAINNET))}
}

func (p *BybitProvider) Name() string { return "bybit" }

type bybitKlineResult struct {
	List [][]string `json:"list"`
}

func (p *BybitProvider) Klines(ctx context.Context, symbol, timeframe string, limit int) ([]market.Kline, error) {
	resp, err := p.client.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": "linear",
		"symbol":   symbol,
		"interval": bybitInterval(timeframe),
		"limit":    limit,
	}).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("bybit klines %s %s: %w", symbol, timeframe, err)
	}

	var result bybitKlineResult
	if err := unmarshalBybitResult(resp, &result); err != nil {
		return nil, fmt.Errorf("bybit klines %s %s: %w", symbol, timeframe, err)
	}

	out := make([]market.Kline, 0, len(result.List))
	for _, row := range result.List {
		k, err := convertBybitKlineRow(row)
		if err != nil {
			return nil, fmt.Errorf("bybit klines %s %s: %w", symbol, timeframe, err)
		}
		out = append(out, k)
	}
	// Bybit returns newest-first; the rest of the engine expects ascending time.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// convertBybitKlineRow parses a v5 kline row:
// [start, open, high, low, close, volume, turnover].
func convertBybitKlineRow(row []string) (market.Kline, error) {
	if len(row) < 6 {
		return market.Kline{}, fmt.Errorf("unexpected kline row shape: %v", row)
	}
	startMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return market.Kline{}, err
	}
	open, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return market.Kline{}, err
	}
	high, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return market.Kline{}, err
	}
	low, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return market.Kline{}, err
	}
	closePrice, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return market.Kline{}, err
	}
	volume, err := strconv.ParseFloat(row[5], 64)
	if err != nil {
		return market.Kline{}, err
	}
	return market.Kline{OpenTime: startMs, Open: open, High: high, Low: low, Close: closePrice, Volume: volume}, nil
}

type bybitFundingResult struct {
	List []struct {
		FundingRate string `json:"fundingRate"`
	} `json:"list"`
}

func (p *BybitProvider) Funding(ctx context.Context, symbol string) (float64, bool, error) {
	resp, err := p.client.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": "linear",
		"symbol":   symbol,
		"limit":    1,
	}).Do(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("bybit funding %s: %w", symbol, err)
	}
	var result bybitFundingResult
	if err := unmarshalBybitResult(resp, &result); err != nil {
		return 0, false, fmt.Errorf("bybit funding %s: %w", symbol, err)
	}
	if len(result.List) == 0 {
		return 0, false, nil
	}
	rate, err := strconv.ParseFloat(result.List[0].FundingRate, 64)
	if err != nil {
		return 0, false, fmt.Errorf("bybit funding %s: %w", symbol, err)
	}
	return rate, true, nil
}

type bybitTickerResult struct {
	List []struct {
		OpenInterest string `json:"openInterest"`
	} `json:"list"`
}

func (p *BybitProvider) OpenInterest(ctx context.Context, symbol string) (float64, bool, error) {
	resp, err := p.client.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": "linear",
		"symbol":   symbol,
	}).Do(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("bybit open interest %s: %w", symbol, err)
	}
	var result bybitTickerResult
	if err := unmarshalBybitResult(resp, &result); err != nil {
		return 0, false, fmt.Errorf("bybit open interest %s: %w", symbol, err)
	}
	if len(result.List) == 0 {
		return 0, false, nil
	}
	oi, err := strconv.ParseFloat(result.List[0].OpenInterest, 64)
	if err != nil {
		return 0, false, fmt.Errorf("bybit open interest %s: %w", symbol, err)
	}
	return oi, true, nil
}

// Bybit's v5 API has no direct long/short-ratio equivalent exposed
// through this SDK; Binance remains the sole source for that field and
// the Collector treats its absence here as a normal degrade-gracefully
// case, not a failover trigger.
func (p *BybitProvider) LongShortRatio(ctx context.Context, symbol string) (float64, bool, error) {
	return 0, false, nil
}

func bybitInterval(timeframe string) string {
	switch timeframe {
	case "15m":
		return "15"
	case "1h":
		return "60"
	case "4h":
		return "240"
	case "6h":
		return "360"
	case "12h":
		return "720"
	case "1d":
		return "D"
	case "1w":
		return "W"
	default:
		return "60"
	}
}

func unmarshalBybitResult(resp *bybit.ServerResponse, out interface{}) error {
	if resp == nil {
		return fmt.Errorf("nil bybit response")
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
