package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const DefaultLocalFuncModel = "local-function"

// LocalFuncClient is the deterministic, never-calls-an-LLM AIClient
// (spec §4.7's "LocalFuncClient analog"). Instead of completing a chat
// request over HTTP, it reads the market_data JSON the Scenario
// Generator embeds in its own user prompt and derives scenarios
// straight from the candidate support/resistance levels - useful as an
// offline fallback and as a deterministic test double for the rest of
// the pipeline. Grounded in mcp/localfunc_client.go's "never makes HTTP
// calls" role, retargeted from intercepting the caller's decision flow
// entirely (the teacher's decision/localfunc.go did that) to actually
// answering CallWithMessages/CallWithRequest so it can be selected like
// any other provider through NewClientForProvider.
type LocalFuncClient struct {
	*Client
}

func NewLocalFuncClient() AIClient {
	return NewLocalFuncClientWithOptions()
}

func NewLocalFuncClientWithOptions(opts ...ClientOption) AIClient {
	localfuncOpts := []ClientOption{
		WithProvider(ProviderLocalFunc),
		WithModel(DefaultLocalFuncModel),
	}
	allOpts := append(localfuncOpts, opts...)
	baseClient := NewClient(allOpts...).(*Client)

	client := &LocalFuncClient{Client: baseClient}
	baseClient.hooks = client
	return client
}

func (c *LocalFuncClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.CallWithMessages(ctx, systemPrompt, userPrompt)
}

// CallWithMessages never leaves the process. It pulls the market_data
// block back out of userPrompt (the Scenario Generator always embeds
// one - see scenario.buildUserPrompt) and builds up to one long and one
// short scenario from the nearest candidate levels on each side,
// skipping a side that has fewer than two candidates to anchor an
// entry and a stop on.
func (c *LocalFuncClient) CallWithMessages(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	md, err := extractLocalFuncMarketData(userPrompt)
	if err != nil {
		return "", fmt.Errorf("mcp: localfunc: %w", err)
	}

	scenarios := deriveLocalFuncScenarios(md)
	if len(scenarios) == 0 {
		return "", fmt.Errorf("mcp: localfunc: no candidate levels to build a scenario from")
	}

	payload, err := json.Marshal(scenarios)
	if err != nil {
		return "", fmt.Errorf("mcp: localfunc: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("<reasoning>\nderived from the nearest candidate levels; no LLM call was made\n</reasoning>\n\n<scenarios>\n```json\n")
	sb.Write(payload)
	sb.WriteString("\n```\n</scenarios>")
	return sb.String(), nil
}

func (c *LocalFuncClient) CallWithRequest(ctx context.Context, req *Request) (string, error) {
	return c.CallWithMessages(ctx, req.SystemPrompt, req.UserPrompt)
}

// localFuncMarketData is the minimal subset of scenario.MarketData this
// client reads back out of the prompt - just enough to pick candidate
// prices, without importing the scenario package (which already
// imports mcp).
type localFuncMarketData struct {
	CurrentPrice float64 `json:"current_price"`
	Levels       struct {
		Supports    []float64
		Resistances []float64
	} `json:"levels"`
}

// extractLocalFuncMarketData finds the "market_data:" marker
// scenario.buildUserPrompt always writes and decodes the one JSON value
// that follows it, ignoring the trailing instructions text.
func extractLocalFuncMarketData(userPrompt string) (localFuncMarketData, error) {
	const marker = "market_data:"
	idx := strings.Index(userPrompt, marker)
	if idx < 0 {
		return localFuncMarketData{}, fmt.Errorf("no market_data block in prompt")
	}

	dec := json.NewDecoder(strings.NewReader(userPrompt[idx+len(marker):]))
	var md localFuncMarketData
	if err := dec.Decode(&md); err != nil {
		return localFuncMarketData{}, fmt.Errorf("decode market_data: %w", err)
	}
	return md, nil
}

// deriveLocalFuncScenarios builds a long scenario anchored on the
// nearest two supports and the nearest resistance, and a short
// scenario mirrored on the resistance side, whenever there are enough
// candidates to do so. Never fabricates a side with insufficient data.
func deriveLocalFuncScenarios(md localFuncMarketData) []map[string]any {
	var out []map[string]any
	if len(md.Levels.Supports) >= 2 && len(md.Levels.Resistances) >= 1 {
		out = append(out, localFuncLongScenario(md.Levels.Supports[0], md.Levels.Supports[1], md.Levels.Resistances[0]))
	}
	if len(md.Levels.Resistances) >= 2 && len(md.Levels.Supports) >= 1 {
		out = append(out, localFuncShortScenario(md.Levels.Resistances[0], md.Levels.Resistances[1], md.Levels.Supports[0]))
	}
	return out
}

func localFuncLongScenario(entry, stop, target float64) map[string]any {
	conservative := stop - (entry-stop)*0.2
	invalidation := stop + (entry-stop)*0.3
	return map[string]any{
		"id": "localfunc-long", "name": "nearest support reclaim", "bias": "long", "confidence": 0.5,
		"entry":     map[string]any{"price_min": entry, "price_max": entry, "type": "limit_order", "reason": "nearest support candidate"},
		"stop_loss": map[string]any{"conservative": conservative, "aggressive": stop, "recommended": stop, "reason": "next support candidate down"},
		"targets": []map[string]any{
			{"level": 1, "price": target, "partial_close_pct": 100, "rr": 1, "reason": "nearest resistance candidate"},
		},
		"leverage":     map[string]any{"recommended": "1x", "max_safe": "1x", "volatility_adjusted": false, "atr_pct": 0.0},
		"invalidation": map[string]any{"price": invalidation, "condition": "close back below the entry support"},
		"why": map[string]any{
			"bullish_factors": []string{"price holding above the nearest support candidate"},
			"risks":           []string{"derived algorithmically, not from an LLM read of conditions"},
		},
		"conditions": []string{"price reclaims the entry support"},
	}
}

func localFuncShortScenario(entry, stop, target float64) map[string]any {
	conservative := stop + (stop-entry)*0.2
	invalidation := stop - (stop-entry)*0.3
	return map[string]any{
		"id": "localfunc-short", "name": "nearest resistance rejection", "bias": "short", "confidence": 0.5,
		"entry":     map[string]any{"price_min": entry, "price_max": entry, "type": "limit_order", "reason": "nearest resistance candidate"},
		"stop_loss": map[string]any{"conservative": conservative, "aggressive": stop, "recommended": stop, "reason": "next resistance candidate up"},
		"targets": []map[string]any{
			{"level": 1, "price": target, "partial_close_pct": 100, "rr": 1, "reason": "nearest support candidate"},
		},
		"leverage":     map[string]any{"recommended": "1x", "max_safe": "1x", "volatility_adjusted": false, "atr_pct": 0.0},
		"invalidation": map[string]any{"price": invalidation, "condition": "close back above the entry resistance"},
		"why": map[string]any{
			"bearish_factors": []string{"price rejected at the nearest resistance candidate"},
			"risks":           []string{"derived algorithmically, not from an LLM read of conditions"},
		},
		"conditions": []string{"price rejects the entry resistance"},
	}
}
