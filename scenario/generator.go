package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/kpizzy812/futures-scenario-engine/logger"
	"github.com/kpizzy812/futures-scenario-engine/mcp"
)

var (
	reJSONFence      = regexp.MustCompile(`(?is)` + "```json\\s*(\\[\\s*\\{.*?\\}\\s*\\])\\s*```")
	reJSONArray      = regexp.MustCompile(`(?is)\[\s*\{.*?\}\s*\]`)
	reArrayHead      = regexp.MustCompile(`^\[\s*\{`)
	reArrayOpenSpace = regexp.MustCompile(`^\[\s+\{`)
	reInvisibleRunes = regexp.MustCompile("[​‌‍﻿]")
	reReasoningTag   = regexp.MustCompile(`(?s)<reasoning>(.*?)</reasoning>`)
	reDecisionTag    = regexp.MustCompile(`(?s)<scenarios>(.*?)</scenarios>`)
)

// Generator asks an LLM to produce K diverse scenarios selected from
// the candidate level set, parses and validates the response. The only
// I/O in the whole pipeline, and the only suspension point.
type Generator struct {
	Client      mcp.AIClient
	Temperature float64
}

func NewGenerator(client mcp.AIClient) *Generator {
	return &Generator{Client: client, Temperature: 0.2}
}

// Generate requests max(maxScenarios, 3) candidate scenarios and
// returns the parsed, not-yet-adapted set, plus the reasoning trace for
// the audit log. A validation failure is retried once; after two
// failures it returns nil scenarios and an error, which the caller
// (engine) turns into an empty scenario list plus a data_quality warning
// rather than aborting the whole request.
func (g *Generator) Generate(ctx context.Context, md MarketData, maxScenarios int) ([]Scenario, string, error) {
	k := maxScenarios
	if k < 3 {
		k = 3
	}

	systemPrompt := buildSystemPrompt()
	userPrompt, err := buildUserPrompt(md, k)
	if err != nil {
		return nil, "", fmt.Errorf("scenario: build prompt: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		raw, callErr := g.Client.CallWithMessages(ctx, systemPrompt, userPrompt)
		if callErr != nil {
			logger.AuditLLMCall(md.Symbol, md.Timeframe, g.Client.GetProvider(), systemPrompt, userPrompt, "", callErr)
			lastErr = callErr
			continue
		}

		scenarios, parseErr := parseScenarios(raw)
		logger.AuditLLMCall(md.Symbol, md.Timeframe, g.Client.GetProvider(), systemPrompt, userPrompt, raw, parseErr)
		if parseErr == nil {
			return stampIDs(scenarios), extractReasoning(raw), nil
		}
		lastErr = parseErr
		logger.Warnf("scenario generation attempt %d/2 failed to parse for %s %s: %v", attempt, md.Symbol, md.Timeframe, parseErr)
	}

	// Two failures: the engine treats this error as a soft failure -
	// empty scenarios and a data_quality warning, not a failed request.
	return nil, "", fmt.Errorf("scenario: generation failed after 2 attempts: %w", lastErr)
}

func stampIDs(scenarios []Scenario) []Scenario {
	for i := range scenarios {
		if scenarios[i].ID == "" {
			scenarios[i].ID = uuid.NewString()
		}
	}
	return scenarios
}

func buildSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are a futures trading scenario generator. ")
	sb.WriteString("You are given a compact JSON market_data object: current price, market context, price structure, candidate support/resistance levels, liquidation clusters, and key indicators for one symbol and timeframe.\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Use only prices from supports/resistances/swing_highs/swing_lows/ema_20/ema_50/vwap; do not invent prices.\n")
	sb.WriteString("- Produce diverse scenarios: prefer covering both long and short when the data supports it.\n")
	sb.WriteString("- Respond with reasoning first, then strict JSON.\n\n")
	sb.WriteString("YOUR RESPONSE MUST START WITH `<reasoning>` AND END WITH `</scenarios>`.\n")
	sb.WriteString("<reasoning>\n...\n</reasoning>\n\n<scenarios>\n```json\n[{...}]\n```\n</scenarios>\n")
	return sb.String()
}

func buildUserPrompt(md MarketData, k int) (string, error) {
	payload, err := json.Marshal(md)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate %d candidate scenarios for %s on %s.\n\n", k, md.Symbol, md.Timeframe)
	sb.WriteString("market_data:\n")
	sb.Write(payload)
	sb.WriteString("\n\nEach scenario needs: id, name, bias, confidence, entry{price_min,price_max,type,reason}, stop_loss{conservative,aggressive,recommended,reason}, targets[]{level,price,partial_close_pct,rr,reason}, leverage{recommended,max_safe,volatility_adjusted,atr_pct}, invalidation{price,condition}, why{bullish_factors?,bearish_factors?,risks}, conditions[].\n")
	sb.WriteString("partial_close_pct across a scenario's targets must sum to 100.\n")
	return sb.String(), nil
}

func extractReasoning(response string) string {
	if match := reReasoningTag.FindStringSubmatch(response); match != nil && len(match) > 1 {
		return strings.TrimSpace(match[1])
	}
	if idx := strings.Index(response, "<scenarios>"); idx > 0 {
		return strings.TrimSpace(response[:idx])
	}
	return ""
}

// parseScenarios ports decision/engine.go's extractDecisions chain:
// strip invisible runes, normalize unicode punctuation, pull the JSON
// out of a <scenarios> tag or a ```json fence or a bare array, validate
// its shape, then unmarshal. Falls back to an explicit error (never a
// silently-empty scenario list) when nothing resembling JSON is found,
// letting the caller's soft-failure path take over.
func parseScenarios(response string) ([]Scenario, error) {
	checkTruncation(response)

	s := removeInvisibleRunes(response)
	s = strings.TrimSpace(s)
	s = fixMissingQuotes(s)

	var jsonPart string
	if match := reDecisionTag.FindStringSubmatch(s); match != nil && len(match) > 1 {
		jsonPart = strings.TrimSpace(match[1])
	} else {
		jsonPart = s
	}
	jsonPart = fixMissingQuotes(jsonPart)

	var jsonContent string
	if m := reJSONFence.FindStringSubmatch(jsonPart); m != nil && len(m) > 1 {
		jsonContent = strings.TrimSpace(m[1])
	} else {
		jsonContent = strings.TrimSpace(reJSONArray.FindString(jsonPart))
	}
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON scenario array found in response (length %d)", len(response))
	}

	jsonContent = compactArrayOpen(jsonContent)
	jsonContent = fixMissingQuotes(jsonContent)

	if err := validateJSONFormat(jsonContent); err != nil {
		return nil, fmt.Errorf("JSON format validation failed: %w", err)
	}

	var raws []rawScenario
	if err := json.Unmarshal([]byte(jsonContent), &raws); err != nil {
		return nil, fmt.Errorf("JSON parsing failed: %w", err)
	}

	scenarios := make([]Scenario, len(raws))
	for i, r := range raws {
		scenarios[i] = Scenario{
			ID: r.ID, Name: r.Name, Bias: r.Bias, Confidence: r.Confidence,
			Entry: r.Entry, StopLoss: r.StopLoss, Targets: r.Targets,
			Leverage: r.Leverage, Invalidation: r.Invalidation, Why: r.Why,
			Conditions: r.Conditions,
		}
	}
	return scenarios, nil
}

// checkTruncation only warns - a max_tokens cutoff is not itself a
// parse failure, but it explains one when it also occurs.
func checkTruncation(response string) {
	trimmed := strings.TrimSpace(response)
	if len(trimmed) == 0 {
		return
	}
	lastChar := trimmed[len(trimmed)-1]
	if lastChar != ']' && lastChar != '}' && lastChar != '`' && !strings.HasSuffix(trimmed, "</scenarios>") {
		logger.Warnf("LLM response may be truncated (last char %q, length %d); consider raising max tokens", lastChar, len(trimmed))
	}
}

func fixMissingQuotes(s string) string {
	s = strings.ReplaceAll(s, "“", "\"")
	s = strings.ReplaceAll(s, "”", "\"")
	s = strings.ReplaceAll(s, "‘", "'")
	s = strings.ReplaceAll(s, "’", "'")
	s = strings.ReplaceAll(s, "［", "[")
	s = strings.ReplaceAll(s, "］", "]")
	s = strings.ReplaceAll(s, "｛", "{")
	s = strings.ReplaceAll(s, "｝", "}")
	s = strings.ReplaceAll(s, "：", ":")
	s = strings.ReplaceAll(s, "，", ",")
	s = strings.ReplaceAll(s, "　", " ")
	return s
}

func removeInvisibleRunes(s string) string {
	return reInvisibleRunes.ReplaceAllString(s, "")
}

func compactArrayOpen(s string) string {
	return reArrayOpenSpace.ReplaceAllString(strings.TrimSpace(s), "[{")
}

// validateJSONFormat rejects shapes the model sometimes produces that
// json.Unmarshal would otherwise choke on less informatively: a
// thousand-separator comma inside a number, or a "~" range symbol
// standing in for a single price.
func validateJSONFormat(s string) error {
	trimmed := strings.TrimSpace(s)
	if !reArrayHead.MatchString(trimmed) {
		return fmt.Errorf("JSON must start with [{ (whitespace allowed), got: %s", truncate(trimmed, 20))
	}
	if strings.Contains(s, "~") {
		return fmt.Errorf("JSON cannot contain range symbol ~, all numbers must be precise single values")
	}
	for i := 0; i+4 < len(s); i++ {
		if isDigit(s[i]) && s[i+1] == ',' && isDigit(s[i+2]) && isDigit(s[i+3]) && isDigit(s[i+4]) {
			return fmt.Errorf("JSON numbers cannot contain thousand-separator commas, found near: %s", truncate(s[i:], 10))
		}
	}
	return nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
