// Package mcp is the LLM client abstraction used by the Scenario
// Generator (spec §4.7). The functional-options-plus-hooks shape
// (ClientOption, NewClient, baseClient.hooks pointing back at the
// concrete provider for dynamic dispatch) is reconstructed from the
// call-site idiom visible in architect_client.go, localai_client.go,
// and localfunc_client.go, which all embed *Client, assert
// NewClient(opts...).(*Client), and set baseClient.hooks = self but
// never define Client/ClientOption/AIClient/NewClient themselves.
// Complete() - the OpenAI/Claude/DeepSeek request/response bodies - is
// merged in from koshedutech-binance-trading-app's internal/ai/llm
// Client, adapted onto this hooks-based shape instead of its single
// concrete struct.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kpizzy812/futures-scenario-engine/logger"
	"github.com/kpizzy812/futures-scenario-engine/security"
)

const (
	ProviderOpenAI    = "openai"
	ProviderClaude    = "claude"
	ProviderDeepSeek  = "deepseek"
	ProviderArchitect = "architect"
	ProviderLocalAI   = "localai"
	ProviderLocalFunc = "localfunc"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the provider-agnostic call shape; Metadata carries
// provider-specific extras (e.g. Architect's symbol/timeframe/question)
// that a hook can pull out in its buildRequestBodyFromRequest override.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Messages     []Message
	Metadata     map[string]any
}

// RequestBuilder gives callers a fluent way to assemble a Request,
// mirroring decision/engine.go's mcp.NewRequestBuilder() call site.
type RequestBuilder struct {
	req Request
}

func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{req: Request{Metadata: map[string]any{}}}
}

func (b *RequestBuilder) WithSystemPrompt(p string) *RequestBuilder {
	b.req.SystemPrompt = p
	return b
}

func (b *RequestBuilder) WithUserPrompt(p string) *RequestBuilder {
	b.req.UserPrompt = p
	b.req.Messages = append(b.req.Messages, Message{Role: "user", Content: p})
	return b
}

func (b *RequestBuilder) WithMetadataItem(key string, value any) *RequestBuilder {
	b.req.Metadata[key] = value
	return b
}

func (b *RequestBuilder) Build() (*Request, error) {
	if b.req.UserPrompt == "" {
		return nil, fmt.Errorf("mcp: request requires a user prompt")
	}
	return &b.req, nil
}

// AIClient is the interface every provider client satisfies. Complete
// and CallWithMessages/CallWithRequest differ only in plumbing: Complete
// is the low-level entry point, the Call* methods are the ones decision
// code actually invokes.
type AIClient interface {
	GetProvider() string
	IsConfigured() bool
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CallWithMessages(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CallWithRequest(ctx context.Context, req *Request) (string, error)
}

// hooks lets a concrete provider override any stage of the request
// lifecycle while reusing the base Client for everything else - the
// same dynamic-dispatch shape architect_client.go/localai_client.go
// rely on (baseClient.hooks = concreteClient).
type hooks interface {
	setAuthHeader(h http.Header)
	buildURL() string
	buildMCPRequestBody(systemPrompt, userPrompt string) map[string]any
	buildRequestBodyFromRequest(req *Request) map[string]any
	parseMCPResponse(body []byte) (string, error)
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

func WithProvider(provider string) ClientOption {
	return func(c *Client) { c.Provider = provider }
}

func WithModel(model string) ClientOption {
	return func(c *Client) { c.Model = model }
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.BaseURL = baseURL }
}

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.APIKey = apiKey }
}

func WithMaxTokens(maxTokens int) ClientOption {
	return func(c *Client) { c.MaxTokens = maxTokens }
}

func WithTemperature(temperature float64) ClientOption {
	return func(c *Client) { c.Temperature = temperature }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.Timeout = timeout }
}

// Client is the base implementation every concrete provider embeds.
// hooks starts out pointing at the Client itself (self-dispatch) and is
// overwritten by concrete constructors (NewOpenAIClientWithOptions etc.)
// to point at the wrapping struct instead.
type Client struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	httpClient *http.Client
	logger     clientLogger
	hooks      hooks
}

// clientLogger is the minimal subset of the logger package this
// package needs, kept as an interface so tests can stub it.
type clientLogger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type packageLogger struct{}

func (packageLogger) Infof(format string, args ...any)  { logger.Infof(format, args...) }
func (packageLogger) Warnf(format string, args ...any)  { logger.Warnf(format, args...) }
func (packageLogger) Errorf(format string, args ...any) { logger.Errorf(format, args...) }

const (
	defaultMaxTokens   = 1536
	defaultTemperature = 0.2
	defaultTimeout     = 30 * time.Second
)

// NewClient builds a base Client and returns it as an AIClient; callers
// that need the concrete type assert it back, matching the
// NewClient(opts...).(*Client) idiom used throughout this package's
// concrete provider constructors.
func NewClient(opts ...ClientOption) AIClient {
	c := &Client{
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
		Timeout:     defaultTimeout,
		logger:      packageLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient = security.SafeHTTPClient()
	c.httpClient.Timeout = c.Timeout
	c.hooks = c // self-dispatch until a concrete wrapper overrides it
	return c
}

func (c *Client) GetProvider() string { return c.Provider }

func (c *Client) IsConfigured() bool {
	return c.APIKey != "" || c.Provider == ProviderLocalFunc
}

// setAuthHeader is the default Bearer-token auth every OpenAI-compatible
// provider uses; Claude overrides it with x-api-key.
func (c *Client) setAuthHeader(h http.Header) {
	if c.APIKey == "" {
		return
	}
	if c.Provider == ProviderClaude {
		h.Set("x-api-key", c.APIKey)
		h.Set("anthropic-version", "2023-06-01")
		return
	}
	h.Set("Authorization", "Bearer "+c.APIKey)
}

func (c *Client) buildURL() string {
	switch c.Provider {
	case ProviderClaude:
		return "https://api.anthropic.com/v1/messages"
	case ProviderDeepSeek:
		return "https://api.deepseek.com/v1/chat/completions"
	case ProviderOpenAI:
		return "https://api.openai.com/v1/chat/completions"
	default:
		if c.BaseURL == "" {
			return ""
		}
		return c.BaseURL + "/chat/completions"
	}
}

func (c *Client) buildMCPRequestBody(systemPrompt, userPrompt string) map[string]any {
	if c.Provider == ProviderClaude {
		return map[string]any{
			"model":       c.Model,
			"max_tokens":  c.MaxTokens,
			"temperature": c.Temperature,
			"system":      systemPrompt,
			"messages":    []Message{{Role: "user", Content: userPrompt}},
		}
	}
	return map[string]any{
		"model":       c.Model,
		"max_tokens":  c.MaxTokens,
		"temperature": c.Temperature,
		"messages": []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
}

func (c *Client) buildRequestBodyFromRequest(req *Request) map[string]any {
	if len(req.Messages) > 0 {
		return map[string]any{
			"model":       c.Model,
			"max_tokens":  c.MaxTokens,
			"temperature": c.Temperature,
			"messages":    req.Messages,
		}
	}
	return c.buildMCPRequestBody(req.SystemPrompt, req.UserPrompt)
}

func (c *Client) parseMCPResponse(body []byte) (string, error) {
	if c.Provider == ProviderClaude {
		var resp struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
			Error *struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error,omitempty"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("mcp: decode claude response: %w", err)
		}
		if resp.Error != nil {
			return "", fmt.Errorf("mcp: claude API error: %s - %s", resp.Error.Type, resp.Error.Message)
		}
		if len(resp.Content) == 0 {
			return "", fmt.Errorf("mcp: empty response from claude")
		}
		return resp.Content[0].Text, nil
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("mcp: decode response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("mcp: API error: %s - %s", resp.Error.Type, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("mcp: empty response from %s", c.Provider)
	}
	return resp.Choices[0].Message.Content, nil
}

// Complete is the low-level entry point all Call* methods funnel
// through. It dispatches every request-shaping/parsing decision to
// c.hooks, so a concrete provider that overrides one stage (e.g.
// Architect's decision-endpoint body/response shape) still reuses the
// rest of this method unchanged.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("mcp: %s client is not configured with an API key", c.Provider)
	}

	url := c.hooks.buildURL()
	if url == "" {
		return "", fmt.Errorf("mcp: %s client has no base URL configured", c.Provider)
	}
	if err := security.ValidateURL(url); err != nil {
		return "", fmt.Errorf("mcp: %w", err)
	}

	bodyMap := c.hooks.buildMCPRequestBody(systemPrompt, userPrompt)
	payload, err := json.Marshal(bodyMap)
	if err != nil {
		return "", fmt.Errorf("mcp: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("mcp: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.hooks.setAuthHeader(httpReq.Header)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("mcp: request to %s failed: %w", c.Provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("mcp: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("mcp: %s returned status %d: %s", c.Provider, resp.StatusCode, string(respBody))
	}

	return c.hooks.parseMCPResponse(respBody)
}

func (c *Client) CallWithMessages(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.Complete(ctx, systemPrompt, userPrompt)
}

// CallWithRequest is used by providers (Architect) whose request body
// is built from Request.Metadata rather than a plain system/user pair.
func (c *Client) CallWithRequest(ctx context.Context, req *Request) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("mcp: %s client is not configured with an API key", c.Provider)
	}
	url := c.hooks.buildURL()
	if url == "" {
		return "", fmt.Errorf("mcp: %s client has no base URL configured", c.Provider)
	}
	if err := security.ValidateURL(url); err != nil {
		return "", fmt.Errorf("mcp: %w", err)
	}

	bodyMap := c.hooks.buildRequestBodyFromRequest(req)
	payload, err := json.Marshal(bodyMap)
	if err != nil {
		return "", fmt.Errorf("mcp: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("mcp: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.hooks.setAuthHeader(httpReq.Header)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("mcp: request to %s failed: %w", c.Provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("mcp: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("mcp: %s returned status %d: %s", c.Provider, resp.StatusCode, string(respBody))
	}

	return c.hooks.parseMCPResponse(respBody)
}
