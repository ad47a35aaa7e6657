package mcp

import "net/http"

const DefaultClaudeModel = "claude-sonnet-4-20250514"

// ClaudeClient talks to the Anthropic Messages API, merged in from
// koshedutech-binance-trading-app's internal/ai/llm.Client
// (completeClaude): x-api-key auth and the system/messages request
// shape, both already handled by the base Client when Provider ==
// ProviderClaude, so this wrapper exists only to carry the type through
// NewClient's hooks assignment.
type ClaudeClient struct {
	*Client
}

func NewClaudeClient() AIClient {
	return NewClaudeClientWithOptions()
}

func NewClaudeClientWithOptions(opts ...ClientOption) AIClient {
	claudeOpts := []ClientOption{
		WithProvider(ProviderClaude),
		WithModel(DefaultClaudeModel),
	}
	allOpts := append(claudeOpts, opts...)
	baseClient := NewClient(allOpts...).(*Client)

	claudeClient := &ClaudeClient{Client: baseClient}
	baseClient.hooks = claudeClient
	return claudeClient
}

func (c *ClaudeClient) setAuthHeader(h http.Header) {
	c.Client.setAuthHeader(h)
}
