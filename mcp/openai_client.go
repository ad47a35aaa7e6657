package mcp

import "net/http"

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient is the standard cloud OpenAI provider, merged in from
// koshedutech-binance-trading-app's internal/ai/llm.Client
// (completeOpenAI) onto this package's hooks-based dispatch.
type OpenAIClient struct {
	*Client
}

func NewOpenAIClient() AIClient {
	return NewOpenAIClientWithOptions()
}

func NewOpenAIClientWithOptions(opts ...ClientOption) AIClient {
	openaiOpts := []ClientOption{
		WithProvider(ProviderOpenAI),
		WithModel(DefaultOpenAIModel),
	}
	allOpts := append(openaiOpts, opts...)
	baseClient := NewClient(allOpts...).(*Client)

	openaiClient := &OpenAIClient{Client: baseClient}
	baseClient.hooks = openaiClient
	return openaiClient
}

func (c *OpenAIClient) setAuthHeader(h http.Header) {
	c.Client.setAuthHeader(h)
}
