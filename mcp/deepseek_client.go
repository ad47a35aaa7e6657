package mcp

import "net/http"

const DefaultDeepSeekModel = "deepseek-chat"

// DeepSeekClient is OpenAI-compatible, merged in from
// koshedutech-binance-trading-app's internal/ai/llm.Client
// (completeDeepSeek).
type DeepSeekClient struct {
	*Client
}

func NewDeepSeekClient() AIClient {
	return NewDeepSeekClientWithOptions()
}

func NewDeepSeekClientWithOptions(opts ...ClientOption) AIClient {
	deepseekOpts := []ClientOption{
		WithProvider(ProviderDeepSeek),
		WithModel(DefaultDeepSeekModel),
	}
	allOpts := append(deepseekOpts, opts...)
	baseClient := NewClient(allOpts...).(*Client)

	deepseekClient := &DeepSeekClient{Client: baseClient}
	baseClient.hooks = deepseekClient
	return deepseekClient
}

func (c *DeepSeekClient) setAuthHeader(h http.Header) {
	c.Client.setAuthHeader(h)
}
