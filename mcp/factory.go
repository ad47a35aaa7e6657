package mcp

import "fmt"

// NewClientForProvider builds the right concrete client for a
// provider name, the construction choice the engine package makes once
// at startup based on config.ProviderConfig.
func NewClientForProvider(provider, apiKey, baseURL, model string) (AIClient, error) {
	var opts []ClientOption
	if apiKey != "" {
		opts = append(opts, WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, WithBaseURL(baseURL))
	}
	if model != "" {
		opts = append(opts, WithModel(model))
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClientWithOptions(opts...), nil
	case ProviderClaude:
		return NewClaudeClientWithOptions(opts...), nil
	case ProviderDeepSeek:
		return NewDeepSeekClientWithOptions(opts...), nil
	case ProviderLocalAI:
		return NewLocalAIClientWithOptions(opts...), nil
	case ProviderLocalFunc:
		return NewLocalFuncClientWithOptions(opts...), nil
	default:
		return nil, fmt.Errorf("mcp: unknown provider %q", provider)
	}
}
