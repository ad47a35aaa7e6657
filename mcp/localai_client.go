package mcp

import (
	"net/http"
)

const (
	DefaultLocalAIBaseURL = "http://localhost:8080/v1"
	DefaultLocalAIModel   = "gpt-oss-20b"
)

// LocalAIClient talks to a self-hosted, OpenAI-compatible inference
// server. IsConfigured still requires an API key for it, and Complete
// passes the base URL through security.ValidateURL, which rejects
// loopback and private addresses, including the localhost default below.
type LocalAIClient struct {
	*Client
}

func NewLocalAIClient() AIClient {
	return NewLocalAIClientWithOptions()
}

func NewLocalAIClientWithOptions(opts ...ClientOption) AIClient {
	localaiOpts := []ClientOption{
		WithProvider(ProviderLocalAI),
		WithModel(DefaultLocalAIModel),
		WithBaseURL(DefaultLocalAIBaseURL),
	}
	allOpts := append(localaiOpts, opts...)
	baseClient := NewClient(allOpts...).(*Client)

	localaiClient := &LocalAIClient{Client: baseClient}
	baseClient.hooks = localaiClient
	return localaiClient
}

func (c *LocalAIClient) SetAPIKey(apiKey string, customURL string, customModel string) {
	c.APIKey = apiKey
	if customURL != "" {
		c.BaseURL = customURL
		c.logger.Infof("[mcp] LocalAI using custom BaseURL: %s", customURL)
	} else {
		c.logger.Infof("[mcp] LocalAI using default BaseURL: %s", c.BaseURL)
	}
	if customModel != "" {
		c.Model = customModel
		c.logger.Infof("[mcp] LocalAI using custom Model: %s", customModel)
	} else {
		c.logger.Infof("[mcp] LocalAI using default Model: %s", c.Model)
	}
}

// LocalAI uses standard Bearer auth, same as OpenAI.
func (c *LocalAIClient) setAuthHeader(reqHeaders http.Header) {
	c.Client.setAuthHeader(reqHeaders)
}

func (c *LocalAIClient) buildURL() string {
	if c.BaseURL == "" {
		return ""
	}
	return c.BaseURL + "/chat/completions"
}
