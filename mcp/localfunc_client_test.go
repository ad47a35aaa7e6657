package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePrompt(t *testing.T, md localFuncMarketData) string {
	t.Helper()
	payload, err := json.Marshal(md)
	require.NoError(t, err)
	return "Generate 3 candidate scenarios for BTCUSDT on 1h.\n\nmarket_data:\n" + string(payload) +
		"\n\nEach scenario needs: id, name, bias, ...\n"
}

func TestLocalFuncDerivesLongAndShortFromCandidates(t *testing.T) {
	c := NewLocalFuncClientWithOptions()

	var md localFuncMarketData
	md.CurrentPrice = 100
	md.Levels.Supports = []float64{99, 97}
	md.Levels.Resistances = []float64{101, 103}

	raw, err := c.CallWithMessages(context.Background(), "sys", samplePrompt(t, md))
	require.NoError(t, err)
	assert.Contains(t, raw, "<reasoning>")
	assert.Contains(t, raw, `"bias":"long"`)
	assert.Contains(t, raw, `"bias":"short"`)
}

func TestLocalFuncSkipsSideWithTooFewCandidates(t *testing.T) {
	c := NewLocalFuncClientWithOptions()

	var md localFuncMarketData
	md.CurrentPrice = 100
	md.Levels.Supports = []float64{99, 97}
	md.Levels.Resistances = []float64{101} // only one resistance - no short scenario possible

	raw, err := c.CallWithMessages(context.Background(), "sys", samplePrompt(t, md))
	require.NoError(t, err)
	assert.Contains(t, raw, `"bias":"long"`)
	assert.NotContains(t, raw, `"bias":"short"`)
}

func TestLocalFuncErrorsOnMissingMarketData(t *testing.T) {
	c := NewLocalFuncClientWithOptions()
	_, err := c.CallWithMessages(context.Background(), "sys", "no json here at all")
	assert.Error(t, err)
}

func TestLocalFuncIsConfiguredWithoutAPIKey(t *testing.T) {
	c := NewLocalFuncClientWithOptions()
	assert.True(t, c.IsConfigured())
	assert.Equal(t, ProviderLocalFunc, c.GetProvider())
}
