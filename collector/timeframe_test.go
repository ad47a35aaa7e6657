package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeframeKnownMapEntries(t *testing.T) {
	d, err := ParseTimeframe("4h")
	assert.NoError(t, err)
	assert.Equal(t, 4*time.Hour, d)
}

func TestParseTimeframeGenericGrammarBeyondTheMap(t *testing.T) {
	// 30m and 2d aren't in the enumerated set but are well-formed.
	d, err := ParseTimeframe("30m")
	assert.NoError(t, err)
	assert.Equal(t, 30*time.Minute, d)

	d, err = ParseTimeframe("2d")
	assert.NoError(t, err)
	assert.Equal(t, 48*time.Hour, d)
}

func TestParseTimeframeRejectsGarbage(t *testing.T) {
	_, err := ParseTimeframe("banana")
	assert.Error(t, err)

	_, err = ParseTimeframe("0m")
	assert.Error(t, err)

	_, err = ParseTimeframe("")
	assert.Error(t, err)
}

func TestIsKnownTimeframe(t *testing.T) {
	assert.True(t, IsKnownTimeframe("1w"))
	assert.True(t, IsKnownTimeframe("90m"))
	assert.False(t, IsKnownTimeframe("fortnight"))
}
