package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpizzy812/futures-scenario-engine/market"
)

type fakeProvider struct {
	name           string
	klines         []market.Kline
	klinesErr      error
	funding        float64
	fundingOK      bool
	fundingErr     error
	oi             float64
	oiOK           bool
	oiErr          error
	lsr            float64
	lsrOK          bool
	lsrErr         error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Klines(ctx context.Context, symbol, timeframe string, limit int) ([]market.Kline, error) {
	if p.klinesErr != nil {
		return nil, p.klinesErr
	}
	return p.klines, nil
}

func (p *fakeProvider) Funding(ctx context.Context, symbol string) (float64, bool, error) {
	return p.funding, p.fundingOK, p.fundingErr
}

func (p *fakeProvider) OpenInterest(ctx context.Context, symbol string) (float64, bool, error) {
	return p.oi, p.oiOK, p.oiErr
}

func (p *fakeProvider) LongShortRatio(ctx context.Context, symbol string) (float64, bool, error) {
	return p.lsr, p.lsrOK, p.lsrErr
}

func sampleKlines(n int) []market.Kline {
	out := make([]market.Kline, n)
	for i := range out {
		out[i] = market.Kline{Open: 100, High: 101, Low: 99, Close: 100, Volume: 10}
	}
	return out
}

func TestCollectSucceedsWithFullData(t *testing.T) {
	primary := &fakeProvider{
		name: "binance", klines: sampleKlines(200),
		funding: 0.01, fundingOK: true,
		oi: 1000, oiOK: true,
		lsr: 1.2, lsrOK: true,
	}
	c := New(primary, nil, nil, "", nil)

	data, err := c.Collect(context.Background(), "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.True(t, data.Quality.PrimaryOHLCV)
	assert.True(t, data.HasFunding)
	assert.True(t, data.HasOI)
	assert.True(t, data.HasLSR)
	assert.Len(t, data.PrimaryOHLCV, 200)
}

func TestCollectFailsOnPrimaryOHLCVAbsentWithNoSecondary(t *testing.T) {
	primary := &fakeProvider{name: "binance", klinesErr: errors.New("5xx")}
	c := New(primary, nil, nil, "", nil)

	_, err := c.Collect(context.Background(), "BTCUSDT", "1h")
	require.Error(t, err)
	var insufficient *InsufficientDataError
	assert.ErrorAs(t, err, &insufficient)
}

func TestCollectFailsOnPrimaryOHLCVBelowMinimumBars(t *testing.T) {
	primary := &fakeProvider{name: "binance", klines: sampleKlines(49)}
	c := New(primary, nil, nil, "", nil)

	_, err := c.Collect(context.Background(), "BTCUSDT", "1h")
	require.Error(t, err)
	var insufficient *InsufficientDataError
	assert.ErrorAs(t, err, &insufficient)
}

func TestCollectFailsOverToSecondaryForOHLCV(t *testing.T) {
	primary := &fakeProvider{name: "binance", klinesErr: errors.New("rate limited")}
	secondary := &fakeProvider{name: "bybit", klines: sampleKlines(200)}
	c := New(primary, secondary, nil, "", nil)

	data, err := c.Collect(context.Background(), "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.True(t, data.Quality.PrimaryOHLCV)
	assert.Len(t, data.PrimaryOHLCV, 200)
}

func TestCollectDegradesGracefullyWhenFundingMissing(t *testing.T) {
	primary := &fakeProvider{name: "binance", klines: sampleKlines(200), fundingErr: errors.New("unavailable")}
	c := New(primary, nil, nil, "", nil)

	data, err := c.Collect(context.Background(), "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.False(t, data.HasFunding)
	assert.False(t, data.Quality.Funding)
	assert.True(t, data.Quality.PrimaryOHLCV, "a missing derivative field must never fail the whole request")
}

func TestCollectSkipsMTFFetchWhenItMatchesThePrimaryTimeframe(t *testing.T) {
	primary := &fakeProvider{name: "binance", klines: sampleKlines(200)}
	c := New(primary, nil, nil, "", nil)

	data, err := c.Collect(context.Background(), "BTCUSDT", "1h")
	require.NoError(t, err)
	_, refetched := data.MTFOHLCV["1h"]
	assert.False(t, refetched, "1h is the primary timeframe here; it should not appear again under MTFOHLCV")
}
