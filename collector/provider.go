package collector

import (
	"context"

	"github.com/kpizzy812/futures-scenario-engine/market"
)

// Provider is the exchange-facing interface every OHLCV/derivatives
// source implements, so the Collector can fail over from Binance to
// Bybit transparently (spec §4.1: "selected when Binance is rate-limited
// or returns 5xx").
type Provider interface {
	Name() string
	Klines(ctx context.Context, symbol, timeframe string, limit int) ([]market.Kline, error)
	Funding(ctx context.Context, symbol string) (rate float64, ok bool, err error)
	OpenInterest(ctx context.Context, symbol string) (oi float64, ok bool, err error)
	LongShortRatio(ctx context.Context, symbol string) (ratio float64, ok bool, err error)
}
