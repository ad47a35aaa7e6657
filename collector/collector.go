package collector

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kpizzy812/futures-scenario-engine/liquidation"
	"github.com/kpizzy812/futures-scenario-engine/logger"
	"github.com/kpizzy812/futures-scenario-engine/market"
	"github.com/kpizzy812/futures-scenario-engine/quality"
	"github.com/kpizzy812/futures-scenario-engine/ratelimit"
)

// InsufficientDataError is returned when the primary OHLCV series could
// not be collected at all - the one failure the Collector does not
// degrade gracefully around (spec §4.1).
type InsufficientDataError struct {
	Symbol    string
	Timeframe string
	Cause     error
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s %s: %v", e.Symbol, e.Timeframe, e.Cause)
}
func (e *InsufficientDataError) Unwrap() error { return e.Cause }

// CollectedData is everything the rest of the pipeline needs for one
// symbol/timeframe request.
type CollectedData struct {
	Symbol    string
	Timeframe string

	PrimaryOHLCV []market.Kline
	MTFOHLCV     map[string][]market.Kline // "1h"/"4h"/"1d" -> series

	FundingRatePct float64
	HasFunding     bool
	OpenInterest   float64
	HasOI          bool
	LongShortRatio float64
	HasLSR         bool

	LiquidationEvents []liquidation.Event
	HasLiquidation    bool

	SentimentIndex int
	HasSentiment   bool

	Quality quality.Sources
}

const (
	perSourceTimeout = 10 * time.Second
	maxAttempts      = 3
	primaryBars      = 200
	minPrimaryBars   = 50
)

// Collector fans out the independent fetches from spec §4.1 in
// parallel via errgroup, respects a per-provider rate limiter, caches
// symbol/timeframe-stable queries, and fails over from a primary to a
// secondary OHLCV/derivatives provider.
type Collector struct {
	Primary       Provider
	Secondary     Provider
	Liquidation   *LiquidationFeed
	SentimentURL  string
	Limiters      *ratelimit.Registry
	cache         *cache
}

func New(primary, secondary Provider, liq *LiquidationFeed, sentimentURL string, limiters *ratelimit.Registry) *Collector {
	return &Collector{
		Primary:      primary,
		Secondary:    secondary,
		Liquidation:  liq,
		SentimentURL: sentimentURL,
		Limiters:     limiters,
		cache:        newCache(60 * time.Second),
	}
}

// Collect gathers every source concurrently. Only the primary OHLCV
// series failing is fatal; every other source's absence is recorded in
// the returned quality.Sources and surfaces later as a data_quality
// warning rather than aborting the request.
func (c *Collector) Collect(ctx context.Context, symbol, timeframe string) (CollectedData, error) {
	data := CollectedData{Symbol: symbol, Timeframe: timeframe, MTFOHLCV: make(map[string][]market.Kline)}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		klines, err := c.fetchPrimaryOHLCV(gctx, symbol, timeframe)
		if err != nil {
			return &InsufficientDataError{Symbol: symbol, Timeframe: timeframe, Cause: err}
		}
		if len(klines) < minPrimaryBars {
			return &InsufficientDataError{Symbol: symbol, Timeframe: timeframe,
				Cause: fmt.Errorf("primary OHLCV has %d bars, need at least %d", len(klines), minPrimaryBars)}
		}
		data.PrimaryOHLCV = klines
		data.Quality.PrimaryOHLCV = true
		return nil
	})

	for _, tf := range mtfTimeframes {
		tf := tf
		if tf == timeframe {
			continue // already fetched as the primary series
		}
		g.Go(func() error {
			klines, err := c.fetchWithFailover(gctx, func(ctx context.Context, p Provider) ([]market.Kline, error) {
				return p.Klines(ctx, symbol, tf, primaryBars)
			}, cacheKey("klines", symbol, tf))
			if err != nil {
				logger.Warnf("mtf klines %s unavailable for %s: %v", tf, symbol, err)
				return nil
			}
			data.MTFOHLCV[tf] = klines
			data.Quality.MTF = true
			return nil
		})
	}

	g.Go(func() error {
		rate, ok, err := c.fetchFundingWithFailover(gctx, symbol)
		if err != nil || !ok {
			logger.Warnf("funding unavailable for %s: %v", symbol, err)
			return nil
		}
		data.FundingRatePct = rate
		data.HasFunding = true
		data.Quality.Funding = true
		return nil
	})

	g.Go(func() error {
		oi, ok, err := c.fetchOIWithFailover(gctx, symbol)
		if err != nil || !ok {
			logger.Warnf("open interest unavailable for %s: %v", symbol, err)
			return nil
		}
		data.OpenInterest = oi
		data.HasOI = true
		data.Quality.OpenInterest = true
		return nil
	})

	g.Go(func() error {
		ratio, ok, err := c.fetchLSRWithFailover(gctx, symbol)
		if err != nil || !ok {
			logger.Warnf("long/short ratio unavailable for %s: %v", symbol, err)
			return nil
		}
		data.LongShortRatio = ratio
		data.HasLSR = true
		data.Quality.LongShort = true
		return nil
	})

	if c.Liquidation != nil {
		g.Go(func() error {
			if err := c.Liquidation.Subscribe(symbol); err != nil {
				logger.Warnf("liquidation stream unavailable for %s: %v", symbol, err)
				return nil
			}
			events := c.Liquidation.Recent(symbol)
			if len(events) == 0 {
				return nil
			}
			data.LiquidationEvents = events
			data.HasLiquidation = true
			data.Quality.Liquidation = true
			return nil
		})
	}

	if c.SentimentURL != "" {
		g.Go(func() error {
			if cached, ok := c.cache.get("sentiment"); ok {
				data.SentimentIndex = cached.(int)
				data.HasSentiment = true
				data.Quality.Sentiment = true
				return nil
			}
			ctxT, cancel := context.WithTimeout(gctx, perSourceTimeout)
			defer cancel()
			value, ok, err := FetchSentiment(ctxT, c.SentimentURL)
			if err != nil || !ok {
				logger.Warnf("sentiment unavailable: %v", err)
				return nil
			}
			c.cache.set("sentiment", value)
			data.SentimentIndex = value
			data.HasSentiment = true
			data.Quality.Sentiment = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return CollectedData{}, err
	}
	return data, nil
}

func (c *Collector) fetchPrimaryOHLCV(ctx context.Context, symbol, timeframe string) ([]market.Kline, error) {
	return c.fetchWithFailover(ctx, func(ctx context.Context, p Provider) ([]market.Kline, error) {
		return p.Klines(ctx, symbol, timeframe, primaryBars)
	}, "")
}

// fetchWithFailover tries the primary provider (respecting its rate
// limiter and a bounded retry), then the secondary on persistent
// failure, per spec §4.1's "selected when Binance is rate-limited or
// returns 5xx" rule. cacheKeyName, when non-empty, makes the result
// reusable for 60s across requests for the same symbol/timeframe.
func (c *Collector) fetchWithFailover(ctx context.Context, call func(context.Context, Provider) ([]market.Kline, error), cacheKeyName string) ([]market.Kline, error) {
	if cacheKeyName != "" {
		if cached, ok := c.cache.get(cacheKeyName); ok {
			return cached.([]market.Kline), nil
		}
	}

	ctxT, cancel := context.WithTimeout(ctx, perSourceTimeout)
	defer cancel()

	var result []market.Kline
	err := withRetry(ctxT, maxAttempts, func() error {
		if c.Limiters != nil {
			if err := c.Limiters.Wait(ctxT, c.Primary.Name()); err != nil {
				return err
			}
		}
		klines, err := call(ctxT, c.Primary)
		if err != nil {
			return err
		}
		result = klines
		return nil
	})
	if err == nil {
		if cacheKeyName != "" {
			c.cache.set(cacheKeyName, result)
		}
		return result, nil
	}

	if c.Secondary == nil {
		return nil, err
	}
	logger.Warnf("primary provider %s failed, failing over to %s: %v", c.Primary.Name(), c.Secondary.Name(), err)

	if c.Limiters != nil {
		if werr := c.Limiters.Wait(ctxT, c.Secondary.Name()); werr != nil {
			return nil, werr
		}
	}
	result, err = call(ctxT, c.Secondary)
	if err != nil {
		return nil, err
	}
	if cacheKeyName != "" {
		c.cache.set(cacheKeyName, result)
	}
	return result, nil
}

func (c *Collector) fetchFundingWithFailover(ctx context.Context, symbol string) (float64, bool, error) {
	ctxT, cancel := context.WithTimeout(ctx, perSourceTimeout)
	defer cancel()
	rate, ok, err := c.Primary.Funding(ctxT, symbol)
	if err == nil {
		return rate, ok, nil
	}
	if c.Secondary == nil {
		return 0, false, err
	}
	return c.Secondary.Funding(ctxT, symbol)
}

func (c *Collector) fetchOIWithFailover(ctx context.Context, symbol string) (float64, bool, error) {
	ctxT, cancel := context.WithTimeout(ctx, perSourceTimeout)
	defer cancel()
	oi, ok, err := c.Primary.OpenInterest(ctxT, symbol)
	if err == nil {
		return oi, ok, nil
	}
	if c.Secondary == nil {
		return 0, false, err
	}
	return c.Secondary.OpenInterest(ctxT, symbol)
}

func (c *Collector) fetchLSRWithFailover(ctx context.Context, symbol string) (float64, bool, error) {
	ctxT, cancel := context.WithTimeout(ctx, perSourceTimeout)
	defer cancel()
	ratio, ok, err := c.Primary.LongShortRatio(ctxT, symbol)
	if err == nil {
		return ratio, ok, nil
	}
	if c.Secondary == nil {
		return 0, false, err
	}
	return c.Secondary.LongShortRatio(ctxT, symbol)
}

func cacheKey(kind, symbol, timeframe string) string {
	return kind + ":" + symbol + ":" + timeframe
}
