package collector

import (
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/kpizzy812/futures-scenario-engine/liquidation"
	"github.com/kpizzy812/futures-scenario-engine/logger"
)

// LiquidationFeed subscribes to Binance's force-order (liquidation)
// stream via the SDK's websocket wrapper (which itself sits on
// gorilla/websocket) and keeps a rolling 24h buffer per symbol, since
// the stream is push-based and the Collector's request/response shape
// needs a point-in-time snapshot instead. Optional per spec §4.1 - it
// subscribes to the public stream without credentials, and its absence
// degrades gracefully rather than failing the request.
type LiquidationFeed struct {
	mu      sync.Mutex
	bufBy   map[string][]liquidation.Event
	stopC   chan struct{}
	started bool
}

func NewLiquidationFeed() *LiquidationFeed {
	return &LiquidationFeed{bufBy: make(map[string][]liquidation.Event)}
}

// Subscribe starts the stream for symbol if it isn't already running.
// Safe to call repeatedly; a symbol already being tracked is a no-op.
func (f *LiquidationFeed) Subscribe(symbol string) error {
	f.mu.Lock()
	if _, ok := f.bufBy[symbol]; ok {
		f.mu.Unlock()
		return nil
	}
	f.bufBy[symbol] = nil
	f.mu.Unlock()

	handler := func(event *futures.WsForceOrderEvent) {
		f.record(symbol, event)
	}
	errHandler := func(err error) {
		logger.Warnf("liquidation stream error for %s: %v", symbol, err)
	}

	doneC, stopC, err := futures.WsForceOrderServe(symbol, handler, errHandler)
	if err != nil {
		return err
	}
	_ = doneC
	f.mu.Lock()
	f.stopC = stopC
	f.started = true
	f.mu.Unlock()
	return nil
}

func (f *LiquidationFeed) record(symbol string, event *futures.WsForceOrderEvent) {
	if event == nil {
		return
	}
	price := parseFloatOrZero(event.Order.Price)
	qty := parseFloatOrZero(event.Order.OrigQuantity)

	e := liquidation.Event{
		Side:         event.Order.Side,
		Price:        price,
		Quantity:     qty,
		TimestampUTC: event.Time,
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-24*time.Hour).UnixMilli()
	buf := append(f.bufBy[symbol], e)
	kept := buf[:0]
	for _, ev := range buf {
		if ev.TimestampUTC >= cutoff {
			kept = append(kept, ev)
		}
	}
	f.bufBy[symbol] = kept
}

// Recent returns a snapshot of the last 24h of recorded events for
// symbol. Empty (not an error) when the feed was never subscribed.
func (f *LiquidationFeed) Recent(symbol string) []liquidation.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]liquidation.Event, len(f.bufBy[symbol]))
	copy(out, f.bufBy[symbol])
	return out
}

func (f *LiquidationFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started && f.stopC != nil {
		close(f.stopC)
		f.started = false
	}
}

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
