// Package ratelimit provides the per-provider token-bucket limiters
// mandated by spec §4.1/§5. Limiters are process-wide and thread-safe;
// like the collector's TTL cache, they are shared across requests.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Registry holds one limiter per named provider ("binance", "bybit",
// "fear_greed", ...), created lazily on first use with the configured
// rate/burst.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

func NewRegistry(rps float64, burst int) *Registry {
	return &Registry{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (r *Registry) limiterFor(provider string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[provider]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.rps), r.burst)
		r.limiters[provider] = l
	}
	return l
}

// Wait blocks until the provider's bucket has a token available or ctx
// is cancelled.
func (r *Registry) Wait(ctx context.Context, provider string) error {
	return r.limiterFor(provider).Wait(ctx)
}
