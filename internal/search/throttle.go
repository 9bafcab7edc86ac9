package search

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

var errRateLimitWait = errors.New("rate limit wait cancelled")

// throttle holds the outbound request budget of rate-limited catalogs.
// Catalogs without an entry are not limited.
type throttle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newThrottle() *throttle {
	return &throttle{limiters: make(map[string]*rate.Limiter)}
}

func (t *throttle) set(name string, rps float64, burst int) {
	key := ledgerKey(name)
	if key == "" || rps <= 0 {
		return
	}
	if burst <= 0 {
		burst = 1
	}
	t.mu.Lock()
	t.limiters[key] = rate.NewLimiter(rate.Limit(rps), burst)
	t.mu.Unlock()
}

func (t *throttle) wait(ctx context.Context, name string) error {
	t.mu.Lock()
	limiter := t.limiters[ledgerKey(name)]
	t.mu.Unlock()
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return errors.Join(errRateLimitWait, err)
	}
	return nil
}
