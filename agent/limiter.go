package agent

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterTable holds one rate limiter per site key. Limiters are shared
// across tasks so concurrent tasks cannot gang up on a single site.
type limiterTable struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newLimiterTable() *limiterTable {
	return &limiterTable{limiters: make(map[string]*rate.Limiter)}
}

func (t *limiterTable) wait(ctx context.Context, key string, minDelay time.Duration) error {
	t.mu.Lock()
	limiter, ok := t.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(minDelay), 1)
		t.limiters[key] = limiter
	}
	t.mu.Unlock()
	return limiter.Wait(ctx)
}
