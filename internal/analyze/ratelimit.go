package analyze

import (
	"context"
	"sync"
	"time"
)

// rateLimiter is a token bucket sized in requests per minute. Analysis
// calls are slow and billed, so the limiter errs on the side of waiting
// rather than bursting.
type rateLimiter struct {
	mu         sync.Mutex
	perMinute  int
	tokens     float64
	lastUpdate time.Time
}

func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &rateLimiter{
		perMinute:  perMinute,
		tokens:     float64(perMinute),
		lastUpdate: time.Now(),
	}
}

// wait blocks until a token is available or the context is cancelled.
func (r *rateLimiter) wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens >= 1.0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		needed := 1.0 - r.tokens
		rate := float64(r.perMinute) / 60.0
		delay := time.Duration(needed / rate * float64(time.Second))
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// drain empties the bucket, typically after a 429 from the provider.
func (r *rateLimiter) drain() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = 0
	r.lastUpdate = time.Now()
}

// refill must be called with the lock held.
func (r *rateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now

	r.tokens += elapsed * float64(r.perMinute) / 60.0
	if r.tokens > float64(r.perMinute) {
		r.tokens = float64(r.perMinute)
	}
}
