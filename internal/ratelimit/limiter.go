package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter manages one token bucket per key (a provider, or an account on the HTTP API)
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewLimiter creates a limiter allowing count events per interval with the given burst.
// A non-positive count disables limiting.
func NewLimiter(count int, interval time.Duration, burst int) *Limiter {
	r := rate.Inf
	if count > 0 && interval > 0 {
		r = rate.Limit(float64(count) / interval.Seconds())
	}
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// Unlimited returns a limiter that never blocks
func Unlimited() *Limiter {
	return NewLimiter(0, 0, 1)
}

// GetLimiter returns the bucket for key, creating it on first use
func (l *Limiter) GetLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = limiter
	}

	return limiter
}

// Allow reports whether an event for key may happen now
func (l *Limiter) Allow(key string) bool {
	return l.GetLimiter(key).Allow()
}

// Wait blocks until an event for key may happen or ctx is done
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.GetLimiter(key).Wait(ctx)
}

// Tokens returns the current number of available tokens for key
func (l *Limiter) Tokens(key string) float64 {
	return l.GetLimiter(key).Tokens()
}
