package ai

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum interval between successive calls.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewLimiter returns a limiter; a non-positive interval never waits.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{interval: interval}
}

// Wait blocks until the caller's slot opens or ctx is done. Each call
// reserves the following slot before sleeping.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.interval <= 0 {
		return ctx.Err()
	}
	l.mu.Lock()
	now := time.Now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	l.next = slot.Add(l.interval)
	l.mu.Unlock()

	if d := time.Until(slot); d > 0 {
		return sleepCtx(ctx, d)
	}
	return ctx.Err()
}
