// Package ratelimit gates successive send attempts by a minimum interval.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a minimum interval between successful acquisitions.
//
// The limiter only guards successful throughput: after a failed send the
// caller resets it so the user can retry immediately instead of waiting out
// the window.
type Limiter struct {
	mu   sync.Mutex
	last int64 // epoch millis of the last successful acquisition
}

// New creates an unacquired Limiter.
func New() *Limiter {
	return &Limiter{}
}

// TryAcquire returns true and records now as the last acquisition if at least
// minInterval has elapsed since the previous one. On rejection the limiter
// state is unchanged.
func (l *Limiter) TryAcquire(now time.Time, minInterval time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	nowMillis := now.UnixMilli()
	if l.last != 0 && nowMillis-l.last < minInterval.Milliseconds() {
		return false
	}
	l.last = nowMillis
	return true
}

// Reset clears the last acquisition so the next TryAcquire succeeds
// regardless of elapsed time.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = 0
}
