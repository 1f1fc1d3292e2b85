// Package channel holds transport-agnostic pieces shared by the inbound
// message channels (Twilio webhook, Telegram long polling).
package channel

import (
	"sync"
	"time"
)

// Limiter enforces a minimum interval between messages from the same
// sender. A zero or negative interval disables limiting.
type Limiter struct {
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewLimiter builds a Limiter with the given minimum interval.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		now:      time.Now,
		lastSeen: make(map[string]time.Time),
	}
}

// Allow reports whether a message from sender may be handled now, and
// records the attempt when it may.
func (l *Limiter) Allow(sender string) bool {
	if l == nil || l.interval <= 0 {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.lastSeen[sender]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.lastSeen[sender] = now
	return true
}

// Forget drops the sender's record, typically when their session is evicted.
func (l *Limiter) Forget(sender string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.lastSeen, sender)
	l.mu.Unlock()
}
