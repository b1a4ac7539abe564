package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Action string

const (
	ActionSendMessage Action = "send_message"
	ActionTyping      Action = "typing"
	ActionReact       Action = "react"
)

type limit struct {
	every time.Duration
	burst int
}

type entry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// RateLimiter keeps one token bucket per user and action.
type RateLimiter struct {
	limits  map[Action]limit
	entries map[string]*entry
	mutex   sync.Mutex
	now     func() time.Time
}

// NewRateLimiter allows sendPerMinute messages per user per minute. A value
// of zero or less disables the send limit.
func NewRateLimiter(sendPerMinute int) *RateLimiter {
	limits := map[Action]limit{
		ActionTyping: {every: 100 * time.Millisecond, burst: 30},
		ActionReact:  {every: time.Second, burst: 20},
	}
	if sendPerMinute > 0 {
		limits[ActionSendMessage] = limit{every: time.Minute / time.Duration(sendPerMinute), burst: sendPerMinute}
	}
	return &RateLimiter{
		limits:  limits,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow consumes one token. When denied it also returns how long until the
// next token is available.
func (rl *RateLimiter) Allow(userID string, action Action) (bool, time.Duration) {
	l, ok := rl.limits[action]
	if !ok {
		return true, 0
	}

	key := userID + ":" + string(action)
	now := rl.now()

	rl.mutex.Lock()
	e, exists := rl.entries[key]
	if !exists {
		e = &entry{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		rl.entries[key] = e
	}
	e.lastUsed = now
	rl.mutex.Unlock()

	reservation := e.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, l.every
	}
	if wait := reservation.DelayFrom(now); wait > 0 {
		reservation.CancelAt(now)
		return false, wait
	}
	return true, 0
}

// Cleanup drops buckets that have been idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, e := range rl.entries {
		if now.Sub(e.lastUsed) > idle {
			delete(rl.entries, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup every interval until stop is closed.
func (rl *RateLimiter) StartCleanupRoutine(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-stop:
				return
			}
		}
	}()
}
