package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Decision reports the outcome of one admission attempt.
type Decision struct {
	Admitted   bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// Limiter enforces sliding-window limits over an in-memory WindowStore. A
// single mutex spans eviction, counting and recording, so concurrent callers
// can never admit more than the limit within one window. Nothing under the
// lock performs I/O.
type Limiter struct {
	mu    sync.Mutex
	store *WindowStore
	now   func() time.Time
}

// New builds a limiter with its own empty window store.
func New() *Limiter {
	return &Limiter{
		store: NewWindowStore(),
		now:   time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Key joins an action and a client identifier into the window storage key.
func Key(action, clientID string) string {
	return action + ":" + clientID
}

// Allow decides and records one logical attempt for the action and client.
// Callers invoke it exactly once per attempt: an admission is recorded
// against the window, a rejection is not, so rejected attempts never consume
// quota. Panics when limit or window is not positive; rules are static
// configuration and a non-positive value is a programming error, not a
// runtime condition.
func (l *Limiter) Allow(action, clientID string, limit int, window time.Duration) Decision {
	validateRule(limit, window)
	key := Key(action, clientID)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	count := l.store.Peek(key, window, now)
	if count >= limit {
		return l.rejected(key, limit, window, now)
	}

	count = l.store.Record(key, window, now)
	oldest, _ := l.store.Oldest(key)
	return Decision{
		Admitted:  true,
		Limit:     limit,
		Remaining: maxInt(limit-count, 0),
		Reset:     oldest.Add(window),
	}
}

// Peek reports the decision Allow would make right now without recording or
// rejecting anything. Used for status endpoints and response headers.
func (l *Limiter) Peek(action, clientID string, limit int, window time.Duration) Decision {
	validateRule(limit, window)
	key := Key(action, clientID)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	count := l.store.Peek(key, window, now)
	if count >= limit {
		return l.rejected(key, limit, window, now)
	}

	reset := now.Add(window)
	if oldest, ok := l.store.Oldest(key); ok {
		reset = oldest.Add(window)
	}
	return Decision{
		Admitted:  true,
		Limit:     limit,
		Remaining: maxInt(limit-count, 0),
		Reset:     reset,
	}
}

// rejected builds the rejection decision. The caller holds the mutex and has
// already evicted, so the oldest entry is inside the window and the retry
// hint lands in (0, window].
func (l *Limiter) rejected(key string, limit int, window time.Duration, now time.Time) Decision {
	oldest, _ := l.store.Oldest(key)
	reset := oldest.Add(window)
	retryAfter := reset.Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Decision{
		Limit:      limit,
		Reset:      reset,
		RetryAfter: retryAfter,
	}
}

func validateRule(limit int, window time.Duration) {
	if limit <= 0 || window <= 0 {
		panic(fmt.Sprintf("ratelimit: invalid rule limit=%d window=%s", limit, window))
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
