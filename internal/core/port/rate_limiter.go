package port

import (
	"time"

	"github.com/whitehat88/recruitment-auth/internal/ratelimit"
)

// RateLimiter admits or rejects logical attempts against a named rule. Allow
// both decides and records; callers invoke it exactly once per attempt.
// Implementations hold state in memory and never perform I/O.
type RateLimiter interface {
	Allow(action, clientID string, limit int, window time.Duration) ratelimit.Decision
	Peek(action, clientID string, limit int, window time.Duration) ratelimit.Decision
}
