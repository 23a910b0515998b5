package scheduler

import (
	"math"
	"math/rand"
	"time"
)

// MaxBackoff caps retry delays at one hour regardless of attempt count.
const MaxBackoff = time.Hour

const jitterFraction = 0.3

// Backoff returns the delay before retry attempt+1, growing exponentially
// from base with up to +30% random jitter. The jitter keeps tasks that failed
// on the same tick from retrying in lockstep.
func Backoff(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if attempt < 0 {
		attempt = 0
	}
	// 2^attempt overflows float math long before it matters; past the cap the
	// exact exponent is irrelevant.
	if attempt > 30 {
		return MaxBackoff
	}
	delay := float64(base) * math.Pow(2, float64(attempt)) * (1 + rand.Float64()*jitterFraction)
	if delay >= float64(MaxBackoff) {
		return MaxBackoff
	}
	return time.Duration(delay)
}
