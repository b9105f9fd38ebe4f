// Package backoff computes inter-attempt delays for the fetch retry loop:
// exponential growth with an additive jitter window and a hard cap, plus
// Retry-After based delays for rate-limited responses.
package backoff

import (
	"math/rand"
	"time"
)

// Policy holds the base delay and cap shared by the exponential paths.
type Policy struct {
	Base time.Duration
	Max  time.Duration
}

// Exponential returns min(Base*2^attempt + jitter, Max) where jitter is
// uniform in [jitterLo, jitterHi]. Attempt numbering starts at 0.
func (p Policy) Exponential(attempt int, jitterLo, jitterHi time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Overflow guard; 2^30 times any sane base is past every cap anyway.
	if attempt > 30 {
		attempt = 30
	}

	d := time.Duration(float64(p.Base) * Pow(2, attempt))
	if d < 0 || d > p.Max {
		d = p.Max
	}
	d += Jitter(jitterLo, jitterHi)
	if d > p.Max {
		d = p.Max
	}
	return d
}

// RetryAfter returns the server-provided delay plus uniform jitter in
// [jitterLo, jitterHi]. The policy cap deliberately does not apply: when
// the server says how long to wait, its hint wins.
func RetryAfter(hint, jitterLo, jitterHi time.Duration) time.Duration {
	return hint + Jitter(jitterLo, jitterHi)
}

// Jitter returns a uniformly distributed duration in [lo, hi).
func Jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}

// Pow calculates base^exponent for float64 without math.Pow edge cases.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
