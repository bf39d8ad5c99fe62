package shutterdeck

import (
	"math"
	"math/rand"
	"time"
)

// retryDelay returns base * 2^attempt, capped at ceiling. The sequence is
// non-decreasing in attempt, so successive stream retries never get shorter.
func retryDelay(base, ceiling time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(base) * math.Pow(2, float64(attempt))
	if delay >= float64(ceiling) || math.IsInf(delay, 0) {
		return ceiling
	}
	return time.Duration(delay)
}

// transportBackoff is the jittered wait between transport-level retries of a
// single request. Jitter is fine here; nothing observes the sequence.
func transportBackoff(attempt int) time.Duration {
	delay := math.Pow(2, float64(attempt)) * 100
	randomSum := delay * 0.2 * rand.Float64()
	return time.Duration(delay+randomSum) * time.Millisecond
}
