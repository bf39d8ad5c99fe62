package shutterdeck

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRetryDelay(t *testing.T) {
	base, ceiling := time.Second, 30*time.Second
	var got []time.Duration
	for attempt := 0; attempt < 8; attempt++ {
		got = append(got, retryDelay(base, ceiling, attempt))
	}
	require.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second, 30 * time.Second,
	}, got)

	require.Equal(t, base, retryDelay(base, ceiling, -3))
	require.Equal(t, ceiling, retryDelay(base, ceiling, 5000))
}

func TestRetryDelay_MonotonicUpToCeiling(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := time.Duration(rapid.Int64Range(1, int64(10*time.Second)).Draw(t, "base"))
		ceiling := base + time.Duration(rapid.Int64Range(0, int64(5*time.Minute)).Draw(t, "extra"))
		attempts := rapid.IntRange(1, 80).Draw(t, "attempts")

		previous := time.Duration(0)
		for attempt := 0; attempt < attempts; attempt++ {
			delay := retryDelay(base, ceiling, attempt)
			if delay > ceiling {
				t.Fatalf("attempt %d: %s exceeds ceiling %s", attempt, delay, ceiling)
			}
			if delay < previous {
				t.Fatalf("attempt %d: %s shorter than previous %s", attempt, delay, previous)
			}
			if delay == previous && delay != ceiling {
				t.Fatalf("attempt %d: %s repeated below the ceiling", attempt, delay)
			}
			previous = delay
		}
	})
}

func TestTransportBackoff(t *testing.T) {
	for attempt := 1; attempt <= 4; attempt++ {
		floor := time.Duration(100<<attempt) * time.Millisecond
		for i := 0; i < 20; i++ {
			delay := transportBackoff(attempt)
			require.GreaterOrEqual(t, delay, floor)
			require.LessOrEqual(t, delay, floor+floor/5)
		}
	}
}
