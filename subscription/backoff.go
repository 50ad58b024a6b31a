package subscription

import (
	rand "math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newRetryBackOff returns the iterator recreation policy of the pull loop: it
// starts at base, doubles with jitter and is capped at DefaultMaxRetryBackoff.
// It never gives up; the loop ends only on Stop or when the consumer is gone.
func newRetryBackOff(base time.Duration) *backoff.ExponentialBackOff {
	if base <= 0 {
		base = DefaultRetryBackoff
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxInterval = max(base, DefaultMaxRetryBackoff)
	b.MaxElapsedTime = 0
	b.Reset()

	return b
}

// RandomBetween returns a uniformly distributed duration in [lo, hi].
func RandomBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}

	return lo + time.Duration(rand.Int64N(int64(hi-lo)+1)) //nolint:gosec // non-crypto jitter
}
