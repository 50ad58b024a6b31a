package subscription

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

func TestRetryBackOff_GrowsAndCaps(t *testing.T) {
	base := 100 * time.Millisecond
	b := newRetryBackOff(base)

	first := b.NextBackOff()
	require.GreaterOrEqual(t, first, base/2)
	require.LessOrEqual(t, first, base*3/2)

	for range 30 {
		next := b.NextBackOff()
		require.NotEqual(t, backoff.Stop, next, "the pull loop retries forever")
		require.LessOrEqual(t, next, DefaultMaxRetryBackoff*3/2)
	}

	b.Reset()
	require.LessOrEqual(t, b.NextBackOff(), base*3/2, "reset starts over from base")
}

func TestRetryBackOff_Defaults(t *testing.T) {
	b := newRetryBackOff(0)
	require.Equal(t, DefaultRetryBackoff, b.InitialInterval)
	require.Equal(t, DefaultMaxRetryBackoff, b.MaxInterval)

	long := newRetryBackOff(10 * time.Second)
	require.Equal(t, 10*time.Second, long.MaxInterval, "base above the cap raises the cap")
}

func TestRandomBetween(t *testing.T) {
	lo, hi := 400*time.Millisecond, 500*time.Millisecond
	for range 100 {
		d := RandomBetween(lo, hi)
		require.GreaterOrEqual(t, d, lo)
		require.LessOrEqual(t, d, hi)
	}

	require.Equal(t, lo, RandomBetween(lo, lo))
	require.Equal(t, hi, RandomBetween(hi, lo))
}
