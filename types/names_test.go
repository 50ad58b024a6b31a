package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	require.NoError(t, ValidateName("member-1"))
	require.NoError(t, ValidateName("Member_A"))

	for _, bad := range []string{"", "a.b", "a b", "a*", "a>", "a/b", `a\b`} {
		require.Error(t, ValidateName(bad), "name %q should be rejected", bad)
	}
}

func TestNaming(t *testing.T) {
	require.Equal(t, "orders.workers", GroupKey("orders", "workers"))
	require.Equal(t, "orders-workers", WorkStreamName("orders", "workers"))
	require.Equal(t, "workers-m1", StaticConsumerName("workers", "m1"))
	require.Equal(t, "m1", ElasticConsumerName("m1"))
	require.Equal(t, "workers-m1", ConsumerName(KindStatic, "workers", "m1"))
	require.Equal(t, "m1", ConsumerName(KindElastic, "workers", "m1"))
	require.Equal(t, "3.>", PartitionFilter(3))
}

func TestSplitGroupKey(t *testing.T) {
	group, ok := SplitGroupKey("orders", "orders.workers")
	require.True(t, ok)
	require.Equal(t, "workers", group)

	_, ok = SplitGroupKey("orders", "payments.workers")
	require.False(t, ok)

	_, ok = SplitGroupKey("orders", "orders.")
	require.False(t, ok)

	// a stream named "orders.eu" would never collide since stream names cannot contain '.'
	_, ok = SplitGroupKey("order", "orders.workers")
	require.False(t, ok)
}
