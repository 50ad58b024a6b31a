package metrics

import (
	"testing"
	"time"

	"github.com/arloliu/pcgroups/types"
	"github.com/stretchr/testify/require"
)

func TestNopMetrics(t *testing.T) {
	metrics := NewNop()

	require.NotPanics(t, func() {
		metrics.RecordStateTransition(types.StateJoining, types.StateActive)
		metrics.RecordStateTransition(types.State(999), types.State(1000))
		metrics.RecordRebalance("g", "m", time.Second, "joined")
		metrics.RecordJoin("success")
		metrics.RecordJoinConflict()
		metrics.RecordPartitionsOwned("g", "m", 3)
		metrics.RecordConfigOperation("create", "success")
		metrics.RecordMessageHandled("ack")
	})
}
