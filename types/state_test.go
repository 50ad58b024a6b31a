package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateJoining, "Joining"},
		{StateActive, "Active"},
		{StateRebalancing, "Rebalancing"},
		{StateStopped, "Stopped"},
		{StateFailed, "Failed"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestState_IsTerminal(t *testing.T) {
	require.False(t, StateJoining.IsTerminal())
	require.False(t, StateActive.IsTerminal())
	require.False(t, StateRebalancing.IsTerminal())
	require.True(t, StateStopped.IsTerminal())
	require.True(t, StateFailed.IsTerminal())
}
