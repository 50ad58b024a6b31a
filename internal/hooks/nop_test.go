package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/arloliu/pcgroups/types"
	"github.com/stretchr/testify/require"
)

func TestNewNop(t *testing.T) {
	h := NewNop()

	require.NoError(t, h.OnPartitionsChanged(context.Background(), nil, []int{1}))
	require.NoError(t, h.OnStateChanged(context.Background(), types.StateJoining, types.StateActive))
	require.NoError(t, h.OnError(context.Background(), errors.New("boom")))
}

func TestFill(t *testing.T) {
	t.Run("nil hooks", func(t *testing.T) {
		h := Fill(nil)
		require.NotNil(t, h.OnStateChanged)
		require.NotNil(t, h.OnPartitionsChanged)
		require.NotNil(t, h.OnError)
	})

	t.Run("keeps custom callbacks", func(t *testing.T) {
		called := false
		h := Fill(&types.Hooks{
			OnError: func(context.Context, error) error {
				called = true
				return nil
			},
		})

		require.NoError(t, h.OnError(context.Background(), errors.New("x")))
		require.True(t, called)
		require.NotNil(t, h.OnStateChanged)
	})
}
