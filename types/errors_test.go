package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	t.Run("precondition errors share the consumer group class", func(t *testing.T) {
		for _, err := range []error{
			ErrGroupNotFound,
			ErrStreamNotFound,
			ErrBucketNotFound,
			ErrMemberNotInGroup,
			ErrUnsupportedForMappingMode,
			ErrUnsupportedForStatic,
			ErrHandlerRequired,
			ErrInvalidAckPolicy,
		} {
			require.ErrorIs(t, err, ErrConsumerGroup, "%v", err)
		}
	})

	t.Run("runtime errors are not precondition errors", func(t *testing.T) {
		require.NotErrorIs(t, ErrProtocolViolation, ErrConsumerGroup)
		require.NotErrorIs(t, ErrJoinConflictsExhausted, ErrConsumerGroup)
		require.NotErrorIs(t, ErrConflict, ErrConsumerGroup)
	})

	t.Run("wrapped errors keep identity", func(t *testing.T) {
		wrapped := fmt.Errorf("create group: %w", ErrConflict)
		require.ErrorIs(t, wrapped, ErrConflict)
	})
}

func TestConfigValidationError(t *testing.T) {
	err := invalidf("max_members must be >= 1, got %d", 0)

	require.ErrorIs(t, err, ErrInvalidGroupConfig)
	require.Equal(t, "invalid consumer group config: max_members must be >= 1, got 0", err.Error())

	var verr *ConfigValidationError
	require.True(t, errors.As(fmt.Errorf("wrap: %w", err), &verr))
	require.Equal(t, "max_members must be >= 1, got 0", verr.Reason)
}
