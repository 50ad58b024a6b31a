package pcgroups

import (
	"errors"

	"github.com/arloliu/pcgroups/internal/member"
	"github.com/arloliu/pcgroups/types"
)

// Sentinel errors re-exported from the types package. Use errors.Is() for classification.
var (
	ErrInvalidConfig             = types.ErrInvalidConfig
	ErrInvalidGroupConfig        = types.ErrInvalidGroupConfig
	ErrConflict                  = types.ErrConflict
	ErrConsumerGroup             = types.ErrConsumerGroup
	ErrGroupNotFound             = types.ErrGroupNotFound
	ErrStreamNotFound            = types.ErrStreamNotFound
	ErrBucketNotFound            = types.ErrBucketNotFound
	ErrMemberNotInGroup          = types.ErrMemberNotInGroup
	ErrUnsupportedForMappingMode = types.ErrUnsupportedForMappingMode
	ErrUnsupportedForStatic      = types.ErrUnsupportedForStatic
	ErrHandlerRequired           = types.ErrHandlerRequired
	ErrInvalidAckPolicy          = types.ErrInvalidAckPolicy
	ErrProtocolViolation         = types.ErrProtocolViolation
	ErrJoinConflictsExhausted    = types.ErrJoinConflictsExhausted
	ErrAlreadyStopped            = types.ErrAlreadyStopped

	// ErrWatchClosed is reported through Err when the config watch of a running member ends.
	ErrWatchClosed = member.ErrWatchClosed
)

// Sentinel errors of the root package.
var (
	// ErrJetStreamRequired is returned when the JetStream context is nil.
	ErrJetStreamRequired = errors.New("JetStream context is required")

	// ErrConfigRequired is returned when NewRegistry is called with a nil Config.
	ErrConfigRequired = errors.New("config is required")
)

// ConfigValidationError describes a malformed or self-contradictory GroupConfig.
type ConfigValidationError = types.ConfigValidationError
