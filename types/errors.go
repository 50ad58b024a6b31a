package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pcgroups library.
//
// Use errors.Is() for classification. Precondition failures additionally wrap
// ErrConsumerGroup so callers can treat them as one class.

// Configuration errors.
var (
	// ErrInvalidGroupConfig is matched by every *ConfigValidationError.
	ErrInvalidGroupConfig = errors.New("invalid consumer group config")

	// ErrInvalidConfig is returned when the runtime Config is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Registry errors.
var (
	// ErrConflict is returned when a compare-and-swap membership update loses the race,
	// or when create finds an existing group with a different configuration.
	ErrConflict = errors.New("consumer group config conflict")

	// ErrConsumerGroup is the catch-all precondition/protocol error class.
	ErrConsumerGroup = errors.New("consumer group error")

	// ErrGroupNotFound is returned when the group config does not exist.
	ErrGroupNotFound = fmt.Errorf("%w: group not found", ErrConsumerGroup)

	// ErrStreamNotFound is returned when the source stream does not exist.
	ErrStreamNotFound = fmt.Errorf("%w: stream not found", ErrConsumerGroup)

	// ErrBucketNotFound is returned when the config KV bucket does not exist.
	ErrBucketNotFound = fmt.Errorf("%w: config bucket not found", ErrConsumerGroup)

	// ErrMemberNotInGroup is returned when a member is not part of the group membership.
	ErrMemberNotInGroup = fmt.Errorf("%w: member not in group", ErrConsumerGroup)

	// ErrUnsupportedForMappingMode is returned for balanced-membership operations on a mapping-mode group.
	ErrUnsupportedForMappingMode = fmt.Errorf("%w: operation not supported for groups using member mappings", ErrConsumerGroup)

	// ErrUnsupportedForStatic is returned for membership mutations on a static group.
	ErrUnsupportedForStatic = fmt.Errorf("%w: static group config is immutable", ErrConsumerGroup)
)

// Consume errors.
var (
	// ErrHandlerRequired is returned when Consume is called without a handler.
	ErrHandlerRequired = fmt.Errorf("%w: message handler is required", ErrConsumerGroup)

	// ErrInvalidAckPolicy is returned when a non-explicit ack policy is requested.
	ErrInvalidAckPolicy = fmt.Errorf("%w: only explicit ack policy is supported", ErrConsumerGroup)

	// ErrProtocolViolation is returned through the completion signal when an immutable
	// field of the group config changes underneath a running member.
	ErrProtocolViolation = errors.New("consumer group protocol violation")

	// ErrJoinConflictsExhausted is returned through the completion signal when a member
	// could not create its consumer because of repeated uniqueness conflicts.
	ErrJoinConflictsExhausted = errors.New("consumer creation conflicts exhausted")

	// ErrAlreadyStopped is returned when waiting on a member that was already stopped.
	ErrAlreadyStopped = errors.New("member already stopped")
)

// ConfigValidationError describes a malformed or self-contradictory GroupConfig.
type ConfigValidationError struct {
	Reason string
}

// Error implements error.
func (e *ConfigValidationError) Error() string {
	return "invalid consumer group config: " + e.Reason
}

// Unwrap allows errors.Is(err, ErrInvalidGroupConfig).
func (e *ConfigValidationError) Unwrap() error {
	return ErrInvalidGroupConfig
}

func invalidf(format string, args ...any) error {
	return &ConfigValidationError{Reason: fmt.Sprintf(format, args...)}
}
