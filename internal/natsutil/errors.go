// Package natsutil classifies NATS and JetStream errors.
//
// Kept internal to avoid importing NATS dependencies in the types package.
package natsutil

import (
	"errors"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrCodeConsumerNotUnique is returned by the server when a consumer on a
// work-queue stream would overlap the filter subjects of another consumer.
const ErrCodeConsumerNotUnique jetstream.ErrorCode = 10100

// IsConsumerNotUnique reports whether err is the work-queue consumer uniqueness error.
//
// During a rebalance the consumer of a sibling member may still hold the
// partitions being handed over; this is expected and transient.
func IsConsumerNotUnique(err error) bool {
	return hasErrorCode(err, ErrCodeConsumerNotUnique)
}

// IsWrongLastSequence reports whether err is a compare-and-swap failure on a KV update.
func IsWrongLastSequence(err error) bool {
	return errors.Is(err, jetstream.ErrKeyExists) ||
		hasErrorCode(err, jetstream.JSErrCodeStreamWrongLastSequence)
}

// IsConsumerNotFound reports whether err means the consumer does not exist.
func IsConsumerNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrConsumerNotFound) ||
		errors.Is(err, jetstream.ErrConsumerDeleted) ||
		hasErrorCode(err, jetstream.JSErrCodeConsumerNotFound)
}

// IsStreamNotFound reports whether err means the stream does not exist.
func IsStreamNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		hasErrorCode(err, jetstream.JSErrCodeStreamNotFound)
}

// IsConnectivityError checks if an error is caused by connectivity issues.
//
// This includes NATS timeouts, connection refused, disconnections, etc.
//
// Parameters:
//   - err: Error to check
//
// Returns:
//   - bool: true if error indicates connectivity issue
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrConnectionReconnecting) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "i/o timeout")
}

func hasErrorCode(err error, code jetstream.ErrorCode) bool {
	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == code
	}

	return false
}
