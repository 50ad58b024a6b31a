package member

import (
	"context"

	"github.com/arloliu/pcgroups/types"
)

// EventOp is the kind of change carried by a config Event.
type EventOp int

const (
	// OpPut is a new or updated config.
	OpPut EventOp = iota

	// OpDelete is a deleted config key.
	OpDelete

	// OpPurge is a purged config key.
	OpPurge
)

// String returns the string representation of the operation.
func (o EventOp) String() string {
	switch o {
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	case OpPurge:
		return "purge"
	default:
		return "unknown"
	}
}

// Event is a change of the group config key.
type Event struct {
	Op       EventOp
	Revision uint64

	// Config is the decoded config of a put, nil when Err is set.
	Config *types.GroupConfig

	// Err is set when a put carried an undecodable or invalid payload.
	Err error
}

// Watcher delivers config change events in key order.
type Watcher interface {
	// Events returns the event channel. It is closed when the watch ends.
	Events() <-chan Event

	// Stop ends the watch.
	Stop() error
}

// Delivery is a running message pull loop on the member's consumer.
type Delivery interface {
	// Stop terminates the pull loop and waits for the in-flight handler.
	Stop()

	// Alive reports whether the pull loop is still running.
	Alive() bool

	// PinID returns the pin identifier this instance received, empty if unknown.
	PinID() string
}

// ConsumerState describes the member's consumer as seen by the server.
type ConsumerState struct {
	Filters  []string
	PinnedID string
}

// Backend is the stream and config store surface the member drives.
//
// Every method is called from the member's event loop only.
type Backend interface {
	// LoadConfig reads the current group config.
	LoadConfig(ctx context.Context) (*types.GroupConfig, error)

	// Watch starts watching the group config key.
	Watch(ctx context.Context) (Watcher, error)

	// LookupConsumer returns the member's consumer, nil when it does not exist.
	LookupConsumer(ctx context.Context) (*ConsumerState, error)

	// CreateConsumer creates the member's consumer with filters and starts delivering from it.
	CreateConsumer(ctx context.Context, filters []string) (Delivery, error)

	// DeleteConsumer deletes the member's consumer; a missing consumer is not an error.
	DeleteConsumer(ctx context.Context) error
}
