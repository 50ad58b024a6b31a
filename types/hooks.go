package types

import "context"

// Hooks defines callbacks for member lifecycle events.
//
// All hooks are optional and called asynchronously in background goroutines
// so they never block the member event loop. Hook errors are logged and ignored.
//
// Example:
//
//	hooks := &pcgroups.Hooks{
//	    OnPartitionsChanged: func(ctx context.Context, oldParts, newParts []int) error {
//	        log.Printf("now owning %v", newParts)
//	        return nil
//	    },
//	}
type Hooks struct {
	// OnStateChanged is called when the member state transitions.
	OnStateChanged func(ctx context.Context, from, to State) error

	// OnPartitionsChanged is called when the set of owned partitions changes.
	OnPartitionsChanged func(ctx context.Context, oldPartitions, newPartitions []int) error

	// OnError is called when a recoverable error occurs.
	OnError func(ctx context.Context, err error) error
}
