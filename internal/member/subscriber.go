package member

import (
	"sync"

	"github.com/arloliu/pcgroups/types"
)

// subscriberBuffer allows Joining → Active → Rebalancing → Active → Stopped to be
// queued without dropping states when a subscriber is slow.
const subscriberBuffer = 8

// stateSubscriber is a helper for managing state change subscriptions.
type stateSubscriber struct {
	ch     chan types.State
	mu     sync.Mutex
	closed bool
}

func newStateSubscriber() *stateSubscriber {
	return &stateSubscriber{ch: make(chan types.State, subscriberBuffer)}
}

// trySend sends a state update to the subscriber's channel without blocking.
func (s *stateSubscriber) trySend(state types.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.ch <- state:
	default:
		// slow subscriber; it will observe the next update
	}
}

// close safely closes the subscriber's channel.
func (s *stateSubscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
