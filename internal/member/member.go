package member

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/pcgroups/internal/hooks"
	"github.com/arloliu/pcgroups/internal/logging"
	"github.com/arloliu/pcgroups/internal/metrics"
	"github.com/arloliu/pcgroups/types"
	"github.com/puzpuzpuz/xsync/v4"
)

// ErrWatchClosed is reported when the config watch ends while the member is running.
var ErrWatchClosed = errors.New("config watch closed unexpectedly")

const (
	defaultOperationTimeout       = 10 * time.Second
	defaultSelfCorrectionInterval = 34 * time.Second
	defaultRebalanceBackoffMin    = 400 * time.Millisecond
	defaultRebalanceBackoffMax    = 500 * time.Millisecond
)

// Settings tunes the member runtime. Zero values are replaced by defaults.
type Settings struct {
	// OperationTimeout bounds every backend call made by the event loop.
	OperationTimeout time.Duration

	// SelfCorrectionInterval is the longest the event loop waits for an event
	// before re-checking whether the member should be consuming.
	SelfCorrectionInterval time.Duration

	// RebalanceBackoffMin and RebalanceBackoffMax bound the randomized wait of a
	// non-pinned instance before it rejoins during a rebalance.
	RebalanceBackoffMin time.Duration
	RebalanceBackoffMax time.Duration

	// MaxJoinConflicts is the number of consecutive consumer-not-unique join
	// failures tolerated before the member fails. Negative means unbounded,
	// zero fails on the first conflict. The public Config never passes zero.
	MaxJoinConflicts int
}

func (s *Settings) applyDefaults() {
	if s.OperationTimeout <= 0 {
		s.OperationTimeout = defaultOperationTimeout
	}
	if s.SelfCorrectionInterval <= 0 {
		s.SelfCorrectionInterval = defaultSelfCorrectionInterval
	}
	if s.RebalanceBackoffMin <= 0 {
		s.RebalanceBackoffMin = defaultRebalanceBackoffMin
	}
	if s.RebalanceBackoffMax < s.RebalanceBackoffMin {
		s.RebalanceBackoffMax = s.RebalanceBackoffMin
	}
}

// Params holds everything needed to construct a Member.
type Params struct {
	Group   string
	Member  string
	Kind    types.Kind
	Backend Backend

	Settings Settings
	Logger   types.Logger
	Metrics  types.MemberMetrics
	Hooks    *types.Hooks
}

// Member is the coordination runtime of one member instance.
//
// All runtime fields below the "loop-owned" marker are touched only by the
// event loop goroutine. Everything read by other goroutines is atomic or
// guarded by its own lock.
type Member struct {
	group    string
	name     string
	kind     types.Kind
	backend  Backend
	settings Settings
	logger   types.Logger
	metrics  types.MemberMetrics
	hooks    *types.Hooks

	state       atomic.Int32
	partitions  atomic.Pointer[[]int]
	subscribers *xsync.Map[uint64, *stateSubscriber]
	nextSubID   atomic.Uint64
	subMu       sync.Mutex // serializes subscriber registration against final close

	started  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	err      error

	// loop-owned
	current   types.GroupConfig
	watcher   Watcher
	delivery  Delivery
	filters   []string
	conflicts int
	finished  bool
}

// New creates a member in the Joining state. Call Start to run it.
//
// Parameters:
//   - p: Member parameters; Backend is required
//
// Returns:
//   - *Member: Member ready to start
func New(p Params) *Member {
	p.Settings.applyDefaults()

	mc := p.Metrics
	if mc == nil {
		mc = metrics.NewNop()
	}

	m := &Member{
		group:       p.Group,
		name:        p.Member,
		kind:        p.Kind,
		backend:     p.Backend,
		settings:    p.Settings,
		logger:      logging.OrNop(p.Logger),
		metrics:     mc,
		hooks:       hooks.Fill(p.Hooks),
		subscribers: xsync.NewMap[uint64, *stateSubscriber](),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
	m.state.Store(int32(types.StateJoining))
	empty := []int{}
	m.partitions.Store(&empty)

	return m
}

// Start performs the initial join synchronously and then runs the event loop
// in the background.
//
// The watch is established before the config is read so that no update made
// in between is lost. A consumer-not-unique conflict during the initial join
// leaves the member idle and is not an error.
//
// Parameters:
//   - ctx: Bounds the initial join only; the running member is controlled by Stop
//
// Returns:
//   - error: Setup failure; the member holds no resources when non-nil
func (m *Member) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.New("member already started")
	}

	watcher, err := m.backend.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch group config: %w", err)
	}

	cfg, err := m.backend.LoadConfig(ctx)
	if err != nil {
		_ = watcher.Stop()
		return err
	}
	m.watcher = watcher
	m.current = *cfg

	m.logger.Info("member joining",
		"revision", cfg.Revision,
		"membership", fmt.Sprintf("%016x", cfg.MembershipFingerprint()),
	)

	if _, err := m.join(ctx); err != nil {
		m.releaseDelivery()
		_ = watcher.Stop()

		return err
	}

	m.transitionState(types.StateActive)

	go m.run()

	return nil
}

// Stop requests a graceful shutdown. It does not wait; use Done.
//
// Safe to call multiple times and from any goroutine.
func (m *Member) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// Done is closed once the member has terminated and released its resources.
func (m *Member) Done() <-chan struct{} {
	return m.done
}

// Err returns the terminal error, nil while running or after a clean stop.
func (m *Member) Err() error {
	select {
	case <-m.done:
		return m.err
	default:
		return nil
	}
}

// State returns the current member state.
func (m *Member) State() types.State {
	return types.State(m.state.Load())
}

// Partitions returns the partitions the member currently consumes, sorted.
func (m *Member) Partitions() []int {
	return slices.Clone(*m.partitions.Load())
}

// Subscribe returns a channel receiving state changes, starting with the current state.
//
// The channel is closed when the member terminates or unsubscribe is called.
//
// Returns:
//   - <-chan types.State: State updates
//   - func(): Unsubscribe function, safe to call more than once
func (m *Member) Subscribe() (<-chan types.State, func()) {
	sub := newStateSubscriber()
	sub.trySend(m.State())

	m.subMu.Lock()
	select {
	case <-m.done:
		m.subMu.Unlock()
		sub.close()

		return sub.ch, func() {}
	default:
	}
	id := m.nextSubID.Add(1)
	m.subscribers.Store(id, sub)
	m.subMu.Unlock()

	return sub.ch, func() {
		if s, ok := m.subscribers.LoadAndDelete(id); ok {
			s.close()
		}
	}
}

// WaitState waits until the member reaches the expected state or the timeout elapses.
//
// Parameters:
//   - expected: State to wait for
//   - timeout: Maximum wait
//
// Returns:
//   - <-chan error: Receives nil on success, an error on timeout or when the
//     member terminated in a different state
//
// Example:
//
//	if err := <-m.WaitState(types.StateActive, 5*time.Second); err != nil {
//	    return err
//	}
func (m *Member) WaitState(expected types.State, timeout time.Duration) <-chan error {
	result := make(chan error, 1)

	go func() {
		defer close(result)

		ch, unsubscribe := m.Subscribe()
		defer unsubscribe()

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		for {
			select {
			case state, ok := <-ch:
				if !ok {
					if m.State() == expected {
						result <- nil
					} else {
						result <- fmt.Errorf("%w: terminated in state %s while waiting for %s",
							types.ErrAlreadyStopped, m.State(), expected)
					}

					return
				}
				if state == expected {
					result <- nil
					return
				}
			case <-timer.C:
				result <- fmt.Errorf("timeout waiting for state %s, current state %s: %w", expected, m.State(), context.DeadlineExceeded)
				return
			}
		}
	}()

	return result
}

// transitionState moves the member to a new state and notifies observers.
func (m *Member) transitionState(to types.State) {
	from := types.State(m.state.Swap(int32(to)))
	if from == to {
		return
	}

	m.logger.Info("member state transition", "from", from.String(), "to", to.String())
	m.metrics.RecordStateTransition(from, to)

	m.subscribers.Range(func(_ uint64, sub *stateSubscriber) bool {
		sub.trySend(to)
		return true
	})

	go func() {
		if err := m.hooks.OnStateChanged(context.Background(), from, to); err != nil {
			m.logger.Error("state change hook failed", "error", err)
		}
	}()
}

// setPartitions publishes the consumed partition set and fires the change hook.
func (m *Member) setPartitions(parts []int) {
	if parts == nil {
		parts = []int{}
	}
	old := *m.partitions.Swap(&parts)

	m.metrics.RecordPartitionsOwned(m.group, m.name, len(parts))

	if slices.Equal(old, parts) {
		return
	}

	m.logger.Info("partitions changed", "old", old, "new", parts)

	go func() {
		if err := m.hooks.OnPartitionsChanged(context.Background(), old, parts); err != nil {
			m.logger.Error("partitions changed hook failed", "error", err)
		}
	}()
}

// reportError logs a recoverable error and forwards it to the error hook.
func (m *Member) reportError(msg string, err error) {
	m.logger.Warn(msg, "error", err)

	go func() {
		if hookErr := m.hooks.OnError(context.Background(), err); hookErr != nil {
			m.logger.Error("error hook failed", "error", hookErr)
		}
	}()
}

// closeSubscribers closes every subscriber channel after the final transition.
func (m *Member) closeSubscribers() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.subscribers.Range(func(id uint64, sub *stateSubscriber) bool {
		sub.close()
		m.subscribers.Delete(id)

		return true
	})
}
