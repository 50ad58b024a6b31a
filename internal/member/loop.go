package member

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/arloliu/pcgroups/internal/natsutil"
	"github.com/arloliu/pcgroups/strategy"
	"github.com/arloliu/pcgroups/subscription"
	"github.com/arloliu/pcgroups/types"
)

// Join outcomes, also used as metric labels.
const (
	joinJoined   = "joined"
	joinIdle     = "idle"
	joinConflict = "conflict"
	joinError    = "error"
)

// run is the event loop. It is the only goroutine mutating runtime state after Start.
func (m *Member) run() {
	timer := time.NewTimer(m.settings.SelfCorrectionInterval)
	defer timer.Stop()

	events := m.watcher.Events()

	for !m.finished {
		select {
		case <-m.stopCh:
			m.terminate(types.StateStopped, nil, false)
			return
		default:
		}

		select {
		case <-m.stopCh:
			m.terminate(types.StateStopped, nil, false)

		case ev, ok := <-events:
			if !ok {
				m.terminate(types.StateFailed, ErrWatchClosed, false)
				break
			}
			m.handleEvent(ev)

		case <-timer.C:
			m.selfCorrect()
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(m.settings.SelfCorrectionInterval)
	}
}

func (m *Member) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.settings.OperationTimeout)
}

// handleEvent applies one config change.
func (m *Member) handleEvent(ev Event) {
	switch ev.Op {
	case OpDelete, OpPurge:
		m.logger.Info("group config removed, stopping member", "op", ev.Op.String(), "revision", ev.Revision)
		m.terminate(types.StateStopped, nil, true)

		return
	case OpPut:
	default:
		return
	}

	if ev.Err != nil {
		m.reportError("ignoring undecodable group config update", ev.Err)
		return
	}

	m.applyConfig(ev.Config)
}

// applyConfig compares cfg against the current config and reacts to the difference.
// Returns true when it rebalanced or terminated the member.
func (m *Member) applyConfig(cfg *types.GroupConfig) bool {
	if cfg.Revision != 0 && cfg.Revision <= m.current.Revision {
		return false
	}

	if m.kind == types.KindStatic && !cfg.Equal(&m.current) {
		m.terminate(types.StateFailed,
			fmt.Errorf("%w: static group config changed at revision %d", types.ErrProtocolViolation, cfg.Revision), false)

		return true
	}

	if !cfg.ImmutableEqual(&m.current) {
		m.terminate(types.StateFailed,
			fmt.Errorf("%w: immutable group config field changed at revision %d", types.ErrProtocolViolation, cfg.Revision), false)

		return true
	}

	if cfg.MembershipEqual(&m.current) {
		m.current.Revision = cfg.Revision
		return false
	}

	m.rebalance(cfg)

	return true
}

// rebalance tears down the current consumer and rejoins with the filters of cfg.
func (m *Member) rebalance(cfg *types.GroupConfig) {
	start := time.Now()
	m.transitionState(types.StateRebalancing)

	previous := m.current
	m.current = cfg.Clone()

	desired := strategy.PartitionFilters(&m.current, m.name)
	m.logger.Info("membership changed",
		"revision", cfg.Revision,
		"from", fmt.Sprintf("%016x", previous.MembershipFingerprint()),
		"to", fmt.Sprintf("%016x", m.current.MembershipFingerprint()),
		"filters", desired,
	)

	if m.delivery != nil && m.delivery.Alive() && slices.Equal(desired, m.filters) {
		m.metrics.RecordRebalance(m.group, m.name, time.Since(start), "unchanged")
		m.transitionState(types.StateActive)

		return
	}

	if m.delivery != nil {
		if !m.leaveConsumer() {
			// stop requested during backoff
			return
		}
	}

	ctx, cancel := m.opContext()
	result, err := m.join(ctx)
	cancel()

	m.metrics.RecordRebalance(m.group, m.name, time.Since(start), result)

	if errors.Is(err, types.ErrJoinConflictsExhausted) {
		m.terminate(types.StateFailed, err, false)
		return
	}
	if err != nil {
		m.reportError("rejoin after rebalance failed, will retry on self-correction", err)
	}

	m.transitionState(types.StateActive)
}

// leaveConsumer releases the current consumer. Only the pinned instance deletes it;
// others wait a randomized backoff so the pinned instance goes first. Returns false
// when stop was requested during the backoff.
func (m *Member) leaveConsumer() bool {
	myPin := m.delivery.PinID()
	m.releaseDelivery()

	ctx, cancel := m.opContext()
	defer cancel()

	pinned := ""
	state, err := m.backend.LookupConsumer(ctx)
	switch {
	case err != nil:
		m.logger.Warn("failed to look up consumer before rebalance", "error", err)
	case state != nil:
		pinned = state.PinnedID
	}

	if pinned == "" || pinned == myPin {
		if err := m.backend.DeleteConsumer(ctx); err != nil {
			m.logger.Warn("failed to delete consumer during rebalance", "error", err)
		}

		return true
	}

	delay := subscription.RandomBetween(m.settings.RebalanceBackoffMin, m.settings.RebalanceBackoffMax)
	m.logger.Debug("not the pinned instance, backing off", "pinned", pinned, "delay", delay)

	select {
	case <-m.stopCh:
		return false
	case <-time.After(delay):
		return true
	}
}

// join creates the consumer for the current config, or idles when the member owns
// no partitions or loses a uniqueness race.
//
// Returns:
//   - string: Join outcome
//   - error: Failure other than a tolerated conflict; ErrJoinConflictsExhausted
//     when the conflict budget is spent
func (m *Member) join(ctx context.Context) (string, error) {
	desired := strategy.PartitionFilters(&m.current, m.name)

	if len(desired) == 0 {
		m.logger.Info("no partitions assigned, member idle")
		m.conflicts = 0
		m.filters = nil
		m.setPartitions(nil)
		m.metrics.RecordJoin(joinIdle)

		return joinIdle, nil
	}

	existing, err := m.backend.LookupConsumer(ctx)
	if err != nil {
		m.metrics.RecordJoin(joinError)
		return joinError, fmt.Errorf("failed to look up consumer: %w", err)
	}

	if existing != nil && !sameFilters(existing.Filters, desired) {
		m.logger.Info("consumer has stale filters, recreating", "stale", existing.Filters, "filters", desired)
		if err := m.backend.DeleteConsumer(ctx); err != nil {
			m.metrics.RecordJoin(joinError)
			return joinError, fmt.Errorf("failed to delete stale consumer: %w", err)
		}
	}

	delivery, err := m.backend.CreateConsumer(ctx, desired)
	if err != nil {
		if natsutil.IsConsumerNotUnique(err) {
			return m.recordConflict(err)
		}
		m.metrics.RecordJoin(joinError)

		return joinError, fmt.Errorf("failed to create consumer: %w", err)
	}

	m.delivery = delivery
	m.filters = desired
	m.conflicts = 0
	m.setPartitions(strategy.PartitionsFor(&m.current, m.name))
	m.metrics.RecordJoin(joinJoined)
	m.logger.Info("consumer joined", "filters", desired)

	return joinJoined, nil
}

func (m *Member) recordConflict(err error) (string, error) {
	m.conflicts++
	m.filters = nil
	m.setPartitions(nil)
	m.metrics.RecordJoinConflict()
	m.metrics.RecordJoin(joinConflict)

	limit := m.settings.MaxJoinConflicts
	if limit >= 0 && m.conflicts > limit {
		return joinConflict, fmt.Errorf("%w: %d consecutive conflicts: %w", types.ErrJoinConflictsExhausted, m.conflicts, err)
	}

	m.logger.Info("consumer not unique, staying idle until self-correction", "conflicts", m.conflicts)

	return joinConflict, nil
}

// selfCorrect runs when no event arrived within the self-correction interval.
func (m *Member) selfCorrect() {
	ctx, cancel := m.opContext()
	defer cancel()

	// a missed watch update or delete is picked up here
	cfg, err := m.backend.LoadConfig(ctx)
	switch {
	case errors.Is(err, types.ErrGroupNotFound):
		m.logger.Info("self-correction found group config removed, stopping member")
		m.terminate(types.StateStopped, nil, true)

		return
	case err != nil:
		m.reportError("self-correction failed to load group config", err)
	case cfg.Revision > m.current.Revision:
		m.logger.Info("self-correction found newer group config", "revision", cfg.Revision)
		// a rebalance already made this tick's join attempt
		if m.applyConfig(cfg) {
			return
		}
	}

	if m.delivery != nil {
		if m.delivery.Alive() {
			return
		}
		m.logger.Warn("delivery loop terminated, rejoining")
		m.releaseDelivery()
	}

	if len(strategy.PartitionFilters(&m.current, m.name)) == 0 {
		return
	}

	m.transitionState(types.StateJoining)

	_, err = m.join(ctx)
	if errors.Is(err, types.ErrJoinConflictsExhausted) {
		m.terminate(types.StateFailed, err, false)
		return
	}
	if err != nil {
		m.reportError("self-correction join failed", err)
	}

	m.transitionState(types.StateActive)
}

// releaseDelivery stops the pull loop, if any.
func (m *Member) releaseDelivery() {
	if m.delivery == nil {
		return
	}
	m.delivery.Stop()
	m.delivery = nil
	m.filters = nil
	m.setPartitions(nil)
}

// terminate releases all resources, moves to a terminal state and fulfills Done.
func (m *Member) terminate(state types.State, err error, deleteConsumer bool) {
	if m.finished {
		return
	}
	m.finished = true

	m.releaseDelivery()

	if deleteConsumer {
		ctx, cancel := m.opContext()
		if delErr := m.backend.DeleteConsumer(ctx); delErr != nil {
			m.logger.Warn("failed to delete consumer on group removal", "error", delErr)
		}
		cancel()
	}

	if stopErr := m.watcher.Stop(); stopErr != nil {
		m.logger.Debug("failed to stop config watch", "error", stopErr)
	}

	if err != nil {
		m.logger.Error("member failed", "error", err)
	}

	m.err = err
	m.transitionState(state)
	close(m.done)
	m.closeSubscribers()
}

// sameFilters compares two filter sets ignoring order.
func sameFilters(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)

	return slices.Equal(x, y)
}
