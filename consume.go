package pcgroups

import (
	"context"
	"fmt"
	"time"

	"github.com/arloliu/pcgroups/internal/logging"
	"github.com/arloliu/pcgroups/internal/member"
	"github.com/arloliu/pcgroups/types"
	"github.com/google/uuid"
)

// ConsumeContext controls a running group member.
type ConsumeContext struct {
	member   *member.Member
	name     string
	instance string
}

// Consume joins a group as member and starts consuming its partitions.
//
// The member's consumer is created synchronously; the call returns once the
// member is Active, which includes the idle case of a member that currently
// owns no partitions. From then on the member follows membership changes on
// its own until Stop is called or the group is deleted.
//
// Parameters:
//   - ctx: Bounds the setup only
//   - stream: Source stream name
//   - group: Group name
//   - memberName: Member name; static groups require it to be in the membership
//   - handler: Message handler, called sequentially per member instance
//   - opts: Optional hooks, logger, metrics and consumer options for this member
//
// Returns:
//   - *ConsumeContext: Handle of the running member
//   - error: Precondition failure (ErrHandlerRequired, ErrInvalidAckPolicy,
//     ErrStreamNotFound, ErrGroupNotFound, ErrMemberNotInGroup, ...) or setup error
//
// Example:
//
//	cc, err := reg.Static().Consume(ctx, "orders", "billing", "m1", handler)
//	if err != nil {
//	    return err
//	}
//	defer cc.Stop()
//	<-cc.Done()
func (g *Groups) Consume(
	ctx context.Context,
	stream, group, memberName string,
	handler MessageHandler,
	opts ...Option,
) (*ConsumeContext, error) {
	if handler == nil {
		return nil, ErrHandlerRequired
	}
	if err := validateNames(stream, group, memberName); err != nil {
		return nil, err
	}

	o := g.reg.opts.apply(opts)

	consumeOpts := g.reg.cfg.Consume
	if o.consume != nil {
		consumeOpts = *o.consume
	}
	instance := uuid.NewString()
	logger := logging.With(logging.OrNop(o.logger),
		"stream", stream, "group", group, "member", memberName, "instance", instance)
	consumeOpts.Logger = logger

	consumeOpts.ApplyDefaults()
	if err := consumeOpts.Validate(); err != nil {
		return nil, err
	}

	mc := o.metrics
	if mc == nil {
		mc = g.reg.metrics
	}

	setupCtx, cancel := g.reg.opContext(ctx)
	defer cancel()

	if _, err := g.reg.streamInfo(setupCtx, stream); err != nil {
		return nil, err
	}
	if g.kind == KindElastic {
		if _, err := g.reg.streamInfo(setupCtx, types.WorkStreamName(stream, group)); err != nil {
			return nil, err
		}
	}

	kv, err := g.reg.openBucket(setupCtx, g.kind, false)
	if err != nil {
		return nil, err
	}

	cfg, err := g.get(setupCtx, kv, stream, group)
	if err != nil {
		return nil, err
	}
	if g.kind == KindStatic && !cfg.HasMember(memberName) {
		return nil, fmt.Errorf("%w: %s is not a member of static group %s", ErrMemberNotInGroup, memberName, group)
	}

	backend := member.NewJetStreamBackend(member.JetStreamBackendConfig{
		JS:            g.reg.js,
		KV:            kv,
		Kind:          g.kind,
		Stream:        stream,
		Group:         group,
		Member:        memberName,
		PriorityGroup: g.reg.cfg.PriorityGroup,
		Handler:       handler,
		Options:       consumeOpts,
		Metrics:       mc,
	})

	selfCorrection := g.reg.cfg
	selfCorrection.Consume.AckWait = consumeOpts.AckWait

	m := member.New(member.Params{
		Group:   group,
		Member:  memberName,
		Kind:    g.kind,
		Backend: backend,
		Settings: member.Settings{
			OperationTimeout:       g.reg.cfg.OperationTimeout,
			SelfCorrectionInterval: selfCorrection.SelfCorrectionInterval(),
			RebalanceBackoffMin:    g.reg.cfg.Rebalance.BackoffMin,
			RebalanceBackoffMax:    g.reg.cfg.Rebalance.BackoffMax,
			MaxJoinConflicts:       g.reg.cfg.Rebalance.MaxJoinConflicts,
		},
		Logger:  logger,
		Metrics: mc,
		Hooks:   o.hooks,
	})

	if err := m.Start(setupCtx); err != nil {
		return nil, err
	}

	return &ConsumeContext{member: m, name: memberName, instance: instance}, nil
}

// Stop requests a graceful shutdown of the member and returns immediately.
//
// The member's consumer is kept so that a standby instance of the same member
// can take over. Safe to call multiple times and from any goroutine.
func (c *ConsumeContext) Stop() {
	c.member.Stop()
}

// Done is closed once the member has terminated, cleanly or not.
func (c *ConsumeContext) Done() <-chan struct{} {
	return c.member.Done()
}

// Err returns the terminal error; nil while running or after a clean stop.
func (c *ConsumeContext) Err() error {
	return c.member.Err()
}

// Wait blocks until the member terminates or ctx is done.
//
// Returns:
//   - error: Terminal error of the member, or ctx.Err()
func (c *ConsumeContext) Wait(ctx context.Context) error {
	select {
	case <-c.member.Done():
		return c.member.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current member state.
func (c *ConsumeContext) State() State {
	return c.member.State()
}

// Subscribe returns a channel of member state changes, starting with the current state.
func (c *ConsumeContext) Subscribe() (<-chan State, func()) {
	return c.member.Subscribe()
}

// WaitState waits until the member reaches the expected state or the timeout elapses.
func (c *ConsumeContext) WaitState(expected State, timeout time.Duration) <-chan error {
	return c.member.WaitState(expected, timeout)
}

// Partitions returns the partitions the member is currently consuming.
func (c *ConsumeContext) Partitions() []int {
	return c.member.Partitions()
}

// Member returns the member name.
func (c *ConsumeContext) Member() string {
	return c.name
}

// Instance returns the unique identifier of this member instance.
func (c *ConsumeContext) Instance() string {
	return c.instance
}
