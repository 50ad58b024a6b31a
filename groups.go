package pcgroups

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/arloliu/pcgroups/internal/natsutil"
	"github.com/arloliu/pcgroups/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go/jetstream"
)

// Groups exposes the administrative operations on consumer groups of one kind.
//
// Obtain it through Registry.Static or Registry.Elastic.
type Groups struct {
	reg  *Registry
	kind Kind
}

func newGroups(reg *Registry, kind Kind) *Groups {
	return &Groups{reg: reg, kind: kind}
}

// Kind returns the group kind these operations apply to.
func (g *Groups) Kind() Kind {
	return g.kind
}

// Create persists a new group config.
//
// Creating a group that already exists with a structurally equal config is a
// no-op returning the stored config; a different config fails with ErrConflict.
// For elastic groups the work-distribution stream "{stream}-{group}" is
// provisioned as well.
//
// Parameters:
//   - ctx: Context for cancellation
//   - stream: Source stream name
//   - group: Group name
//   - cfg: Group config; Kind and Revision are ignored
//
// Returns:
//   - *GroupConfig: Stored config with its revision
//   - error: Validation error, ErrStreamNotFound, ErrConflict or a store error
//
// Example:
//
//	stored, err := reg.Elastic().Create(ctx, "orders", "billing", pcgroups.GroupConfig{
//	    MaxMembers:            8,
//	    Filter:                "orders.*.*",
//	    PartitioningWildcards: []int{2},
//	})
func (g *Groups) Create(ctx context.Context, stream, group string, cfg GroupConfig) (*GroupConfig, error) {
	stored, err := g.create(ctx, stream, group, cfg)
	g.reg.recordOp("create", err)

	return stored, err
}

func (g *Groups) create(ctx context.Context, stream, group string, cfg GroupConfig) (*GroupConfig, error) {
	if err := validateNames(stream, group); err != nil {
		return nil, err
	}

	cfg.Kind = g.kind
	cfg.Revision = 0
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := g.reg.opContext(ctx)
	defer cancel()

	source, err := g.reg.streamInfo(ctx, stream)
	if err != nil {
		return nil, err
	}

	kv, err := g.reg.openBucket(ctx, g.kind, true)
	if err != nil {
		return nil, err
	}

	data, err := cfg.Marshal()
	if err != nil {
		return nil, err
	}

	key := types.GroupKey(stream, group)
	rev, err := kv.Create(ctx, key, data)
	switch {
	case err == nil:
		cfg.Revision = rev
	case errors.Is(err, jetstream.ErrKeyExists):
		existing, getErr := g.get(ctx, kv, stream, group)
		if getErr != nil {
			return nil, getErr
		}
		if !existing.Equal(&cfg) {
			return nil, fmt.Errorf("%w: group %s already exists with a different config", ErrConflict, key)
		}
		cfg = *existing
	default:
		return nil, fmt.Errorf("failed to store group config %s: %w", key, err)
	}

	if g.kind == KindElastic {
		if err := g.ensureWorkStream(ctx, source, group, &cfg); err != nil {
			if rev != 0 {
				// roll back so a retry starts from scratch
				_ = kv.Delete(ctx, key)
			}

			return nil, err
		}
	}

	g.reg.logger.Info("consumer group created",
		"kind", g.kind.String(), "stream", stream, "group", group, "revision", cfg.Revision)

	return &cfg, nil
}

// ensureWorkStream creates or updates the work-queue stream of an elastic group.
func (g *Groups) ensureWorkStream(ctx context.Context, source *jetstream.StreamInfo, group string, cfg *GroupConfig) error {
	replicas := g.reg.cfg.WorkStreamReplicas
	if replicas == 0 {
		replicas = source.Config.Replicas
	}

	_, err := g.reg.js.CreateOrUpdateStream(ctx, workStreamConfig(source, group, cfg, replicas))
	if err != nil {
		return fmt.Errorf("failed to provision work stream %s: %w",
			types.WorkStreamName(source.Config.Name, group), err)
	}

	return nil
}

// workStreamConfig builds the work-queue stream sourcing an elastic group's messages.
//
// Every message matching the group filter is stored as "{partition}.{subject}".
func workStreamConfig(source *jetstream.StreamInfo, group string, cfg *GroupConfig, replicas int) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        types.WorkStreamName(source.Config.Name, group),
		Description: fmt.Sprintf("Work stream of elastic consumer group %s on %s", group, source.Config.Name),
		Retention:   jetstream.WorkQueuePolicy,
		Storage:     source.Config.Storage,
		Replicas:    replicas,
		MaxMsgs:     unboundedIfZero(cfg.MaxBufferedMsgs),
		MaxBytes:    unboundedIfZero(cfg.MaxBufferedBytes),
		Discard:     jetstream.DiscardNew,
		Sources: []*jetstream.StreamSource{
			{
				Name: source.Config.Name,
				SubjectTransforms: []jetstream.SubjectTransformConfig{
					{Source: cfg.Filter, Destination: cfg.PartitioningTransform()},
				},
			},
		},
	}
}

func unboundedIfZero(v int64) int64 {
	if v == 0 {
		return -1
	}

	return v
}

// Delete removes a group.
//
// The config key is deleted first so running members stop; then the elastic
// work stream, or every static member consumer "{group}-*" on the source
// stream, is removed.
//
// Parameters:
//   - ctx: Context for cancellation
//   - stream: Source stream name
//   - group: Group name
//
// Returns:
//   - error: Store error; a missing group or stream is not an error
func (g *Groups) Delete(ctx context.Context, stream, group string) error {
	err := g.delete(ctx, stream, group)
	g.reg.recordOp("delete", err)

	return err
}

func (g *Groups) delete(ctx context.Context, stream, group string) error {
	ctx, cancel := g.reg.opContext(ctx)
	defer cancel()

	key := types.GroupKey(stream, group)

	kv, err := g.reg.openBucket(ctx, g.kind, false)
	switch {
	case err == nil:
		if delErr := kv.Delete(ctx, key); delErr != nil && !errors.Is(delErr, jetstream.ErrKeyNotFound) {
			g.reg.logger.Warn("failed to delete group config", "key", key, "error", delErr)
		}
	case errors.Is(err, ErrBucketNotFound):
	default:
		return err
	}

	if g.kind == KindElastic {
		err := g.reg.js.DeleteStream(ctx, types.WorkStreamName(stream, group))
		if err != nil && !natsutil.IsStreamNotFound(err) {
			return fmt.Errorf("failed to delete work stream: %w", err)
		}
	} else {
		names, err := g.reg.consumerNames(ctx, stream)
		if err != nil {
			if errors.Is(err, ErrStreamNotFound) {
				return nil
			}

			return err
		}

		prefix := group + "-"
		for _, name := range names {
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			if err := g.reg.js.DeleteConsumer(ctx, stream, name); err != nil && !natsutil.IsConsumerNotFound(err) {
				return fmt.Errorf("failed to delete consumer %s: %w", name, err)
			}
		}
	}

	g.reg.logger.Info("consumer group deleted", "kind", g.kind.String(), "stream", stream, "group", group)

	return nil
}

// List returns the sorted names of the groups defined on stream.
func (g *Groups) List(ctx context.Context, stream string) ([]string, error) {
	ctx, cancel := g.reg.opContext(ctx)
	defer cancel()

	kv, err := g.reg.openBucket(ctx, g.kind, false)
	if err != nil {
		if errors.Is(err, ErrBucketNotFound) {
			return nil, nil
		}

		return nil, err
	}

	lister, err := kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list group configs: %w", err)
	}

	var groups []string
	for key := range lister.Keys() {
		if group, ok := types.SplitGroupKey(stream, key); ok {
			groups = append(groups, group)
		}
	}
	slices.Sort(groups)

	return groups, nil
}

// Get returns the config of a group.
//
// Returns:
//   - *GroupConfig: Config with Kind and Revision set
//   - error: ErrGroupNotFound, ErrBucketNotFound or a decode error
func (g *Groups) Get(ctx context.Context, stream, group string) (*GroupConfig, error) {
	ctx, cancel := g.reg.opContext(ctx)
	defer cancel()

	kv, err := g.reg.openBucket(ctx, g.kind, false)
	if err != nil {
		return nil, err
	}

	return g.get(ctx, kv, stream, group)
}

func (g *Groups) get(ctx context.Context, kv jetstream.KeyValue, stream, group string) (*GroupConfig, error) {
	key := types.GroupKey(stream, group)

	entry, err := retryTransient(ctx, func() (jetstream.KeyValueEntry, error) {
		entry, err := kv.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrGroupNotFound, key))
		}

		return entry, err
	})
	if err != nil {
		return nil, err
	}

	cfg, err := types.UnmarshalGroupConfig(g.kind, entry.Value(), entry.Revision())
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ActiveMembers returns the configured members whose consumer currently exists,
// pinned or not.
func (g *Groups) ActiveMembers(ctx context.Context, stream, group string) ([]string, error) {
	cfg, err := g.Get(ctx, stream, group)
	if err != nil {
		return nil, err
	}

	ctx, cancel := g.reg.opContext(ctx)
	defer cancel()

	consumerStream := stream
	if g.kind == KindElastic {
		consumerStream = types.WorkStreamName(stream, group)
	}

	names, err := g.reg.consumerNames(ctx, consumerStream)
	if err != nil {
		return nil, err
	}

	var active []string
	for _, m := range cfg.AllMembers() {
		if slices.Contains(names, types.ConsumerName(g.kind, group, m)) {
			active = append(active, m)
		}
	}

	return active, nil
}

// AddMembers appends members to the balanced membership of an elastic group.
//
// Members already present are ignored. The update is a compare-and-swap on the
// revision that was read; a concurrent writer makes it fail with ErrConflict.
//
// Returns:
//   - *GroupConfig: Updated config
//   - error: ErrUnsupportedForStatic, ErrUnsupportedForMappingMode, ErrConflict, ...
func (g *Groups) AddMembers(ctx context.Context, stream, group string, members ...string) (*GroupConfig, error) {
	cfg, err := g.updateMembers(ctx, stream, group, func(cfg *GroupConfig) []string {
		for _, m := range members {
			if !slices.Contains(cfg.Members, m) {
				cfg.Members = append(cfg.Members, m)
			}
		}

		return nil
	}, members)
	g.reg.recordOp("add_members", err)

	return cfg, err
}

// DeleteMembers removes members from the balanced membership of an elastic group.
//
// After a successful update the consumers of the dropped members are deleted
// best-effort so that their partitions can be picked up without waiting for
// the consumers to expire.
func (g *Groups) DeleteMembers(ctx context.Context, stream, group string, members ...string) (*GroupConfig, error) {
	cfg, err := g.updateMembers(ctx, stream, group, func(cfg *GroupConfig) []string {
		var dropped []string
		cfg.Members = slices.DeleteFunc(cfg.Members, func(m string) bool {
			if slices.Contains(members, m) {
				dropped = append(dropped, m)
				return true
			}

			return false
		})

		return dropped
	}, members)
	g.reg.recordOp("delete_members", err)

	return cfg, err
}

func (g *Groups) updateMembers(
	ctx context.Context,
	stream, group string,
	mutate func(cfg *GroupConfig) []string,
	members []string,
) (*GroupConfig, error) {
	if g.kind == KindStatic {
		return nil, ErrUnsupportedForStatic
	}
	for _, m := range members {
		if err := types.ValidateName(m); err != nil {
			return nil, fmt.Errorf("%w: member %q: %w", ErrConsumerGroup, m, err)
		}
	}

	ctx, cancel := g.reg.opContext(ctx)
	defer cancel()

	kv, err := g.reg.openBucket(ctx, g.kind, false)
	if err != nil {
		return nil, err
	}

	cfg, err := g.get(ctx, kv, stream, group)
	if err != nil {
		return nil, err
	}
	if cfg.Mode() == ModeMapped {
		return nil, ErrUnsupportedForMappingMode
	}

	updated := cfg.Clone()
	dropped := mutate(&updated)
	if updated.MembershipEqual(cfg) {
		return cfg, nil
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	data, err := updated.Marshal()
	if err != nil {
		return nil, err
	}

	key := types.GroupKey(stream, group)
	rev, err := kv.Update(ctx, key, data, cfg.Revision)
	if err != nil {
		if natsutil.IsWrongLastSequence(err) {
			return nil, fmt.Errorf("%w: %s changed since revision %d", ErrConflict, key, cfg.Revision)
		}

		return nil, fmt.Errorf("failed to update group config %s: %w", key, err)
	}
	updated.Revision = rev

	g.reg.logger.Info("consumer group membership updated",
		"stream", stream, "group", group, "members", updated.Members, "revision", rev)

	g.deleteConsumers(ctx, stream, group, dropped)

	return &updated, nil
}

// SetMemberMappings replaces the membership of an elastic group with explicit
// member to partition mappings.
//
// The write is unconditional: mapping changes are administrative and the last
// writer wins.
func (g *Groups) SetMemberMappings(ctx context.Context, stream, group string, mappings []MemberMapping) (*GroupConfig, error) {
	cfg, err := g.replaceMembership(ctx, stream, group, func(cfg *GroupConfig) {
		cfg.Members = nil
		cfg.MemberMappings = mappings
	})
	g.reg.recordOp("set_mappings", err)

	return cfg, err
}

// DeleteMemberMappings clears the explicit mappings of an elastic group,
// leaving it without members.
func (g *Groups) DeleteMemberMappings(ctx context.Context, stream, group string) (*GroupConfig, error) {
	cfg, err := g.replaceMembership(ctx, stream, group, func(cfg *GroupConfig) {
		cfg.MemberMappings = nil
	})
	g.reg.recordOp("delete_mappings", err)

	return cfg, err
}

func (g *Groups) replaceMembership(ctx context.Context, stream, group string, mutate func(cfg *GroupConfig)) (*GroupConfig, error) {
	if g.kind == KindStatic {
		return nil, ErrUnsupportedForStatic
	}

	ctx, cancel := g.reg.opContext(ctx)
	defer cancel()

	kv, err := g.reg.openBucket(ctx, g.kind, false)
	if err != nil {
		return nil, err
	}

	cfg, err := g.get(ctx, kv, stream, group)
	if err != nil {
		return nil, err
	}

	updated := cfg.Clone()
	mutate(&updated)
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	data, err := updated.Marshal()
	if err != nil {
		return nil, err
	}

	key := types.GroupKey(stream, group)
	rev, err := kv.Put(ctx, key, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store group config %s: %w", key, err)
	}
	updated.Revision = rev

	var dropped []string
	for _, m := range cfg.AllMembers() {
		if !updated.HasMember(m) {
			dropped = append(dropped, m)
		}
	}
	g.deleteConsumers(ctx, stream, group, dropped)

	return &updated, nil
}

// deleteConsumers removes the elastic consumers of members that left the group.
func (g *Groups) deleteConsumers(ctx context.Context, stream, group string, members []string) {
	workStream := types.WorkStreamName(stream, group)
	for _, m := range members {
		err := g.reg.js.DeleteConsumer(ctx, workStream, types.ElasticConsumerName(m))
		if err != nil && !natsutil.IsConsumerNotFound(err) {
			g.reg.logger.Warn("failed to delete consumer of dropped member", "member", m, "error", err)
		}
	}
}

// MemberStepDown unpins the currently active instance of a member so that a
// standby instance of the same member takes over.
//
// Parameters:
//   - ctx: Context for cancellation
//   - stream: Source stream name
//   - group: Group name
//   - member: Member whose pinned instance should step down
//
// Returns:
//   - error: ErrMemberNotInGroup, ErrGroupNotFound, ErrStreamNotFound or an unpin error
func (g *Groups) MemberStepDown(ctx context.Context, stream, group, member string) error {
	err := g.stepDown(ctx, stream, group, member)
	g.reg.recordOp("step_down", err)

	return err
}

func (g *Groups) stepDown(ctx context.Context, stream, group, member string) error {
	cfg, err := g.Get(ctx, stream, group)
	if err != nil {
		return err
	}
	if !cfg.HasMember(member) {
		return fmt.Errorf("%w: %s", ErrMemberNotInGroup, member)
	}

	ctx, cancel := g.reg.opContext(ctx)
	defer cancel()

	consumerStream := stream
	if g.kind == KindElastic {
		consumerStream = types.WorkStreamName(stream, group)
	}
	consumer := types.ConsumerName(g.kind, group, member)

	st, err := g.reg.js.Stream(ctx, consumerStream)
	if err != nil {
		if errors.Is(err, jetstream.ErrStreamNotFound) {
			return fmt.Errorf("%w: %s", ErrStreamNotFound, consumerStream)
		}

		return fmt.Errorf("failed to look up stream %s: %w", consumerStream, err)
	}

	if err := st.UnpinConsumer(ctx, consumer, g.reg.cfg.PriorityGroup); err != nil {
		return fmt.Errorf("failed to unpin consumer %s: %w", consumer, err)
	}

	g.reg.logger.Info("member stepped down", "stream", stream, "group", group, "member", member)

	return nil
}

func validateNames(names ...string) error {
	for _, n := range names {
		if err := types.ValidateName(n); err != nil {
			return fmt.Errorf("%w: name %q: %w", ErrConsumerGroup, n, err)
		}
	}

	return nil
}
