package pcgroups

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	pcgtest "github.com/arloliu/pcgroups/testing"
)

const (
	waitTimeout = 15 * time.Second
	waitTick    = 20 * time.Millisecond
)

func TestConsume_Preconditions(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}

	reg, js := newTestRegistry(t)
	ctx := t.Context()
	pcgtest.CreatePartitionedStream(t, js, "events", "events.*", 2, 1)
	pcgtest.CreateStream(t, js, "orders", "orders.>")

	_, err := reg.Static().Create(ctx, "events", "audit", GroupConfig{MaxMembers: 2, Filter: "events.*", Members: []string{"a", "b"}})
	require.NoError(t, err)

	h := &countingHandler{}

	tests := []struct {
		name    string
		groups  *Groups
		stream  string
		group   string
		member  string
		handler MessageHandler
		opts    []Option
		wantErr error
	}{
		{"nil handler", reg.Static(), "events", "audit", "a", nil, nil, ErrHandlerRequired},
		{"invalid name", reg.Static(), "events", "audit", "a.b", h, nil, ErrConsumerGroup},
		{"missing stream", reg.Static(), "missing", "audit", "a", h, nil, ErrStreamNotFound},
		{"missing group", reg.Static(), "events", "nope", "a", h, nil, ErrGroupNotFound},
		{"not a static member", reg.Static(), "events", "audit", "z", h, nil, ErrMemberNotInGroup},
		{"missing work stream", reg.Elastic(), "orders", "billing", "m1", h, nil, ErrStreamNotFound},
		{
			"non-explicit ack policy", reg.Static(), "events", "audit", "a", h,
			[]Option{WithConsumeOptions(ConsumeOptions{AckPolicy: jetstream.AckAllPolicy})},
			ErrInvalidAckPolicy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc, err := tt.groups.Consume(ctx, tt.stream, tt.group, tt.member, tt.handler, tt.opts...)
			require.ErrorIs(t, err, tt.wantErr)
			require.Nil(t, cc)
		})
	}
}

func TestConsume_StaticFixedMembers(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}

	reg, js := newTestRegistry(t)
	ctx := t.Context()
	pcgtest.CreatePartitionedStream(t, js, "events", "events.*", 2, 1)

	_, err := reg.Static().Create(ctx, "events", "audit", GroupConfig{MaxMembers: 2, Filter: "events.*", Members: []string{"a", "b"}})
	require.NoError(t, err)

	ha, hb := &countingHandler{}, &countingHandler{}
	ca, err := reg.Static().Consume(ctx, "events", "audit", "a", ha)
	require.NoError(t, err)
	stopOnCleanup(t, ca)
	cb, err := reg.Static().Consume(ctx, "events", "audit", "b", hb)
	require.NoError(t, err)
	stopOnCleanup(t, cb)

	require.Equal(t, StateActive, ca.State())
	require.Equal(t, []int{0}, ca.Partitions())
	require.Equal(t, []int{1}, cb.Partitions())
	require.Equal(t, "a", ca.Member())
	require.NotEqual(t, ca.Instance(), cb.Instance())

	keys := append(keysForPartition(0, 2, 4), keysForPartition(1, 2, 6)...)
	publishAll(t, js, "events", keys)

	require.Eventually(t, func() bool {
		return ha.count()+hb.count() == 10
	}, waitTimeout, waitTick)

	require.Equal(t, 4, ha.count())
	require.Equal(t, 6, hb.count())
	require.Equal(t, []int{0}, ha.partitions())
	require.Equal(t, []int{1}, hb.partitions())
	for _, s := range ha.subjects {
		require.Contains(t, s, "events.", "partition prefix is stripped")
	}
}

// Elastic membership changes move partitions between running members:
// m1 alone consumes everything, then shares with m2, then leaves.
func TestConsume_ElasticRebalance(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}

	reg, js := newTestRegistry(t)
	ctx := t.Context()
	pcgtest.CreateStream(t, js, "orders", "orders.*")

	_, err := reg.Elastic().Create(ctx, "orders", "billing", GroupConfig{MaxMembers: 2, Filter: "orders.*", PartitioningWildcards: []int{1}})
	require.NoError(t, err)
	_, err = reg.Elastic().AddMembers(ctx, "orders", "billing", "m1")
	require.NoError(t, err)

	h1, h2 := &countingHandler{}, &countingHandler{}
	c1, err := reg.Elastic().Consume(ctx, "orders", "billing", "m1", h1)
	require.NoError(t, err)
	stopOnCleanup(t, c1)
	c2, err := reg.Elastic().Consume(ctx, "orders", "billing", "m2", h2)
	require.NoError(t, err)
	stopOnCleanup(t, c2)

	require.Equal(t, []int{0, 1}, c1.Partitions())
	require.Empty(t, c2.Partitions(), "not a member yet")

	p0, p1 := keysForPartition(0, 2, 10), keysForPartition(1, 2, 10)

	// phase 1: (10, 0)
	publishAll(t, js, "orders", append(p0[:5:5], p1[:5]...))
	require.Eventually(t, func() bool { return h1.count() == 10 }, waitTimeout, waitTick)
	require.Zero(t, h2.count())

	// phase 2: (15, 5)
	_, err = reg.Elastic().AddMembers(ctx, "orders", "billing", "m2")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(c1.Partitions()) == 1 && c1.Partitions()[0] == 0 &&
			len(c2.Partitions()) == 1 && c2.Partitions()[0] == 1
	}, waitTimeout, waitTick)

	publishAll(t, js, "orders", append(p0[5:], p1[5:]...))
	require.Eventually(t, func() bool {
		return h1.count() == 15 && h2.count() == 5
	}, waitTimeout, waitTick)
	require.Equal(t, []int{0}, h1.partitionsSince(10))
	require.Equal(t, []int{1}, h2.partitions())

	// phase 3: (15, 15)
	_, err = reg.Elastic().DeleteMembers(ctx, "orders", "billing", "m1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(c1.Partitions()) == 0 && len(c2.Partitions()) == 2
	}, waitTimeout, waitTick)

	publishAll(t, js, "orders", append(keysForPartition(0, 2, 15)[10:], keysForPartition(1, 2, 15)[10:]...))
	require.Eventually(t, func() bool { return h2.count() == 15 }, waitTimeout, waitTick)
	require.Equal(t, 15, h1.count())
	require.Equal(t, StateActive, c1.State(), "dropped member stays idle")

	active, err := reg.Elastic().ActiveMembers(ctx, "orders", "billing")
	require.NoError(t, err)
	require.Equal(t, []string{"m2"}, active)
}

func TestConsume_StopAndGroupDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}

	reg, js := newTestRegistry(t)
	ctx := t.Context()
	pcgtest.CreateStream(t, js, "orders", "orders.*")

	_, err := reg.Elastic().Create(ctx, "orders", "billing", GroupConfig{MaxMembers: 2, Filter: "orders.*", PartitioningWildcards: []int{1}, Members: []string{"m1", "m2"}})
	require.NoError(t, err)

	t.Run("stop keeps the consumer", func(t *testing.T) {
		cc, err := reg.Elastic().Consume(ctx, "orders", "billing", "m1", &countingHandler{})
		require.NoError(t, err)

		cc.Stop()
		cc.Stop()

		waitCtx, cancel := context.WithTimeout(ctx, waitTimeout)
		defer cancel()
		require.NoError(t, cc.Wait(waitCtx))
		require.Equal(t, StateStopped, cc.State())

		_, err = js.Consumer(ctx, "orders-billing", "m1")
		require.NoError(t, err)
	})

	t.Run("group delete stops members", func(t *testing.T) {
		cc, err := reg.Elastic().Consume(ctx, "orders", "billing", "m2", &countingHandler{})
		require.NoError(t, err)

		require.NoError(t, <-cc.WaitState(StateActive, time.Second))

		states, unsubscribe := cc.Subscribe()
		defer unsubscribe()
		require.Equal(t, StateActive, <-states)

		require.NoError(t, reg.Elastic().Delete(ctx, "orders", "billing"))

		waitCtx, cancel := context.WithTimeout(ctx, waitTimeout)
		defer cancel()
		require.NoError(t, cc.Wait(waitCtx))
		require.Equal(t, StateStopped, cc.State())

		_, err = js.Stream(ctx, "orders-billing")
		require.ErrorIs(t, err, jetstream.ErrStreamNotFound)
	})
}
