package member

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arloliu/pcgroups/internal/natsutil"
	"github.com/arloliu/pcgroups/subscription"
	"github.com/arloliu/pcgroups/types"
	"github.com/nats-io/nats.go/jetstream"
)

// eventBuffer bounds how far the watch forwarder may run ahead of the event loop.
const eventBuffer = 16

// JetStreamBackend drives a member's consumer on a JetStream stream and reads
// the group config from a KV bucket.
type JetStreamBackend struct {
	js            jetstream.JetStream
	kv            jetstream.KeyValue
	kind          types.Kind
	key           string
	stream        string
	consumer      string
	priorityGroup string
	handler       subscription.MessageHandler
	opts          subscription.ConsumeOptions
	metrics       types.DeliveryMetrics
}

// JetStreamBackendConfig holds the parameters of NewJetStreamBackend.
type JetStreamBackendConfig struct {
	JS jetstream.JetStream
	KV jetstream.KeyValue

	Kind   types.Kind
	Stream string
	Group  string
	Member string

	PriorityGroup string
	Handler       subscription.MessageHandler
	Options       subscription.ConsumeOptions
	Metrics       types.DeliveryMetrics
}

// NewJetStreamBackend creates the backend of one member.
//
// Static members consume the source stream with consumer "{group}-{member}".
// Elastic members consume the work stream "{stream}-{group}" with consumer "{member}".
func NewJetStreamBackend(cfg JetStreamBackendConfig) *JetStreamBackend {
	stream := cfg.Stream
	if cfg.Kind == types.KindElastic {
		stream = types.WorkStreamName(cfg.Stream, cfg.Group)
	}
	cfg.Options.ApplyDefaults()

	return &JetStreamBackend{
		js:            cfg.JS,
		kv:            cfg.KV,
		kind:          cfg.Kind,
		key:           types.GroupKey(cfg.Stream, cfg.Group),
		stream:        stream,
		consumer:      types.ConsumerName(cfg.Kind, cfg.Group, cfg.Member),
		priorityGroup: cfg.PriorityGroup,
		handler:       cfg.Handler,
		opts:          cfg.Options,
		metrics:       cfg.Metrics,
	}
}

// ConsumerStream returns the stream the member's consumer lives on.
func (b *JetStreamBackend) ConsumerStream() string { return b.stream }

// ConsumerName returns the durable name of the member's consumer.
func (b *JetStreamBackend) ConsumerName() string { return b.consumer }

// LoadConfig implements Backend.
func (b *JetStreamBackend) LoadConfig(ctx context.Context) (*types.GroupConfig, error) {
	entry, err := b.kv.Get(ctx, b.key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrBucketNotFound) {
			return nil, fmt.Errorf("%w: %s", types.ErrGroupNotFound, b.key)
		}

		return nil, fmt.Errorf("failed to read group config %s: %w", b.key, err)
	}

	cfg, err := types.UnmarshalGroupConfig(b.kind, entry.Value(), entry.Revision())
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Watch implements Backend.
//
// The watch outlives ctx; it ends with Watcher.Stop.
func (b *JetStreamBackend) Watch(ctx context.Context) (Watcher, error) {
	kw, err := b.kv.Watch(context.WithoutCancel(ctx), b.key, jetstream.UpdatesOnly())
	if err != nil {
		return nil, err
	}

	w := &kvWatcher{
		kw:     kw,
		kind:   b.kind,
		events: make(chan Event, eventBuffer),
		stopCh: make(chan struct{}),
	}
	go w.forward()

	return w, nil
}

// LookupConsumer implements Backend.
func (b *JetStreamBackend) LookupConsumer(ctx context.Context) (*ConsumerState, error) {
	cons, err := b.js.Consumer(ctx, b.stream, b.consumer)
	if err != nil {
		if natsutil.IsConsumerNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	info := cons.CachedInfo()
	state := &ConsumerState{Filters: info.Config.FilterSubjects}
	if len(state.Filters) == 0 && info.Config.FilterSubject != "" {
		state.Filters = []string{info.Config.FilterSubject}
	}
	for _, pg := range info.PriorityGroups {
		if pg.Group == b.priorityGroup {
			state.PinnedID = pg.PinnedClientID
		}
	}

	return state, nil
}

// CreateConsumer implements Backend.
func (b *JetStreamBackend) CreateConsumer(ctx context.Context, filters []string) (Delivery, error) {
	cons, err := b.js.CreateOrUpdateConsumer(ctx, b.stream, b.opts.ConsumerConfig(b.consumer, filters, b.priorityGroup))
	if err != nil {
		return nil, err
	}

	return subscription.StartPuller(cons, b.handler, b.opts, b.priorityGroup, b.metrics), nil
}

// DeleteConsumer implements Backend.
func (b *JetStreamBackend) DeleteConsumer(ctx context.Context) error {
	err := b.js.DeleteConsumer(ctx, b.stream, b.consumer)
	if err != nil && !natsutil.IsConsumerNotFound(err) {
		return err
	}

	return nil
}

// kvWatcher forwards KV watch updates into an Event channel. It performs no
// member state changes.
type kvWatcher struct {
	kw       jetstream.KeyWatcher
	kind     types.Kind
	events   chan Event
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (w *kvWatcher) Events() <-chan Event { return w.events }

func (w *kvWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.kw.Stop()
	})

	return err
}

func (w *kvWatcher) forward() {
	defer close(w.events)

	updates := w.kw.Updates()
	for {
		select {
		case <-w.stopCh:
			return
		case entry, ok := <-updates:
			if !ok {
				return
			}
			// nil marks the end of initial values
			if entry == nil {
				continue
			}

			select {
			case w.events <- toEvent(w.kind, entry):
			case <-w.stopCh:
				return
			}
		}
	}
}

func toEvent(kind types.Kind, entry jetstream.KeyValueEntry) Event {
	ev := Event{Revision: entry.Revision()}

	switch entry.Operation() {
	case jetstream.KeyValueDelete:
		ev.Op = OpDelete
	case jetstream.KeyValuePurge:
		ev.Op = OpPurge
	default:
		ev.Op = OpPut
		cfg, err := types.UnmarshalGroupConfig(kind, entry.Value(), entry.Revision())
		if err != nil {
			ev.Err = err
		} else {
			ev.Config = &cfg
		}
	}

	return ev
}
