package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/pcgroups/internal/metrics"
	"github.com/arloliu/pcgroups/internal/natsutil"
	"github.com/arloliu/pcgroups/types"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrConsumerGone is reported by Puller.Err when the consumer was deleted underneath the loop.
var ErrConsumerGone = errors.New("consumer no longer exists")

// Puller runs the single-consumer pull loop of a member instance.
//
// Messages are fetched with the member's priority group so that only the pinned
// instance of a member receives deliveries. The loop survives transient iterator
// failures by recreating the iterator with exponential backoff, and terminates on
// Stop or when the consumer is deleted.
type Puller struct {
	cons          jetstream.Consumer
	handler       MessageHandler
	opts          ConsumeOptions
	priorityGroup string
	logger        types.Logger
	metrics       types.DeliveryMetrics

	ctx    context.Context //nolint:containedctx // handler context, cancelled by Stop
	cancel context.CancelFunc

	mu       sync.Mutex
	iter     jetstream.MessagesContext
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	err      error

	pinID atomic.Value // string
}

// StartPuller starts pulling from cons in a background goroutine.
//
// Parameters:
//   - cons: Consumer to pull from
//   - handler: Message handler, called sequentially
//   - opts: Consume options with defaults applied
//   - priorityGroup: Priority group the consumer was created with
//   - mc: Delivery metrics (nil for no-op)
//
// Returns:
//   - *Puller: Running pull loop; call Stop to terminate it
func StartPuller(
	cons jetstream.Consumer,
	handler MessageHandler,
	opts ConsumeOptions,
	priorityGroup string,
	mc types.DeliveryMetrics,
) *Puller {
	opts.ApplyDefaults()
	if mc == nil {
		mc = metrics.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Puller{
		cons:          cons,
		handler:       handler,
		opts:          opts,
		priorityGroup: priorityGroup,
		logger:        opts.Logger,
		metrics:       mc,
		ctx:           ctx,
		cancel:        cancel,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
	p.pinID.Store("")

	go p.run()

	return p
}

// Stop terminates the pull loop and waits until the in-flight handler returns.
//
// Safe to call multiple times and from any goroutine.
func (p *Puller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.cancel()

		p.mu.Lock()
		if p.iter != nil {
			p.iter.Stop()
		}
		p.mu.Unlock()
	})

	<-p.done
}

// Done is closed once the loop has terminated.
func (p *Puller) Done() <-chan struct{} {
	return p.done
}

// Alive reports whether the loop is still running.
func (p *Puller) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Err returns why the loop terminated on its own; nil while running or after Stop.
func (p *Puller) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// PinID returns the pin identifier carried by the last delivered message, empty
// until this instance has received a message as the pinned holder.
func (p *Puller) PinID() string {
	s, _ := p.pinID.Load().(string)
	return s
}

func (p *Puller) stopped() bool {
	select {
	case <-p.stopCh:
		return true
	default:
		return false
	}
}

func (p *Puller) run() {
	defer close(p.done)
	defer p.cancel()

	retry := newRetryBackOff(p.opts.RetryBackoff)
	for !p.stopped() {
		iter, err := p.cons.Messages(
			jetstream.PullMaxMessages(p.opts.BatchSize),
			jetstream.PullExpiry(p.opts.FetchTimeout),
			jetstream.PullHeartbeat(p.opts.FetchTimeout/2),
			jetstream.PullPriorityGroup(p.priorityGroup),
		)
		if err != nil {
			if natsutil.IsConsumerNotFound(err) {
				p.err = fmt.Errorf("%w: %w", ErrConsumerGone, err)
				return
			}
			p.logger.Warn("failed to create message iterator", "error", err)
		} else {
			if !p.setIter(iter) {
				iter.Stop()
				return
			}

			err = p.consume(iter)
			p.setIter(nil)
			iter.Stop()

			switch {
			case err == nil:
				return
			case natsutil.IsConsumerNotFound(err):
				p.err = fmt.Errorf("%w: %w", ErrConsumerGone, err)
				return
			case errors.Is(err, jetstream.ErrNoHeartbeat):
				p.logger.Warn("pull loop: no heartbeat, recreating iterator")
				retry.Reset()

				continue
			default:
				p.logger.Warn("pull loop: iterator error, retrying", "error", err)
			}
		}

		select {
		case <-p.stopCh:
			return
		case <-time.After(retry.NextBackOff()):
		}
	}
}

// setIter publishes the current iterator so Stop can interrupt it. Returns false
// when the loop was stopped in the meantime.
func (p *Puller) setIter(iter jetstream.MessagesContext) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if iter != nil && p.stopped() {
		return false
	}
	p.iter = iter

	return true
}

// consume dispatches messages until the iterator fails. A nil return means the
// iterator was closed on purpose.
func (p *Puller) consume(iter jetstream.MessagesContext) error {
	for {
		msg, err := iter.Next()
		if err != nil {
			if errors.Is(err, jetstream.ErrMsgIteratorClosed) || p.stopped() {
				return nil
			}

			return err
		}

		p.dispatch(msg)
	}
}

func (p *Puller) dispatch(msg jetstream.Msg) {
	if pin := msg.Headers().Get(PinIDHeader); pin != "" {
		p.pinID.Store(pin)
	}

	err := p.handler.Handle(p.ctx, NewMsg(msg))

	switch {
	case p.opts.ManualAck:
		p.metrics.RecordMessageHandled("manual")
	case err != nil:
		p.logger.Debug("handler failed, message will be redelivered", "subject", msg.Subject(), "error", err)
		if nakErr := msg.Nak(); nakErr != nil {
			p.logger.Warn("failed to nak message", "subject", msg.Subject(), "error", nakErr)
		}
		p.metrics.RecordMessageHandled("nak")
	default:
		if ackErr := msg.Ack(); ackErr != nil {
			p.logger.Warn("failed to ack message, it will be redelivered after ack wait", "subject", msg.Subject(), "error", ackErr)
		}
		p.metrics.RecordMessageHandled("ack")
	}
}
