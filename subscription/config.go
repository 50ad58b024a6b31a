package subscription

import (
	"fmt"
	"time"

	"github.com/arloliu/pcgroups/internal/logging"
	"github.com/arloliu/pcgroups/types"
	"github.com/nats-io/nats.go/jetstream"
)

// ConsumeOptions configures the consumer a member creates and the pull loop reading from it.
//
// Zero values are replaced by defaults via ApplyDefaults().
type ConsumeOptions struct {
	// AckPolicy must be jetstream.AckExplicitPolicy (the zero value); partitions are
	// handed between members on rebalance and only explicit acks survive the handover.
	AckPolicy jetstream.AckPolicy `yaml:"-"`

	AckWait           time.Duration `yaml:"ackWait"`
	MaxDeliver        int           `yaml:"maxDeliver"`
	InactiveThreshold time.Duration `yaml:"inactiveThreshold"`
	PinnedTTL         time.Duration `yaml:"pinnedTTL"`

	BatchSize    int           `yaml:"batchSize"`
	MaxWaiting   int           `yaml:"maxWaiting"`
	FetchTimeout time.Duration `yaml:"fetchTimeout"`

	// RetryBackoff is the base delay before recreating a failed message iterator.
	RetryBackoff time.Duration `yaml:"retryBackoff"`

	// ManualAck disables automatic ack/nak after the handler returns.
	ManualAck bool `yaml:"manualAck"`

	Logger types.Logger `yaml:"-"`
}

// ApplyDefaults fills unset optional fields with project defaults.
func (o *ConsumeOptions) ApplyDefaults() {
	if o.AckWait == 0 {
		o.AckWait = DefaultAckWait
	}
	if o.MaxDeliver == 0 {
		o.MaxDeliver = DefaultMaxDeliver
	}
	if o.InactiveThreshold == 0 {
		o.InactiveThreshold = DefaultInactiveThreshold
	}
	if o.PinnedTTL == 0 {
		o.PinnedTTL = DefaultPinnedTTL
	}
	if o.BatchSize == 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxWaiting == 0 {
		o.MaxWaiting = DefaultMaxWaiting
	}
	if o.FetchTimeout == 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.RetryBackoff == 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	o.Logger = logging.OrNop(o.Logger)
}

// Validate checks the options after defaults have been applied.
func (o *ConsumeOptions) Validate() error {
	if o.AckPolicy != jetstream.AckExplicitPolicy {
		return fmt.Errorf("%w: got %s", types.ErrInvalidAckPolicy, o.AckPolicy)
	}
	if o.AckWait < 0 || o.InactiveThreshold < 0 || o.PinnedTTL < 0 || o.FetchTimeout < 0 {
		return fmt.Errorf("%w: durations must not be negative", types.ErrConsumerGroup)
	}
	if o.BatchSize < 0 || o.MaxWaiting < 0 {
		return fmt.Errorf("%w: batch size and max waiting must not be negative", types.ErrConsumerGroup)
	}

	return nil
}

// ConsumerConfig builds the durable pinned priority-group consumer of a member.
//
// Parameters:
//   - name: Durable consumer name
//   - filters: Partition filter subjects ("{p}.>")
//   - priorityGroup: Priority group every instance of the member pulls with
//
// Returns:
//   - jetstream.ConsumerConfig: Config for CreateOrUpdateConsumer
func (o *ConsumeOptions) ConsumerConfig(name string, filters []string, priorityGroup string) jetstream.ConsumerConfig {
	return jetstream.ConsumerConfig{
		Name:              name,
		Durable:           name,
		FilterSubjects:    filters,
		AckPolicy:         jetstream.AckExplicitPolicy,
		AckWait:           o.AckWait,
		MaxDeliver:        o.MaxDeliver,
		InactiveThreshold: o.InactiveThreshold,
		MaxWaiting:        o.MaxWaiting,
		PriorityPolicy:    jetstream.PriorityPolicyPinned,
		PriorityGroups:    []string{priorityGroup},
		PinnedTTL:         o.PinnedTTL,
	}
}
