// Package metrics provides types.MetricsCollector implementations.
package metrics

import (
	"time"

	"github.com/arloliu/pcgroups/types"
)

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Example:
//
//	cc, err := pcgroups.Consume(ctx, js, "orders", "workers", "m1", handler,
//	    pcgroups.WithMetrics(metrics.NewNop()))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// MemberMetrics implementation

// RecordStateTransition discards the state transition metric.
func (n *NopMetrics) RecordStateTransition(_ /* from */, _ /* to */ types.State) {}

// RecordRebalance discards the rebalance metric.
func (n *NopMetrics) RecordRebalance(_ /* group */, _ /* member */ string, _ /* duration */ time.Duration, _ /* result */ string) {
}

// RecordJoin discards the join metric.
func (n *NopMetrics) RecordJoin(_ /* result */ string) {}

// RecordJoinConflict discards the join conflict metric.
func (n *NopMetrics) RecordJoinConflict() {}

// RecordPartitionsOwned discards the owned partitions gauge.
func (n *NopMetrics) RecordPartitionsOwned(_ /* group */, _ /* member */ string, _ /* count */ int) {}

// RegistryMetrics implementation

// RecordConfigOperation discards the registry operation metric.
func (n *NopMetrics) RecordConfigOperation(_ /* op */, _ /* result */ string) {}

// DeliveryMetrics implementation

// RecordMessageHandled discards the handler outcome metric.
func (n *NopMetrics) RecordMessageHandled(_ /* result */ string) {}
