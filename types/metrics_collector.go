package types

import "time"

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces.
type MetricsCollector interface {
	MemberMetrics
	RegistryMetrics
	DeliveryMetrics
}

// MemberMetrics defines metrics for the member coordination state machine.
type MemberMetrics interface {
	// RecordStateTransition records a member state transition.
	RecordStateTransition(from, to State)

	// RecordRebalance records a completed rebalance.
	//
	// Parameters:
	//   - group: Consumer group name
	//   - member: Member name
	//   - duration: Time spent tearing down and rejoining
	//   - result: "joined", "idle", "conflict" or "error"
	RecordRebalance(group, member string, duration time.Duration, result string)

	// RecordJoin records a consumer join attempt outcome ("success", "conflict", "error", "idle").
	RecordJoin(result string)

	// RecordJoinConflict records a consumer-not-unique race observed while joining.
	RecordJoinConflict()

	// RecordPartitionsOwned sets the number of partitions currently owned (gauge).
	RecordPartitionsOwned(group, member string, count int)
}

// RegistryMetrics defines metrics for administrative config operations.
type RegistryMetrics interface {
	// RecordConfigOperation records a registry operation outcome.
	//
	// Parameters:
	//   - op: Operation name ("create", "delete", "add_members", ...)
	//   - result: "success", "conflict" or "error"
	RecordConfigOperation(op, result string)
}

// DeliveryMetrics defines metrics for the message delivery path.
type DeliveryMetrics interface {
	// RecordMessageHandled records a handler outcome ("ack", "nak", "manual").
	RecordMessageHandled(result string)
}
