// Package member implements the coordination runtime of one consumer group member.
//
// A Member owns at most one pinned priority-group consumer bound to the filter
// subjects of the partitions it currently owns. It reacts to changes of the
// shared group config and keeps its consumer aligned with the membership.
//
// # Concurrency
//
// Each Member runs exactly one event loop goroutine, which is the only writer
// of the member's runtime state. Config watch notifications are forwarded into
// the loop's channel by a separate goroutine that performs no state changes.
// The loop waits with a timeout: when no event arrives within the
// self-correction interval, the member re-checks whether it should be consuming
// and repairs itself.
//
// # States
//
//	Joining → Active ⇄ Rebalancing
//	Active  → Joining (self-correction)
//	any     → Stopped | Failed
//
// Stopped and Failed are terminal; Done is closed once all resources are released.
package member
