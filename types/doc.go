// Package types provides core type definitions and interfaces for the pcgroups library.
//
// This package contains shared types that are used across multiple packages in the
// library. It deliberately has no NATS dependency so that the configuration model and
// the assignment algorithm can be used (and tested) without a server.
//
// Key types:
//   - GroupConfig: Versioned consumer group configuration (static or elastic)
//   - MemberMapping: Explicit member to partitions mapping
//   - State: Member coordination lifecycle state
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
//   - Hooks: Optional lifecycle callbacks
package types
