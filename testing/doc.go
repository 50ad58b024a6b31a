// Package testing provides test utilities for the pcgroups library.
//
// This package offers helpers for setting up test environments, particularly
// embedded NATS servers for integration testing. It follows Go's convention
// of providing testing utilities in a dedicated package (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server with JetStream
//   - NewJetStream: JetStream context bound to the test connection
//   - CreateStream: Plain source stream for elastic groups
//   - CreatePartitionedStream: Source stream whose subjects carry a partition prefix, for static groups
//   - NewTestLogger: Logger writing to t.Logf
//
// Example usage:
//
//	import (
//	    "testing"
//	    pcgtest "github.com/arloliu/pcgroups/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := pcgtest.StartEmbeddedNATS(t)
//	    js := pcgtest.NewJetStream(t, nc)
//	    pcgtest.CreateStream(t, js, "orders", "orders.>")
//	}
package testing
