package testing

import (
	"fmt"
	"testing"
	"time"

	"github.com/arloliu/pcgroups/types"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StartEmbeddedNATS starts an embedded NATS server with JetStream enabled for testing.
//
// The server runs in-process and stores data in a temporary directory that is
// automatically cleaned up when the test completes. It listens on a random
// available port so parallel tests do not conflict.
//
// Parameters:
//   - t: Testing context for logging and cleanup
//
// Returns:
//   - *server.Server: The embedded NATS server instance
//   - *nats.Conn: Connected NATS client (closed automatically on test completion)
//
// Example:
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := pcgtest.StartEmbeddedNATS(t)
//	    // Server and connection are automatically cleaned up
//	}
func StartEmbeddedNATS(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("Failed to create embedded NATS server: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("Embedded NATS server not ready within timeout")
	}

	nc, err := nats.Connect(ns.ClientURL(),
		nats.Timeout(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(3),
	)
	if err != nil {
		ns.Shutdown()
		t.Fatalf("Failed to connect to embedded NATS server: %v", err)
	}

	// executed in reverse order of registration
	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns, nc
}

// NewJetStream returns a JetStream context for nc, failing the test on error.
func NewJetStream(t *testing.T, nc *nats.Conn) jetstream.JetStream {
	t.Helper()

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("Failed to get JetStream context: %v", err)
	}

	return js
}

// CreateStream creates a file-backed stream capturing subjects.
//
// Elastic consumer groups source their work stream from a stream like this one.
func CreateStream(t *testing.T, js jetstream.JetStream, name string, subjects ...string) jetstream.Stream {
	t.Helper()

	stream, err := js.CreateStream(t.Context(), jetstream.StreamConfig{
		Name:     name,
		Subjects: subjects,
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		t.Fatalf("Failed to create stream %s: %v", name, err)
	}

	return stream
}

// CreatePartitionedStream creates a stream that stores every subject matching
// filter under a "{partition}." prefix computed from the given wildcard indexes.
//
// Static consumer groups consume such a stream directly with "{p}.>" filters.
//
// Example:
//
//	// "orders.eu.42" is stored as e.g. "1.orders.eu.42"
//	pcgtest.CreatePartitionedStream(t, js, "orders", "orders.*.*", 2, 2)
func CreatePartitionedStream(
	t *testing.T,
	js jetstream.JetStream,
	name string,
	filter string,
	partitions int,
	wildcards ...int,
) jetstream.Stream {
	t.Helper()

	cfg := types.GroupConfig{MaxMembers: partitions, Filter: filter, PartitioningWildcards: wildcards}

	stream, err := js.CreateStream(t.Context(), jetstream.StreamConfig{
		Name:        name,
		Description: fmt.Sprintf("Partitioned test stream: %d partitions", partitions),
		Subjects:    []string{filter},
		Storage:     jetstream.FileStorage,
		SubjectTransform: &jetstream.SubjectTransformConfig{
			Source:      filter,
			Destination: cfg.PartitioningTransform(),
		},
	})
	if err != nil {
		t.Fatalf("Failed to create partitioned stream %s: %v", name, err)
	}

	return stream
}
