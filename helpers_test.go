package pcgroups

import (
	"context"
	"hash/fnv"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	pcgtest "github.com/arloliu/pcgroups/testing"
)

func newTestRegistry(t *testing.T) (*Registry, jetstream.JetStream) {
	t.Helper()

	_, nc := pcgtest.StartEmbeddedNATS(t)
	js := pcgtest.NewJetStream(t, nc)

	cfg := TestConfig()
	reg, err := NewRegistry(js, &cfg, WithLogger(pcgtest.NewTestLogger(t)))
	require.NoError(t, err)

	return reg, js
}

// countingHandler records every message it receives.
type countingHandler struct {
	mu       sync.Mutex
	subjects []string
	parts    []int
}

func (h *countingHandler) Handle(_ context.Context, msg *Msg) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subjects = append(h.subjects, msg.Subject())
	h.parts = append(h.parts, msg.Partition())

	return nil
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subjects)
}

func (h *countingHandler) partitions() []int {
	h.mu.Lock()
	defer h.mu.Unlock()

	parts := slices.Clone(h.parts)
	slices.Sort(parts)

	return slices.Compact(parts)
}

func (h *countingHandler) partitionsSince(n int) []int {
	h.mu.Lock()
	defer h.mu.Unlock()

	parts := slices.Clone(h.parts[n:])
	slices.Sort(parts)

	return slices.Compact(parts)
}

// keysForPartition returns count distinct subject tokens that the server's
// partition function maps to partition p out of n.
func keysForPartition(p, n, count int) []string {
	var keys []string
	for i := 0; len(keys) < count; i++ {
		key := "k" + strconv.Itoa(i)
		h := fnv.New32a()
		_, _ = h.Write([]byte(key))
		if int(h.Sum32()%uint32(n)) == p {
			keys = append(keys, key)
		}
	}

	return keys
}

// stopOnCleanup stops cc when the test ends and waits for its loop to exit,
// so no member goroutine logs through t after the test returned.
func stopOnCleanup(t *testing.T, cc *ConsumeContext) {
	t.Helper()

	t.Cleanup(func() {
		cc.Stop()
		<-cc.Done()
	})
}

func publishAll(t *testing.T, js jetstream.JetStream, prefix string, keys []string) {
	t.Helper()

	for _, k := range keys {
		_, err := js.Publish(t.Context(), prefix+"."+k, []byte(k))
		require.NoError(t, err)
	}
}
