package pcgroups

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewPrometheusMetrics(reg, "orders")

	collector.RecordConfigOperation("create", "success")
	collector.RecordPartitionsOwned("billing", "m1", 2)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	require.Contains(t, names, "orders_registry_operations_total")
	require.Contains(t, names, "orders_member_partitions_owned")
}

func TestNewSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	logger.Info("member joined", "member", "m1")
	require.Contains(t, buf.String(), "member joined")
	require.Contains(t, buf.String(), "member=m1")

	require.NotNil(t, NewSlogLogger(nil))
}
