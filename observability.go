package pcgroups

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/pcgroups/internal/logging"
	"github.com/arloliu/pcgroups/internal/metrics"
)

// NewPrometheusMetrics returns a MetricsCollector exporting member and registry
// metrics to Prometheus.
//
// Metrics are registered on first use.
//
// Parameters:
//   - reg: Registerer, prometheus.DefaultRegisterer when nil
//   - namespace: Metric namespace, "pcgroups" when empty
//
// Returns:
//   - MetricsCollector: Collector to pass to WithMetrics
//
// Example:
//
//	collector := pcgroups.NewPrometheusMetrics(prometheus.DefaultRegisterer, "")
//	reg, err := pcgroups.NewRegistry(js, &cfg, pcgroups.WithMetrics(collector))
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) MetricsCollector {
	return metrics.NewPrometheus(reg, namespace)
}

// NewSlogLogger adapts a slog.Logger to Logger. A nil logger wraps slog.Default().
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		return logging.NewSlogDefault()
	}

	return logging.NewSlog(logger)
}
