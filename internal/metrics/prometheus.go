package metrics

import (
	"sync"
	"time"

	"github.com/arloliu/pcgroups/types"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Metrics are registered lazily on first use, so constructing a collector that
// is never exercised leaves the registry untouched.
type PrometheusCollector struct {
	*NopMetrics

	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	stateTransitions  *prometheus.CounterVec
	rebalances        *prometheus.CounterVec
	rebalanceDuration *prometheus.HistogramVec
	joins             *prometheus.CounterVec
	joinConflicts     prometheus.Counter
	partitionsOwned   *prometheus.GaugeVec
	configOps         *prometheus.CounterVec
	messagesHandled   *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "pcgroups" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "pcgroups"
	}

	return &PrometheusCollector{NopMetrics: NewNop(), reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "member",
			Name:      "state_transitions_total",
			Help:      "Total member state transitions by source and target state.",
		}, []string{"from", "to"})

		p.rebalances = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "member",
			Name:      "rebalances_total",
			Help:      "Total rebalances by outcome (joined, idle, conflict, error).",
		}, []string{"group", "member", "result"})

		p.rebalanceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "member",
			Name:      "rebalance_duration_seconds",
			Help:      "Time spent tearing down and rejoining during a rebalance.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"group", "member"})

		p.joins = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "member",
			Name:      "joins_total",
			Help:      "Total consumer join attempts by outcome (success, idle, conflict, error).",
		}, []string{"result"})

		p.joinConflicts = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "member",
			Name:      "join_conflicts_total",
			Help:      "Consumer-not-unique races observed while joining.",
		})

		p.partitionsOwned = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "member",
			Name:      "partitions_owned",
			Help:      "Number of partitions currently owned by the member.",
		}, []string{"group", "member"})

		p.configOps = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "registry",
			Name:      "operations_total",
			Help:      "Total group config operations by name and outcome.",
		}, []string{"op", "result"})

		p.messagesHandled = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "delivery",
			Name:      "messages_total",
			Help:      "Total delivered messages by handler outcome (ack, nak, manual).",
		}, []string{"result"})

		p.reg.MustRegister(
			p.stateTransitions,
			p.rebalances,
			p.rebalanceDuration,
			p.joins,
			p.joinConflicts,
			p.partitionsOwned,
			p.configOps,
			p.messagesHandled,
		)
	})
}

// RecordStateTransition counts a member state transition.
func (p *PrometheusCollector) RecordStateTransition(from, to types.State) {
	p.ensureRegistered()
	p.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

// RecordRebalance counts a rebalance and observes its duration.
func (p *PrometheusCollector) RecordRebalance(group, member string, duration time.Duration, result string) {
	p.ensureRegistered()
	p.rebalances.WithLabelValues(group, member, result).Inc()
	p.rebalanceDuration.WithLabelValues(group, member).Observe(duration.Seconds())
}

// RecordJoin counts a join attempt outcome.
func (p *PrometheusCollector) RecordJoin(result string) {
	p.ensureRegistered()
	p.joins.WithLabelValues(result).Inc()
}

// RecordJoinConflict counts a consumer-not-unique race.
func (p *PrometheusCollector) RecordJoinConflict() {
	p.ensureRegistered()
	p.joinConflicts.Inc()
}

// RecordPartitionsOwned sets the owned partitions gauge.
func (p *PrometheusCollector) RecordPartitionsOwned(group, member string, count int) {
	p.ensureRegistered()
	p.partitionsOwned.WithLabelValues(group, member).Set(float64(count))
}

// RecordConfigOperation counts a registry operation outcome.
func (p *PrometheusCollector) RecordConfigOperation(op, result string) {
	p.ensureRegistered()
	p.configOps.WithLabelValues(op, result).Inc()
}

// RecordMessageHandled counts a handler outcome.
func (p *PrometheusCollector) RecordMessageHandled(result string) {
	p.ensureRegistered()
	p.messagesHandled.WithLabelValues(result).Inc()
}
