package pcgroups

import "github.com/arloliu/pcgroups/subscription"

// Option configures a Registry or a single Consume call with optional dependencies.
type Option func(*registryOptions)

// registryOptions holds optional Registry and member configuration.
type registryOptions struct {
	hooks   *Hooks
	metrics MetricsCollector
	logger  Logger
	consume *subscription.ConsumeOptions
}

// WithHooks sets member lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewRegistry or Consume
//
// Example:
//
//	hooks := &pcgroups.Hooks{
//	    OnPartitionsChanged: func(ctx context.Context, oldParts, newParts []int) error {
//	        log.Printf("partitions %v -> %v", oldParts, newParts)
//	        return nil
//	    },
//	}
//	cc, err := reg.Elastic().Consume(ctx, "orders", "billing", "m1", handler, pcgroups.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *registryOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewRegistry or Consume
//
// Example:
//
//	collector := pcgroups.NewPrometheusMetrics(prometheus.DefaultRegisterer, "")
//	reg, err := pcgroups.NewRegistry(js, &cfg, pcgroups.WithMetrics(collector))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *registryOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewRegistry or Consume
//
// Example:
//
//	logger := zap.NewExample().Sugar()
//	reg, err := pcgroups.NewRegistry(js, &cfg, pcgroups.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *registryOptions) {
		o.logger = logger
	}
}

// WithConsumeOptions overrides the consumer options of Config.Consume for one
// Consume call. Zero fields are defaulted.
//
// Parameters:
//   - opts: Consumer and pull loop options
//
// Returns:
//   - Option: Functional option for Consume
//
// Example:
//
//	cc, err := groups.Consume(ctx, "orders", "billing", "m1", handler,
//	    pcgroups.WithConsumeOptions(pcgroups.ConsumeOptions{AckWait: time.Minute, ManualAck: true}))
func WithConsumeOptions(opts ConsumeOptions) Option {
	return func(o *registryOptions) {
		o.consume = &opts
	}
}

func (o registryOptions) apply(opts []Option) registryOptions {
	for _, opt := range opts {
		opt(&o)
	}

	return o
}
