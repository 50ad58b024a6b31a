package pcgroups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/pcgroups/internal/kvutil"
	"github.com/arloliu/pcgroups/internal/logging"
	"github.com/arloliu/pcgroups/internal/metrics"
	"github.com/arloliu/pcgroups/internal/natsutil"
	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go/jetstream"
)

// transientRetries bounds the retries of a registry read hitting a connectivity error.
const transientRetries = 3

// Registry manages consumer group configs and hands out member runtimes.
//
// A Registry is safe for concurrent use. Administrative operations are plain
// synchronous calls; membership updates use compare-and-swap and surface
// ErrConflict instead of retrying.
type Registry struct {
	js      jetstream.JetStream
	cfg     Config
	opts    registryOptions
	logger  Logger
	metrics MetricsCollector

	static  *Groups
	elastic *Groups
}

// NewRegistry creates a registry over the given JetStream context.
//
// The config is copied; defaults are applied to zero fields before validation.
// KV buckets are created lazily by the first Create call of each kind.
//
// Parameters:
//   - js: JetStream context
//   - cfg: Runtime configuration
//   - opts: Optional logger, metrics and member hooks
//
// Returns:
//   - *Registry: Ready registry
//   - error: ErrJetStreamRequired, ErrConfigRequired or a validation error
//
// Example:
//
//	cfg := pcgroups.DefaultConfig()
//	reg, err := pcgroups.NewRegistry(js, &cfg, pcgroups.WithLogger(logger))
func NewRegistry(js jetstream.JetStream, cfg *Config, opts ...Option) (*Registry, error) {
	if js == nil {
		return nil, ErrJetStreamRequired
	}
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	c := *cfg
	SetDefaults(&c)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	o := registryOptions{}.apply(opts)
	logger := logging.OrNop(o.logger)
	mc := o.metrics
	if mc == nil {
		mc = metrics.NewNop()
	}

	c.ValidateWithWarnings(logger)

	r := &Registry{
		js:      js,
		cfg:     c,
		opts:    o,
		logger:  logger,
		metrics: mc,
	}
	r.static = newGroups(r, KindStatic)
	r.elastic = newGroups(r, KindElastic)

	return r, nil
}

// Static returns the operations on static consumer groups.
func (r *Registry) Static() *Groups {
	return r.static
}

// Elastic returns the operations on elastic consumer groups.
func (r *Registry) Elastic() *Groups {
	return r.elastic
}

// Groups returns the operations on groups of the given kind.
func (r *Registry) Groups(kind Kind) *Groups {
	if kind == KindStatic {
		return r.static
	}

	return r.elastic
}

// Config returns a copy of the effective runtime configuration.
func (r *Registry) Config() Config {
	return r.cfg
}

func (r *Registry) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.cfg.OperationTimeout)
}

func (r *Registry) recordOp(op string, err error) {
	switch {
	case err == nil:
		r.metrics.RecordConfigOperation(op, "success")
	case errors.Is(err, ErrConflict):
		r.metrics.RecordConfigOperation(op, "conflict")
	default:
		r.metrics.RecordConfigOperation(op, "error")
	}
}

// streamInfo returns the info of a stream, mapping not-found to ErrStreamNotFound.
func (r *Registry) streamInfo(ctx context.Context, name string) (*jetstream.StreamInfo, error) {
	return retryTransient(ctx, func() (*jetstream.StreamInfo, error) {
		s, err := r.js.Stream(ctx, name)
		if err != nil {
			if natsutil.IsStreamNotFound(err) {
				return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrStreamNotFound, name))
			}

			return nil, err
		}

		return s.CachedInfo(), nil
	})
}

// consumerNames lists the consumer names of a stream.
func (r *Registry) consumerNames(ctx context.Context, stream string) ([]string, error) {
	s, err := r.js.Stream(ctx, stream)
	if err != nil {
		if natsutil.IsStreamNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrStreamNotFound, stream)
		}

		return nil, err
	}

	lister := s.ConsumerNames(ctx)
	var names []string
	for name := range lister.Name() {
		names = append(names, name)
	}
	if err := lister.Err(); err != nil {
		return nil, fmt.Errorf("failed to list consumers of %s: %w", stream, err)
	}

	return names, nil
}

// openBucket returns the config bucket of kind, creating it when create is set.
func (r *Registry) openBucket(ctx context.Context, kind Kind, create bool) (jetstream.KeyValue, error) {
	bucket := r.cfg.bucketFor(kind)
	if !create {
		return kvutil.OpenBucket(ctx, r.js, bucket)
	}

	return kvutil.EnsureKVBucketWithRetry(ctx, r.js, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: fmt.Sprintf("%s consumer group configs", kind),
		History:     1,
		Replicas:    r.cfg.KVBuckets.Replicas,
	}, r.cfg.KVBuckets.CreateRetries)
}

// retryTransient retries fn while it fails with a connectivity error.
//
// Errors wrapped with backoff.Permanent, and any non-connectivity error, are
// returned immediately.
func retryTransient[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond

	b := backoff.WithContext(backoff.WithMaxRetries(policy, transientRetries), ctx)

	return backoff.RetryWithData(func() (T, error) {
		v, err := fn()
		if err != nil && !natsutil.IsConnectivityError(err) {
			var perm *backoff.PermanentError
			if errors.As(err, &perm) {
				return v, err
			}

			return v, backoff.Permanent(err)
		}

		return v, err
	}, b)
}
