package pcgroups

import (
	"fmt"
	"os"
	"time"

	"github.com/arloliu/pcgroups/subscription"
	"github.com/arloliu/pcgroups/types"
	"gopkg.in/yaml.v3"
)

// KVBucketConfig configures the NATS JetStream KV buckets holding group configs.
type KVBucketConfig struct {
	// StaticBucket is the bucket name for static group configs.
	StaticBucket string `yaml:"staticBucket"`

	// ElasticBucket is the bucket name for elastic group configs.
	ElasticBucket string `yaml:"elasticBucket"`

	// Replicas is the replication factor used when a bucket has to be created.
	Replicas int `yaml:"replicas"`

	// CreateRetries bounds the attempts of the concurrent bucket creation race.
	CreateRetries int `yaml:"createRetries"`
}

// SelfCorrectionConfig controls the member self-correction timer.
//
// The timer period is AckWait × IdleFactor + Margin: a member that holds no
// consumer while it should re-checks at least once per ack-wait cycle.
type SelfCorrectionConfig struct {
	// IdleFactor multiplies the consumer ack wait.
	IdleFactor float64 `yaml:"idleFactor"`

	// Margin is added on top of the scaled ack wait.
	Margin time.Duration `yaml:"margin"`
}

// RebalanceConfig controls the member rebalance behavior.
type RebalanceConfig struct {
	// BackoffMin and BackoffMax bound the randomized wait of a non-pinned
	// instance before rejoining, letting the pinned instance delete the
	// consumer first. Best-effort: the window does not guarantee ordering.
	BackoffMin time.Duration `yaml:"backoffMin"`
	BackoffMax time.Duration `yaml:"backoffMax"`

	// MaxJoinConflicts is the number of consecutive consumer-not-unique join
	// failures tolerated before a member fails. Negative means unbounded.
	// Zero selects DefaultMaxJoinConflicts, so the strictest budget is 1: the
	// member fails on its second consecutive conflict. A conflict during
	// Consume setup therefore never fails the call.
	MaxJoinConflicts int `yaml:"maxJoinConflicts"`
}

// Config is the runtime configuration shared by the Registry and its members.
//
// All duration fields accept standard Go duration strings like "30s", "5m", "1h".
type Config struct {
	// PriorityGroup is the pinned priority group every member consumer is created with.
	PriorityGroup string `yaml:"priorityGroup"`

	// OperationTimeout is the timeout of each KV and stream operation.
	// Recommended: 10 seconds.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// WorkStreamReplicas overrides the replica count of elastic work streams.
	// Zero inherits the replica count of the source stream.
	WorkStreamReplicas int `yaml:"workStreamReplicas"`

	// SelfCorrection controls the member safety-net timer.
	SelfCorrection SelfCorrectionConfig `yaml:"selfCorrection"`

	// Rebalance controls rebalance backoff and conflict escalation.
	Rebalance RebalanceConfig `yaml:"rebalance"`

	// KVBuckets controls the KV buckets holding group configs.
	KVBuckets KVBucketConfig `yaml:"kvBuckets"`

	// Consume holds the default consumer options of members.
	Consume subscription.ConsumeOptions `yaml:"consume"`
}

// Default values of Config.
const (
	DefaultPriorityGroup        = "PCG"
	DefaultOperationTimeout     = 10 * time.Second
	DefaultIdleFactor           = 1.1
	DefaultSelfCorrectionMargin = time.Second
	DefaultRebalanceBackoffMin  = 400 * time.Millisecond
	DefaultRebalanceBackoffMax  = 500 * time.Millisecond
	DefaultMaxJoinConflicts     = 30
	DefaultBucketCreateRetries  = 3
)

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	cfg := Config{
		PriorityGroup:    DefaultPriorityGroup,
		OperationTimeout: DefaultOperationTimeout,
		SelfCorrection: SelfCorrectionConfig{
			IdleFactor: DefaultIdleFactor,
			Margin:     DefaultSelfCorrectionMargin,
		},
		Rebalance: RebalanceConfig{
			BackoffMin:       DefaultRebalanceBackoffMin,
			BackoffMax:       DefaultRebalanceBackoffMax,
			MaxJoinConflicts: DefaultMaxJoinConflicts,
		},
		KVBuckets: KVBucketConfig{
			StaticBucket:  types.DefaultStaticBucket,
			ElasticBucket: types.DefaultElasticBucket,
			Replicas:      1,
			CreateRetries: DefaultBucketCreateRetries,
		},
	}
	cfg.Consume.ApplyDefaults()

	return cfg
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.PriorityGroup == "" {
		cfg.PriorityGroup = defaults.PriorityGroup
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.SelfCorrection.IdleFactor == 0 {
		cfg.SelfCorrection.IdleFactor = defaults.SelfCorrection.IdleFactor
	}
	if cfg.SelfCorrection.Margin == 0 {
		cfg.SelfCorrection.Margin = defaults.SelfCorrection.Margin
	}
	if cfg.Rebalance.BackoffMin == 0 {
		cfg.Rebalance.BackoffMin = defaults.Rebalance.BackoffMin
	}
	if cfg.Rebalance.BackoffMax == 0 {
		cfg.Rebalance.BackoffMax = defaults.Rebalance.BackoffMax
	}
	if cfg.Rebalance.MaxJoinConflicts == 0 {
		cfg.Rebalance.MaxJoinConflicts = defaults.Rebalance.MaxJoinConflicts
	}
	if cfg.KVBuckets.StaticBucket == "" {
		cfg.KVBuckets.StaticBucket = defaults.KVBuckets.StaticBucket
	}
	if cfg.KVBuckets.ElasticBucket == "" {
		cfg.KVBuckets.ElasticBucket = defaults.KVBuckets.ElasticBucket
	}
	if cfg.KVBuckets.Replicas == 0 {
		cfg.KVBuckets.Replicas = defaults.KVBuckets.Replicas
	}
	if cfg.KVBuckets.CreateRetries == 0 {
		cfg.KVBuckets.CreateRetries = defaults.KVBuckets.CreateRetries
	}
	cfg.Consume.ApplyDefaults()
}

// Validate checks configuration constraints and returns error for invalid values.
//
// Hard Validation Rules:
//   - OperationTimeout > 0
//   - IdleFactor >= 1 (the timer must not fire before a message can be redelivered)
//   - 0 < BackoffMin <= BackoffMax
//   - bucket names and priority group are non-empty and distinct buckets
//   - consumer options are valid (explicit ack only)
//
// Returns:
//   - error: Validation error wrapping ErrInvalidConfig, nil if valid
func (cfg *Config) Validate() error {
	if cfg.OperationTimeout <= 0 {
		return fmt.Errorf("%w: OperationTimeout must be > 0, got %v", ErrInvalidConfig, cfg.OperationTimeout)
	}

	if cfg.SelfCorrection.IdleFactor < 1 {
		return fmt.Errorf("%w: SelfCorrection.IdleFactor must be >= 1, got %v", ErrInvalidConfig, cfg.SelfCorrection.IdleFactor)
	}
	if cfg.SelfCorrection.Margin < 0 {
		return fmt.Errorf("%w: SelfCorrection.Margin must not be negative", ErrInvalidConfig)
	}

	if cfg.Rebalance.BackoffMin <= 0 || cfg.Rebalance.BackoffMax < cfg.Rebalance.BackoffMin {
		return fmt.Errorf("%w: rebalance backoff window [%v, %v] is invalid",
			ErrInvalidConfig, cfg.Rebalance.BackoffMin, cfg.Rebalance.BackoffMax)
	}

	if cfg.PriorityGroup == "" {
		return fmt.Errorf("%w: PriorityGroup is required", ErrInvalidConfig)
	}

	if cfg.KVBuckets.StaticBucket == "" || cfg.KVBuckets.ElasticBucket == "" {
		return fmt.Errorf("%w: KV bucket names are required", ErrInvalidConfig)
	}
	if cfg.KVBuckets.StaticBucket == cfg.KVBuckets.ElasticBucket {
		return fmt.Errorf("%w: static and elastic buckets must differ, both are %q",
			ErrInvalidConfig, cfg.KVBuckets.StaticBucket)
	}

	if cfg.WorkStreamReplicas < 0 {
		return fmt.Errorf("%w: WorkStreamReplicas must not be negative", ErrInvalidConfig)
	}

	if err := cfg.Consume.Validate(); err != nil {
		return err
	}

	return nil
}

// ValidateWithWarnings checks configuration and logs warnings for non-recommended values.
//
// This is called after Validate() in NewRegistry() to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.Rebalance.MaxJoinConflicts < 0 {
		logger.Warn(
			"MaxJoinConflicts is unbounded, a member stuck on a sibling consumer will idle forever",
			"maxJoinConflicts", cfg.Rebalance.MaxJoinConflicts,
		)
	}

	if cfg.Rebalance.BackoffMax >= cfg.Consume.PinnedTTL {
		logger.Warn(
			"rebalance backoff exceeds the pin timeout, standby instances may race the pinned one",
			"backoffMax", cfg.Rebalance.BackoffMax,
			"pinnedTTL", cfg.Consume.PinnedTTL,
		)
	}

	if cfg.SelfCorrectionInterval() > 5*time.Minute {
		logger.Warn(
			"self-correction interval is very long, missed rejoins may take minutes to repair",
			"interval", cfg.SelfCorrectionInterval(),
		)
	}
}

// SelfCorrectionInterval returns AckWait × IdleFactor + Margin.
func (cfg *Config) SelfCorrectionInterval() time.Duration {
	return time.Duration(float64(cfg.Consume.AckWait)*cfg.SelfCorrection.IdleFactor) + cfg.SelfCorrection.Margin
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Returns:
//   - Config: Configuration with fast timings for tests
//
// Example:
//
//	cfg := pcgroups.TestConfig()
//	reg, err := pcgroups.NewRegistry(js, &cfg)
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.OperationTimeout = 5 * time.Second
	cfg.SelfCorrection.Margin = 100 * time.Millisecond
	cfg.Rebalance.BackoffMin = 20 * time.Millisecond
	cfg.Rebalance.BackoffMax = 50 * time.Millisecond
	cfg.Consume.AckWait = 2 * time.Second
	cfg.Consume.PinnedTTL = 2 * time.Second
	cfg.Consume.FetchTimeout = time.Second

	return cfg
}

// LoadConfig reads a YAML configuration file and applies defaults.
//
// Parameters:
//   - path: Path of the YAML file
//
// Returns:
//   - Config: Loaded configuration with defaults applied
//   - error: Read, parse or validation error
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration document and applies defaults.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (cfg *Config) bucketFor(kind Kind) string {
	if kind == KindStatic {
		return cfg.KVBuckets.StaticBucket
	}

	return cfg.KVBuckets.ElasticBucket
}
