package subscription

import "time"

// Default configuration values for ConsumeOptions.
const (
	// DefaultBatchSize is the default number of messages to fetch per pull request.
	DefaultBatchSize = 1

	// DefaultMaxWaiting is the default maximum number of outstanding pull requests.
	DefaultMaxWaiting = 512

	// DefaultFetchTimeout is the default pull request expiry.
	DefaultFetchTimeout = 5 * time.Second

	// DefaultRetryBackoff is the base delay before recreating a failed message iterator.
	DefaultRetryBackoff = 100 * time.Millisecond

	// DefaultMaxRetryBackoff caps the iterator recreation delay.
	DefaultMaxRetryBackoff = 5 * time.Second

	// DefaultAckWait is the default duration to wait for acknowledgment.
	DefaultAckWait = 30 * time.Second

	// DefaultMaxDeliver is the default maximum delivery attempts.
	DefaultMaxDeliver = 3

	// DefaultInactiveThreshold is the default cleanup threshold of consumers nobody pulls from.
	DefaultInactiveThreshold = 5 * time.Minute

	// DefaultPinnedTTL is how long a pinned instance keeps the pin after it stops pulling.
	DefaultPinnedTTL = 10 * time.Second
)
