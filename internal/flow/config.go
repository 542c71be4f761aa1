package flow

import (
	"time"

	"github.com/cuongbtq/batchflow/internal/domain"
)

const (
	defaultRetryInterval = 5 * time.Minute
	defaultMaxAttempts   = 3
)

// Config is the policy the dispatcher applies. It is read-only after construction.
type Config struct {
	// IgnoreDuplication disables forcing twins to FINISHED when one twin finishes.
	IgnoreDuplication bool

	AlertEmail string
	AlertName  string

	DefaultRetryInterval time.Duration
	DefaultMaxAttempts   int

	// Per job type overrides of the defaults above.
	RetryIntervals map[domain.JobType]time.Duration
	MaxAttempts    map[domain.JobType]int
}

// DefaultConfig returns a Config with duplicate suppression enabled.
func DefaultConfig() Config {
	return Config{
		DefaultRetryInterval: defaultRetryInterval,
		DefaultMaxAttempts:   defaultMaxAttempts,
	}
}

// RetryInterval returns how long a job of type t waits before it is checked again.
func (c Config) RetryInterval(t domain.JobType) time.Duration {
	if d, ok := c.RetryIntervals[t]; ok && d > 0 {
		return d
	}
	if c.DefaultRetryInterval > 0 {
		return c.DefaultRetryInterval
	}
	return defaultRetryInterval
}

// MaxExecutionAttempts returns the number of attempts after which a retrying
// job of type t is failed.
func (c Config) MaxExecutionAttempts(t domain.JobType) int {
	if n, ok := c.MaxAttempts[t]; ok && n > 0 {
		return n
	}
	if c.DefaultMaxAttempts > 0 {
		return c.DefaultMaxAttempts
	}
	return defaultMaxAttempts
}
