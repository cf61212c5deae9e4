package orchestrator

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultPollInterval is the wait between status checks.
	DefaultPollInterval = 5 * time.Second
	// DefaultMaxAttempts caps polling when neither an attempt cap nor a
	// deadline is configured.
	DefaultMaxAttempts = 60
)

// ErrInvalidConfig is returned for negative bounds.
var ErrInvalidConfig = errors.New("invalid orchestrator config")

// Config bounds one orchestration call.
type Config struct {
	PollInterval   time.Duration
	MaxAttempts    int           // status checks before Timeout
	RequestTimeout time.Duration // per HTTP attempt, retries included; 0 relies on the transport
	Deadline       time.Duration // wall-clock bound from start-run success; 0 disables
}

// DefaultConfig returns the default bounds.
func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		MaxAttempts:  DefaultMaxAttempts,
	}
}

// Normalize fills defaults and rejects negative values. Polling is always
// bounded: with no attempt cap and no deadline, DefaultMaxAttempts applies.
func (c Config) Normalize() (Config, error) {
	if c.PollInterval < 0 {
		return c, fmt.Errorf("%w: pollInterval must not be negative", ErrInvalidConfig)
	}
	if c.MaxAttempts < 0 {
		return c, fmt.Errorf("%w: maxAttempts must not be negative", ErrInvalidConfig)
	}
	if c.RequestTimeout < 0 {
		return c, fmt.Errorf("%w: requestTimeout must not be negative", ErrInvalidConfig)
	}
	if c.Deadline < 0 {
		return c, fmt.Errorf("%w: deadline must not be negative", ErrInvalidConfig)
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxAttempts == 0 && c.Deadline == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c, nil
}

// MaxWait is the longest one call can spend between start-run and its last
// status check, not counting the calls themselves. It assumes a normalized
// config.
func (c Config) MaxWait() time.Duration {
	wait := time.Duration(-1)
	if c.MaxAttempts > 0 {
		wait = time.Duration(c.MaxAttempts-1) * c.PollInterval
	}
	if c.Deadline > 0 && (wait < 0 || c.Deadline < wait) {
		wait = c.Deadline
	}
	if wait < 0 {
		return 0
	}
	return wait
}
