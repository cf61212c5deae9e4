package platform

import (
	"context"
	"math"
	"time"

	"github.com/dwsmith1983/actorrelay/internal/clock"
	"github.com/dwsmith1983/actorrelay/internal/metrics"
	"github.com/dwsmith1983/actorrelay/pkg/types"
)

const maxBackoffCap = time.Minute

// RetryPolicy bounds retries of one outbound call. It is independent of the
// orchestrator's poll loop: a dropped request is retried here before the
// loop ever sees an error.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	Multiplier float64
	MaxBackoff time.Duration
}

// DefaultRetryPolicy returns the default call-level retry configuration.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		Backoff:    500 * time.Millisecond,
		Multiplier: 2.0,
		MaxBackoff: 10 * time.Second,
	}
}

// NoRetry disables call-level retries.
func NoRetry() RetryPolicy { return RetryPolicy{} }

// BackoffFor returns the wait before the given retry (1-based).
// Uses exponential backoff: base * multiplier^(retry-1).
func (p RetryPolicy) BackoffFor(retry int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	if retry <= 1 {
		return p.Backoff
	}
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	limit := p.MaxBackoff
	if limit <= 0 {
		limit = maxBackoffCap
	}
	backoff := float64(p.Backoff) * math.Pow(multiplier, float64(retry-1))
	if backoff > float64(limit) {
		return limit
	}
	return time.Duration(backoff)
}

// IsRetryable reports whether err is worth another attempt.
func (p RetryPolicy) IsRetryable(err error) bool {
	switch ClassifyFailure(err) {
	case types.FailureTransient, types.FailureTimeout:
		return true
	default:
		return false
	}
}

// IsResendable reports whether a non-idempotent request may be sent again.
// Only failures where the platform provably did not act on the request
// qualify: the connection was never made, or the request was rate limited.
// A 5xx or a timeout may already have created a run.
func (p RetryPolicy) IsResendable(err error) bool {
	return requestNotProcessed(err)
}

// do runs fn until it succeeds, fails permanently, or retries run out.
func (p RetryPolicy) do(ctx context.Context, clk clock.Clock, onRetry func(retry int, err error), fn func(context.Context) error) error {
	return p.doWith(ctx, clk, p.IsRetryable, onRetry, fn)
}

// doWith is do with a caller-chosen retry predicate.
func (p RetryPolicy) doWith(ctx context.Context, clk clock.Clock, retryable func(error) bool, onRetry func(retry int, err error), fn func(context.Context) error) error {
	var err error
	for retry := 0; ; retry++ {
		err = fn(ctx)
		if err == nil || retry >= p.MaxRetries || !retryable(err) || ctx.Err() != nil {
			return err
		}
		next := retry + 1
		if onRetry != nil {
			onRetry(next, err)
		}
		metrics.CallRetries.Add(1)
		if serr := clk.Sleep(ctx, p.BackoffFor(next)); serr != nil {
			return err
		}
	}
}
