package retry

import (
	"context"
	"math"
	"time"

	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Policy configures the retry behavior for a call site
type Policy struct {
	MaxAttempts int           // Total attempts including the first (e.g. 3)
	MinBackoff  time.Duration // Delay before the first retry (e.g. 1s)
	MaxBackoff  time.Duration // Cap for the exponential backoff (e.g. 30s)
	Multiplier  float64       // Backoff growth factor (e.g. 2.0)
}

// DefaultPolicy returns the policy used by the provider and fetcher adapters
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		MinBackoff:  1 * time.Second,
		MaxBackoff:  30 * time.Second,
		Multiplier:  2.0,
	}
}

// normalize fills in zero values with defaults
func (p Policy) normalize() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.MinBackoff <= 0 {
		p.MinBackoff = def.MinBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	if p.Multiplier <= 1 {
		p.Multiplier = def.Multiplier
	}
	return p
}

// backoffFor returns the delay before retry number n (1-based)
func (p Policy) backoffFor(n int) time.Duration {
	backoff := float64(p.MinBackoff) * math.Pow(p.Multiplier, float64(n-1))
	if backoff > float64(p.MaxBackoff) {
		return p.MaxBackoff
	}
	return time.Duration(backoff)
}

// Permanent marks an error as non-retryable. Do stops immediately when
// the operation returns one.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do will not retry it
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls op until it succeeds, the policy is exhausted, or ctx is cancelled.
// The last error is returned when all attempts fail.
func Do(ctx context.Context, policy Policy, name string, op func(ctx context.Context) error) error {
	policy = policy.normalize()
	log := logger.Get().With("operation", name)

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "retry aborted before attempt %d", attempt)
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt == policy.MaxAttempts {
			break
		}

		backoff := policy.backoffFor(attempt)
		log.Warnw("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"backoff", backoff,
			"error", lastErr,
		)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "retry aborted during backoff")
		}
	}

	return errors.Wrapf(lastErr, "all %d attempts failed", policy.MaxAttempts)
}
