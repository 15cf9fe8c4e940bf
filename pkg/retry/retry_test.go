package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/pkg/errors"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
		MinBackoff:  time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), "test", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.ErrUnavailable
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), "test", func(ctx context.Context) error {
		calls++
		return errors.ErrUnavailable
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errors.Is(err, errors.ErrUnavailable), "Last error should be preserved in chain")
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), "test", func(ctx context.Context) error {
		calls++
		return Permanent(errors.ErrUnauthorized)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastPolicy(3), "test", func(ctx context.Context) error {
		calls++
		return errors.ErrUnavailable
	})

	require.Error(t, err)
	assert.Equal(t, 0, calls, "Cancelled context should prevent the first attempt")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPolicy_BackoffGrowsAndCaps(t *testing.T) {
	p := Policy{
		MinBackoff: 10 * time.Millisecond,
		MaxBackoff: 40 * time.Millisecond,
		Multiplier: 2.0,
	}.normalize()

	assert.Equal(t, 10*time.Millisecond, p.backoffFor(1))
	assert.Equal(t, 20*time.Millisecond, p.backoffFor(2))
	assert.Equal(t, 40*time.Millisecond, p.backoffFor(3))
	assert.Equal(t, 40*time.Millisecond, p.backoffFor(4), "Backoff should cap at MaxBackoff")
}
