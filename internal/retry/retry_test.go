package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonesrussell/rankrecon/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	t.Helper()

	calls := 0
	err := retry.Do(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Helper()

	calls := 0
	err := retry.Do(context.Background(), fastConfig(2), func() error {
		calls++
		return errors.New("i/o timeout")
	})

	require.ErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
	assert.Equal(t, 2, calls)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	t.Helper()

	calls := 0
	sentinel := errors.New("bad request")
	err := retry.Do(context.Background(), fastConfig(5), func() error {
		calls++
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestDo_PermanentUnwrapped(t *testing.T) {
	t.Helper()

	sentinel := errors.New("connection refused but give up")
	err := retry.Do(context.Background(), fastConfig(5), func() error {
		return retry.Permanent(sentinel)
	})

	assert.Equal(t, sentinel, err)
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry.Do(ctx, fastConfig(3), func() error { return nil })
	require.ErrorIs(t, err, retry.ErrContextCancelled)
}

func TestIsTransient(t *testing.T) {
	t.Helper()

	assert.True(t, retry.IsTransient(errors.New("unexpected status 503")))
	assert.True(t, retry.IsTransient(errors.New("unexpected EOF")))
	assert.False(t, retry.IsTransient(errors.New("unexpected status 404")))
	assert.False(t, retry.IsTransient(nil))
}
