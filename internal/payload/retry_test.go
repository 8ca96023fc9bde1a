package payload

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brickyard/internal/errors"
)

// fastPolicy avoids real sleeps in tests
func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialDelay: 0, Multiplier: 2.0}
}

func TestRetry_AlwaysFails_TerminatesAfterMaxAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context, fb Feedback) (string, error) {
		calls++
		return "", fmt.Errorf("parse failure %d", calls)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "must call exactly MaxAttempts times")
	assert.True(t, errors.IsCode(err, errors.ErrCodeRetryExhausted))

	// The exhaustion error carries the full attempt history.
	for i := 1; i <= 3; i++ {
		assert.Contains(t, err.Error(), fmt.Sprintf("parse failure %d", i))
	}
}

func TestRetry_SucceedsOnNthCall_MakesExactlyNCalls(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastPolicy(5), func(ctx context.Context, fb Feedback) (string, error) {
		calls++
		if calls < 2 {
			return "", fmt.Errorf("not yet")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
}

func TestRetry_FeedbackCarriesPreviousError(t *testing.T) {
	var seen []Feedback
	_, _ = Retry(context.Background(), fastPolicy(3), func(ctx context.Context, fb Feedback) (int, error) {
		seen = append(seen, fb)
		return 0, fmt.Errorf("missing field bricks")
	})

	require.Len(t, seen, 3)
	assert.False(t, seen[0].HasPrior())
	assert.Equal(t, 1, seen[0].Attempt)

	assert.True(t, seen[1].HasPrior())
	assert.Contains(t, seen[1].PreviousError, "missing field bricks")
	assert.Contains(t, seen[1].Instructions, "attempt 1: missing field bricks")

	// Instructions accumulate across attempts.
	assert.Contains(t, seen[2].Instructions, "attempt 1:")
	assert.Contains(t, seen[2].Instructions, "attempt 2:")
}

func TestRetry_FatalAbortsImmediately(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(5), func(ctx context.Context, fb Feedback) (string, error) {
		calls++
		return "", Fatal(fmt.Errorf("provider unreachable"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "fatal errors must not be retried")
	assert.True(t, errors.IsCode(err, errors.ErrCodeRetryFatal))
	assert.Contains(t, err.Error(), "provider unreachable")
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, fastPolicy(5), func(ctx context.Context, fb Feedback) (string, error) {
		calls++
		cancel()
		return "", fmt.Errorf("failure")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetry_BackoffIsCancellable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{MaxAttempts: 2, InitialDelay: time.Hour, Multiplier: 2.0}

	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, policy, func(ctx context.Context, fb Feedback) (string, error) {
			return "", fmt.Errorf("failure")
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not abort its backoff sleep on cancellation")
	}
}

func TestRetry_ZeroAttempts(t *testing.T) {
	_, err := Retry(context.Background(), Policy{MaxAttempts: 0}, func(ctx context.Context, fb Feedback) (string, error) {
		t.Fatal("operation must not be called")
		return "", nil
	})
	require.Error(t, err)
}

func TestFatal_NilPassthrough(t *testing.T) {
	assert.Nil(t, Fatal(nil))
	assert.False(t, IsFatal(nil))
}
