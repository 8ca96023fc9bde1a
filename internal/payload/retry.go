package payload

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"brickyard/internal/errors"
)

// Policy controls retry behavior for LLM round-trips
type Policy struct {
	// MaxAttempts is the total number of calls, including the first
	MaxAttempts int

	// InitialDelay is the wait before the second attempt
	InitialDelay time.Duration

	// Multiplier grows the delay after each failed attempt
	Multiplier float64
}

// DefaultPolicy returns a policy suitable for LLM round-trips
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		Multiplier:   2.0,
	}
}

// Feedback carries the prior failure into the next attempt. The first attempt
// receives a zero Feedback; subsequent attempts see the previous error and
// the accumulated corrective instructions, so the model has concrete signal
// about what to fix.
type Feedback struct {
	// Attempt is the 1-based attempt number
	Attempt int

	// PreviousError is the failure text from the prior attempt
	PreviousError string

	// Instructions is corrective text accumulated across all prior failures,
	// suitable for appending to the next prompt verbatim
	Instructions string
}

// HasPrior reports whether this feedback carries a prior failure
func (f Feedback) HasPrior() bool {
	return f.PreviousError != ""
}

// Operation is one retryable LLM round-trip producing a parsed value
type Operation[T any] func(ctx context.Context, fb Feedback) (T, error)

// Retry calls op up to policy.MaxAttempts times, threading each failure's
// diagnostic into the next attempt's Feedback and sleeping with multiplicative
// backoff between attempts. It returns the first success. After exhaustion it
// returns a RETRY-001 error carrying the full attempt history. Errors marked
// with Fatal abort immediately, as does context cancellation.
func Retry[T any](ctx context.Context, policy Policy, op Operation[T]) (T, error) {
	var zero T
	if policy.MaxAttempts < 1 {
		return zero, errors.New(errors.ErrCodeRetryExhausted, "retry policy allows no attempts")
	}

	var history []string
	var lastErr error
	fb := Feedback{}
	delay := policy.InitialDelay

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		fb.Attempt = attempt

		result, err := op(ctx, fb)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsFatal(err) {
			return zero, errors.Wrap(errors.ErrCodeRetryFatal,
				fmt.Sprintf("fatal error on attempt %d, not retrying", attempt), unwrapFatal(err))
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		history = append(history, fmt.Sprintf("attempt %d: %v", attempt, err))
		fb.PreviousError = err.Error()
		fb.Instructions = buildInstructions(history)

		if attempt < policy.MaxAttempts {
			if err := sleep(ctx, delay); err != nil {
				return zero, err
			}
			delay = time.Duration(float64(delay) * policy.Multiplier)
		}
	}

	return zero, errors.NewRetryExhaustedError(policy.MaxAttempts, history, lastErr)
}

// buildInstructions renders the attempt history as corrective prompt text
func buildInstructions(history []string) string {
	var b strings.Builder
	b.WriteString("Your previous response could not be used. Fix the following and respond again:\n")
	for _, h := range history {
		b.WriteString("- ")
		b.WriteString(h)
		b.WriteString("\n")
	}
	return b.String()
}

// sleep waits for d or until the context is cancelled
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// fatalError marks an error that must not be retried
type fatalError struct {
	err error
}

func (f *fatalError) Error() string { return f.err.Error() }
func (f *fatalError) Unwrap() error { return f.err }

// Fatal marks err so Retry aborts immediately instead of attempting again.
// Used for environment failures: provider unreachable, filesystem unwritable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal
func IsFatal(err error) bool {
	var f *fatalError
	return stderrors.As(err, &f)
}

func unwrapFatal(err error) error {
	var f *fatalError
	if stderrors.As(err, &f) {
		return f.err
	}
	return err
}
