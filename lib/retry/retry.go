// Package retry wraps fallible operations in a fixed-delay retry loop.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how many times an operation is attempted and how long to wait between
// attempts. The delay does not grow.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// OnFailure is called with every failed attempt that will be retried, before sleeping.
type OnFailure func(attempt int, err error, wait time.Duration)

// ExhaustedError is returned when every attempt of a Policy failed. It wraps the error
// returned by the last attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempt(s): %s", e.Attempts, e.Err.Error())
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Permanent marks an error as not worth retrying, Do returns it right away.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func (p Policy) backoff(ctx context.Context) backoff.BackOff {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay < 0 {
		delay = 0
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1))
	return backoff.WithContext(b, ctx)
}

// Do calls `op` until it succeeds or the policy runs out of attempts. Every failed attempt
// that is followed by another one is passed to `onFailure` (which may be nil).
//
// When all attempts fail the result is an *ExhaustedError wrapping the last failure.
// Errors marked with Permanent and context cancellation are returned unwrapped.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), onFailure OnFailure) (T, error) {
	attempt := 0
	permanent := false
	wrapped := func() (T, error) {
		attempt++
		out, err := op(ctx)
		var perr *backoff.PermanentError
		if errors.As(err, &perr) {
			permanent = true
		}
		return out, err
	}
	notify := func(err error, wait time.Duration) {
		if onFailure != nil {
			onFailure(attempt, err, wait)
		}
	}

	out, err := backoff.RetryNotifyWithData(wrapped, p.backoff(ctx), notify)
	if err == nil {
		return out, nil
	}

	if permanent {
		return out, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return out, err
	}
	return out, &ExhaustedError{Attempts: attempt, Err: err}
}

// Run is Do for operations that only return an error.
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error, onFailure OnFailure) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, onFailure)
	return err
}
