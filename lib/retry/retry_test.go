package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoExhausted(t *testing.T) {
	calls := 0
	failures := []int{}
	boom := errors.New("boom")

	_, err := Do(context.Background(), Policy{Attempts: 3}, func(ctx context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("call %d: %w", calls, boom)
	}, func(attempt int, err error, wait time.Duration) {
		failures = append(failures, attempt)
	})

	require.Equal(t, 3, calls)
	// the last failure is not followed by a retry, so it is not passed to onFailure
	require.Equal(t, []int{1, 2}, failures)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, exhausted.Attempts)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "call 3")
}

func TestDoEventuallySucceeds(t *testing.T) {
	calls := 0
	out, err := Do(context.Background(), Policy{Attempts: 3}, func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	}, nil)

	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 2, calls)
}

func TestDoPermanent(t *testing.T) {
	calls := 0
	bad := errors.New("bad input")
	err := Run(context.Background(), Policy{Attempts: 5}, func(ctx context.Context) error {
		calls++
		return Permanent(bad)
	}, nil)

	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, bad)
	var exhausted *ExhaustedError
	require.False(t, errors.As(err, &exhausted))
}

func TestDoSingleAttempt(t *testing.T) {
	calls := 0
	err := Run(context.Background(), Policy{Attempts: 0}, func(ctx context.Context) error {
		calls++
		return errors.New("nope")
	}, nil)

	require.Equal(t, 1, calls)
	require.Error(t, err)
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Run(ctx, Policy{Attempts: 5, Delay: time.Hour}, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("slow")
	}, nil)

	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, context.Canceled)
}
