package marketplace

import (
	"context"
	"errors"
	"sync"
	"tarjomic-watch/internal/components/telemetry"
	"tarjomic-watch/lib/retry"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	login    func(attempt int) (Session, error)
	closeErr error
	attempt  int
	counts   *launchCounts
}

type launchCounts struct {
	mu       sync.Mutex
	launched int
	closed   int
}

func (d *fakeDriver) Login(ctx context.Context, site Site, account Account) (Session, error) {
	return d.login(d.attempt)
}

func (d *fakeDriver) Close() error {
	d.counts.mu.Lock()
	defer d.counts.mu.Unlock()
	d.counts.closed++
	return d.closeErr
}

func fakeLauncher(counts *launchCounts, closeErr error, login func(attempt int) (Session, error)) LaunchFunc {
	return func(ctx context.Context) (Driver, error) {
		counts.mu.Lock()
		defer counts.mu.Unlock()
		counts.launched++
		return &fakeDriver{
			login:    login,
			closeErr: closeErr,
			attempt:  counts.launched,
			counts:   counts,
		}, nil
	}
}

var testAccount = Account{Name: "alice", Email: "alice@example.com", Password: "hunter2"}

func testPolicy() retry.Policy {
	return retry.Policy{Attempts: 3, Delay: time.Millisecond}
}

func TestAcquireSucceedsAfterFailures(t *testing.T) {
	counts := &launchCounts{}
	launch := fakeLauncher(counts, nil, func(attempt int) (Session, error) {
		if attempt < 3 {
			return Session{}, ErrLoginFailed
		}
		return testSession, nil
	})

	tel := &telemetry.Recorder{}
	bridge := NewBrowserBridge(DefaultSite(), launch, testPolicy(), tel)
	session, err := bridge.Acquire(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, testSession, session)

	assert.Equal(t, 3, counts.launched)
	assert.Equal(t, 3, counts.closed)
	assert.Len(t, tel.Reports(telemetry.KindWarning), 2)
}

func TestAcquireExhausted(t *testing.T) {
	counts := &launchCounts{}
	launch := fakeLauncher(counts, nil, func(int) (Session, error) {
		return Session{}, ErrLoginFailed
	})

	bridge := NewBrowserBridge(DefaultSite(), launch, testPolicy(), &telemetry.Recorder{})
	_, err := bridge.Acquire(context.Background(), testAccount)
	require.Error(t, err)

	var acqErr *AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, "alice", acqErr.Account)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.NotContains(t, err.Error(), "hunter2")

	assert.Equal(t, 3, counts.launched)
	assert.Equal(t, 3, counts.closed)
}

func TestAcquireRecoversPanics(t *testing.T) {
	counts := &launchCounts{}
	launch := fakeLauncher(counts, nil, func(int) (Session, error) {
		panic("devtools connection lost")
	})

	bridge := NewBrowserBridge(DefaultSite(), launch, testPolicy(), &telemetry.Recorder{})
	_, err := bridge.Acquire(context.Background(), testAccount)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "devtools connection lost")
	assert.Equal(t, 3, counts.closed)
}

func TestAcquireReportsCloseFailures(t *testing.T) {
	counts := &launchCounts{}
	launch := fakeLauncher(counts, errors.New("process already gone"), func(int) (Session, error) {
		return testSession, nil
	})

	tel := &telemetry.Recorder{}
	bridge := NewBrowserBridge(DefaultSite(), launch, testPolicy(), tel)
	_, err := bridge.Acquire(context.Background(), testAccount)
	require.NoError(t, err)
	assert.True(t, tel.Has(telemetry.KindBroken, report_bridge_release))
}

func TestAcquireLaunchFailure(t *testing.T) {
	launches := 0
	launch := func(ctx context.Context) (Driver, error) {
		launches++
		return nil, errors.New("no chromium")
	}

	bridge := NewBrowserBridge(DefaultSite(), launch, testPolicy(), &telemetry.Recorder{})
	_, err := bridge.Acquire(context.Background(), testAccount)

	var acqErr *AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, 3, launches)
}

func TestAcquireCancelled(t *testing.T) {
	counts := &launchCounts{}
	launch := fakeLauncher(counts, nil, func(int) (Session, error) {
		return Session{}, ErrLoginFailed
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bridge := NewBrowserBridge(DefaultSite(), launch, retry.Policy{Attempts: 5, Delay: time.Second}, &telemetry.Recorder{})
	_, err := bridge.Acquire(ctx, testAccount)
	require.Error(t, err)
	assert.Equal(t, counts.launched, counts.closed)
	assert.LessOrEqual(t, counts.launched, 1)
}
