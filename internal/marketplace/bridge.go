package marketplace

import (
	"context"
	"errors"
	"fmt"
	"tarjomic-watch/internal/components/telemetry"
	"tarjomic-watch/lib/retry"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrLoginFailed means the browser stayed on the login page after submitting credentials.
var ErrLoginFailed = errors.New("login failed: still on the login page after submitting")

// AcquisitionError is returned by a Bridge that could not produce a session.
type AcquisitionError struct {
	Account string
	Err     error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire session for %s: %s", e.Account, e.Err.Error())
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// Bridge produces sessions usable by a plain HTTP client.
type Bridge interface {
	Acquire(ctx context.Context, account Account) (Session, error)
}

// Driver is one running browser.
type Driver interface {
	// Login drives the login flow and returns the resulting session.
	Login(ctx context.Context, site Site, account Account) (Session, error)
	// Close releases the browser and everything it spawned.
	Close() error
}

// LaunchFunc starts a new browser.
type LaunchFunc func(ctx context.Context) (Driver, error)

// BrowserBridge logs in through a real browser. Every attempt gets a fresh browser which
// is closed before the attempt returns.
type BrowserBridge struct {
	site   Site
	launch LaunchFunc
	policy retry.Policy
	tel    telemetry.API
}

var _ Bridge = BrowserBridge{}

func NewBrowserBridge(site Site, launch LaunchFunc, policy retry.Policy, tel telemetry.API) BrowserBridge {
	return BrowserBridge{
		site:   site,
		launch: launch,
		policy: policy,
		tel:    telemetry.NewScopedAPI("bridge", tel),
	}
}

func (b BrowserBridge) attempt(ctx context.Context, account Account) (session Session, err error) {
	driver, err := b.launch(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		closeErr := driver.Close()
		if closeErr != nil {
			b.tel.ReportBroken(
				report_bridge_release,
				fmt.Errorf("close browser: %w", closeErr),
				account.Name,
			)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("browser panicked: %v", r)
		}
	}()

	return driver.Login(ctx, b.site, account)
}

func (b BrowserBridge) Acquire(ctx context.Context, account Account) (Session, error) {
	ctx, span := tracer.Start(ctx, "bridge:Acquire", trace.WithAttributes(
		attribute.String("account", account.Name),
	))
	defer span.End()

	b.tel.ReportDebug("acquiring session", account.Name)

	session, err := retry.Do(
		ctx,
		b.policy,
		func(ctx context.Context) (Session, error) {
			return b.attempt(ctx, account)
		},
		func(attempt int, err error, wait time.Duration) {
			b.tel.ReportWarning(
				report_bridge_acquire,
				fmt.Errorf("attempt %d: %w", attempt, err),
				account.Name,
				fmt.Sprintf("retrying in %s", wait),
			)
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire session")
		return Session{}, &AcquisitionError{Account: account.Name, Err: err}
	}

	span.SetAttributes(attribute.Int("cookies", len(session.Cookies)))
	b.tel.ReportDebug("session acquired", account.Name, len(session.Cookies))
	return session, nil
}
