package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"tarjomic-watch/lib/retry"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

type BrowserOptions struct {
	// Bin is the browser executable, rod downloads a known good chromium when empty.
	Bin string `json:"bin"`
	// Headful shows the browser window, browsers run in the new headless mode by default.
	Headful bool `json:"headful"`
	// Sandbox turns the chromium sandbox back on, it is off by default because the
	// watcher usually runs as root inside of a container.
	Sandbox      bool `json:"sandbox"`
	WindowWidth  int  `json:"window_width"`
	WindowHeight int  `json:"window_height"`
	// PageWait bounds every wait for a page condition (element present, url changed).
	PageWait time.Duration `json:"-"`
}

// pollInterval is how often url conditions are re-checked.
const pollInterval = 250 * time.Millisecond

// RodLauncher returns a LaunchFunc that starts chromium through go-rod.
func RodLauncher(opts BrowserOptions) LaunchFunc {
	return func(ctx context.Context) (Driver, error) {
		l := launcher.New().
			Context(ctx).
			NoSandbox(!opts.Sandbox).
			Set("disable-gpu").
			Set("disable-dev-shm-usage")
		if opts.Headful {
			l = l.Headless(false)
		} else {
			l = l.Set("headless", "new")
		}
		if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
			l = l.Set("window-size", fmt.Sprintf("%d,%d", opts.WindowWidth, opts.WindowHeight))
		}
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}

		controlUrl, err := l.Launch()
		if err != nil {
			// no Cleanup here, it blocks until a process that may never have started exits
			l.Kill()
			return nil, err
		}

		browser := rod.New().Context(ctx).ControlURL(controlUrl)
		err = browser.Connect()
		if err != nil {
			l.Kill()
			l.Cleanup()
			return nil, fmt.Errorf("connect to browser: %w", err)
		}

		pageWait := opts.PageWait
		if pageWait <= 0 {
			pageWait = 10 * time.Second
		}
		return &rodDriver{
			launcher: l,
			browser:  browser,
			pageWait: pageWait,
		}, nil
	}
}

type rodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	pageWait time.Duration
}

func (d *rodDriver) Close() error {
	err := d.browser.Close()
	// kill regardless, Close does not wait for the process to go away
	d.launcher.Kill()
	d.launcher.Cleanup()
	return err
}

// step runs `fn` against a page whose operations (element lookups included) give up
// after the page wait.
func (d *rodDriver) step(ctx context.Context, page *rod.Page, name string, fn func(p *rod.Page) error) error {
	ctx, cancel := context.WithTimeout(ctx, d.pageWait)
	defer cancel()

	err := fn(page.Context(ctx))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// waitForUrl polls the page url until `done` returns true or the page wait runs out.
func (d *rodDriver) waitForUrl(ctx context.Context, page *rod.Page, done func(url string) bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.pageWait)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	current := ""
	for {
		info, err := page.Context(ctx).Info()
		if err == nil {
			current = info.URL
			if done(current) {
				return current, nil
			}
		}

		select {
		case <-ctx.Done():
			return current, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *rodDriver) Login(ctx context.Context, site Site, account Account) (Session, error) {
	loginUrl, err := site.URL(site.LoginPath)
	if err != nil {
		return Session{}, retry.Permanent(err)
	}
	landingUrl, err := site.URL(site.LandingPath)
	if err != nil {
		return Session{}, retry.Permanent(err)
	}

	page, err := d.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return Session{}, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	err = d.step(ctx, page, "fill credentials", func(p *rod.Page) error {
		err := p.Navigate(loginUrl)
		if err != nil {
			return err
		}
		email, err := p.Element(site.EmailField)
		if err != nil {
			return err
		}
		err = email.Input(account.Email)
		if err != nil {
			return err
		}
		password, err := p.Element(site.PasswordField)
		if err != nil {
			return err
		}
		return password.Input(account.Password)
	})
	if err != nil {
		return Session{}, err
	}

	err = d.step(ctx, page, "submit", func(p *rod.Page) error {
		submit, err := p.Element(site.SubmitControl)
		if err != nil {
			return err
		}
		err = submit.WaitVisible()
		if err != nil {
			return err
		}
		err = submit.WaitEnabled()
		if err != nil {
			return err
		}
		// synthetic mouse clicks do not always reach the site's button
		_, err = submit.Eval(`() => this.click()`)
		return err
	})
	if err != nil {
		return Session{}, err
	}

	marker := strings.ToLower(site.LoginMarker)
	current, err := d.waitForUrl(ctx, page, func(url string) bool {
		return !strings.Contains(strings.ToLower(url), marker)
	})
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return Session{}, fmt.Errorf("%w (at %s)", ErrLoginFailed, current)
	}
	if err != nil {
		return Session{}, fmt.Errorf("wait for login redirect: %w", err)
	}

	var session Session
	err = d.step(ctx, page, "landing page", func(p *rod.Page) error {
		err := p.Navigate(landingUrl)
		if err != nil {
			return err
		}
		_, err = p.Element("body")
		if err != nil {
			return err
		}
		html, err := p.HTML()
		if err != nil {
			return err
		}
		err = verifyLanding(html, site)
		if err != nil {
			return err
		}

		cookies, err := p.Cookies(nil)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			session.Cookies = append(session.Cookies, Cookie{
				Name:   c.Name,
				Value:  c.Value,
				Domain: c.Domain,
				Path:   c.Path,
			})
		}

		userAgent, err := p.Eval(`() => navigator.userAgent`)
		if err != nil {
			return err
		}
		session.UserAgent = userAgent.Value.Str()
		return nil
	})
	if err != nil {
		return Session{}, err
	}

	return session, nil
}
