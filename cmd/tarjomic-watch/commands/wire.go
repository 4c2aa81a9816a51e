package commands

import (
	"fmt"
	devenv "tarjomic-watch/dev/env"
	"tarjomic-watch/internal/components/telemetry"
	"tarjomic-watch/internal/marketplace"
	"tarjomic-watch/internal/notify"
	"tarjomic-watch/internal/orderstore"
	"tarjomic-watch/internal/pipeline"
	"tarjomic-watch/lib/retry"

	"golang.org/x/time/rate"
)

// openStore opens the configured backend, the returned close func must be called once
// the store is no longer used.
func openStore(config StateConfig, tel telemetry.API) (*orderstore.Store, func() error, error) {
	path, err := devenv.ResolvePath(config.Path)
	if err != nil {
		return nil, nil, err
	}

	switch config.Driver {
	case "sqlite":
		backend, err := orderstore.OpenSQLite(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite state: %w", err)
		}
		return orderstore.NewStore(backend, tel), backend.Close, nil
	default:
		backend := orderstore.NewJSONFile(path)
		err := backend.CheckWritable()
		if err != nil {
			return nil, nil, err
		}
		return orderstore.NewStore(backend, tel), func() error { return nil }, nil
	}
}

func newDispatcher(config Config, tel telemetry.API) notify.Dispatcher {
	dispatcher := notify.Dispatcher{Tel: tel}
	if config.SMS.Url != "" {
		dispatcher.SMS = notify.NewMelipayamakSMS(config.SMS.Url, config.Timeouts.Request.Std())
		dispatcher.SMSFrom = config.SMS.From
		dispatcher.SMSTo = config.SMS.To
	}
	if config.SMTP.Server != "" {
		dispatcher.Email = notify.NewSMTPEmail(notify.SMTPConfig{
			Server:       config.SMTP.Server,
			Port:         config.SMTP.Port,
			EmailAddress: config.SMTP.EmailAddress,
			Password:     config.SMTP.Password,
			Timeout:      config.Timeouts.Request.Std(),
		})
		dispatcher.EmailTo = config.SMTP.To
	}
	return dispatcher
}

func newPipeline(config Config, store *orderstore.Store, tel telemetry.API) pipeline.Pipeline {
	browser := config.Browser
	browser.PageWait = config.Timeouts.PageWait.Std()

	bridge := marketplace.NewBrowserBridge(
		config.Site,
		marketplace.RodLauncher(browser),
		retry.Policy{
			Attempts: config.Retry.LoginAttempts,
			Delay:    config.Retry.LoginDelay.Std(),
		},
		tel,
	)

	limit := rate.Limit(config.Timeouts.RequestsPerSecond)
	if limit <= 0 {
		limit = rate.Inf
	}
	fetcher := marketplace.NewOrderFetcher(marketplace.FetcherOptions{
		Site: config.Site,
		Policy: retry.Policy{
			Attempts: config.Retry.FetchAttempts,
			Delay:    config.Retry.FetchDelay.Std(),
		},
		Timeout: config.Timeouts.Request.Std(),
		Limiter: rate.NewLimiter(limit, 1),
	}, tel)

	return pipeline.New(
		config.Accounts,
		bridge,
		fetcher,
		store,
		newDispatcher(config, tel),
		tel,
	)
}
