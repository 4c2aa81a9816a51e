package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	devenv "tarjomic-watch/dev/env"
	"tarjomic-watch/internal/marketplace"
	"tarjomic-watch/lib/configutil"
	"time"
)

// Duration is a time.Duration written as a duration string ("6s", "1m30s").
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if len(text) >= 2 && (text[0] == '"' || text[0] == '\'') && text[len(text)-1] == text[0] {
		text = text[1 : len(text)-1]
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %s: %w", string(data), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type StateConfig struct {
	// Driver is "json" or "sqlite".
	Driver string `json:"driver"`
	Path   string `json:"path"`
}

type RetryConfig struct {
	LoginAttempts int      `json:"login_attempts"`
	LoginDelay    Duration `json:"login_delay"`
	FetchAttempts int      `json:"fetch_attempts"`
	FetchDelay    Duration `json:"fetch_delay"`
}

type TimeoutsConfig struct {
	PageWait Duration `json:"page_wait"`
	Request  Duration `json:"request"`
	// RequestsPerSecond limits calls to the marketplace api.
	RequestsPerSecond float64 `json:"requests_per_second"`
}

type SMSConfig struct {
	// Url is the gateway endpoint, sms is disabled when empty.
	Url  string `json:"url"`
	From string `json:"from"`
	To   string `json:"to"`
}

type SMTPConfig struct {
	// Server is the relay host, email is disabled when empty.
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	To           string `json:"to"`
}

type ScheduleConfig struct {
	Cron     string `json:"cron"`
	Timezone string `json:"timezone"`
}

type Config struct {
	Site     marketplace.Site           `json:"site"`
	Accounts []marketplace.Account      `json:"accounts"`
	State    StateConfig                `json:"state"`
	Browser  marketplace.BrowserOptions `json:"browser"`
	Retry    RetryConfig                `json:"retry"`
	Timeouts TimeoutsConfig             `json:"timeouts"`
	SMS      SMSConfig                  `json:"sms"`
	SMTP     SMTPConfig                 `json:"smtp"`
	Schedule ScheduleConfig             `json:"schedule"`
}

func DefaultConfig() Config {
	return Config{
		Site: marketplace.DefaultSite(),
		State: StateConfig{
			Driver: "json",
			Path:   "old_orders.json",
		},
		Browser: marketplace.BrowserOptions{
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		Retry: RetryConfig{
			LoginAttempts: 3,
			LoginDelay:    Duration(6 * time.Second),
			FetchAttempts: 3,
			FetchDelay:    Duration(5 * time.Second),
		},
		Timeouts: TimeoutsConfig{
			PageWait:          Duration(10 * time.Second),
			Request:           Duration(10 * time.Second),
			RequestsPerSecond: 1,
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
		Schedule: ScheduleConfig{
			Cron: "*/10 * * * *",
		},
	}
}

// LoadConfig reads `path` (and its local override) on top of the defaults.
func LoadConfig(path string) (Config, error) {
	config, err := configutil.ReadConfigWithDefaults(path, DefaultConfig())
	if errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("no config at %s: %w", path, err)
	}
	if err != nil {
		return config, err
	}
	return config, nil
}

// Validate catches the configuration errors that make a run pointless.
func (c Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("no accounts configured")
	}
	names := map[string]struct{}{}
	for i, account := range c.Accounts {
		if account.Name == "" {
			return fmt.Errorf("account %d has no name", i)
		}
		if account.Email == "" || account.Password == "" {
			return fmt.Errorf("account %s is missing its email or password", account.Name)
		}
		if _, ok := names[account.Name]; ok {
			return fmt.Errorf("account name %s is used more than once", account.Name)
		}
		names[account.Name] = struct{}{}
	}

	if _, err := c.Site.URL(c.Site.LoginPath); err != nil {
		return fmt.Errorf("site: %w", err)
	}

	switch c.State.Driver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("unknown state driver %q", c.State.Driver)
	}
	if c.State.Path == "" {
		return fmt.Errorf("state path is empty")
	}
	statePath, err := devenv.ResolvePath(c.State.Path)
	if err != nil {
		return fmt.Errorf("state path: %w", err)
	}
	info, err := os.Stat(filepath.Dir(statePath))
	if err != nil {
		return fmt.Errorf("state directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("state directory %s is not a directory", filepath.Dir(statePath))
	}

	if c.Retry.LoginAttempts < 1 || c.Retry.FetchAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1")
	}
	if c.Retry.LoginDelay < 0 || c.Retry.FetchDelay < 0 {
		return fmt.Errorf("retry delays cannot be negative")
	}
	return nil
}
