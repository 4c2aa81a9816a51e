package commands

import (
	"os"
	"path/filepath"
	"tarjomic-watch/internal/marketplace"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	writeFile(t, path, `{
		// credentials
		accounts: [
			{ name: "alice", email: "alice@example.com", password: "a" },
		],
		state: { path: "`+filepath.ToSlash(filepath.Join(dir, "old_orders.json"))+`" },
		retry: { login_delay: "8s" },
	}`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, marketplace.DefaultSite(), config.Site)
	assert.Equal(t, "json", config.State.Driver)
	assert.Equal(t, 3, config.Retry.LoginAttempts)
	assert.Equal(t, 8*time.Second, config.Retry.LoginDelay.Std())
	assert.Equal(t, 5*time.Second, config.Retry.FetchDelay.Std())
	assert.Equal(t, 10*time.Second, config.Timeouts.Request.Std())
	assert.Equal(t, 1920, config.Browser.WindowWidth)
	assert.False(t, config.Browser.Headful)
	require.NoError(t, config.Validate())
}

func TestLoadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	writeFile(t, path, `{
		accounts: [{ name: "alice", email: "alice@example.com", password: "a" }],
		sms: { url: "https://sms.example.com", from: "5000", to: "0912" },
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{
		browser: { headful: true },
		sms: { to: "0935" },
	}`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, config.Browser.Headful)
	assert.Equal(t, "0935", config.SMS.To)
	assert.Equal(t, "5000", config.SMS.From)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	writeFile(t, path, `{ retry: { fetch_delay: "soon" } }`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	valid := func() Config {
		config := DefaultConfig()
		config.State.Path = filepath.Join(dir, "old_orders.json")
		config.Accounts = []marketplace.Account{
			{Name: "alice", Email: "alice@example.com", Password: "a"},
			{Name: "bob", Email: "bob@example.com", Password: "b"},
		}
		return config
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"no accounts": func(c *Config) { c.Accounts = nil },
		"duplicate names": func(c *Config) {
			c.Accounts[1].Name = "alice"
		},
		"missing password": func(c *Config) { c.Accounts[0].Password = "" },
		"unknown driver":   func(c *Config) { c.State.Driver = "redis" },
		"missing state dir": func(c *Config) {
			c.State.Path = filepath.Join(dir, "nope", "old_orders.json")
		},
		"relative base url": func(c *Config) { c.Site.BaseUrl = "tarjomic.com" },
		"zero attempts":     func(c *Config) { c.Retry.FetchAttempts = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			config := valid()
			mutate(&config)
			require.Error(t, config.Validate())
		})
	}
}
