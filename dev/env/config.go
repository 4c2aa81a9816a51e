package devenv

// MarketplaceTestConfig is read from `<dev_state>/marketplace_config.json5` by tests that
// log into the real marketplace.
type MarketplaceTestConfig struct {
	BaseUrl  string `json:"base_url"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// BrowserBin is optional, rod downloads a browser when empty.
	BrowserBin string `json:"browser_bin"`
}
