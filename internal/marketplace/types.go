package marketplace

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"tarjomic-watch/internal/orderstore"
)

// Account is one set of marketplace credentials.
type Account struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LogValue keeps the password out of logs.
func (a Account) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", a.Name),
		slog.String("email", a.Email),
	)
}

type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// Session is the credential material of a logged in browser, it is enough for a plain
// HTTP client to act as that browser.
type Session struct {
	Cookies   []Cookie
	UserAgent string
}

func (s Session) HttpCookies() []*http.Cookie {
	out := make([]*http.Cookie, len(s.Cookies))
	for i, c := range s.Cookies {
		out[i] = &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		}
	}
	return out
}

// Order is a pending work order, only its id means anything to us.
type Order struct {
	// ID is zero when the order came without a usable id.
	ID  orderstore.OrderID
	Raw json.RawMessage
}

// Site describes the parts of the marketplace we depend on. Fields ending in Field or
// Control are css selectors.
type Site struct {
	BaseUrl     string `json:"base_url"`
	LoginPath   string `json:"login_path"`
	LandingPath string `json:"landing_path"`
	OrdersPath  string `json:"orders_path"`
	// LoginMarker is the url fragment that means we are still on the login page.
	LoginMarker   string `json:"login_marker"`
	EmailField    string `json:"email_field"`
	PasswordField string `json:"password_field"`
	SubmitControl string `json:"submit_control"`
	OrderFilter   string `json:"order_filter"`
}

func DefaultSite() Site {
	return Site{
		BaseUrl:       "https://tarjomic.com",
		LoginPath:     "/login",
		LandingPath:   "/translator",
		OrdersPath:    "/api/getOrders",
		LoginMarker:   "login",
		EmailField:    "#txtEmailLogin",
		PasswordField: "#txtPasswordLogin",
		SubmitControl: "#btnLogin",
		OrderFilter:   "WaitingForCurrentTranslator",
	}
}

// URL resolves `path` against the base url.
func (s Site) URL(path string) (string, error) {
	base, err := url.Parse(s.BaseUrl)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("base url %q is not absolute", s.BaseUrl)
	}
	resolved, err := base.Parse(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	return resolved.String(), nil
}
