package marketplace

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// verifyLanding checks the html of the page reached after logging in, a page that
// still shows the login form means the session is not authenticated.
func verifyLanding(html string, site Site) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("parse landing page: %w", err)
	}
	body := doc.Find("body")
	if body.Length() == 0 || (body.Children().Length() == 0 && strings.TrimSpace(body.Text()) == "") {
		return fmt.Errorf("landing page has an empty body")
	}
	if doc.Find(site.EmailField).Length() > 0 && doc.Find(site.PasswordField).Length() > 0 {
		return fmt.Errorf("%w: landing page shows the login form", ErrLoginFailed)
	}
	return nil
}
