package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyLanding(t *testing.T) {
	site := DefaultSite()

	err := verifyLanding(`<html><body><div id="dashboard">orders</div></body></html>`, site)
	require.NoError(t, err)

	err = verifyLanding(`<html><body>Welcome back</body></html>`, site)
	require.NoError(t, err)

	err = verifyLanding(`<html><body>  </body></html>`, site)
	require.Error(t, err)

	err = verifyLanding(`<html><body></body></html>`, site)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLoginFailed)

	err = verifyLanding(`<html><body><form>
		<input id="txtEmailLogin">
		<input id="txtPasswordLogin" type="password">
		<button id="btnLogin">login</button>
	</form></body></html>`, site)
	require.ErrorIs(t, err, ErrLoginFailed)
}

func TestSiteURL(t *testing.T) {
	site := DefaultSite()

	resolved, err := site.URL(site.OrdersPath)
	require.NoError(t, err)
	assert.Equal(t, "https://tarjomic.com/api/getOrders", resolved)

	site.BaseUrl = "tarjomic.com"
	_, err = site.URL("/login")
	require.Error(t, err)
}

func TestAccountLogValueHidesPassword(t *testing.T) {
	value := testAccount.LogValue()
	assert.NotContains(t, value.String(), "hunter2")
	assert.Contains(t, value.String(), "alice@example.com")
}
