package guard_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andyle182810/ussdadmin/guard"
	"github.com/andyle182810/ussdadmin/testutil"
	"github.com/andyle182810/ussdadmin/tokenstore"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("not-verified-by-the-guard")

func echoSuccessHandler(c *echo.Context) error {
	return c.String(http.StatusOK, "dashboard")
}

func createTestToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	//nolint:exhaustruct
	claims := jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	require.NoError(t, err)

	return token
}

func accessCookie(value string) *http.Cookie {
	return tokenstore.NewAccessCookie(value, false, true)
}

func requireRedirect(t *testing.T, rec *httptest.ResponseRecorder, target string) {
	t.Helper()

	res := rec.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, target, res.Header.Get("Location"))
}

func TestGuard_ValidTokenPasses(t *testing.T) {
	t.Parallel()

	token := createTestToken(t, time.Now().Add(time.Hour))

	ctx, rec := testutil.SetupEchoContext(t, &testutil.Options{
		Method:  http.MethodGet,
		Path:    "/countries",
		Headers: nil,
		Cookies: []*http.Cookie{accessCookie(token)},
	})

	err := guard.Guard("/")(echoSuccessHandler)(ctx)

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, token, guard.GetToken(ctx))
}

func TestGuard_MissingCookieRedirects(t *testing.T) {
	t.Parallel()

	ctx, rec := testutil.SetupEchoContext(t, &testutil.Options{
		Method:  http.MethodGet,
		Path:    "/networks",
		Headers: nil,
		Cookies: nil,
	})

	err := guard.Guard("/")(echoSuccessHandler)(ctx)

	require.NoError(t, err)
	requireRedirect(t, rec, "/")
	require.Empty(t, rec.Header().Values("Set-Cookie"))
	require.Empty(t, guard.GetToken(ctx))
}

func TestGuard_ExpiredTokenRedirectsAndExpiresCookie(t *testing.T) {
	t.Parallel()

	token := createTestToken(t, time.Now().Add(-time.Minute))

	ctx, rec := testutil.SetupEchoContext(t, &testutil.Options{
		Method:  http.MethodGet,
		Path:    "/users",
		Headers: nil,
		Cookies: []*http.Cookie{accessCookie(token)},
	})

	err := guard.Guard("/login")(echoSuccessHandler)(ctx)

	require.NoError(t, err)
	requireRedirect(t, rec, "/login")

	res := rec.Result()
	defer res.Body.Close()

	cookies := res.Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, tokenstore.CookieName, cookies[0].Name)
	require.Negative(t, cookies[0].MaxAge)
}

func TestGuard_MalformedTokenRedirects(t *testing.T) {
	t.Parallel()

	ctx, rec := testutil.SetupEchoContext(t, &testutil.Options{
		Method:  http.MethodGet,
		Path:    "/phone-numbers",
		Headers: nil,
		Cookies: []*http.Cookie{accessCookie("not-a-jwt")},
	})

	err := guard.Guard("/")(echoSuccessHandler)(ctx)

	require.NoError(t, err)
	requireRedirect(t, rec, "/")
}

func TestGuard_LeewayAndClock(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	token := createTestToken(t, now.Add(-10*time.Second))

	config := guard.DefaultConfig()
	config.Leeway = 30 * time.Second
	config.Now = func() time.Time { return now }

	ctx, rec := testutil.SetupEchoContext(t, &testutil.Options{
		Method:  http.MethodGet,
		Path:    "/countries",
		Headers: nil,
		Cookies: []*http.Cookie{accessCookie(token)},
	})

	err := guard.WithConfig(config)(echoSuccessHandler)(ctx)

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGuard_SignInPathIsNotGuarded(t *testing.T) {
	t.Parallel()

	ctx, rec := testutil.SetupEchoContext(t, &testutil.Options{
		Method:  http.MethodGet,
		Path:    "/",
		Headers: nil,
		Cookies: nil,
	})

	err := guard.Guard("/")(echoSuccessHandler)(ctx)

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGuard_Skipper(t *testing.T) {
	t.Parallel()

	config := guard.DefaultConfig()
	config.Skipper = func(c *echo.Context) bool {
		return c.Request().URL.Path == "/healthz"
	}

	ctx, rec := testutil.SetupEchoContext(t, &testutil.Options{
		Method:  http.MethodGet,
		Path:    "/healthz",
		Headers: nil,
		Cookies: nil,
	})

	err := guard.WithConfig(config)(echoSuccessHandler)(ctx)

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := guard.DefaultConfig()

	require.NotNil(t, config.Skipper)
	require.NotNil(t, config.Now)
	require.Equal(t, "/", config.SignInPath)
	require.Equal(t, tokenstore.CookieName, config.CookieName)
}

func TestGuard_ExpiresConfiguredCookieName(t *testing.T) {
	t.Parallel()

	token := createTestToken(t, time.Now().Add(-time.Minute))

	ctx, rec := testutil.SetupEchoContext(t, &testutil.Options{
		Method:  http.MethodGet,
		Path:    "/networks",
		Headers: nil,
		Cookies: []*http.Cookie{{Name: "dashboardToken", Value: token}}, //nolint:exhaustruct
	})

	config := guard.DefaultConfig()
	config.CookieName = "dashboardToken"

	err := guard.WithConfig(config)(echoSuccessHandler)(ctx)

	require.NoError(t, err)
	requireRedirect(t, rec, "/")

	res := rec.Result()
	defer res.Body.Close()

	cookies := res.Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "dashboardToken", cookies[0].Name)
	require.Negative(t, cookies[0].MaxAge)
}
