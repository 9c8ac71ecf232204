package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v5"
)

type Options struct {
	Method  string            // HTTP method (GET, POST, etc.)
	Path    string            // Request path
	Headers map[string]string // Custom headers
	Cookies []*http.Cookie    // Cookies sent with the request
}

func SetupEchoContext(t *testing.T, opts *Options) (*echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	req := httptest.NewRequest(method, opts.Path, nil)

	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	for _, cookie := range opts.Cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()

	return echo.New().NewContext(req, rec), rec
}
