package apiclient

import (
	"maps"
	"net/http"
	"net/url"
	"time"

	"github.com/andyle182810/ussdadmin/notify"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultLoginPath   = "/auth/login/"
	DefaultRefreshPath = "/auth/token/refresh/"
	DefaultSignInPath  = "/"

	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderXRequestID    = "X-Request-ID"
	HeaderAuthorization = "Authorization"
	ContentTypeJSON     = "application/json"
)

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if httpClient, ok := c.httpClient.(*http.Client); ok {
			httpClient.Timeout = timeout
		}

		c.timeout = timeout
	}
}

// WithHTTPClient replaces the transport for API calls. Sign-in and refresh
// calls share it unless WithRestyClient is also given.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithDoer(doer Doer) Option {
	return func(c *Client) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

func WithRestyClient(restyClient *resty.Client) Option {
	return func(c *Client) {
		if restyClient != nil {
			c.restyClient = restyClient
		}
	}
}

func WithRequestIDKey(key any) Option {
	return func(c *Client) {
		c.requestIDKey = key
	}
}

func WithDefaultHeaders(headers map[string]string) Option {
	return func(c *Client) {
		maps.Copy(c.defaultHeaders, headers)
	}
}

func WithNotifier(notifier notify.Notifier) Option {
	return func(c *Client) {
		if notifier != nil {
			c.notifier = notifier
		}
	}
}

func WithNavigator(navigator Navigator) Option {
	return func(c *Client) {
		if navigator != nil {
			c.navigator = navigator
		}
	}
}

func WithSignInPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.signInPath = path
		}
	}
}

func WithLoginPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.loginPath = path
		}
	}
}

func WithRefreshPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.refreshPath = path
		}
	}
}

// WithRefreshCoordinator makes concurrent refreshes go through coordinator.
// Without one every failing request refreshes on its own.
func WithRefreshCoordinator(coordinator RefreshCoordinator) Option {
	return func(c *Client) {
		c.coordinator = coordinator
	}
}

func WithAuthFailureDetector(detector AuthFailureDetector) Option {
	return func(c *Client) {
		if detector != nil {
			c.detector = detector
		}
	}
}

func WithMaxResponseSize(size int64) Option {
	return func(c *Client) {
		c.maxResponseSize = size
	}
}

type RequestOption func(*Request)

func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = make(http.Header)
		}

		r.Header.Set(key, value)
	}
}

func WithQuery(key, value string) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(url.Values)
		}

		r.Query.Add(key, value)
	}
}

func WithQueryParams(params map[string]string) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(url.Values)
		}

		for key, value := range params {
			r.Query.Add(key, value)
		}
	}
}

func WithSuccessMessage(message string) RequestOption {
	return func(r *Request) {
		r.Options.SuccessMessage = message
	}
}

func WithoutNotification() RequestOption {
	return func(r *Request) {
		r.Options.SuppressNotification = true
	}
}
