package tokenstore

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

const (
	CookieName     = "accessToken"
	CookiePath     = "/"
	RememberMaxAge = 86400
)

var ErrInvalidCookieURL = errors.New("tokenstore: invalid cookie URL")

// NewAccessCookie builds the accessToken cookie. Without remember it is a
// session cookie.
func NewAccessCookie(token string, remember, secure bool) *http.Cookie {
	cookie := &http.Cookie{ //nolint:exhaustruct
		Name:     CookieName,
		Value:    token,
		Path:     CookiePath,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}

	if remember {
		cookie.MaxAge = RememberMaxAge
	}

	return cookie
}

func ExpiredAccessCookie(secure bool) *http.Cookie {
	return ExpiredCookie(CookieName, secure)
}

// ExpiredCookie builds a deletion cookie for name.
func ExpiredCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{ //nolint:exhaustruct
		Name:     name,
		Value:    "",
		Path:     CookiePath,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	}
}

func AccessTokenFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	return cookie.Value, true
}

// CookieJar holds the accessToken cookie for one site inside an
// http.CookieJar, so HTTP clients sharing the jar send it along.
type CookieJar struct {
	jar    http.CookieJar
	site   *url.URL
	secure bool
}

func NewCookieJar(jar http.CookieJar, siteURL string, secure bool) (*CookieJar, error) {
	site, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCookieURL, err)
	}

	if site.Scheme == "" || site.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCookieURL, siteURL)
	}

	return &CookieJar{
		jar:    jar,
		site:   site,
		secure: secure,
	}, nil
}

func (c *CookieJar) Jar() http.CookieJar {
	return c.jar
}

func (c *CookieJar) AccessToken() (string, bool) {
	for _, cookie := range c.jar.Cookies(c.site) {
		if cookie.Name == CookieName && cookie.Value != "" {
			return cookie.Value, true
		}
	}

	return "", false
}

func (c *CookieJar) SetAccessToken(token string, remember bool) {
	c.jar.SetCookies(c.site, []*http.Cookie{NewAccessCookie(token, remember, c.secure)})
}

func (c *CookieJar) Expire() {
	c.jar.SetCookies(c.site, []*http.Cookie{ExpiredAccessCookie(c.secure)})
}
