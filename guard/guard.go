package guard

import (
	"errors"
	"net/http"
	"time"

	"github.com/andyle182810/ussdadmin/tokenstore"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const ContextKeyToken = "accessToken"

var (
	ErrMissingCookie = errors.New("guard: access token cookie is missing")
	ErrMalformed     = errors.New("guard: access token is malformed")
	ErrExpired       = errors.New("guard: access token has expired")
)

// Config drives the page guard. The token signature is never checked here;
// the backend does that on every API call. The guard only keeps operators
// without a usable session away from dashboard pages.
type Config struct {
	Skipper      middleware.Skipper
	Logger       *zerolog.Logger
	SignInPath   string
	CookieName   string
	SecureCookie bool
	Leeway       time.Duration
	Now          func() time.Time
}

func DefaultConfig() Config {
	return Config{
		Skipper:      middleware.DefaultSkipper,
		Logger:       &log.Logger,
		SignInPath:   "/",
		CookieName:   tokenstore.CookieName,
		SecureCookie: true,
		Leeway:       0,
		Now:          time.Now,
	}
}

func Guard(signInPath string) echo.MiddlewareFunc {
	config := DefaultConfig()
	config.SignInPath = signInPath

	return WithConfig(config)
}

func WithConfig(config Config) echo.MiddlewareFunc {
	defaults := DefaultConfig()

	if config.Skipper == nil {
		config.Skipper = defaults.Skipper
	}

	if config.SignInPath == "" {
		config.SignInPath = defaults.SignInPath
	}

	if config.CookieName == "" {
		config.CookieName = defaults.CookieName
	}

	if config.Now == nil {
		config.Now = defaults.Now
	}

	parser := jwt.NewParser()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx *echo.Context) error {
			// The sign-in page itself must stay reachable.
			if config.Skipper(ctx) || ctx.Request().URL.Path == config.SignInPath {
				return next(ctx)
			}

			token, err := accessToken(ctx, config, parser)
			if err != nil {
				logRejection(config.Logger, ctx, err)

				if !errors.Is(err, ErrMissingCookie) {
					ctx.SetCookie(tokenstore.ExpiredCookie(config.CookieName, config.SecureCookie))
				}

				return ctx.Redirect(http.StatusFound, config.SignInPath)
			}

			ctx.Set(ContextKeyToken, token)

			return next(ctx)
		}
	}
}

func accessToken(ctx *echo.Context, config Config, parser *jwt.Parser) (string, error) {
	cookie, err := ctx.Cookie(config.CookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrMissingCookie
	}

	claims := &jwt.RegisteredClaims{} //nolint:exhaustruct

	if _, _, err := parser.ParseUnverified(cookie.Value, claims); err != nil {
		return "", errors.Join(ErrMalformed, err)
	}

	expiresAt, err := claims.GetExpirationTime()
	if err != nil {
		return "", errors.Join(ErrMalformed, err)
	}

	if expiresAt != nil && !config.Now().Before(expiresAt.Add(config.Leeway)) {
		return "", ErrExpired
	}

	return cookie.Value, nil
}

func logRejection(logger *zerolog.Logger, ctx *echo.Context, err error) {
	if logger == nil {
		return
	}

	logger.Info().
		Err(err).
		Str("path", ctx.Request().URL.Path).
		Msg("Redirecting to sign-in")
}

func GetToken(ctx *echo.Context) string {
	if token, ok := ctx.Get(ContextKeyToken).(string); ok {
		return token
	}

	return ""
}
