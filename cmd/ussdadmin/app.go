package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"

	"github.com/andyle182810/ussdadmin/apiclient"
	"github.com/andyle182810/ussdadmin/config"
	"github.com/andyle182810/ussdadmin/distlock"
	"github.com/andyle182810/ussdadmin/notify"
	"github.com/andyle182810/ussdadmin/resource"
	"github.com/andyle182810/ussdadmin/tokenstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type application struct {
	cfg       *config.Config
	out       io.Writer
	redis     *redis.Client
	stream    *notify.Stream
	store     *tokenstore.Store
	client    *apiclient.Client
	directory *resource.Directory
}

func newApplication(cfg *config.Config, out io.Writer) (*application, error) {
	app := &application{
		cfg:       cfg,
		out:       out,
		redis:     nil,
		stream:    nil,
		store:     nil,
		client:    nil,
		directory: nil,
	}

	if cfg.NeedsRedis() {
		client, err := tokenstore.NewRedisClient(cfg.Redis().WithDefaults())
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}

		app.redis = client
	}

	httpClient := &http.Client{ //nolint:exhaustruct
		Timeout: cfg.APITimeout,
	}

	var storeOpts []tokenstore.Option

	if cfg.CookieSite != "" {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, app.closeOnError(fmt.Errorf("failed to create cookie jar: %w", err))
		}

		cookies, err := tokenstore.NewCookieJar(jar, cfg.CookieSite, cfg.CookieSecure)
		if err != nil {
			return nil, app.closeOnError(err)
		}

		httpClient.Jar = jar
		storeOpts = append(storeOpts, tokenstore.WithCookieJar(cookies))
	}

	app.store = tokenstore.New(app.newKV(), storeOpts...)

	notifier, err := app.newNotifier()
	if err != nil {
		return nil, app.closeOnError(err)
	}

	opts := []apiclient.Option{
		apiclient.WithHTTPClient(httpClient),
		apiclient.WithTimeout(cfg.APITimeout),
		apiclient.WithMaxResponseSize(cfg.APIMaxResponseSize),
		apiclient.WithLoginPath(cfg.APILoginPath),
		apiclient.WithRefreshPath(cfg.APIRefreshPath),
		apiclient.WithSignInPath(cfg.SignInPath),
		apiclient.WithNotifier(notifier),
		apiclient.WithNavigator(apiclient.NavigatorFunc(app.redirect)),
	}

	if coordinator := app.newCoordinator(); coordinator != nil {
		opts = append(opts, apiclient.WithRefreshCoordinator(coordinator))
	}

	app.client = apiclient.New(cfg.APIBaseURL, app.store, opts...)
	app.directory = resource.NewDirectory(app.client)

	return app, nil
}

//nolint:ireturn
func (app *application) newKV() tokenstore.KV {
	switch app.cfg.TokenStore {
	case config.StoreRedis:
		return tokenstore.NewRedisKV(app.redis, app.cfg.TokenRedisKey, app.cfg.TokenRedisTTL)
	case config.StoreFile:
		return tokenstore.NewFileKV(app.cfg.TokenFile)
	default:
		return tokenstore.NewMemoryKV()
	}
}

//nolint:ireturn
func (app *application) newNotifier() (notify.Notifier, error) {
	if !app.cfg.NotifyStreamEnabled {
		return notify.Logger{}, nil
	}

	//nolint:exhaustruct
	stream, err := notify.NewStream(app.redis, notify.StreamOptions{
		Topic:            app.cfg.NotifyStreamTopic,
		MaxStreamEntries: app.cfg.NotifyStreamMaxEntries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create notification stream: %w", err)
	}

	app.stream = stream

	return notify.Multi(notify.Logger{}, stream), nil
}

//nolint:ireturn
func (app *application) newCoordinator() apiclient.RefreshCoordinator {
	switch app.cfg.RefreshCoordination {
	case config.CoordinationLocal:
		return apiclient.NewSingleFlight()
	case config.CoordinationRedis:
		return distlock.NewRefreshCoordinator(distlock.New(app.redis), app.store,
			distlock.WithKey(app.cfg.RefreshLockKey),
			distlock.WithTTL(app.cfg.RefreshLockTTL))
	default:
		return nil
	}
}

func (app *application) redirect(_ context.Context, target string) {
	log.Warn().Str("target", target).Msg("Session ended")

	fmt.Fprintln(app.out, "Your session has expired. Sign in again with: ussdadmin login <username> <password>")
}

func (app *application) closeOnError(err error) error {
	if closeErr := app.Close(); closeErr != nil {
		return errors.Join(err, closeErr)
	}

	return err
}

func (app *application) Close() error {
	var errs []error

	if app.stream != nil {
		errs = append(errs, app.stream.Close())
	}

	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}

	return errors.Join(errs...)
}
