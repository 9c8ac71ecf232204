package distlock

import (
	"context"
	"fmt"
	"time"

	"github.com/andyle182810/ussdadmin/apiclient"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRefreshKey      = "ussdadmin:lock:token-refresh"
	DefaultRefreshTTL      = 10 * time.Second
	DefaultRefreshInterval = 50 * time.Millisecond
)

// AccessTokenReader is the part of the token store the coordinator re-reads
// once it holds the lock.
type AccessTokenReader interface {
	AccessToken(ctx context.Context) (string, bool)
}

// RefreshCoordinator serialises token refreshes across every process that
// shares one Redis and one token store. A caller that waited for the lock
// reuses the token its predecessor stored instead of refreshing again.
type RefreshCoordinator struct {
	locker   *Locker
	store    AccessTokenReader
	key      string
	ttl      time.Duration
	interval time.Duration
}

var _ apiclient.RefreshCoordinator = (*RefreshCoordinator)(nil)

type CoordinatorOption func(*RefreshCoordinator)

func WithKey(key string) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		if key != "" {
			c.key = key
		}
	}
}

func WithTTL(ttl time.Duration) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithRetryInterval(interval time.Duration) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

func NewRefreshCoordinator(locker *Locker, store AccessTokenReader, opts ...CoordinatorOption) *RefreshCoordinator {
	coordinator := &RefreshCoordinator{
		locker:   locker,
		store:    store,
		key:      DefaultRefreshKey,
		ttl:      DefaultRefreshTTL,
		interval: DefaultRefreshInterval,
	}

	for _, opt := range opts {
		opt(coordinator)
	}

	return coordinator
}

func (c *RefreshCoordinator) Coordinate(
	ctx context.Context,
	staleToken string,
	refresh apiclient.RefreshFunc,
) (string, error) {
	var token string

	err := c.locker.WaitWithLock(ctx, c.key, c.ttl, c.interval, func() error {
		if current, ok := c.store.AccessToken(ctx); ok && current != staleToken {
			log.Debug().Str("key", c.key).Msg("Reusing access token refreshed by another holder")

			token = current

			return nil
		}

		fresh, err := refresh(ctx)
		if err != nil {
			return err
		}

		token = fresh

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("distlock: coordinate refresh: %w", err)
	}

	return token, nil
}
