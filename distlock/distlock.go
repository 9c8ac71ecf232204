package distlock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var ErrLockNotObtained = redislock.ErrNotObtained

type Locker struct {
	client *redislock.Client
}

func New(redisClient redis.UniversalClient) *Locker {
	return &Locker{
		client: redislock.New(redisClient),
	}
}

// WithLock runs handler while holding key. It fails with ErrLockNotObtained
// when another holder has the key.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, handler func() error) error {
	return l.withLock(ctx, key, ttl, nil, handler)
}

// WaitWithLock is WithLock that polls every interval until the key is free.
// It gives up once ctx is done, or after ttl when ctx has no deadline.
func (l *Locker) WaitWithLock(
	ctx context.Context,
	key string,
	ttl, interval time.Duration,
	handler func() error,
) error {
	//nolint:exhaustruct
	opts := &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(interval),
	}

	return l.withLock(ctx, key, ttl, opts, handler)
}

func (l *Locker) withLock(
	ctx context.Context,
	key string,
	ttl time.Duration,
	opts *redislock.Options,
	handler func() error,
) error {
	lock, err := l.client.Obtain(ctx, key, ttl, opts)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return ErrLockNotObtained
		}

		return err
	}

	defer func() {
		// The caller's ctx may already be cancelled; release must still go out.
		if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			log.Warn().
				Err(releaseErr).
				Str("key", key).
				Msg("Failed to release distributed lock")
		}
	}()

	return handler()
}
