package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// NewMiniRedis starts an in-process redis and a client bound to it. Both are
// torn down with the test.
func NewMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{ //nolint:exhaustruct
		Addr: server.Addr(),
	})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return server, client
}
