package testutil

import (
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	redisContainerPort  = "6379/tcp"
	redisStartupTimeout = 60 * time.Second
	redisContainerImage = "redis:7-alpine"
)

type RedisContainer struct {
	Container testcontainers.Container
	Host      string
	Port      nat.Port
}

func (c *RedisContainer) Address() string {
	return c.Host + ":" + c.Port.Port()
}

// SetupRedisContainer runs a disposable redis in docker. Callers should skip
// in short mode.
func SetupRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()

	ctx := t.Context()

	//nolint:exhaustruct
	req := testcontainers.ContainerRequest{
		Image:        redisContainerImage,
		ExposedPorts: []string{redisContainerPort},
		WaitingFor:   wait.ForListeningPort(redisContainerPort).WithStartupTimeout(redisStartupTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
		ProviderType:     testcontainers.ProviderDocker,
		Logger:           &log.Logger,
		Reuse:            false,
	})

	t.Cleanup(func() {
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return &RedisContainer{
		Container: container,
		Host:      host,
		Port:      port,
	}
}

func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping test in short mode")
	}
}
