//go:build integration

// Package containers starts throwaway infrastructure for integration tests.
package containers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"accountflow/internal/platform/config"
	"accountflow/internal/platform/redis"
)

const redisImage = "redis:7-alpine"

// RedisContainer is a disposable Redis server plus a connected client.
type RedisContainer struct {
	URL    string
	Client *redis.Client
}

// NewRedisContainer starts Redis and connects to it through the same client
// constructor the server uses. Both are torn down with the test.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, redisImage)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start redis container")

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err, "redis connection string")

	client, err := redis.New(ctx, config.RedisConfig{URL: url, PoolSize: 4})
	require.NoError(t, err, "connect redis")
	t.Cleanup(func() { _ = client.Close() })

	return &RedisContainer{URL: url, Client: client}
}

// FlushAll drops every key so suites can isolate test cases.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
