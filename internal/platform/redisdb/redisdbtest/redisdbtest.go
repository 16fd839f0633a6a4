// Package redisdbtest starts a throwaway Redis for integration tests.
package redisdbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/p-n-ai/pai-tracker/internal/platform/redisdb"
)

const (
	image = "redis:7-alpine"
	port  = "6379/tcp"
)

// New starts a Redis container and returns a connected client. The test is
// skipped in short mode.
func New(t *testing.T) *redisdb.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := t.Context()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{port},
			WaitingFor:   wait.ForListeningPort(port),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	url, err := ctr.PortEndpoint(ctx, port, "redis")
	require.NoError(t, err)

	client, err := redisdb.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}
