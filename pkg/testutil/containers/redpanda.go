//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
)

const redpandaImage = "docker.redpanda.com/redpandadata/redpanda:v24.2.7"

// RedpandaContainer is a disposable Kafka-compatible broker.
type RedpandaContainer struct {
	Broker string
}

// NewRedpandaContainer starts a single-node broker with topic auto-creation
// disabled, so producers must create their topics explicitly.
func NewRedpandaContainer(t *testing.T) *RedpandaContainer {
	t.Helper()
	ctx := context.Background()

	container, err := redpanda.Run(ctx, redpandaImage)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start redpanda container")

	broker, err := container.KafkaSeedBroker(ctx)
	require.NoError(t, err, "redpanda seed broker")

	return &RedpandaContainer{Broker: broker}
}
