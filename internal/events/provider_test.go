package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandev/executorconfig/internal/common/config"
	"github.com/kandev/executorconfig/internal/common/logger"
)

func TestProvideMemoryBusWithoutURL(t *testing.T) {
	provided, cleanup, err := Provide(config.NATSConfig{URL: "  "}, logger.Nop())
	require.NoError(t, err)
	require.NotNil(t, provided.Memory)
	assert.Nil(t, provided.NATS)
	assert.True(t, provided.Bus.IsConnected())

	require.NoError(t, cleanup())
	assert.False(t, provided.Bus.IsConnected())
}

func TestProvideNATSUnreachable(t *testing.T) {
	_, _, err := Provide(config.NATSConfig{URL: "nats://127.0.0.1:1", MaxReconnects: 0}, logger.Nop())
	assert.Error(t, err)
}
