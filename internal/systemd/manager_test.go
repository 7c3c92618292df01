package systemd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitName(t *testing.T) {
	assert.Equal(t, "rabbitmq-server.service", UnitName("rabbitmq-server"))
	assert.Equal(t, "rabbitmq-server.service", UnitName("rabbitmq-server.service"))
	assert.Equal(t, "epmd.socket", UnitName("epmd.socket"))
}

func TestFakeManager(t *testing.T) {
	ctx := context.Background()
	f := NewFakeManager()

	state, err := f.ActiveState(ctx, "rabbitmq-server")
	require.NoError(t, err)
	assert.Equal(t, "inactive", state)

	require.NoError(t, f.Start(ctx, "rabbitmq-server"))
	require.NoError(t, f.Enable(ctx, "rabbitmq-server"))

	state, err = f.ActiveState(ctx, "rabbitmq-server.service")
	require.NoError(t, err)
	assert.Equal(t, "active", state)

	enabled, err := f.IsEnabled(ctx, "rabbitmq-server")
	require.NoError(t, err)
	assert.True(t, enabled)

	f.FailOn["stop"] = errors.New("refused")
	assert.Error(t, f.Stop(ctx, "rabbitmq-server"))

	assert.Equal(t, []string{
		"start rabbitmq-server.service",
		"enable rabbitmq-server.service",
		"stop rabbitmq-server.service",
	}, f.Calls())
}
