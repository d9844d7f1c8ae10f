package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGate(t *testing.T) {
	// Order matters: the registry is process-global and cannot be
	// disabled again once initialized.
	assert.False(t, IsEnabled())
	assert.Nil(t, GetRegistry())
	assert.Nil(t, NewRemoteMetrics(), "constructors return nil while disabled")

	InitRegistry()
	require.True(t, IsEnabled())
	require.NotNil(t, GetRegistry())

	// Idempotent: the registry instance is stable.
	reg := GetRegistry()
	InitRegistry()
	assert.Same(t, reg, GetRegistry())

	// Still nil without the prometheus implementation imported.
	assert.Nil(t, NewRemoteMetrics())
}
