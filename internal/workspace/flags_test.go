package workspace

import (
	"testing"

	"access-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsAbsentMeansDisabled(t *testing.T) {
	env := newTestEnv(t)

	enabled, err := env.flags.Enabled(model.FlagMultiWorkspace, 1)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestFlagsTenantOverridesGlobal(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.flags.Set(model.FlagMultiWorkspace, nil, true))

	tenant := uint(7)
	require.NoError(t, env.flags.Set(model.FlagMultiWorkspace, &tenant, false))

	enabled, err := env.flags.Enabled(model.FlagMultiWorkspace, tenant)
	require.NoError(t, err)
	assert.False(t, enabled)

	enabled, err = env.flags.Enabled(model.FlagMultiWorkspace, 8)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestFlagsSetUpdatesExistingRow(t *testing.T) {
	env := newTestEnv(t)

	tenant := uint(7)
	require.NoError(t, env.flags.Set(model.FlagMultiWorkspace, &tenant, true))
	require.NoError(t, env.flags.Set(model.FlagMultiWorkspace, &tenant, false))

	enabled, err := env.flags.Enabled(model.FlagMultiWorkspace, tenant)
	require.NoError(t, err)
	assert.False(t, enabled)

	var rows int64
	require.NoError(t, env.db.Model(&model.FeatureFlag{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}
