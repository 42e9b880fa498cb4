package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uptimewatcher/watcher/internal/domain"
)

func TestSettingsRepository_SetAndGet(t *testing.T) {
	tr := newTestRepos(t)

	require.NoError(t, tr.settings.SetExternal("theme", "dark"))

	value, found, err := tr.settings.Get("theme")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "dark", value)
}

func TestSettingsRepository_Get_MissingKey(t *testing.T) {
	tr := newTestRepos(t)

	_, found, err := tr.settings.Get("missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSettingsRepository_SetExternal_OverwritesExisting(t *testing.T) {
	tr := newTestRepos(t)
	require.NoError(t, tr.settings.SetExternal("theme", "dark"))
	require.NoError(t, tr.settings.SetExternal("theme", "light"))

	value, _, err := tr.settings.Get("theme")
	require.NoError(t, err)
	assert.Equal(t, "light", value)
}

func TestSettingsRepository_DeleteExternal(t *testing.T) {
	tr := newTestRepos(t)
	require.NoError(t, tr.settings.SetExternal("theme", "dark"))

	existed, err := tr.settings.DeleteExternal("theme")
	require.NoError(t, err)
	assert.True(t, existed)

	_, found, err := tr.settings.Get("theme")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSettingsRepository_GetHistoryLimit_DefaultsWhenUnset(t *testing.T) {
	tr := newTestRepos(t)

	limit, err := tr.settings.GetHistoryLimit()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultHistoryLimit, limit)
}

func TestSettingsRepository_GetHistoryLimit_EnforcesFloor(t *testing.T) {
	tr := newTestRepos(t)
	require.NoError(t, tr.settings.SetExternal(domain.HistoryLimitKey, "5"))

	limit, err := tr.settings.GetHistoryLimit()
	require.NoError(t, err)
	assert.Equal(t, domain.HistoryLimitFloor, limit)
}

func TestSettingsRepository_GetHistoryLimit_RespectsConfiguredValue(t *testing.T) {
	tr := newTestRepos(t)
	require.NoError(t, tr.settings.SetExternal(domain.HistoryLimitKey, "1000"))

	limit, err := tr.settings.GetHistoryLimit()
	require.NoError(t, err)
	assert.Equal(t, 1000, limit)
}

func TestSettingsRepository_FindAll(t *testing.T) {
	tr := newTestRepos(t)
	require.NoError(t, tr.settings.SetExternal("a", "1"))
	require.NoError(t, tr.settings.SetExternal("b", "2"))

	all, err := tr.settings.FindAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
