package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"arkwarden/internal/domain"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	store, err := NewGormStore(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndLoadProfiles(t *testing.T) {
	store := newTestStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := domain.Profile{ID: "a", Name: "Alpha", InstallPath: "/srv/a", Config: domain.DefaultServerConfig(0), Status: domain.StatusStopped, CreatedAt: created}
	b := domain.Profile{ID: "b", Name: "Beta", Config: domain.DefaultServerConfig(1), Status: domain.StatusNotInstalled, CreatedAt: created.Add(time.Minute)}
	a.Config.Mods = "1,2,3"
	a.MemoryBytes = 1024

	require.NoError(t, store.SaveProfiles([]domain.Profile{a, b}))

	loaded, err := store.LoadProfiles()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Alpha", loaded[0].Name)
	assert.Equal(t, "1,2,3", loaded[0].Config.Mods)
	assert.Equal(t, domain.StatusStopped, loaded[0].Status)
	assert.Zero(t, loaded[0].MemoryBytes)
	assert.Equal(t, "My Ark Server 2", loaded[1].Config.SessionName)

	a.Name = "Alpha Renamed"
	require.NoError(t, store.SaveProfiles([]domain.Profile{a}))

	loaded, err = store.LoadProfiles()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Alpha Renamed", loaded[0].Name)

	require.NoError(t, store.SaveProfiles(nil))
	loaded, err = store.LoadProfiles()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSettings(t *testing.T) {
	store := newTestStore(t)

	v, err := store.GetSetting(SettingStatsRetention)
	require.NoError(t, err)
	assert.Equal(t, "7", v)

	_, err = store.GetSetting(SettingActiveProfile)
	assert.Error(t, err)

	require.NoError(t, store.SetSetting(SettingActiveProfile, "a"))
	require.NoError(t, store.SetSetting(SettingActiveProfile, "b"))
	v, err = store.GetSetting(SettingActiveProfile)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestStatsSamplesArePruned(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveStatsSample(domain.StatsSample{ProfileID: "a", Timestamp: now.Add(-8 * 24 * time.Hour), MemoryBytes: 1}))
	require.NoError(t, store.SaveStatsSample(domain.StatsSample{ProfileID: "b", Timestamp: now.Add(-8 * 24 * time.Hour), MemoryBytes: 9}))
	require.NoError(t, store.SaveStatsSample(domain.StatsSample{ProfileID: "a", Timestamp: now.Add(-time.Hour), MemoryBytes: 2, PlayerCount: 3}))
	require.NoError(t, store.SaveStatsSample(domain.StatsSample{ProfileID: "a", Timestamp: now, MemoryBytes: 4}))

	samples, err := store.ListStatsSamples("a", time.Time{})
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, uint64(2), samples[0].MemoryBytes)
	assert.Equal(t, 3, samples[0].PlayerCount)

	samples, err = store.ListStatsSamples("b", time.Time{})
	require.NoError(t, err)
	assert.Len(t, samples, 1, "pruning is per profile")

	require.NoError(t, store.ClearStatsSamples("a"))
	samples, err = store.ListStatsSamples("a", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, samples)
}
