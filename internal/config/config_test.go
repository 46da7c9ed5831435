package config

import (
	"os"
	"path/filepath"
	"testing"

	"arkwarden/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "arkwarden.db"), cfg.DatabasePath)
	assert.Equal(t, 900, cfg.StartupTimeoutSeconds)
	assert.True(t, cfg.NotificationsEnabled)
	assert.FileExists(t, filepath.Join(dir, "config.json"))
}

func TestLoadConfigFillsMissingKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"port": 9000, "auto_save_on_start": true}`), 0644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.AutoSaveOnStart)
	assert.Equal(t, 900, cfg.StartupTimeoutSeconds)
	assert.Equal(t, 500, cfg.LogHistorySize)
}

func TestSettingsUpdatePersists(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	s := NewSettings(dir, cfg)
	assert.False(t, s.AutoSaveOnStart())
	require.NoError(t, s.EnableAutoSaveOnStart())

	got, err := s.Update(func(a *domain.AppSettings) { a.StartWithSystem = true })
	require.NoError(t, err)
	assert.True(t, got.AutoSaveOnStart)
	assert.True(t, got.StartWithSystem)

	reloaded, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.True(t, reloaded.AutoSaveOnStart)
	assert.True(t, reloaded.StartWithSystem)
}

func TestGetPort(t *testing.T) {
	t.Setenv("ARKWARDEN_PORT", "")
	assert.Equal(t, defaultPort, GetPort())
	t.Setenv("ARKWARDEN_PORT", "8123")
	assert.Equal(t, 8123, GetPort())
	t.Setenv("ARKWARDEN_PORT", "abc")
	assert.Equal(t, defaultPort, GetPort())
}
