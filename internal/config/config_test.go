package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFreshDir(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.URL)
	assert.Equal(t, dir, cfg.Dir())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	cfg.SetURL("https://rpc.example.com")
	require.NoError(t, cfg.Save())

	again, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example.com", again.URL)
}

func TestSetURLNormalizes(t *testing.T) {
	var cfg Config
	cfg.SetURL("  https://rpc.example.com///  ")
	assert.Equal(t, "https://rpc.example.com", cfg.URL)
}

func TestSaveLeavesOnlyConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	cfg.SetURL("https://rpc.example.com")
	require.NoError(t, cfg.Save())
	require.NoError(t, cfg.Save()) // rewrite in place

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, configFile, entries[0].Name())
}

func TestLoadHonorsEnvHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvHome, dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir())
}

func TestLoadCreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Save())
	assert.Equal(t, dir, cfg.Dir())
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Save())

	// Corrupt the file in place.
	path := filepath.Join(dir, configFile)
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	_, err = Load(dir)
	assert.Error(t, err)
}
