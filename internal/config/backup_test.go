package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTempConfigHome(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", tmpDir)
	t.Cleanup(func() { os.Setenv("XDG_CONFIG_HOME", origXDG) })
	return tmpDir
}

func TestBackupUserConfig_NoConfigYieldsEmptyPath(t *testing.T) {
	withTempConfigHome(t)
	backupPath, err := BackupUserConfig()
	require.NoError(t, err)
	assert.Empty(t, backupPath)
}

func TestBackupUserConfig_BacksUpExistingConfig(t *testing.T) {
	tmpDir := withTempConfigHome(t)
	configDir := filepath.Join(tmpDir, appName)
	configPath := filepath.Join(configDir, "config.yaml")
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	testContent := "version: 1\nembeddings:\n  provider: ollama\n"
	require.NoError(t, os.WriteFile(configPath, []byte(testContent), 0o644))

	backupPath, err := BackupUserConfig()
	require.NoError(t, err)
	require.NotEmpty(t, backupPath)
	assert.True(t, filepath.IsAbs(backupPath))

	backupContent, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, testContent, string(backupContent))
}

func TestListUserConfigBackups_NoDirYieldsNoBackups(t *testing.T) {
	withTempConfigHome(t)
	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestListUserConfigBackups_SortedNewestFirst(t *testing.T) {
	tmpDir := withTempConfigHome(t)
	configDir := filepath.Join(tmpDir, appName)
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	timestamps := []string{"20260101-100000", "20260101-110000", "20260101-120000"}
	for _, ts := range timestamps {
		backupName := filepath.Join(configDir, "config.yaml.bak."+ts)
		require.NoError(t, os.WriteFile(backupName, []byte("test"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	require.Len(t, backups, 3)

	for i := 1; i < len(backups); i++ {
		infoPrev, _ := os.Stat(backups[i-1])
		infoCur, _ := os.Stat(backups[i])
		assert.False(t, infoPrev.ModTime().Before(infoCur.ModTime()))
	}
}

func TestBackupUserConfig_CleansUpBeyondMaxBackups(t *testing.T) {
	tmpDir := withTempConfigHome(t)
	configDir := filepath.Join(tmpDir, appName)
	configPath := filepath.Join(configDir, "config.yaml")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(configPath, []byte("test config"), 0o644))

	for i := 0; i < MaxBackups+1; i++ {
		_, err := BackupUserConfig()
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}

	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(backups), MaxBackups)
}

func TestRestoreUserConfig_RestoresContentAndBacksUpCurrent(t *testing.T) {
	tmpDir := withTempConfigHome(t)
	configDir := filepath.Join(tmpDir, appName)
	configPath := filepath.Join(configDir, "config.yaml")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1\n"), 0o644))

	backupPath, err := BackupUserConfig()
	require.NoError(t, err)
	require.NotEmpty(t, backupPath)

	require.NoError(t, os.WriteFile(configPath, []byte("version: 2\n"), 0o644))
	require.NoError(t, RestoreUserConfig(backupPath))

	restored, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(restored))
}

func TestWriteYAML_WritesReadableConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := New()
	cfg.Embeddings.Provider = "ollama"
	cfg.Embeddings.Model = "test-model"

	require.NoError(t, cfg.WriteYAML(configPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	content := string(data)
	assert.Contains(t, content, "provider: ollama")
	assert.Contains(t, content, "model: test-model")
}
