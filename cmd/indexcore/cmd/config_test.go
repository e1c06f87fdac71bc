package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPathCmd_PrintsUserConfigPath(t *testing.T) {
	cmd := newConfigPathCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "config.yaml")
}

func TestConfigShowCmd_PrintsDefaultsForUnconfiguredProject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	cmd := newConfigShowCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--path", dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "vector_store")
}

func TestConfigShowCmd_JSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	cmd := newConfigShowCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--path", dir, "--json"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), `"vector_store"`)
}
