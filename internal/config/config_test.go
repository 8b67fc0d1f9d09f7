package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aviator-co/pstack/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
storage:
  backend: file
new:
  nameLength: 12
  template: .pstack-template
`), 0644))

	loaded, err := config.Load([]string{dir})
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, config.BackendFile, config.Pstack.Storage.Backend)
	assert.Equal(t, 12, config.Pstack.New.NameLength)
	assert.Equal(t, ".pstack-template", config.Pstack.New.Template)
	assert.False(t, config.Pstack.New.RefreshSubmodules)
	assert.Equal(t, "auto", config.Pstack.Color)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	loaded, err := config.Load([]string{t.TempDir()})
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Equal(t, config.BackendRefs, config.Pstack.Storage.Backend)
	assert.Equal(t, 30, config.Pstack.New.NameLength)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PSTACK_EDITOR", "nano")
	t.Setenv("PSTACK_STORAGE_BACKEND", "bogus")

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Equal(t, "nano", config.Pstack.Editor)
}
