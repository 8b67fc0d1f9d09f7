package e2e_tests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aviator-co/pstack/internal/git/gittest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend(t *testing.T) {
	repo := gittest.NewTempRepo(t)
	Chdir(t, repo.Dir())
	t.Setenv("PSTACK_STORAGE_BACKEND", "file")

	RequirePstack(t, "init")
	RequirePstack(t, "new", "first", "-m", "first")
	RequireSeries(t, "> first\n")

	assert.FileExists(t, filepath.Join(repo.GitDir(), "pstack", "main.json"))
	refs := RequireCmd(t, "git", "for-each-ref", "refs/pstack/")
	assert.Empty(t, refs.Stdout)

	out := Pstack(t, "log")
	require.Equal(t, 1, out.ExitCode)
	assert.Contains(t, out.Stderr, "only recorded by the refs storage backend")

	// Repository-local configuration is read from the git directory.
	require.NoError(t, os.Unsetenv("PSTACK_STORAGE_BACKEND"))
	require.NoError(t, os.WriteFile(
		filepath.Join(repo.GitDir(), "pstack", "config.yaml"),
		[]byte("storage:\n  backend: file\n"),
		0o644,
	))
	RequireSeries(t, "> first\n")
}
