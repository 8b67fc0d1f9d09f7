package gittest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aviator-co/pstack/internal/git"
	"github.com/stretchr/testify/require"
)

func CreateFile(
	t *testing.T,
	repo *git.Repo,
	filename string,
	body []byte,
) string {
	fp := filepath.Join(repo.Dir(), filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(fp), 0755))
	err := os.WriteFile(fp, body, 0644)
	require.NoError(t, err, "failed to write file: %s", filename)
	return fp
}

func AddFile(
	t *testing.T,
	repo *git.Repo,
	fp string,
) {
	_, err := repo.Git(context.Background(), "add", fp)
	require.NoError(t, err, "failed to add file: %s", fp)
}

// ReadFile returns the contents of filename in the working tree.
func ReadFile(t *testing.T, repo *git.Repo, filename string) string {
	body, err := os.ReadFile(filepath.Join(repo.Dir(), filename))
	require.NoError(t, err, "failed to read file: %s", filename)
	return string(body)
}
