package gittest

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/aviator-co/pstack/internal/git"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func init() {
	logrus.SetLevel(logrus.DebugLevel)
}

// NewTempRepo initializes a new git repository on branch main with a single
// commit that adds README.md.
func NewTempRepo(t *testing.T) *git.Repo {
	var dir string
	if os.Getenv("PSTACK_TEST_PRESERVE_TEMP_REPO") != "" {
		var err error
		dir, err = os.MkdirTemp("", "repo")
		require.NoError(t, err)
		logrus.Infof("created git test repo: %s", dir)
	} else {
		dir = filepath.Join(t.TempDir(), "local")
		require.NoError(t, os.MkdirAll(dir, 0755))
	}
	init := exec.Command("git", "init", "--initial-branch=main")
	init.Dir = dir

	err := init.Run()
	require.NoError(t, err, "failed to initialize git repository")

	repo, err := git.OpenRepo(dir, filepath.Join(dir, ".git"))
	require.NoError(t, err, "failed to open repo")

	ctx := context.Background()
	settings := map[string]string{
		"user.name":      "pstack-test",
		"user.email":     "pstack-test@nonexistant",
		"commit.gpgsign": "false",
	}
	for k, v := range settings {
		_, err = repo.Git(ctx, "config", k, v)
		require.NoErrorf(t, err, "failed to set config %s=%s", k, v)
	}

	err = os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Hello World"), 0644)
	require.NoError(t, err, "failed to write README.md")

	_, err = repo.Git(ctx, "add", "README.md")
	require.NoError(t, err, "failed to stage README.md")

	_, err = repo.Git(ctx, "commit", "-m", "Initial commit")
	require.NoError(t, err, "failed to create initial commit")

	return repo
}

// Head returns the commit hash of HEAD.
func Head(t *testing.T, repo *git.Repo) string {
	head, err := repo.RevParse(context.Background(), &git.RevParse{Rev: "HEAD"})
	require.NoError(t, err)
	return head
}
