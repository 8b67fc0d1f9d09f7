package gittest

import (
	"context"
	"fmt"
	"testing"

	"github.com/aviator-co/pstack/internal/git"
	"github.com/stretchr/testify/require"
)

// CommitFile writes filename and commits it on the current branch. It returns
// the hash of the new commit.
func CommitFile(t *testing.T, repo *git.Repo, filename string, body []byte) string {
	fp := CreateFile(t, repo, filename, body)
	AddFile(t, repo, fp)

	msg := fmt.Sprintf("write file %s", filename)
	_, err := repo.Git(context.Background(), "commit", "-m", msg)
	require.NoError(t, err, "failed to commit file: %s", filename)
	return Head(t, repo)
}
