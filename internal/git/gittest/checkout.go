package gittest

import (
	"context"
	"testing"

	"github.com/aviator-co/pstack/internal/git"
	"github.com/stretchr/testify/require"
)

// CheckoutCommit detaches HEAD at the given commit.
func CheckoutCommit(t *testing.T, repo *git.Repo, commit string) {
	_, err := repo.Git(context.Background(), "checkout", "--quiet", "--detach", commit)
	require.NoError(t, err, "failed to checkout %s", commit)
}
