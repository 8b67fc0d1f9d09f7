package stack

import (
	"context"

	"github.com/aviator-co/pstack/internal/git"
)

// Repository is the subset of git operations used by the stack engine.
type Repository interface {
	CurrentBranchName(ctx context.Context) (string, error)
	RevParse(ctx context.Context, rp *git.RevParse) (string, error)
	InProgressOperation() git.Operation
	Status(ctx context.Context) (git.GitStatus, error)
	Commit(ctx context.Context, rev string) (*git.Commit, error)
	MergeTree(ctx context.Context, opts *git.MergeTree) (*git.MergeTreeResult, error)
	CommitTree(ctx context.Context, opts *git.CommitTree) (string, error)
	ReadTree(ctx context.Context, opts *git.ReadTree) error
	UpdateRef(ctx context.Context, update *git.UpdateRef) error
	CherryPick(ctx context.Context, opts git.CherryPick) error
}

var _ Repository = (*git.Repo)(nil)

// BranchRef returns the full ref name of branch.
func BranchRef(branch string) string {
	return "refs/heads/" + branch
}
