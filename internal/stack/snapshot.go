package stack

import (
	"context"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/meta"
	"github.com/sirupsen/logrus"
)

type LoadOpts struct {
	// The branch whose stack to load. Defaults to the current branch.
	Branch string
	// If true, don't check that the repository is in a usable state or that
	// the branch head matches the stack.
	SkipRepositoryChecks bool
}

// Snapshot is a read-only view of the stack state of a branch.
type Snapshot struct {
	*meta.State
	Branch string
	// The commit the stack is built on: the parent of the bottom applied
	// patch, or the recorded head if nothing is applied.
	Base string
	// The version of the persisted state this snapshot was read from.
	Version string
}

// Load reads the stack state of a branch and checks it against the
// repository.
func Load(ctx context.Context, repo Repository, db meta.DB, opts LoadOpts) (*Snapshot, error) {
	branch := opts.Branch
	if branch == "" {
		var err error
		branch, err = repo.CurrentBranchName(ctx)
		if err != nil {
			return nil, err
		}
	}

	rtx, err := db.ReadTx(ctx, branch)
	if err != nil {
		return nil, err
	}
	state, ok := rtx.State()
	if !ok {
		return nil, errors.WithDetails(ErrNotInitialized, "branch", branch)
	}

	applied := state.Applied()
	base := state.Head
	if len(applied) > 0 {
		if top := state.TopCommit(); top != state.Head {
			return nil, ErrCorruptState{
				Reason: "top applied patch " + git.ShortSha(top) +
					" is not the recorded head " + git.ShortSha(state.Head),
			}
		}
		p, _ := state.Patch(applied[0])
		bottom, err := repo.Commit(ctx, p.Commit)
		if err != nil {
			return nil, errors.WrapIff(err, "failed to read patch %q", applied[0])
		}
		if bottom.Parent() == "" {
			return nil, ErrCorruptState{Reason: "patch " + string(applied[0]) + " has no parent commit"}
		}
		base = bottom.Parent()
	}

	snap := &Snapshot{
		State:   state,
		Branch:  branch,
		Base:    base,
		Version: rtx.Version(),
	}
	logrus.WithFields(logrus.Fields{
		"branch":    branch,
		"base":      git.ShortSha(base),
		"applied":   len(applied),
		"unapplied": len(state.Unapplied()),
		"hidden":    len(state.Hidden()),
	}).Debug("loaded stack")

	if opts.SkipRepositoryChecks {
		return snap, nil
	}
	if err := CheckRepositoryState(ctx, repo); err != nil {
		return nil, err
	}
	head, err := repo.RevParse(ctx, &git.RevParse{Rev: BranchRef(branch), Verify: true})
	if err != nil {
		return nil, errors.WrapIff(err, "failed to read branch %q", branch)
	}
	if head != state.TopCommit() {
		return nil, ErrHeadMismatch{Branch: branch, Head: head, Expected: state.TopCommit()}
	}
	return snap, nil
}

// CheckRepositoryState returns ErrRepositoryState if a multi-step git
// operation is in progress.
func CheckRepositoryState(_ context.Context, repo Repository) error {
	if op := repo.InProgressOperation(); op != git.OperationNone {
		return ErrRepositoryState{Operation: op}
	}
	return nil
}

// CheckIndexClean returns ErrDirtyIndex if the index has staged changes, or
// ErrRepositoryState if it has unmerged paths.
func CheckIndexClean(ctx context.Context, repo Repository) error {
	st, err := repo.Status(ctx)
	if err != nil {
		return err
	}
	return checkIndexClean(st)
}

// CheckWorktreeClean returns ErrDirtyWorktree if tracked files have unstaged
// changes. Untracked files are ignored.
func CheckWorktreeClean(ctx context.Context, repo Repository) error {
	st, err := repo.Status(ctx)
	if err != nil {
		return err
	}
	return checkWorktreeClean(st)
}

func checkIndexClean(st git.GitStatus) error {
	if len(st.UnmergedFiles) > 0 {
		return ErrRepositoryState{Reason: "the index has unmerged paths (resolve the conflicts first)"}
	}
	if len(st.StagedTrackedFiles) > 0 {
		return errors.WithDetails(ErrDirtyIndex, "paths", st.StagedTrackedFiles)
	}
	return nil
}

func checkWorktreeClean(st git.GitStatus) error {
	if len(st.UnstagedTrackedFiles) > 0 {
		return errors.WithDetails(ErrDirtyWorktree, "paths", st.UnstagedTrackedFiles)
	}
	return nil
}
