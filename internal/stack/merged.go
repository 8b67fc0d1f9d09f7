package stack

import (
	"context"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/sirupsen/logrus"
)

// CheckMerged returns the patches among names whose changes are already
// contained in the projected head of the transaction (for example because
// they were merged upstream). Empty patches are never reported.
//
// Only unreachable objects are written to the repository. It must be called
// before any push is recorded.
func (tx *Transaction) CheckMerged(ctx context.Context, names []patchname.Name) ([]patchname.Name, error) {
	if tx.state != txOpen {
		return nil, errors.WithStack(ErrTransactionClosed)
	}
	if tx.pushed {
		return nil, errors.WithStack(ErrPendingPush)
	}
	head := tx.snap.Base
	if top, ok := tx.proj.top(); ok {
		head = tx.commits[top]
	}
	headCommit, err := tx.repo.Commit(ctx, head)
	if err != nil {
		return nil, err
	}

	var merged []patchname.Name
	for _, name := range names {
		commit, ok := tx.commits[name]
		if !ok {
			return nil, ErrNotFound{string(name)}
		}
		ok, err := isMerged(ctx, tx.repo, commit, headCommit)
		if err != nil {
			return nil, errors.WrapIff(err, "failed to check whether %q is merged", name)
		}
		logrus.WithFields(logrus.Fields{"patch": name, "merged": ok}).Debug("checked patch")
		if ok {
			merged = append(merged, name)
		}
	}
	return merged, nil
}

func isMerged(ctx context.Context, repo Repository, commit string, head *git.Commit) (bool, error) {
	patch, err := repo.Commit(ctx, commit)
	if err != nil {
		return false, err
	}
	if patch.Parent() == "" {
		return false, nil
	}
	parent, err := repo.Commit(ctx, patch.Parent())
	if err != nil {
		return false, err
	}
	if parent.Tree == patch.Tree {
		return false, nil
	}
	res, err := repo.MergeTree(ctx, &git.MergeTree{
		Base:   patch.Parent(),
		Ours:   head.Hash,
		Theirs: patch.Hash,
	})
	if err != nil {
		return false, err
	}
	return res.Clean() && res.Tree == head.Tree, nil
}
