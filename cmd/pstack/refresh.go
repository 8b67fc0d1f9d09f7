package main

import (
	"context"
	"fmt"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/config"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/stack"
	"github.com/aviator-co/pstack/internal/utils/colors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// refreshOpts selects the changes that go into a refreshed patch.
type refreshOpts struct {
	// Use the contents of the index.
	Index bool
	// Allow staged and unstaged changes to be mixed.
	Force        bool
	Submodules   bool
	NoSubmodules bool
	// Limit the refresh to these paths.
	Paths []string
}

func (o refreshOpts) validate() error {
	if o.Submodules && o.NoSubmodules {
		return errors.New("--submodules and --no-submodules are mutually exclusive")
	}
	if !o.Index {
		return nil
	}
	switch {
	case len(o.Paths) > 0:
		return errors.New("--index cannot be used with paths")
	case o.Submodules || o.NoSubmodules:
		return errors.New("--index cannot be used with the submodule flags")
	case o.Force:
		return errors.New("--index cannot be used with --force")
	}
	return nil
}

func (o refreshOpts) includeSubmodules() bool {
	switch {
	case o.Submodules:
		return true
	case o.NoSubmodules:
		return false
	default:
		return config.Pstack.New.RefreshSubmodules
	}
}

// refreshedTree is the result of buildRefreshTree.
type refreshedTree struct {
	Tree string
	// Whether the index must be reset to the new head afterwards.
	ResetIndex bool
	// The paths to reset. Empty means all.
	Paths []string
}

// buildRefreshTree builds the tree of head plus the local changes selected by
// opts.
func buildRefreshTree(ctx context.Context, repo *git.Repo, head string, opts refreshOpts) (*refreshedTree, error) {
	st, err := repo.Status(ctx)
	if err != nil {
		return nil, err
	}
	if len(st.UnmergedFiles) > 0 {
		return nil, stack.ErrRepositoryState{
			Reason: "the index has unmerged paths (resolve the conflicts and stage them with `git add` first)",
		}
	}

	if opts.Index {
		tree, err := repo.WriteTree(ctx)
		if err != nil {
			return nil, errors.WrapIf(err, "failed to write the index")
		}
		return &refreshedTree{Tree: tree}, nil
	}

	if len(st.StagedTrackedFiles) > 0 && len(st.UnstagedTrackedFiles) > 0 && !opts.Force {
		return nil, errors.New(
			"the index and the working tree both have changes (use --index to refresh from the index or --force to include both)",
		)
	}
	var exclude []string
	if !opts.includeSubmodules() {
		exclude = st.Submodules
	}
	logrus.WithFields(logrus.Fields{
		"paths":   opts.Paths,
		"exclude": exclude,
	}).Debug("building tree from the working tree")
	tree, err := repo.WorktreeTree(ctx, &git.WorktreeTree{
		Base:    head,
		Paths:   opts.Paths,
		Exclude: exclude,
	})
	if err != nil {
		return nil, errors.WrapIf(err, "failed to build a tree from the working tree")
	}
	return &refreshedTree{Tree: tree, ResetIndex: true, Paths: opts.Paths}, nil
}

// resetRefreshedIndex makes the index match the new head for the refreshed
// paths.
func resetRefreshedIndex(ctx context.Context, repo *git.Repo, t *refreshedTree) {
	if t == nil || !t.ResetIndex {
		return
	}
	if err := repo.ResetIndex(ctx, t.Paths...); err != nil {
		logrus.WithError(err).Warn("failed to reset the index")
	}
}

var refreshFlags refreshOpts

var refreshCmd = &cobra.Command{
	Use:   "refresh [-- <path>...]",
	Short: "update the top patch with local changes",
	Long: `Update the top patch with the local changes.

By default the changes to tracked files in the working tree are used. With
--index the contents of the index are used instead, which is how the
resolution of a conflicted push is recorded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		opts := refreshFlags
		opts.Paths = args
		if err := opts.validate(); err != nil {
			return err
		}
		repo, db, snap, err := loadStack(ctx, stack.LoadOpts{})
		if err != nil {
			return err
		}
		if _, ok := snap.Top(); !ok {
			return errors.New("no patches applied")
		}
		head := snap.TopCommit()
		refreshed, err := buildRefreshTree(ctx, repo, head, opts)
		if err != nil {
			return err
		}

		tx := stack.NewTransaction(repo, db, snap, stack.Options{})
		name, err := tx.Refresh(refreshed.Tree)
		if err != nil {
			return err
		}
		if _, err := tx.Execute(ctx, "refresh: "+string(name)); err != nil {
			return err
		}
		resetRefreshedIndex(ctx, repo, refreshed)
		fmt.Println("Refreshed patch", colors.UserInput(name))
		return nil
	},
}

func addRefreshFlags(cmd *cobra.Command, opts *refreshOpts) {
	cmd.Flags().BoolVarP(&opts.Index, "index", "i", false, "use the contents of the index")
	cmd.Flags().BoolVarP(&opts.Force, "force", "F", false, "include both staged and unstaged changes")
	cmd.Flags().BoolVarP(&opts.Submodules, "submodules", "s", false, "include changed submodules")
	cmd.Flags().BoolVar(&opts.NoSubmodules, "no-submodules", false, "exclude changed submodules")
}

func init() {
	addRefreshFlags(refreshCmd, &refreshFlags)
}
