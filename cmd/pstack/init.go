package main

import (
	"fmt"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/meta"
	"github.com/aviator-co/pstack/internal/stack"
	"github.com/aviator-co/pstack/internal/utils/cleanup"
	"github.com/aviator-co/pstack/internal/utils/colors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "initialize an empty stack on the current branch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (reterr error) {
		ctx := cmd.Context()
		repo, err := getRepo(ctx)
		if err != nil {
			return err
		}
		db, err := getDB(repo)
		if err != nil {
			return err
		}
		if err := stack.CheckRepositoryState(ctx, repo); err != nil {
			return err
		}
		branch, err := repo.CurrentBranchName(ctx)
		if err != nil {
			return errors.WrapIf(err, "failed to determine current branch")
		}
		head, err := repo.RevParse(ctx, &git.RevParse{Rev: stack.BranchRef(branch), Verify: true})
		if err != nil {
			return errors.WrapIff(err, "failed to read branch %q", branch)
		}

		tx, err := db.WriteTx(ctx, branch)
		if err != nil {
			return err
		}
		cu := cleanup.New(func() {
			logrus.WithError(reterr).Debug("aborting db transaction")
			tx.Abort()
		})
		defer cu.Cleanup()

		if _, ok := tx.State(); ok {
			return errors.Errorf("branch %q already has a stack", branch)
		}
		tx.SetState(meta.EmptyState(head))
		cu.Cancel()
		if err := tx.Commit(ctx, "init"); err != nil {
			return err
		}
		fmt.Printf("Initialized a stack on %s at %s\n", colors.UserInput(branch), git.ShortSha(head))
		return nil
	},
}
