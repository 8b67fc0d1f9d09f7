package main

import (
	"fmt"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/meta"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/aviator-co/pstack/internal/stack"
	"github.com/aviator-co/pstack/internal/utils/colors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

var gotoFlags struct {
	// Keep local changes to the index and working tree.
	Keep bool
	// Check for patches merged upstream before pushing.
	Merged bool
}

var gotoCmd = &cobra.Command{
	Use:   "goto <patch>",
	Short: "push or pop patches until the given patch is the top",
	Long: `Push or pop patches until the given patch is the top of the stack.

The patch may be named by its name or by a prefix (at least four characters)
of its commit id.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := patchname.Parse(args[0]); err != nil {
			return err
		}
		repo, db, snap, err := loadStack(ctx, stack.LoadOpts{})
		if err != nil {
			return err
		}
		if !gotoFlags.Keep {
			if err := stack.CheckIndexClean(ctx, repo); err != nil {
				return err
			}
			if err := stack.CheckWorktreeClean(ctx, repo); err != nil {
				return err
			}
		}
		target, err := resolvePatch(snap, args[0])
		if err != nil {
			return err
		}

		tx := stack.NewTransaction(repo, db, snap, stack.Options{
			ConflictMode:        stack.ConflictsDisallowed,
			UseIndexAndWorktree: true,
			RequireClean:        !gotoFlags.Keep,
		})
		p, _ := snap.Patch(target)
		switch p.Status {
		case meta.StatusApplied:
			applied := snap.Applied()
			i := slices.Index(applied, target)
			if i == len(applied)-1 {
				fmt.Println("Already at patch", colors.UserInput(target))
				return nil
			}
			above := applied[i+1]
			if _, err := tx.PopPatches(func(n patchname.Name) bool { return n == above }); err != nil {
				return err
			}
		case meta.StatusUnapplied:
			unapplied := snap.Unapplied()
			toPush := unapplied[:slices.Index(unapplied, target)+1]
			merged, err := checkMerged(cmd, tx, toPush, gotoFlags.Merged)
			if err != nil {
				return err
			}
			for _, n := range toPush {
				if err := tx.PushPatch(n, slices.Contains(merged, n)); err != nil {
					return err
				}
			}
		default:
			return errors.WithStack(stack.ErrHiddenPatch{Name: target})
		}

		res, err := tx.Execute(ctx, "goto")
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

// checkMerged runs the merge detector over names if enabled.
func checkMerged(cmd *cobra.Command, tx *stack.Transaction, names []patchname.Name, enabled bool) ([]patchname.Name, error) {
	if !enabled {
		return nil, nil
	}
	merged, err := tx.CheckMerged(cmd.Context(), names)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Found %d patch(es) merged upstream\n", len(merged))
	return merged, nil
}

func init() {
	gotoCmd.Flags().BoolVarP(
		&gotoFlags.Keep, "keep", "k", false,
		"keep the local changes",
	)
	gotoCmd.Flags().BoolVarP(
		&gotoFlags.Merged, "merged", "m", false,
		"check for patches merged upstream",
	)
}
