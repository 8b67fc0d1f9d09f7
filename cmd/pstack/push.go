package main

import (
	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/aviator-co/pstack/internal/stack"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

var pushFlags struct {
	All    bool
	Number int
	Merged bool
	Keep   bool
}

var pushCmd = &cobra.Command{
	Use:   "push [patch...]",
	Short: "apply unapplied patches",
	Long: `Apply unapplied patches on top of the stack.

Without arguments the next unapplied patch is pushed. If a patch doesn't apply
cleanly, it is left applied with the conflicts in the working tree and no
further patches are pushed. The command then exits with status 3.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, db, snap, err := loadStack(ctx, stack.LoadOpts{})
		if err != nil {
			return err
		}
		names, err := patchesToPush(snap, args, pushFlags.All, pushFlags.Number)
		if err != nil {
			return err
		}

		tx := stack.NewTransaction(repo, db, snap, stack.Options{
			ConflictMode:        stack.ConflictsAllowed,
			UseIndexAndWorktree: true,
			RequireClean:        !pushFlags.Keep,
		})
		merged, err := checkMerged(cmd, tx, names, pushFlags.Merged)
		if err != nil {
			return err
		}
		for _, n := range names {
			if err := tx.PushPatch(n, slices.Contains(merged, n)); err != nil {
				return err
			}
		}
		res, err := tx.Execute(ctx, "push")
		if err != nil {
			return err
		}
		if res.Conflict != nil {
			return reportConflict(res)
		}
		printResult(res)
		return nil
	},
}

func patchesToPush(snap *stack.Snapshot, args []string, all bool, n int) ([]patchname.Name, error) {
	if err := checkSelectionFlags(args, all, n); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		return resolvePatches(snap, args)
	}
	unapplied := snap.Unapplied()
	if len(unapplied) == 0 {
		return nil, errors.New("no patches to push")
	}
	switch {
	case all:
		return unapplied, nil
	case n > 0:
		return unapplied[:min(n, len(unapplied))], nil
	default:
		return unapplied[:1], nil
	}
}

func checkSelectionFlags(args []string, all bool, n int) error {
	if n < 0 {
		return errors.Errorf("invalid number of patches: %d", n)
	}
	if all && n > 0 {
		return errors.New("--all and --number are mutually exclusive")
	}
	if len(args) > 0 && (all || n > 0) {
		return errors.New("patch names cannot be combined with --all or --number")
	}
	return nil
}

func init() {
	pushCmd.Flags().BoolVarP(&pushFlags.All, "all", "a", false, "push all unapplied patches")
	pushCmd.Flags().IntVarP(&pushFlags.Number, "number", "n", 0, "push this many patches")
	pushCmd.Flags().BoolVar(&pushFlags.Merged, "merged", false, "check for patches merged upstream")
	pushCmd.Flags().BoolVarP(&pushFlags.Keep, "keep", "k", false, "keep the local changes")
}
