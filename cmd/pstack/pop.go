package main

import (
	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/aviator-co/pstack/internal/stack"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

var popFlags struct {
	All    bool
	Number int
	Keep   bool
}

var popCmd = &cobra.Command{
	Use:   "pop [patch...]",
	Short: "unapply applied patches",
	Long: `Unapply applied patches.

Without arguments the top patch is popped. Named patches may be anywhere in
the stack: the patches above them that were not named are pushed back.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, db, snap, err := loadStack(ctx, stack.LoadOpts{})
		if err != nil {
			return err
		}
		plan, err := planPop(snap, args, popFlags.All, popFlags.Number)
		if err != nil {
			return err
		}

		tx := stack.NewTransaction(repo, db, snap, stack.Options{
			ConflictMode:        stack.ConflictsDisallowed,
			UseIndexAndWorktree: true,
			RequireClean:        !popFlags.Keep,
		})
		if _, err := tx.PopPatches(func(n patchname.Name) bool { return n == plan.from }); err != nil {
			return err
		}
		for _, n := range plan.repush {
			if err := tx.PushPatch(n, false); err != nil {
				return err
			}
		}
		res, err := tx.Execute(ctx, "pop")
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

type popPlan struct {
	// The bottom-most patch to pop. It and every patch above it are popped.
	from patchname.Name
	// Patches that are pushed back afterwards, bottom first.
	repush []patchname.Name
}

func planPop(snap *stack.Snapshot, args []string, all bool, n int) (popPlan, error) {
	if err := checkSelectionFlags(args, all, n); err != nil {
		return popPlan{}, err
	}
	applied := snap.Applied()
	if len(applied) == 0 {
		return popPlan{}, errors.New("no patches applied")
	}
	switch {
	case all:
		return popPlan{from: applied[0]}, nil
	case n > 0:
		return popPlan{from: applied[len(applied)-min(n, len(applied))]}, nil
	case len(args) == 0:
		return popPlan{from: applied[len(applied)-1]}, nil
	}

	names, err := resolvePatches(snap, args)
	if err != nil {
		return popPlan{}, err
	}
	lowest := len(applied)
	for _, name := range names {
		i := slices.Index(applied, name)
		if i < 0 {
			p, _ := snap.Patch(name)
			return popPlan{}, errors.Errorf("patch %q is %s", name, p.Status)
		}
		lowest = min(lowest, i)
	}
	plan := popPlan{from: applied[lowest]}
	for _, a := range applied[lowest:] {
		if !slices.Contains(names, a) {
			plan.repush = append(plan.repush, a)
		}
	}
	return plan, nil
}

func init() {
	popCmd.Flags().BoolVarP(&popFlags.All, "all", "a", false, "pop all applied patches")
	popCmd.Flags().IntVarP(&popFlags.Number, "number", "n", 0, "pop this many patches")
	popCmd.Flags().BoolVarP(&popFlags.Keep, "keep", "k", false, "keep the local changes")
}
