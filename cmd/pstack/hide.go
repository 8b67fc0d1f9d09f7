package main

import (
	"fmt"
	"strings"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/meta"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/aviator-co/pstack/internal/stack"
	"github.com/spf13/cobra"
)

var hideCmd = &cobra.Command{
	Use:   "hide <patch>...",
	Short: "hide unapplied patches from the series",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, db, snap, err := loadStack(ctx, stack.LoadOpts{})
		if err != nil {
			return err
		}
		names, err := resolvePatches(snap, args)
		if err != nil {
			return err
		}
		tx := stack.NewTransaction(repo, db, snap, stack.Options{})
		if err := tx.Hide(names...); err != nil {
			return err
		}
		if _, err := tx.Execute(ctx, "hide: "+joinNames(names)); err != nil {
			return err
		}
		fmt.Println("Hidden:", joinNames(names))
		return nil
	},
}

var unhideCmd = &cobra.Command{
	Use:   "unhide <patch>...",
	Short: "make hidden patches unapplied again",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, db, snap, err := loadStack(ctx, stack.LoadOpts{})
		if err != nil {
			return err
		}
		names, err := hiddenPatches(snap, args)
		if err != nil {
			return err
		}
		tx := stack.NewTransaction(repo, db, snap, stack.Options{})
		if err := tx.Unhide(names...); err != nil {
			return err
		}
		if _, err := tx.Execute(ctx, "unhide: "+joinNames(names)); err != nil {
			return err
		}
		fmt.Println("Unhidden:", joinNames(names))
		return nil
	},
}

// hiddenPatches looks up hidden patches by exact name. Resolve refuses hidden
// patches, so it can't be used here.
func hiddenPatches(snap *stack.Snapshot, args []string) ([]patchname.Name, error) {
	names := make([]patchname.Name, 0, len(args))
	for _, arg := range args {
		name, err := patchname.Parse(arg)
		if err != nil {
			return nil, err
		}
		p, ok := snap.Patch(name)
		if !ok {
			return nil, stack.ErrNotFound{Input: arg}
		}
		if p.Status != meta.StatusHidden {
			return nil, errors.Errorf("patch %q is not hidden", name)
		}
		names = append(names, name)
	}
	return names, nil
}

func joinNames(names []patchname.Name) string {
	s := make([]string, len(names))
	for i, n := range names {
		s[i] = string(n)
	}
	return strings.Join(s, ", ")
}
