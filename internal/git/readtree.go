package git

import (
	"context"
)

type ReadTree struct {
	// The tree(ish) that the index and working tree currently reflect.
	// Ignored if Reset is true.
	From string
	// The tree(ish) to switch the index and working tree to.
	To string
	// If true, discard any local changes (equivalent to `git read-tree --reset -u`).
	// Otherwise, local changes are carried over and the operation fails without
	// touching anything if they would be overwritten.
	Reset bool
}

// ReadTree switches the index and working tree from one tree to another.
func (r *Repo) ReadTree(ctx context.Context, opts *ReadTree) error {
	args := []string{"read-tree", "-u"}
	if opts.Reset {
		args = append(args, "--reset", opts.To)
	} else {
		args = append(args, "-m", opts.From, opts.To)
	}
	_, err := r.Run(ctx, &RunOpts{Args: args, ExitError: true})
	return err
}
