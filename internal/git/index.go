package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
)

// WriteTree writes the current index as a tree object and returns its id.
func (r *Repo) WriteTree(ctx context.Context) (string, error) {
	return r.Git(ctx, "write-tree")
}

type WorktreeTree struct {
	// The tree(ish) to start from (usually HEAD).
	Base string
	// If non-empty, only changes to these paths are included.
	Paths []string
	// Paths to leave out (e.g., submodules).
	Exclude []string
}

// WorktreeTree builds a tree from Base plus the changes to tracked files in the
// working tree. The real index is not modified; a temporary index file is used
// instead.
func (r *Repo) WorktreeTree(ctx context.Context, opts *WorktreeTree) (string, error) {
	tmp, err := os.CreateTemp(r.gitDir, "pstack-index-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temporary index")
	}
	indexFile, err := filepath.Abs(tmp.Name())
	if err != nil {
		return "", err
	}
	// git refuses to read an empty file as an index, so let it create one.
	_ = tmp.Close()
	_ = os.Remove(indexFile)
	defer func() { _ = os.Remove(indexFile) }()
	env := []string{"GIT_INDEX_FILE=" + indexFile}

	if _, err := r.Run(ctx, &RunOpts{
		Args:      []string{"read-tree", opts.Base},
		Env:       env,
		ExitError: true,
	}); err != nil {
		return "", err
	}

	pathspecs := opts.Paths
	if len(pathspecs) == 0 {
		pathspecs = []string{":/"}
	}
	for _, p := range opts.Exclude {
		pathspecs = append(pathspecs, ":(exclude,top)"+p)
	}
	if _, err := r.Run(ctx, &RunOpts{
		Args:      append([]string{"add", "--update", "--"}, pathspecs...),
		Env:       env,
		ExitError: true,
	}); err != nil {
		return "", err
	}

	out, err := r.Run(ctx, &RunOpts{
		Args:      []string{"write-tree"},
		Env:       env,
		ExitError: true,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out.Stdout)), nil
}

// ResetIndex resets the index entries for the given paths (or every path, if
// none are given) to their state in HEAD. The working tree is not modified.
func (r *Repo) ResetIndex(ctx context.Context, paths ...string) error {
	args := []string{"reset", "--quiet"}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	_, err := r.Run(ctx, &RunOpts{Args: args, ExitError: true})
	return err
}
