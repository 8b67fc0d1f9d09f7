package git

import (
	"context"
	"strings"

	"emperror.dev/errors"
)

type MergeTree struct {
	// The merge base (a commit).
	Base string
	// The two sides of the merge (commits).
	Ours   string
	Theirs string
}

type MergeTreeResult struct {
	// The resulting tree. If there are conflicts, the tree contains the
	// conflicted files with conflict markers.
	Tree string
	// Paths that could not be merged cleanly.
	Conflicts []string
}

func (r *MergeTreeResult) Clean() bool {
	return len(r.Conflicts) == 0
}

// MergeTree performs a three-way merge without touching the index, the working
// tree, or any refs (equivalent to `git merge-tree --write-tree`). The
// resulting objects are written to the object database but are unreachable
// until something references them.
func (r *Repo) MergeTree(ctx context.Context, opts *MergeTree) (*MergeTreeResult, error) {
	out, err := r.Run(ctx, &RunOpts{
		Args: []string{
			"merge-tree", "--write-tree", "--name-only", "--no-messages",
			"--merge-base=" + opts.Base, opts.Ours, opts.Theirs,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := mergeTreeError(out.ExitCode, string(out.Stderr)); err != nil {
		return nil, err
	}
	lines := out.Lines()
	if len(lines) == 0 {
		return nil, errors.New("git merge-tree produced no output")
	}
	res := &MergeTreeResult{Tree: lines[0]}
	for _, line := range lines[1:] {
		if line != "" {
			res.Conflicts = append(res.Conflicts, line)
		}
	}
	if out.ExitCode == 1 && len(res.Conflicts) == 0 {
		return nil, errors.Errorf("git merge-tree reported conflicts without paths: %s", out.Stderr)
	}
	return res, nil
}

// merge-tree exits 1 if there are conflicts and anything else on failure.
// Older releases reject --merge-base as an unknown option with exit 129.
func mergeTreeError(exitCode int, stderr string) error {
	if exitCode == 0 || exitCode == 1 {
		return nil
	}
	stderr = strings.TrimSpace(stderr)
	if exitCode == 129 || strings.Contains(stderr, "unknown option") {
		return errors.WithStack(ErrUnsupportedGit{
			Feature:  "merge-tree --merge-base",
			Required: MinMergeTreeVersion,
			Output:   firstLine(stderr),
		})
	}
	return errors.Errorf("git merge-tree failed (exit %d): %s", exitCode, stderr)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
