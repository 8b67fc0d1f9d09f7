package main

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/config"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/meta"
	"github.com/aviator-co/pstack/internal/meta/jsonfiledb"
	"github.com/aviator-co/pstack/internal/meta/refmeta"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/aviator-co/pstack/internal/stack"
	"github.com/aviator-co/pstack/internal/utils/colors"
	"github.com/aviator-co/pstack/internal/utils/errutils"
	"github.com/sirupsen/logrus"
)

var cachedRepo *git.Repo

func getRepo(ctx context.Context) (*git.Repo, error) {
	if cachedRepo == nil {
		cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel", "--absolute-git-dir")
		if rootFlags.Directory != "" {
			cmd.Dir = rootFlags.Directory
		}
		out, err := cmd.Output()
		if err != nil {
			return nil, errors.Wrap(err, "failed to determine repo toplevel (are you running inside a Git repo?)")
		}
		lines := strings.Split(strings.TrimSpace(string(out)), "\n")
		if len(lines) != 2 {
			return nil, errors.Errorf("unexpected output from git rev-parse: %q", out)
		}
		cachedRepo, err = git.OpenRepo(lines[0], lines[1])
		if err != nil {
			return nil, errors.Wrap(err, "failed to open git repo")
		}
	}
	return cachedRepo, nil
}

// repoConfigDir is where repository-local configuration is read from.
func repoConfigDir(repo *git.Repo) string {
	return filepath.Join(repo.GitDir(), "pstack")
}

func getDB(repo *git.Repo) (meta.DB, error) {
	switch config.Pstack.Storage.Backend {
	case config.BackendFile:
		db, err := jsonfiledb.OpenRepo(repo)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return refmeta.New(repo), nil
	}
}

// loadStack opens the repository and the stack of the current branch.
func loadStack(ctx context.Context, opts stack.LoadOpts) (*git.Repo, meta.DB, *stack.Snapshot, error) {
	repo, err := getRepo(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := getDB(repo)
	if err != nil {
		return nil, nil, nil, err
	}
	snap, err := stack.Load(ctx, repo, db, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	return repo, db, snap, nil
}

// resolvePatch resolves a patch argument. If the input is ambiguous, the
// candidates are printed before the error is returned.
func resolvePatch(snap *stack.Snapshot, input string) (patchname.Name, error) {
	if _, err := patchname.Parse(input); err != nil {
		return "", err
	}
	name, err := stack.Resolve(input, snap)
	if err == nil {
		return name, nil
	}
	var candidates []patchname.Name
	if ambiguous, ok := errutils.As[stack.ErrAmbiguousName](err); ok {
		candidates = ambiguous.Candidates
	} else if ambiguous, ok := errutils.As[stack.ErrAmbiguousCommitPrefix](err); ok {
		candidates = ambiguous.Candidates
	}
	if len(candidates) > 0 {
		fmt.Println("Possible patches:")
		for _, c := range candidates {
			fmt.Printf("  %s\n", colors.UserInput(c))
		}
	}
	return "", err
}

func resolvePatches(snap *stack.Snapshot, inputs []string) ([]patchname.Name, error) {
	names := make([]patchname.Name, 0, len(inputs))
	for _, input := range inputs {
		name, err := resolvePatch(snap, input)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// printResult reports the state of the stack after a transaction.
func printResult(res *stack.Result) {
	logrus.WithFields(logrus.Fields{
		"head":    git.ShortSha(res.Head),
		"written": res.Written,
	}).Debug("stack updated")
	if len(res.Applied) == 0 {
		fmt.Println("No patches applied")
		return
	}
	fmt.Println("Now at patch", colors.UserInput(res.Applied[len(res.Applied)-1]))
}

// reportConflict prints the conflict left by a push and returns the error
// that makes the command exit with status 3.
func reportConflict(res *stack.Result) error {
	c := res.Conflict
	fmt.Printf("%s %s\n", colors.Failure("Merge conflicts in patch"), colors.UserInput(c.Patch))
	for _, p := range c.Paths {
		fmt.Printf("  %s\n", p)
	}
	if len(res.Skipped) > 0 {
		fmt.Println(colors.Faint(fmt.Sprintf("%d later step(s) were not applied", len(res.Skipped))))
	}
	fmt.Println(colors.Troubleshooting(
		"Resolve the conflicts, stage the files with `git add`, then run ",
	) + colors.CliCmd("pstack refresh --index"))
	return ErrExitSilently{ExitCode: 3}
}
