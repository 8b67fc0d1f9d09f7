package git

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"emperror.dev/errors"
	gogit "github.com/go-git/go-git/v5"
	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"
)

type Repo struct {
	repoDir string
	gitDir  string
	log     logrus.FieldLogger
	gogit   *gogit.Repository
}

// OpenRepo opens the repository whose working tree is repoDir and whose git
// directory is gitDir (usually repoDir/.git, but not for linked worktrees).
func OpenRepo(repoDir string, gitDir string) (*Repo, error) {
	gr, err := gogit.PlainOpenWithOptions(repoDir, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, errors.WrapIff(err, "failed to open git repository at %q", repoDir)
	}
	r := &Repo{
		repoDir,
		gitDir,
		logrus.WithFields(logrus.Fields{"repo": filepath.Base(repoDir)}),
		gr,
	}
	return r, nil
}

func (r *Repo) Dir() string {
	return r.repoDir
}

func (r *Repo) GitDir() string {
	return r.gitDir
}

func (r *Repo) Git(ctx context.Context, args ...string) (string, error) {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.repoDir
	out, err := cmd.Output()
	log := r.log.WithField("duration", time.Since(startTime))
	if err != nil {
		stderr := "<no output>"
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			stderr = string(exitError.Stderr)
		}
		log.Debugf("git %s failed: %s: %s", shellquote.Join(args...), err, stderr)
		return strings.TrimSpace(string(out)), errors.Wrapf(err, "git %s", args[0])
	}

	// trim trailing newline
	log.Debugf("git %s", shellquote.Join(args...))
	return strings.TrimSpace(string(out)), nil
}

type RunOpts struct {
	Args []string
	Env  []string
	// If set, the contents are written to the command's standard input.
	Stdin io.Reader
	// If true, return a non-nil error if the command exited with a non-zero
	// exit code.
	ExitError bool
}

type Output struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

func (o Output) Lines() []string {
	s := strings.TrimSpace(string(o.Stdout))
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func (r *Repo) Run(ctx context.Context, opts *RunOpts) (*Output, error) {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, "git", opts.Args...)
	cmd.Dir = r.repoDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Stdin = opts.Stdin
	cmd.Env = append(os.Environ(), opts.Env...)
	err := cmd.Run()
	r.log.WithField("duration", time.Since(startTime)).Debugf("git %s", shellquote.Join(opts.Args...))
	var exitError *exec.ExitError
	if err != nil && !errors.As(err, &exitError) {
		return nil, errors.Wrapf(err, "git %s", opts.Args)
	}
	if err != nil && opts.ExitError && exitError.ExitCode() != 0 {
		return nil, errors.Errorf("git %s: %s: %s", opts.Args, err, strings.TrimSpace(stderr.String()))
	}
	return &Output{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}, nil
}

// CurrentBranchName returns the name of the current branch.
// The name is return in "short" format -- i.e., without the "refs/heads/" prefix.
// IMPORTANT: This function will return an error if the repository is currently
// in a detached-head state (e.g., during a rebase conflict).
func (r *Repo) CurrentBranchName(ctx context.Context) (string, error) {
	branch, err := r.Git(ctx, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", errors.Wrap(err, "failed to determine current branch (are you in detached HEAD or is a rebase in progress?)")
	}
	return branch, nil
}

type RevParse struct {
	// The revision to parse.
	Rev string
	// If true, only succeed if Rev names an existing object.
	Verify bool
}

func (r *Repo) RevParse(ctx context.Context, rp *RevParse) (string, error) {
	args := []string{"rev-parse"}
	if rp.Verify {
		args = append(args, "--verify", "--quiet")
	}
	args = append(args, rp.Rev)
	return r.Git(ctx, args...)
}

type UpdateRef struct {
	// The name of the ref (e.g., refs/heads/my-branch).
	Ref string
	// The Git object ID to set the ref to.
	New string
	// Only update the ref if the current value (before the update) is equal to
	// this object ID. Use Missing to only create the ref if it didn't
	// already exists (e.g., to avoid overwriting a branch).
	Old string
	// The reflog message.
	Message string
}

// UpdateRef updates the specified ref within the Git repository.
// If Old is set and the ref has moved, or the ref is locked by another
// process, an ErrRefLocked is returned.
func (r *Repo) UpdateRef(ctx context.Context, update *UpdateRef) error {
	args := []string{"update-ref"}
	if update.Message != "" {
		args = append(args, "-m", update.Message)
	}
	args = append(args, update.Ref, update.New)
	if update.Old != "" {
		args = append(args, update.Old)
	}
	out, err := r.Run(ctx, &RunOpts{Args: args})
	if err != nil {
		return err
	}
	if out.ExitCode != 0 {
		stderr := strings.TrimSpace(string(out.Stderr))
		if strings.Contains(stderr, "cannot lock ref") {
			return ErrRefLocked{Ref: update.Ref, Output: stderr}
		}
		return errors.Errorf("failed to write ref %q (%s): %s", update.Ref, ShortSha(update.New), stderr)
	}
	return nil
}

// UpdateRefs updates several refs in a single `git update-ref --stdin`
// transaction. Either every ref is updated or none is. The reflog message of
// the first update is used for all of them.
func (r *Repo) UpdateRefs(ctx context.Context, updates []UpdateRef) error {
	if len(updates) == 0 {
		return nil
	}
	var sb strings.Builder
	for _, u := range updates {
		sb.WriteString("update " + u.Ref + " " + u.New)
		if u.Old != "" {
			sb.WriteString(" " + u.Old)
		}
		sb.WriteString("\n")
	}
	args := []string{"update-ref"}
	if updates[0].Message != "" {
		args = append(args, "-m", updates[0].Message)
	}
	args = append(args, "--stdin")
	out, err := r.Run(ctx, &RunOpts{Args: args, Stdin: strings.NewReader(sb.String())})
	if err != nil {
		return err
	}
	if out.ExitCode != 0 {
		stderr := strings.TrimSpace(string(out.Stderr))
		if ref, ok := lockedRef(stderr); ok {
			return ErrRefLocked{Ref: ref, Output: stderr}
		}
		return errors.Errorf("failed to update %d refs: %s", len(updates), stderr)
	}
	return nil
}

// lockedRef extracts the ref name from git's "cannot lock ref '<ref>'" error.
func lockedRef(stderr string) (string, bool) {
	const marker = "cannot lock ref '"
	_, rest, ok := strings.Cut(stderr, marker)
	if !ok {
		return "", false
	}
	ref, _, _ := strings.Cut(rest, "'")
	return ref, true
}
