package stack

import (
	"fmt"
	"strings"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/meta"
	"github.com/aviator-co/pstack/internal/patchname"
)

const (
	ErrNotInitialized    = errors.Sentinel("no stack is initialized for this branch (run `pstack init`)")
	ErrDirtyIndex        = errors.Sentinel("the index has staged changes")
	ErrDirtyWorktree     = errors.Sentinel("the working tree has local changes")
	ErrTransactionClosed = errors.Sentinel("the transaction has already been executed")
	ErrPendingPush       = errors.Sentinel("merged patches must be checked before any patch is pushed")
)

// ErrCorruptState is returned when the persisted stack state violates one of
// the stack invariants.
type ErrCorruptState = meta.ErrCorruptState

type ErrNotFound struct {
	Input string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("patch %q does not exist", e.Input)
}

// ErrAmbiguousName is returned when the input is not a patch name but is
// similar to one or more of them.
type ErrAmbiguousName struct {
	Input      string
	Candidates []patchname.Name
}

func (e ErrAmbiguousName) Error() string {
	return fmt.Sprintf("patch %q does not exist (did you mean %s?)", e.Input, joinNames(e.Candidates))
}

type ErrAmbiguousCommitPrefix struct {
	Input      string
	Candidates []patchname.Name
}

func (e ErrAmbiguousCommitPrefix) Error() string {
	return fmt.Sprintf("commit prefix %q matches multiple patches: %s", e.Input, joinNames(e.Candidates))
}

type ErrHiddenPatch struct {
	Name patchname.Name
}

func (e ErrHiddenPatch) Error() string {
	return fmt.Sprintf("patch %q is hidden (use `pstack unhide` first)", e.Name)
}

// ErrRepositoryState is returned when the repository is in a state that
// doesn't allow the stack to be modified (e.g., a rebase is in progress).
type ErrRepositoryState struct {
	Operation git.Operation
	Reason    string
}

func (e ErrRepositoryState) Error() string {
	if e.Operation != git.OperationNone {
		return fmt.Sprintf("a %s is in progress (finish or abort it first)", e.Operation)
	}
	return e.Reason
}

// ErrHeadMismatch is returned when the branch head isn't the commit of the top
// applied patch, which happens when commits are made on the branch behind the
// stack's back.
type ErrHeadMismatch struct {
	Branch   string
	Head     string
	Expected string
}

func (e ErrHeadMismatch) Error() string {
	return fmt.Sprintf(
		"branch %q is at %s but the stack expects %s (was it modified outside of pstack?)",
		e.Branch, git.ShortSha(e.Head), git.ShortSha(e.Expected),
	)
}

type ErrMergeConflict struct {
	Patch patchname.Name
	Paths []string
}

func (e ErrMergeConflict) Error() string {
	return fmt.Sprintf("pushing patch %q conflicts in: %s", e.Patch, strings.Join(e.Paths, ", "))
}

// ErrTransactionFailed is returned when a transaction fails after it started
// writing to the repository. The persisted stack state and the branch are left
// unchanged; Written commits remain in the object database but nothing refers
// to them.
type ErrTransactionFailed struct {
	Label string
	// The step that failed.
	Step string
	// The number of new commits written before the failure.
	Written int
	// The patches that had been applied when the failure happened.
	Applied []patchname.Name
	Err     error
}

func (e ErrTransactionFailed) Error() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "%s: %s failed: %v", e.Label, e.Step, e.Err)
	if e.Written > 0 {
		_, _ = fmt.Fprintf(&sb, " (%d patch(es) written as new commits and applied: %s; the stack was left unchanged)",
			e.Written, joinNames(e.Applied))
	}
	return sb.String()
}

func (e ErrTransactionFailed) Unwrap() error {
	return e.Err
}

func joinNames(names []patchname.Name) string {
	s := make([]string, len(names))
	for i, n := range names {
		s[i] = string(n)
	}
	return strings.Join(s, ", ")
}
