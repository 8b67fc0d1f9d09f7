package meta

import (
	"context"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/git"
)

// ErrLocked is returned when the stack state of a branch is locked by another
// process. It is never retried.
const ErrLocked = errors.Sentinel("stack state is locked by another process")

// ErrConcurrentUpdate is returned when the stack state changed between the
// time it was read and the time it was written.
const ErrConcurrentUpdate = errors.Sentinel("stack state was modified concurrently (try again)")

// DB stores the stack state of every branch in a repository.
type DB interface {
	// ReadTx returns a consistent view of the stack state of branch.
	ReadTx(ctx context.Context, branch string) (ReadTx, error)
	// WriteTx opens a transaction that can replace the stack state of branch.
	// If the state is locked by another process, ErrLocked is returned.
	WriteTx(ctx context.Context, branch string) (WriteTx, error)
}

// ReadTx is a transaction that can be used to read from the database.
// It presents a consistent view of the underlying database.
type ReadTx interface {
	// State returns the stack state. If the branch has no stack, the second
	// return value is false.
	State() (*State, bool)
	// Version identifies the state that was read. It changes every time the
	// state is written and is empty if the branch has no stack.
	Version() string
}

// WriteTx is a transaction that can be used to modify the database.
// The transaction MUST be finalized by calling either Abort or Commit.
type WriteTx interface {
	ReadTx
	// SetState replaces the stack state.
	SetState(state *State)
	// Abort finalizes the transaction without committing any changes.
	// Abort can be called even after the transaction has been finalized (which
	// is effectively a no-op).
	Abort()
	// Commit finalizes the transaction and commits all changes. The label
	// describes the change and is kept in the database history where the
	// backend supports it.
	// If the state was modified since the transaction was opened,
	// ErrConcurrentUpdate is returned and nothing is written.
	Commit(ctx context.Context, label string) error
}

// RefWriteTx is implemented by backends that keep the stack state in a git
// ref. CommitWithRefs commits the state and applies the given ref updates in
// one atomic ref transaction: either all of them are written or none is.
type RefWriteTx interface {
	WriteTx
	CommitWithRefs(ctx context.Context, label string, refs ...git.UpdateRef) error
}
