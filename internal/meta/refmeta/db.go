package refmeta

import (
	"context"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/meta"
	"github.com/aviator-co/pstack/internal/utils/errutils"
	"github.com/sirupsen/logrus"
)

const (
	refPrefix = "refs/pstack/"
	stateFile = "stack.json"
)

// DB stores the stack state of each branch in the git repository itself.
// The state of branch lives at refs/pstack/<branch>, which points to a commit
// whose tree contains stack.json. Every write creates a new commit (with the
// previous one as its parent) so the history of a stack is kept in git.
type DB struct {
	repo *git.Repo
}

func New(repo *git.Repo) *DB {
	return &DB{repo}
}

// Ref returns the name of the ref that holds the stack state of branch.
func Ref(branch string) string {
	return refPrefix + branch
}

func (d *DB) ReadTx(ctx context.Context, branch string) (meta.ReadTx, error) {
	return d.read(ctx, branch)
}

// WriteTx opens a write transaction. No lock is taken here: Commit is a
// compare-and-swap of the ref and relies on git's own ref locking.
func (d *DB) WriteTx(ctx context.Context, branch string) (meta.WriteTx, error) {
	rtx, err := d.read(ctx, branch)
	if err != nil {
		return nil, err
	}
	return &writeTx{readTx: *rtx, db: d, branch: branch}, nil
}

func (d *DB) read(ctx context.Context, branch string) (*readTx, error) {
	refs, err := d.repo.GetRefs(ctx, &git.GetRefs{Revisions: []string{Ref(branch)}})
	if err != nil {
		return nil, err
	}
	if refs[0].Missing() {
		return &readTx{}, nil
	}
	if refs[0].Type != git.TypeCommit {
		return nil, meta.ErrCorruptState{Reason: Ref(branch) + " is not a commit"}
	}
	commit := refs[0].Oid

	// Read the blob through the commit we just resolved (not the ref) in case
	// somebody else writes the ref in between.
	blobs, err := d.repo.GetRefs(ctx, &git.GetRefs{Revisions: []string{commit + ":" + stateFile}})
	if err != nil {
		return nil, err
	}
	if blobs[0].Missing() {
		return nil, meta.ErrCorruptState{Reason: Ref(branch) + " has no " + stateFile}
	}
	state, err := meta.Decode(blobs[0].Contents)
	if err != nil {
		return nil, errors.WrapIff(err, "failed to read %s", Ref(branch))
	}
	return &readTx{version: commit, state: state}, nil
}

type readTx struct {
	version string
	state   *meta.State
}

func (tx *readTx) State() (*meta.State, bool) {
	return tx.state, tx.state != nil
}

func (tx *readTx) Version() string {
	return tx.version
}

type writeTx struct {
	readTx
	db       *DB
	branch   string
	next     *meta.State
	finished bool
}

func (tx *writeTx) SetState(state *meta.State) {
	tx.next = state
}

func (tx *writeTx) Abort() {
	tx.finished = true
}

func (tx *writeTx) Commit(ctx context.Context, label string) error {
	return tx.CommitWithRefs(ctx, label)
}

// CommitWithRefs writes the new state commit and moves the state ref together
// with refs in a single update-ref transaction.
func (tx *writeTx) CommitWithRefs(ctx context.Context, label string, refs ...git.UpdateRef) error {
	if tx.finished {
		return errors.New("stack state transaction already finalized")
	}
	tx.finished = true
	if tx.next == nil {
		if len(refs) > 0 {
			return errors.New("no stack state to commit with ref updates")
		}
		return nil
	}
	repo := tx.db.repo
	data, err := tx.next.Encode()
	if err != nil {
		return errors.WrapIff(err, "failed to encode stack state")
	}
	blob, err := repo.HashObject(ctx, data)
	if err != nil {
		return err
	}
	tree, err := repo.MkTree(ctx, []git.TreeEntry{
		{Mode: "100644", Type: git.TypeBlob, Oid: blob, Name: stateFile},
	})
	if err != nil {
		return err
	}
	var parents []string
	old := git.Missing
	if tx.version != "" {
		parents = append(parents, tx.version)
		old = tx.version
	}
	commit, err := repo.CommitTree(ctx, &git.CommitTree{
		Tree:    tree,
		Parents: parents,
		Message: label + "\n",
	})
	if err != nil {
		return err
	}
	ref := Ref(tx.branch)
	updates := make([]git.UpdateRef, 0, len(refs)+1)
	updates = append(updates, git.UpdateRef{
		Ref:     ref,
		New:     commit,
		Old:     old,
		Message: "pstack: " + label,
	})
	updates = append(updates, refs...)
	err = repo.UpdateRefs(ctx, updates)
	if lockErr, ok := errutils.As[git.ErrRefLocked](err); ok {
		if lockErr.Moved() {
			return errors.WithStack(errors.WithMessage(meta.ErrConcurrentUpdate, lockErr.Output))
		}
		return errors.WithStack(errors.WithMessage(meta.ErrLocked, lockErr.Output))
	}
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"ref":    ref,
		"commit": git.ShortSha(commit),
		"label":  label,
	}).Debug("wrote stack state")
	tx.readTx = readTx{version: commit, state: tx.next}
	return nil
}

var (
	_ meta.DB         = &DB{}
	_ meta.RefWriteTx = &writeTx{}
)
