package stack

import (
	"context"
	"fmt"
	"strings"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/sirupsen/logrus"
)

// Intent is a single recorded mutation of a transaction. Intents are replayed
// in order when the transaction is executed.
type Intent interface {
	fmt.Stringer
	replay(ctx context.Context, r *replayer) error
}

// PopIntent pops patches off the top of the stack. Names are in the order they
// are popped (top first).
type PopIntent struct {
	Names []patchname.Name
}

func (i PopIntent) String() string {
	return "pop " + joinNames(i.Names)
}

func (i PopIntent) replay(_ context.Context, r *replayer) error {
	if !r.pop(i.Names) {
		return errors.Errorf("cannot pop %s: not at the top of the stack", joinNames(i.Names))
	}
	r.updateHead()
	return nil
}

// PushIntent applies an unapplied patch on top of the stack.
type PushIntent struct {
	Name patchname.Name
	// If true, the patch's changes are already contained in the head and an
	// empty commit is created for it.
	AlreadyMerged bool
}

func (i PushIntent) String() string {
	if i.AlreadyMerged {
		return fmt.Sprintf("push %s (merged)", i.Name)
	}
	return "push " + string(i.Name)
}

func (i PushIntent) replay(ctx context.Context, r *replayer) error {
	if !r.push(i.Name) {
		return errors.Errorf("cannot push %q: patch is not unapplied", i.Name)
	}
	patch, err := r.repo.Commit(ctx, r.commits[i.Name])
	if err != nil {
		return err
	}
	log := r.log.WithField("patch", i.Name)

	if i.AlreadyMerged {
		headTree, err := r.tree(ctx, r.head)
		if err != nil {
			return err
		}
		log.Debug("patch is already merged: creating an empty commit")
		return r.commit(ctx, i.Name, patch, headTree)
	}

	if patch.Parent() == r.head {
		log.Debug("fast-forwarding patch")
		r.head = patch.Hash
		return nil
	}

	merge, err := r.repo.MergeTree(ctx, &git.MergeTree{
		Base:   patch.Parent(),
		Ours:   r.head,
		Theirs: patch.Hash,
	})
	if err != nil {
		return err
	}
	if merge.Clean() {
		log.WithField("tree", git.ShortSha(merge.Tree)).Debug("patch merged cleanly")
		return r.commit(ctx, i.Name, patch, merge.Tree)
	}

	if r.opts.ConflictMode == ConflictsDisallowed {
		return ErrMergeConflict{Patch: i.Name, Paths: merge.Conflicts}
	}
	log.WithField("paths", merge.Conflicts).Debug("patch conflicts: recording a provisional commit")
	headTree, err := r.tree(ctx, r.head)
	if err != nil {
		return err
	}
	if err := r.commit(ctx, i.Name, patch, headTree); err != nil {
		return err
	}
	r.conflict = &Conflict{Patch: i.Name, Commit: patch.Hash, Paths: merge.Conflicts}
	return nil
}

// NewIntent adds a new patch at the top of the stack. The patch's commit must
// be a child of the current head.
type NewIntent struct {
	Name   patchname.Name
	Commit string
}

func (i NewIntent) String() string {
	return fmt.Sprintf("new %s (%s)", i.Name, git.ShortSha(i.Commit))
}

func (i NewIntent) replay(ctx context.Context, r *replayer) error {
	if r.has(i.Name) {
		return errors.Errorf("patch %q already exists", i.Name)
	}
	c, err := r.repo.Commit(ctx, i.Commit)
	if err != nil {
		return err
	}
	if c.Parent() != r.head {
		return errors.Errorf(
			"cannot add patch %q: commit %s is not a child of the head %s",
			i.Name, git.ShortSha(c.Hash), git.ShortSha(r.head),
		)
	}
	r.applied = append(r.applied, i.Name)
	r.commits[i.Name] = c.Hash
	r.head = c.Hash
	return nil
}

// RefreshIntent replaces the tree of the top patch.
type RefreshIntent struct {
	Name patchname.Name
	Tree string
}

func (i RefreshIntent) String() string {
	return fmt.Sprintf("refresh %s (%s)", i.Name, git.ShortSha(i.Tree))
}

func (i RefreshIntent) replay(ctx context.Context, r *replayer) error {
	if top, ok := r.top(); !ok || top != i.Name {
		return errors.Errorf("cannot refresh %q: not the top patch", i.Name)
	}
	patch, err := r.repo.Commit(ctx, r.commits[i.Name])
	if err != nil {
		return err
	}
	r.head = patch.Parent()
	return r.commit(ctx, i.Name, patch, i.Tree)
}

type HideIntent struct {
	Names []patchname.Name
}

func (i HideIntent) String() string {
	return "hide " + joinNames(i.Names)
}

func (i HideIntent) replay(_ context.Context, r *replayer) error {
	for _, n := range i.Names {
		if !r.hide(n) {
			return errors.Errorf("cannot hide %q: patch is not unapplied", n)
		}
	}
	return nil
}

type UnhideIntent struct {
	Names []patchname.Name
}

func (i UnhideIntent) String() string {
	return "unhide " + joinNames(i.Names)
}

func (i UnhideIntent) replay(_ context.Context, r *replayer) error {
	for _, n := range i.Names {
		if !r.unhide(n) {
			return errors.Errorf("cannot unhide %q: patch is not hidden", n)
		}
	}
	return nil
}

// Conflict describes a push that could not be merged cleanly and was left for
// the user to resolve.
type Conflict struct {
	Patch patchname.Name
	// The original commit of the patch.
	Commit string
	Paths  []string
}

func (c *Conflict) String() string {
	return fmt.Sprintf("%s conflicts in %s", c.Patch, strings.Join(c.Paths, ", "))
}

// replayer holds the state of a transaction while its intents are replayed.
type replayer struct {
	lists
	repo    Repository
	opts    Options
	log     logrus.FieldLogger
	base    string
	head    string
	commits map[patchname.Name]string
	// The number of new commits written.
	written  int
	conflict *Conflict
	trees    map[string]string
}

func (r *replayer) updateHead() {
	if top, ok := r.top(); ok {
		r.head = r.commits[top]
	} else {
		r.head = r.base
	}
}

// tree returns the tree of a commit.
func (r *replayer) tree(ctx context.Context, commit string) (string, error) {
	if t, ok := r.trees[commit]; ok {
		return t, nil
	}
	c, err := r.repo.Commit(ctx, commit)
	if err != nil {
		return "", err
	}
	r.trees[commit] = c.Tree
	return c.Tree, nil
}

// commit writes a new commit for the patch with the given tree on top of the
// head, keeping the patch's message and author.
func (r *replayer) commit(ctx context.Context, name patchname.Name, patch *git.Commit, tree string) error {
	author := patch.Author
	oid, err := r.repo.CommitTree(ctx, &git.CommitTree{
		Tree:    tree,
		Parents: []string{r.head},
		Message: patch.Message,
		Author:  &author,
	})
	if err != nil {
		return errors.WrapIff(err, "failed to write commit for patch %q", name)
	}
	r.written++
	r.trees[oid] = tree
	r.commits[name] = oid
	r.head = oid
	return nil
}
