package stack

import (
	"context"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/meta"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/aviator-co/pstack/internal/utils/cleanup"
	"github.com/aviator-co/pstack/internal/utils/errutils"
	"github.com/aviator-co/pstack/internal/utils/stringutils"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

type ConflictMode int

const (
	// ConflictsDisallowed aborts the transaction if a push conflicts.
	ConflictsDisallowed ConflictMode = iota
	// ConflictsAllowed leaves a conflicting push applied with the conflict
	// markers in the working tree and stops the transaction there.
	ConflictsAllowed
)

type Options struct {
	ConflictMode ConflictMode
	// Discard local changes to the index and working tree.
	DiscardChanges bool
	// Update the index and working tree to match the new head. If false, only
	// the branch and the stack state are updated.
	UseIndexAndWorktree bool
	// Require the index and working tree to be clean before executing.
	// Ignored unless UseIndexAndWorktree is set, or if DiscardChanges is set.
	RequireClean bool
}

type txState int

const (
	txOpen txState = iota
	txExecuting
	txCommitted
	txAborted
)

// Transaction records a sequence of changes to a stack and applies them
// atomically with Execute.
//
// Recording an intent only validates it against the projected state of the
// stack; nothing is written until Execute is called.
type Transaction struct {
	repo    Repository
	db      meta.DB
	snap    *Snapshot
	opts    Options
	state   txState
	intents []Intent
	// The projected state of the stack after all recorded intents.
	proj    lists
	commits map[patchname.Name]string
	pushed  bool
}

func NewTransaction(repo Repository, db meta.DB, snap *Snapshot, opts Options) *Transaction {
	return &Transaction{
		repo:    repo,
		db:      db,
		snap:    snap,
		opts:    opts,
		proj:    newLists(snap),
		commits: snap.Commits(),
	}
}

// Intents returns the intents recorded so far.
func (tx *Transaction) Intents() []Intent {
	return slices.Clone(tx.intents)
}

// Applied returns the projected applied patches.
func (tx *Transaction) Applied() []patchname.Name {
	return slices.Clone(tx.proj.applied)
}

// Unapplied returns the projected unapplied patches.
func (tx *Transaction) Unapplied() []patchname.Name {
	return slices.Clone(tx.proj.unapplied)
}

func (tx *Transaction) record(intent Intent) {
	logrus.WithField("intent", intent.String()).Debug("recorded intent")
	tx.intents = append(tx.intents, intent)
}

// PopPatches pops the first applied patch that matches pred and every patch
// above it. The popped patches go to the front of the unapplied patches in
// their original order. The popped names are returned in the order they are
// popped (top first).
func (tx *Transaction) PopPatches(pred func(patchname.Name) bool) ([]patchname.Name, error) {
	if tx.state != txOpen {
		return nil, errors.WithStack(ErrTransactionClosed)
	}
	i := slices.IndexFunc(tx.proj.applied, pred)
	if i < 0 {
		return nil, nil
	}
	suffix := tx.proj.applied[i:]
	popped := make([]patchname.Name, 0, len(suffix))
	for j := len(suffix) - 1; j >= 0; j-- {
		popped = append(popped, suffix[j])
	}
	tx.proj.pop(popped)
	tx.record(PopIntent{Names: popped})
	return popped, nil
}

// PushPatch pushes an unapplied patch. If alreadyMerged is true, the patch's
// changes are assumed to be present in the head (see CheckMerged).
func (tx *Transaction) PushPatch(name patchname.Name, alreadyMerged bool) error {
	if tx.state != txOpen {
		return errors.WithStack(ErrTransactionClosed)
	}
	if err := tx.checkStatus(name, meta.StatusUnapplied); err != nil {
		return err
	}
	tx.proj.push(name)
	tx.pushed = true
	tx.record(PushIntent{Name: name, AlreadyMerged: alreadyMerged})
	return nil
}

// NewApplied adds a new patch on top of the stack. The parent of commit must
// be the head of the stack at this point of the transaction.
func (tx *Transaction) NewApplied(name patchname.Name, commit string) error {
	if tx.state != txOpen {
		return errors.WithStack(ErrTransactionClosed)
	}
	if tx.proj.has(name) {
		return errors.Errorf("patch %q already exists", name)
	}
	tx.proj.applied = append(tx.proj.applied, name)
	tx.commits[name] = commit
	tx.record(NewIntent{Name: name, Commit: commit})
	return nil
}

// Refresh replaces the contents of the top patch with tree.
func (tx *Transaction) Refresh(tree string) (patchname.Name, error) {
	if tx.state != txOpen {
		return "", errors.WithStack(ErrTransactionClosed)
	}
	top, ok := tx.proj.top()
	if !ok {
		return "", errors.New("no patch is applied")
	}
	tx.record(RefreshIntent{Name: top, Tree: tree})
	return top, nil
}

// Hide hides unapplied patches.
func (tx *Transaction) Hide(names ...patchname.Name) error {
	if tx.state != txOpen {
		return errors.WithStack(ErrTransactionClosed)
	}
	for _, n := range names {
		if err := tx.checkStatus(n, meta.StatusUnapplied); err != nil {
			return err
		}
	}
	for _, n := range names {
		tx.proj.hide(n)
	}
	tx.record(HideIntent{Names: names})
	return nil
}

// Unhide makes hidden patches unapplied again.
func (tx *Transaction) Unhide(names ...patchname.Name) error {
	if tx.state != txOpen {
		return errors.WithStack(ErrTransactionClosed)
	}
	for _, n := range names {
		if err := tx.checkStatus(n, meta.StatusHidden); err != nil {
			return err
		}
	}
	for _, n := range names {
		tx.proj.unhide(n)
	}
	tx.record(UnhideIntent{Names: names})
	return nil
}

func (tx *Transaction) checkStatus(name patchname.Name, want meta.Status) error {
	var got meta.Status
	switch {
	case slices.Contains(tx.proj.applied, name):
		got = meta.StatusApplied
	case slices.Contains(tx.proj.unapplied, name):
		got = meta.StatusUnapplied
	case slices.Contains(tx.proj.hidden, name):
		got = meta.StatusHidden
	default:
		return ErrNotFound{string(name)}
	}
	if got == want {
		return nil
	}
	if got == meta.StatusHidden {
		return ErrHiddenPatch{name}
	}
	return errors.Errorf("patch %q is %s", name, got)
}

// Result describes the outcome of an executed transaction.
type Result struct {
	Applied   []patchname.Name
	Unapplied []patchname.Name
	Hidden    []patchname.Name
	// The new head of the branch.
	Head string
	// The number of new commits written.
	Written int
	// Set if a push conflicted and was left for the user to resolve.
	Conflict *Conflict
	// Intents that were not replayed because of the conflict.
	Skipped []Intent
}

// Execute applies the recorded intents. label describes the transaction in
// the branch reflog and the stack state history.
//
// Nothing is modified unless every intent replays successfully (or a push
// conflicts and conflicts are allowed). In that case the index and working
// tree, the branch and the stack state are updated in that order; if any of
// these fails, the previous ones are undone.
func (tx *Transaction) Execute(ctx context.Context, label string) (*Result, error) {
	if tx.state != txOpen {
		return nil, errors.WithStack(ErrTransactionClosed)
	}
	tx.state = txExecuting
	res, err := tx.execute(ctx, label)
	if err != nil {
		tx.state = txAborted
		return nil, err
	}
	tx.state = txCommitted
	return res, nil
}

func (tx *Transaction) execute(ctx context.Context, label string) (*Result, error) {
	log := logrus.WithFields(logrus.Fields{"label": label, "branch": tx.snap.Branch})

	if err := tx.preflight(ctx); err != nil {
		return nil, err
	}

	wtx, err := tx.db.WriteTx(ctx, tx.snap.Branch)
	if err != nil {
		return nil, err
	}
	defer wtx.Abort()
	if wtx.Version() != tx.snap.Version {
		return nil, errors.WithStack(meta.ErrConcurrentUpdate)
	}

	r := &replayer{
		lists:   newLists(tx.snap),
		repo:    tx.repo,
		opts:    tx.opts,
		log:     log,
		base:    tx.snap.Base,
		head:    tx.snap.TopCommit(),
		commits: tx.snap.Commits(),
		trees:   make(map[string]string),
	}
	var pushed []patchname.Name
	var skipped []Intent
	for i, intent := range tx.intents {
		log.WithField("intent", intent.String()).Debug("replaying intent")
		if err := intent.replay(ctx, r); err != nil {
			return nil, ErrTransactionFailed{
				Label:   label,
				Step:    intent.String(),
				Written: r.written,
				Applied: pushed,
				Err:     err,
			}
		}
		if push, ok := intent.(PushIntent); ok {
			pushed = append(pushed, push.Name)
		}
		if r.conflict != nil {
			skipped = slices.Clone(tx.intents[i+1:])
			if len(skipped) > 0 {
				log.WithField("skipped", len(skipped)).Debug("stopping after conflict")
			}
			break
		}
	}

	state, err := meta.NewState(r.head, r.applied, r.unapplied, r.hidden, liveCommits(r))
	if err != nil {
		return nil, err
	}
	fail := func(step string, err error) error {
		return ErrTransactionFailed{
			Label:   label,
			Step:    step,
			Written: r.written,
			Applied: pushed,
			Err:     err,
		}
	}

	oldHead := tx.snap.TopCommit()
	cu := cleanup.New()
	defer cu.Cleanup()
	undoCtx := context.WithoutCancel(ctx)

	if r.head != oldHead && tx.opts.UseIndexAndWorktree {
		err := tx.repo.ReadTree(ctx, &git.ReadTree{
			From:  oldHead,
			To:    r.head,
			Reset: tx.opts.DiscardChanges,
		})
		if err != nil {
			return nil, fail("checkout", err)
		}
		newHead := r.head
		cu.Add(func() {
			err := tx.repo.ReadTree(undoCtx, &git.ReadTree{From: newHead, To: oldHead})
			if err != nil {
				log.WithError(err).Error("failed to restore the working tree")
			}
		})
	}

	ref := BranchRef(tx.snap.Branch)
	var branchUpdates []git.UpdateRef
	if r.head != oldHead {
		branchUpdates = append(branchUpdates, git.UpdateRef{
			Ref:     ref,
			New:     r.head,
			Old:     oldHead,
			Message: "pstack: " + label,
		})
	}

	wtx.SetState(state)
	if rwtx, ok := wtx.(meta.RefWriteTx); ok {
		// The branch and the state move together.
		if err := rwtx.CommitWithRefs(ctx, label, branchUpdates...); err != nil {
			return nil, fail("write stack state", err)
		}
	} else {
		for _, update := range branchUpdates {
			if err := tx.repo.UpdateRef(ctx, &update); err != nil {
				return nil, fail("update "+ref, refLockError(err))
			}
			cu.Add(func() {
				err := tx.repo.UpdateRef(undoCtx, &git.UpdateRef{
					Ref:     update.Ref,
					New:     update.Old,
					Old:     update.New,
					Message: "pstack: undo " + label,
				})
				if err != nil {
					log.WithError(err).Errorf("failed to restore %s to %s", update.Ref, git.ShortSha(update.Old))
				}
			})
		}
		if err := wtx.Commit(ctx, label); err != nil {
			return nil, fail("write stack state", err)
		}
	}
	cu.Cancel()
	log.WithFields(logrus.Fields{
		"head":    git.ShortSha(r.head),
		"written": r.written,
	}).Debug("transaction committed")

	res := &Result{
		Applied:   slices.Clone(r.applied),
		Unapplied: slices.Clone(r.unapplied),
		Hidden:    slices.Clone(r.hidden),
		Head:      r.head,
		Written:   r.written,
		Conflict:  r.conflict,
		Skipped:   skipped,
	}
	if r.conflict != nil && tx.opts.UseIndexAndWorktree {
		tx.applyConflict(ctx, log, r.conflict)
	}
	return res, nil
}

func (tx *Transaction) preflight(ctx context.Context) error {
	if !tx.opts.UseIndexAndWorktree {
		return nil
	}
	if err := CheckRepositoryState(ctx, tx.repo); err != nil {
		return err
	}
	current, err := tx.repo.CurrentBranchName(ctx)
	if err != nil {
		return err
	}
	if current != tx.snap.Branch {
		return ErrRepositoryState{
			Reason: "branch " + tx.snap.Branch + " is not checked out (current branch is " + current + ")",
		}
	}
	st, err := tx.repo.Status(ctx)
	if err != nil {
		return err
	}
	if len(st.UnmergedFiles) > 0 {
		return ErrRepositoryState{Reason: "the index has unmerged paths (resolve the conflicts first)"}
	}
	if !tx.opts.RequireClean || tx.opts.DiscardChanges {
		return nil
	}
	if err := checkIndexClean(st); err != nil {
		return err
	}
	return checkWorktreeClean(st)
}

// applyConflict re-applies the changes of a conflicting patch to the index and
// working tree so that the user can resolve the conflicts. The branch already
// points to the provisional commit.
func (tx *Transaction) applyConflict(ctx context.Context, log logrus.FieldLogger, c *Conflict) {
	err := tx.repo.CherryPick(ctx, git.CherryPick{Commits: []string{c.Commit}, NoCommit: true})
	if cpErr, ok := errutils.As[git.ErrCherryPickConflict](err); ok {
		log.WithField("output", stringutils.RemoveLines(cpErr.Output, "hint: ")).
			Debug("left conflict markers in the working tree")
		return
	}
	if err != nil {
		log.WithError(err).Warnf("failed to apply the changes of %q to the working tree", c.Patch)
	}
}

// liveCommits returns the commits of the patches that are still part of the
// stack after replay.
func liveCommits(r *replayer) map[patchname.Name]string {
	commits := make(map[patchname.Name]string, len(r.commits))
	for _, n := range append(append(slices.Clone(r.applied), r.unapplied...), r.hidden...) {
		commits[n] = r.commits[n]
	}
	return commits
}

func refLockError(err error) error {
	lockErr, ok := errutils.As[git.ErrRefLocked](err)
	if !ok {
		return err
	}
	if lockErr.Moved() {
		return errors.WithMessage(meta.ErrConcurrentUpdate, lockErr.Output)
	}
	return errors.WithMessage(meta.ErrLocked, lockErr.Output)
}
