package stack_test

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/meta"
	"github.com/aviator-co/pstack/internal/meta/jsonfiledb"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/aviator-co/pstack/internal/stack"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory Repository. Trees are maps from path to file
// contents and merges are resolved per path.
type fakeRepo struct {
	branch  string
	op      git.Operation
	status  git.GitStatus
	commits map[string]*git.Commit
	trees   map[string]map[string]string
	refs    map[string]string
	// The tree the index and working tree reflect.
	worktree string

	readTrees   []git.ReadTree
	cherryPicks []string
	// If set, returned by UpdateRef for the given ref.
	updateRefErr map[string]error
}

var _ stack.Repository = &fakeRepo{}

func newFakeRepo() *fakeRepo {
	f := &fakeRepo{
		branch:       "main",
		commits:      map[string]*git.Commit{},
		trees:        map[string]map[string]string{},
		refs:         map[string]string{},
		updateRefErr: map[string]error{},
	}
	root := f.commit("", map[string]string{"README.md": "# Hello World\n"}, "Initial commit")
	f.refs[stack.BranchRef("main")] = root
	f.worktree = f.commits[root].Tree
	return f
}

func hash(parts ...string) string {
	h := sha1.New()
	for _, p := range parts {
		_, _ = fmt.Fprintf(h, "%d:%s;", len(p), p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (f *fakeRepo) writeTree(files map[string]string) string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	parts := []string{"tree"}
	for _, p := range paths {
		parts = append(parts, p, files[p])
	}
	id := hash(parts...)
	f.trees[id] = files
	return id
}

// commit creates a commit on top of parent that applies changes (an empty
// value deletes the file).
func (f *fakeRepo) commit(parent string, changes map[string]string, msg string) string {
	files := map[string]string{}
	var parents []string
	if parent != "" {
		for k, v := range f.trees[f.commits[parent].Tree] {
			files[k] = v
		}
		parents = []string{parent}
	}
	for k, v := range changes {
		if v == "" {
			delete(files, k)
		} else {
			files[k] = v
		}
	}
	oid, _ := f.CommitTree(context.Background(), &git.CommitTree{
		Tree:    f.writeTree(files),
		Parents: parents,
		Message: msg + "\n",
		Author:  &git.Signature{Name: "Test", Email: "test@example.com", When: time.Unix(1700000000, 0)},
	})
	return oid
}

func (f *fakeRepo) files(commit string) map[string]string {
	return f.trees[f.commits[commit].Tree]
}

func (f *fakeRepo) head() string {
	return f.refs[stack.BranchRef(f.branch)]
}

func (f *fakeRepo) CurrentBranchName(context.Context) (string, error) {
	return f.branch, nil
}

func (f *fakeRepo) RevParse(_ context.Context, rp *git.RevParse) (string, error) {
	if oid, ok := f.refs[rp.Rev]; ok {
		return oid, nil
	}
	if _, ok := f.commits[rp.Rev]; ok {
		return rp.Rev, nil
	}
	return "", errors.Errorf("unknown revision %q", rp.Rev)
}

func (f *fakeRepo) InProgressOperation() git.Operation {
	return f.op
}

func (f *fakeRepo) Status(context.Context) (git.GitStatus, error) {
	st := f.status
	st.CurrentBranch = f.branch
	st.OID = f.head()
	return st, nil
}

func (f *fakeRepo) Commit(ctx context.Context, rev string) (*git.Commit, error) {
	oid, err := f.RevParse(ctx, &git.RevParse{Rev: rev})
	if err != nil {
		return nil, err
	}
	c := *f.commits[oid]
	return &c, nil
}

func (f *fakeRepo) MergeTree(_ context.Context, opts *git.MergeTree) (*git.MergeTreeResult, error) {
	base, ours, theirs := f.files(opts.Base), f.files(opts.Ours), f.files(opts.Theirs)
	paths := map[string]bool{}
	for _, m := range []map[string]string{base, ours, theirs} {
		for p := range m {
			paths[p] = true
		}
	}
	merged := map[string]string{}
	var conflicts []string
	for p := range paths {
		b, o, t := base[p], ours[p], theirs[p]
		var v string
		switch {
		case o == t, b == t:
			v = o
		case b == o:
			v = t
		default:
			conflicts = append(conflicts, p)
			v = fmt.Sprintf("<<<<<<<\n%s=======\n%s>>>>>>>\n", o, t)
		}
		if v != "" {
			merged[p] = v
		}
	}
	sort.Strings(conflicts)
	return &git.MergeTreeResult{Tree: f.writeTree(merged), Conflicts: conflicts}, nil
}

func (f *fakeRepo) CommitTree(_ context.Context, opts *git.CommitTree) (string, error) {
	if _, ok := f.trees[opts.Tree]; !ok {
		return "", errors.Errorf("unknown tree %s", opts.Tree)
	}
	author := git.Signature{Name: "Committer", Email: "committer@example.com"}
	if opts.Author != nil {
		author = *opts.Author
	}
	oid := hash(append([]string{"commit", opts.Tree, opts.Message, author.Name, author.When.String()}, opts.Parents...)...)
	f.commits[oid] = &git.Commit{
		Hash:    oid,
		Tree:    opts.Tree,
		Parents: opts.Parents,
		Author:  author,
		Message: opts.Message,
	}
	return oid, nil
}

func (f *fakeRepo) ReadTree(_ context.Context, opts *git.ReadTree) error {
	f.readTrees = append(f.readTrees, *opts)
	if !opts.Reset && f.commits[opts.From].Tree != f.worktree {
		return errors.New("worktree does not match From")
	}
	f.worktree = f.commits[opts.To].Tree
	return nil
}

func (f *fakeRepo) UpdateRef(_ context.Context, update *git.UpdateRef) error {
	if err := f.updateRefErr[update.Ref]; err != nil {
		return err
	}
	current, exists := f.refs[update.Ref]
	if update.Old == git.Missing && exists || update.Old != "" && update.Old != git.Missing && update.Old != current {
		return git.ErrRefLocked{Ref: update.Ref, Output: "is at " + current + " but expected " + update.Old}
	}
	f.refs[update.Ref] = update.New
	return nil
}

func (f *fakeRepo) CherryPick(_ context.Context, opts git.CherryPick) error {
	f.cherryPicks = append(f.cherryPicks, opts.Commits...)
	return git.ErrCherryPickConflict{ConflictingCommit: opts.Commits[0]}
}

func names(s ...string) []patchname.Name {
	ns := []patchname.Name{}
	for _, n := range s {
		ns = append(ns, patchname.MustParse(n))
	}
	return ns
}

type fixture struct {
	repo *fakeRepo
	db   *jsonfiledb.DB
	// The commit every patch is built on.
	base    string
	commits map[patchname.Name]string
}

// newFixture creates a chain of patches p1..pn on top of the root commit, each
// adding its own file, with the first `applied` of them applied.
func newFixture(t *testing.T, n int, applied int) *fixture {
	repo := newFakeRepo()
	db, err := jsonfiledb.Open(t.TempDir())
	require.NoError(t, err)
	fx := &fixture{repo: repo, db: db, base: repo.head(), commits: map[patchname.Name]string{}}

	var all []patchname.Name
	parent := fx.base
	for i := 1; i <= n; i++ {
		name := patchname.Name(fmt.Sprintf("p%d", i))
		parent = repo.commit(parent, map[string]string{string(name) + ".txt": string(name) + "\n"}, "add "+string(name))
		fx.commits[name] = parent
		all = append(all, name)
	}
	fx.writeState(t, all[:applied], all[applied:], nil)
	return fx
}

// writeState persists a state and moves the branch and worktree to its head.
func (fx *fixture) writeState(t *testing.T, applied, unapplied, hidden []patchname.Name) {
	head := fx.base
	if len(applied) > 0 {
		head = fx.commits[applied[len(applied)-1]]
	}
	commits := map[patchname.Name]string{}
	for _, ns := range [][]patchname.Name{applied, unapplied, hidden} {
		for _, n := range ns {
			commits[n] = fx.commits[n]
		}
	}
	state, err := meta.NewState(head, applied, unapplied, hidden, commits)
	require.NoError(t, err)
	ctx := context.Background()
	wtx, err := fx.db.WriteTx(ctx, "main")
	require.NoError(t, err)
	wtx.SetState(state)
	require.NoError(t, wtx.Commit(ctx, "setup"))

	fx.repo.refs[stack.BranchRef("main")] = head
	fx.repo.worktree = fx.repo.commits[head].Tree
}

func (fx *fixture) load(t *testing.T) *stack.Snapshot {
	snap, err := stack.Load(context.Background(), fx.repo, fx.db, stack.LoadOpts{})
	require.NoError(t, err)
	return snap
}

func (fx *fixture) tx(t *testing.T, opts stack.Options) *stack.Transaction {
	return stack.NewTransaction(fx.repo, fx.db, fx.load(t), opts)
}

var worktreeOpts = stack.Options{
	ConflictMode:        stack.ConflictsDisallowed,
	UseIndexAndWorktree: true,
	RequireClean:        true,
}

type mockDB struct {
	mock.Mock
}

func (m *mockDB) ReadTx(ctx context.Context, branch string) (meta.ReadTx, error) {
	args := m.Called(ctx, branch)
	tx, _ := args.Get(0).(meta.ReadTx)
	return tx, args.Error(1)
}

func (m *mockDB) WriteTx(ctx context.Context, branch string) (meta.WriteTx, error) {
	args := m.Called(ctx, branch)
	tx, _ := args.Get(0).(meta.WriteTx)
	return tx, args.Error(1)
}

type mockWriteTx struct {
	mock.Mock
}

func (m *mockWriteTx) State() (*meta.State, bool) {
	args := m.Called()
	s, _ := args.Get(0).(*meta.State)
	return s, args.Bool(1)
}

func (m *mockWriteTx) Version() string {
	return m.Called().String(0)
}

func (m *mockWriteTx) SetState(state *meta.State) {
	m.Called(state)
}

func (m *mockWriteTx) Abort() {
	m.Called()
}

func (m *mockWriteTx) Commit(ctx context.Context, label string) error {
	return m.Called(ctx, label).Error(0)
}
