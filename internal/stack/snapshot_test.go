package stack_test

import (
	"context"
	"testing"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/meta"
	"github.com/aviator-co/pstack/internal/meta/jsonfiledb"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/aviator-co/pstack/internal/stack"
	"github.com/aviator-co/pstack/internal/utils/errutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	fx := newFixture(t, 3, 2)
	snap := fx.load(t)
	assert.Equal(t, "main", snap.Branch)
	assert.Equal(t, fx.base, snap.Base)
	assert.Equal(t, names("p1", "p2"), snap.Applied())
	assert.Equal(t, names("p3"), snap.Unapplied())
	assert.Equal(t, fx.commits["p2"], snap.TopCommit())
	assert.NotEmpty(t, snap.Version)
}

func TestLoad_NotInitialized(t *testing.T) {
	db, err := jsonfiledb.Open(t.TempDir())
	require.NoError(t, err)
	_, err = stack.Load(context.Background(), newFakeRepo(), db, stack.LoadOpts{})
	assert.True(t, errors.Is(err, stack.ErrNotInitialized))
}

func TestLoad_HeadMismatch(t *testing.T) {
	fx := newFixture(t, 2, 2)
	fx.repo.refs[stack.BranchRef("main")] = fx.repo.commit(fx.commits["p2"], map[string]string{"x": "x\n"}, "outside")

	_, err := stack.Load(context.Background(), fx.repo, fx.db, stack.LoadOpts{})
	mismatch, ok := errutils.As[stack.ErrHeadMismatch](err)
	require.True(t, ok, "expected ErrHeadMismatch, got %v", err)
	assert.Equal(t, fx.commits["p2"], mismatch.Expected)

	_, err = stack.Load(context.Background(), fx.repo, fx.db, stack.LoadOpts{SkipRepositoryChecks: true})
	assert.NoError(t, err)
}

func TestLoad_RepositoryState(t *testing.T) {
	fx := newFixture(t, 1, 1)
	fx.repo.op = git.OperationRebase
	_, err := stack.Load(context.Background(), fx.repo, fx.db, stack.LoadOpts{})
	st, ok := errutils.As[stack.ErrRepositoryState](err)
	require.True(t, ok, "expected ErrRepositoryState, got %v", err)
	assert.Equal(t, git.OperationRebase, st.Operation)
}

func TestLoad_CorruptState(t *testing.T) {
	fx := newFixture(t, 2, 0)
	ctx := context.Background()

	// The recorded head doesn't match the top applied patch.
	state, err := meta.NewState(fx.base, names("p1"), nil, nil,
		map[patchname.Name]string{"p1": fx.commits["p1"]})
	require.NoError(t, err)
	wtx, err := fx.db.WriteTx(ctx, "main")
	require.NoError(t, err)
	wtx.SetState(state)
	require.NoError(t, wtx.Commit(ctx, "corrupt"))

	_, err = stack.Load(ctx, fx.repo, fx.db, stack.LoadOpts{})
	_, ok := errutils.As[stack.ErrCorruptState](err)
	assert.True(t, ok, "expected ErrCorruptState, got %v", err)
}

func TestCheckClean(t *testing.T) {
	repo := newFakeRepo()
	ctx := context.Background()
	require.NoError(t, stack.CheckIndexClean(ctx, repo))
	require.NoError(t, stack.CheckWorktreeClean(ctx, repo))

	repo.status = git.GitStatus{StagedTrackedFiles: []string{"a"}, UntrackedFiles: []string{"b"}}
	assert.True(t, errors.Is(stack.CheckIndexClean(ctx, repo), stack.ErrDirtyIndex))
	assert.NoError(t, stack.CheckWorktreeClean(ctx, repo), "untracked files are ignored")
}
