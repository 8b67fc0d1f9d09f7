package refmeta_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/git/gittest"
	"github.com/aviator-co/pstack/internal/meta"
	"github.com/aviator-co/pstack/internal/meta/refmeta"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefMetaDB(t *testing.T) {
	repo := gittest.NewTempRepo(t)
	ctx := context.Background()
	db := refmeta.New(repo)
	head := gittest.Head(t, repo)

	rtx, err := db.ReadTx(ctx, "main")
	require.NoError(t, err)
	_, ok := rtx.State()
	require.False(t, ok)

	wtx, err := db.WriteTx(ctx, "main")
	require.NoError(t, err)
	wtx.SetState(meta.EmptyState(head))
	require.NoError(t, wtx.Commit(ctx, "init"))

	c1 := gittest.CommitFile(t, repo, "one.txt", []byte("one\n"))
	state, err := meta.NewState(head, []patchname.Name{"one"}, nil, nil,
		map[patchname.Name]string{"one": c1})
	require.NoError(t, err)
	wtx, err = db.WriteTx(ctx, "main")
	require.NoError(t, err)
	wtx.SetState(state)
	require.NoError(t, wtx.Commit(ctx, "new: one"))

	rtx, err = db.ReadTx(ctx, "main")
	require.NoError(t, err)
	got, ok := rtx.State()
	require.True(t, ok)
	assert.Equal(t, []patchname.Name{"one"}, got.Applied())
	assert.Equal(t, c1, got.TopCommit())

	ref, err := repo.RevParse(ctx, &git.RevParse{Rev: refmeta.Ref("main"), Verify: true})
	require.NoError(t, err)
	assert.Equal(t, ref, rtx.Version())

	history, err := db.History(ctx, "main", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "new: one", history[0].Label)
	assert.Equal(t, "init", history[1].Label)
}

func TestRefMetaDB_ConcurrentUpdate(t *testing.T) {
	repo := gittest.NewTempRepo(t)
	ctx := context.Background()
	db := refmeta.New(repo)
	head := gittest.Head(t, repo)

	first, err := db.WriteTx(ctx, "main")
	require.NoError(t, err)
	second, err := db.WriteTx(ctx, "main")
	require.NoError(t, err)

	first.SetState(meta.EmptyState(head))
	require.NoError(t, first.Commit(ctx, "init"))

	second.SetState(meta.EmptyState(head))
	err = second.Commit(ctx, "init")
	assert.True(t, errors.Is(err, meta.ErrConcurrentUpdate), "expected ErrConcurrentUpdate, got %v", err)

	history, err := db.History(ctx, "main", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRefMetaDB_Locked(t *testing.T) {
	repo := gittest.NewTempRepo(t)
	ctx := context.Background()
	db := refmeta.New(repo)
	head := gittest.Head(t, repo)

	wtx, err := db.WriteTx(ctx, "main")
	require.NoError(t, err)
	wtx.SetState(meta.EmptyState(head))
	require.NoError(t, wtx.Commit(ctx, "init"))

	lockFile := filepath.Join(repo.GitDir(), "refs", "pstack", "main.lock")
	require.NoError(t, os.WriteFile(lockFile, nil, 0644))

	wtx, err = db.WriteTx(ctx, "main")
	require.NoError(t, err)
	wtx.SetState(meta.EmptyState(head))
	err = wtx.Commit(ctx, "reset")
	assert.True(t, errors.Is(err, meta.ErrLocked), "expected ErrLocked, got %v", err)
	assert.False(t, errors.Is(err, meta.ErrConcurrentUpdate))
	assert.Contains(t, err.Error(), "locked by another process")

	require.NoError(t, os.Remove(lockFile))
	history, err := db.History(ctx, "main", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
