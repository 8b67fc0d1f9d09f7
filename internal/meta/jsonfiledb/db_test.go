package jsonfiledb_test

import (
	"context"
	"os"
	"testing"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/meta"
	"github.com/aviator-co/pstack/internal/meta/jsonfiledb"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFileDB(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := jsonfiledb.Open(dir)
	require.NoError(t, err, "db open should succeed if directory does not exist")

	rtx, err := db.ReadTx(ctx, "main")
	require.NoError(t, err)
	_, ok := rtx.State()
	require.False(t, ok, "non existent stack should not be found")
	require.Empty(t, rtx.Version())

	state, err := meta.NewState(
		"1111111111111111111111111111111111111111",
		[]patchname.Name{"foo"}, nil, nil,
		map[patchname.Name]string{"foo": "2222222222222222222222222222222222222222"},
	)
	require.NoError(t, err)

	wtx, err := db.WriteTx(ctx, "main")
	require.NoError(t, err)
	wtx.SetState(state)
	require.NoError(t, wtx.Commit(ctx, "init"), "tx commit should succeed")

	wtx, err = db.WriteTx(ctx, "main")
	require.NoError(t, err)
	wtx.SetState(meta.EmptyState("3333333333333333333333333333333333333333"))
	wtx.Abort()

	// Re-open the database and cause it to re-read from disk
	db, err = jsonfiledb.Open(dir)
	require.NoError(t, err)
	rtx, err = db.ReadTx(ctx, "main")
	require.NoError(t, err)
	got, ok := rtx.State()
	require.True(t, ok, "stack should be found after re-open")
	assert.Equal(t, []patchname.Name{"foo"}, got.Applied())
	assert.Equal(t, "1111111111111111111111111111111111111111", got.Head)
	assert.Equal(t, "1", rtx.Version())
}

func TestJSONFileDB_NestedBranch(t *testing.T) {
	ctx := context.Background()
	db, err := jsonfiledb.Open(t.TempDir())
	require.NoError(t, err)

	wtx, err := db.WriteTx(ctx, "feature/x")
	require.NoError(t, err)
	wtx.SetState(meta.EmptyState("1111111111111111111111111111111111111111"))
	require.NoError(t, wtx.Commit(ctx, "init"))

	_, err = os.Stat(db.Path("feature/x"))
	require.NoError(t, err)
}

func TestJSONFileDB_Locked(t *testing.T) {
	ctx := context.Background()
	db, err := jsonfiledb.Open(t.TempDir())
	require.NoError(t, err)

	wtx, err := db.WriteTx(ctx, "main")
	require.NoError(t, err)

	_, err = db.WriteTx(ctx, "main")
	require.True(t, errors.Is(err, meta.ErrLocked), "expected ErrLocked, got %v", err)

	// Other branches are independent.
	other, err := db.WriteTx(ctx, "other")
	require.NoError(t, err)
	other.Abort()

	wtx.Abort()
	wtx, err = db.WriteTx(ctx, "main")
	require.NoError(t, err, "lock should be released by Abort")
	wtx.Abort()
}

func TestJSONFileDB_ConcurrentUpdate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := jsonfiledb.Open(dir)
	require.NoError(t, err)

	wtx, err := db.WriteTx(ctx, "main")
	require.NoError(t, err)

	// Simulate a writer that ignores the lock.
	require.NoError(t, os.WriteFile(db.Path("main"), []byte(`{"generation": 7, "stack": null}`), 0644))

	wtx.SetState(meta.EmptyState("1111111111111111111111111111111111111111"))
	err = wtx.Commit(ctx, "init")
	require.True(t, errors.Is(err, meta.ErrConcurrentUpdate), "expected ErrConcurrentUpdate, got %v", err)
}

func TestJSONFileDB_Corrupt(t *testing.T) {
	ctx := context.Background()
	db, err := jsonfiledb.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(db.Path("main"), []byte(`{"generation": 1, "stack": {"version": 1, "head": "abc", "applied": ["a"], "unapplied": ["a"], "patches": {"a": {"commit": "abc"}}}}`), 0644))

	_, err = db.ReadTx(ctx, "main")
	require.Error(t, err)
	var corrupt meta.ErrCorruptState
	assert.True(t, errors.As(err, &corrupt))
}
