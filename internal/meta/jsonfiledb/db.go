package jsonfiledb

import (
	"context"
	"os"
	"path/filepath"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/meta"
	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

// DB stores the stack state of each branch as a JSON file in a directory.
type DB struct {
	dir string
}

// Open opens a JSON file database in the given directory.
// If the directory does not exist, it is created.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WrapIff(err, "failed to create stack state directory %q", dir)
	}
	return &DB{dir}, nil
}

// OpenRepo opens the database stored in the repository's git directory.
func OpenRepo(repo *git.Repo) (*DB, error) {
	return Open(filepath.Join(repo.GitDir(), "pstack"))
}

// Path returns the file that holds the stack state of branch.
func (d *DB) Path(branch string) string {
	return filepath.Join(d.dir, filepath.FromSlash(branch)+".json")
}

func (d *DB) ReadTx(_ context.Context, branch string) (meta.ReadTx, error) {
	f, err := readFile(d.Path(branch))
	if err != nil {
		return nil, err
	}
	return &readTx{f}, nil
}

func (d *DB) WriteTx(_ context.Context, branch string) (meta.WriteTx, error) {
	path := d.Path(branch)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.WrapIff(err, "failed to create stack state directory")
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, errors.WithStack(errors.WithMessage(meta.ErrLocked, err.Error()))
	}
	if !ok {
		return nil, errors.WithStack(meta.ErrLocked)
	}
	f, err := readFile(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	logrus.WithField("branch", branch).Debug("locked stack state")
	return &writeTx{readTx: readTx{f}, path: path, lock: lock}, nil
}

var _ meta.DB = &DB{}
