package jsonfiledb

import (
	"context"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/meta"
	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

type writeTx struct {
	readTx
	path  string
	lock  *flock.Flock
	state *meta.State
}

func (tx *writeTx) SetState(state *meta.State) {
	tx.state = state
}

func (tx *writeTx) Abort() {
	if tx.lock == nil {
		return
	}
	_ = tx.lock.Unlock()
	tx.lock = nil
}

func (tx *writeTx) Commit(_ context.Context, label string) error {
	if tx.lock == nil {
		return errors.New("stack state transaction already finalized")
	}
	// Always unlock the database even if there is an error.
	defer tx.Abort()
	if tx.state == nil {
		return nil
	}
	// The lock is held, but the file may still have been replaced by a writer
	// that didn't take it.
	current, err := readFile(tx.path)
	if err != nil {
		return err
	}
	if current.Generation != tx.file.Generation {
		return errors.WithStack(meta.ErrConcurrentUpdate)
	}
	next := &file{Generation: tx.file.Generation + 1, Stack: tx.state}
	if err := next.write(tx.path); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"label":      label,
		"generation": next.Generation,
	}).Debug("wrote stack state")
	tx.file = next
	return nil
}

var _ meta.WriteTx = &writeTx{}
