package jsonfiledb

import (
	"strconv"

	"github.com/aviator-co/pstack/internal/meta"
)

type readTx struct {
	file *file
}

var _ meta.ReadTx = &readTx{}

func (tx *readTx) State() (*meta.State, bool) {
	return tx.file.Stack, tx.file.Stack != nil
}

func (tx *readTx) Version() string {
	if tx.file.Stack == nil {
		return ""
	}
	return strconv.FormatInt(tx.file.Generation, 10)
}
