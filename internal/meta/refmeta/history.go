package refmeta

import (
	"context"
	"time"

	"github.com/aviator-co/pstack/internal/git"
)

type HistoryEntry struct {
	// The commit that recorded this version of the stack state.
	Commit string
	// The label of the transaction that wrote it.
	Label string
	When  time.Time
}

// History returns the recorded versions of the stack state of branch, most
// recent first. At most limit entries are returned if limit is positive.
func (d *DB) History(ctx context.Context, branch string, limit int) ([]HistoryEntry, error) {
	refs, err := d.repo.GetRefs(ctx, &git.GetRefs{Revisions: []string{Ref(branch)}})
	if err != nil {
		return nil, err
	}
	if refs[0].Missing() {
		return nil, nil
	}
	var entries []HistoryEntry
	for oid := refs[0].Oid; oid != ""; {
		if limit > 0 && len(entries) >= limit {
			break
		}
		c, err := d.repo.Commit(ctx, oid)
		if err != nil {
			return nil, err
		}
		entries = append(entries, HistoryEntry{
			Commit: c.Hash,
			Label:  c.Subject(),
			When:   c.Author.When,
		})
		oid = c.Parent()
	}
	return entries, nil
}
