package stack

import (
	"github.com/aviator-co/pstack/internal/patchname"
	"golang.org/x/exp/slices"
)

// lists is a mutable copy of the applied, unapplied and hidden collections
// used while planning and replaying a transaction.
type lists struct {
	applied   []patchname.Name
	unapplied []patchname.Name
	hidden    []patchname.Name
}

func newLists(snap *Snapshot) lists {
	return lists{
		applied:   snap.Applied(),
		unapplied: snap.Unapplied(),
		hidden:    snap.Hidden(),
	}
}

func (l *lists) clone() lists {
	return lists{
		applied:   slices.Clone(l.applied),
		unapplied: slices.Clone(l.unapplied),
		hidden:    slices.Clone(l.hidden),
	}
}

func (l *lists) has(name patchname.Name) bool {
	return slices.Contains(l.applied, name) ||
		slices.Contains(l.unapplied, name) ||
		slices.Contains(l.hidden, name)
}

func (l *lists) top() (patchname.Name, bool) {
	if len(l.applied) == 0 {
		return "", false
	}
	return l.applied[len(l.applied)-1], true
}

// pop removes the given patches (top first) from the top of applied and puts
// them at the front of unapplied in stack order.
func (l *lists) pop(names []patchname.Name) bool {
	n := len(names)
	if n > len(l.applied) {
		return false
	}
	suffix := l.applied[len(l.applied)-n:]
	for i, name := range names {
		if suffix[n-1-i] != name {
			return false
		}
	}
	popped := slices.Clone(suffix)
	l.applied = l.applied[:len(l.applied)-n]
	l.unapplied = append(popped, l.unapplied...)
	return true
}

// push moves an unapplied patch to the top of applied.
func (l *lists) push(name patchname.Name) bool {
	i := slices.Index(l.unapplied, name)
	if i < 0 {
		return false
	}
	l.unapplied = slices.Delete(slices.Clone(l.unapplied), i, i+1)
	l.applied = append(l.applied, name)
	return true
}

func (l *lists) hide(name patchname.Name) bool {
	i := slices.Index(l.unapplied, name)
	if i < 0 {
		return false
	}
	l.unapplied = slices.Delete(slices.Clone(l.unapplied), i, i+1)
	l.hidden = append(l.hidden, name)
	return true
}

func (l *lists) unhide(name patchname.Name) bool {
	i := slices.Index(l.hidden, name)
	if i < 0 {
		return false
	}
	l.hidden = slices.Delete(slices.Clone(l.hidden), i, i+1)
	l.unapplied = append(l.unapplied, name)
	return true
}
