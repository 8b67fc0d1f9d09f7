package git

import (
	"fmt"
	"strings"
)

// ErrRefLocked is returned when git refuses to update a ref because it is
// locked by another process or no longer has the expected old value.
type ErrRefLocked struct {
	Ref    string
	Output string
}

func (e ErrRefLocked) Error() string {
	return fmt.Sprintf("failed to lock ref %q: %s", e.Ref, e.Output)
}

// Moved returns true if the ref could not be updated because it no longer has
// the expected old value (as opposed to being locked by another process).
func (e ErrRefLocked) Moved() bool {
	return strings.Contains(e.Output, "but expected") ||
		strings.Contains(e.Output, "already exists")
}

// MinMergeTreeVersion is the first git release whose merge-tree accepts
// --merge-base.
const MinMergeTreeVersion = "2.40"

// ErrUnsupportedGit is returned when the installed git lacks a feature pstack
// depends on.
type ErrUnsupportedGit struct {
	Feature  string
	Required string
	Output   string
}

func (e ErrUnsupportedGit) Error() string {
	return fmt.Sprintf("%s requires git %s or newer: %s", e.Feature, e.Required, e.Output)
}
