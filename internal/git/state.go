package git

import (
	"os"
	"path/filepath"
)

// Operation is a multi-step git operation that can be left in progress in a
// repository (usually because of a conflict).
type Operation string

const (
	OperationNone       Operation = ""
	OperationMerge      Operation = "merge"
	OperationRebase     Operation = "rebase"
	OperationApplyMbox  Operation = "am"
	OperationCherryPick Operation = "cherry-pick"
	OperationRevert     Operation = "revert"
	OperationBisect     Operation = "bisect"
)

// InProgressOperation returns the operation that is currently in progress in
// the repository, if any.
func (r *Repo) InProgressOperation() Operation {
	switch {
	case r.gitPathExists("rebase-merge"):
		return OperationRebase
	case r.gitPathExists("rebase-apply", "applying"):
		return OperationApplyMbox
	case r.gitPathExists("rebase-apply"):
		return OperationRebase
	case r.gitPathExists("MERGE_HEAD"):
		return OperationMerge
	case r.gitPathExists("CHERRY_PICK_HEAD"):
		return OperationCherryPick
	case r.gitPathExists("REVERT_HEAD"):
		return OperationRevert
	case r.gitPathExists("BISECT_LOG"):
		return OperationBisect
	}
	return OperationNone
}

func (r *Repo) gitPathExists(elem ...string) bool {
	_, err := os.Stat(filepath.Join(append([]string{r.GitDir()}, elem...)...))
	return err == nil
}

// readGitFile returns the contents of a file in the git directory.
func (r *Repo) readGitFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.GitDir(), name))
	return string(data), err
}
