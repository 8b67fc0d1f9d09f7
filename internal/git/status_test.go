package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGitStatus(t *testing.T) {
	body := `# branch.oid 6b4c8e1d5c7d6f0e0d9a0c3b2a1f0e9d8c7b6a59
# branch.head main
1 M. N... 100644 100644 100644 3b18e512dba79e4c8300dd08aeb37f8e728b8dad 3b18e512dba79e4c8300dd08aeb37f8e728b8dae staged.txt
1 .M N... 100644 100644 100644 3b18e512dba79e4c8300dd08aeb37f8e728b8dad 3b18e512dba79e4c8300dd08aeb37f8e728b8dad unstaged.txt
1 .M SC.. 160000 160000 160000 3b18e512dba79e4c8300dd08aeb37f8e728b8dad 3b18e512dba79e4c8300dd08aeb37f8e728b8dad vendor/lib
2 R. N... 100644 100644 100644 3b18e512dba79e4c8300dd08aeb37f8e728b8dad 3b18e512dba79e4c8300dd08aeb37f8e728b8dad R100 new.txt	old.txt
u UU N... 100644 100644 100644 100644 3b18e512dba79e4c8300dd08aeb37f8e728b8dad 3b18e512dba79e4c8300dd08aeb37f8e728b8dae 3b18e512dba79e4c8300dd08aeb37f8e728b8daf conflict.txt
? untracked.txt`

	st := parseGitStatus(body)
	assert.Equal(t, "6b4c8e1d5c7d6f0e0d9a0c3b2a1f0e9d8c7b6a59", st.OID)
	assert.Equal(t, "main", st.CurrentBranch)
	assert.Equal(t, []string{"staged.txt", "new.txt"}, st.StagedTrackedFiles)
	assert.Equal(t, []string{"unstaged.txt", "vendor/lib"}, st.UnstagedTrackedFiles)
	assert.Equal(t, []string{"vendor/lib"}, st.Submodules)
	assert.Equal(t, []string{"conflict.txt"}, st.UnmergedFiles)
	assert.Equal(t, []string{"untracked.txt"}, st.UntrackedFiles)
	assert.False(t, st.IsCleanIgnoringUntracked())
}
