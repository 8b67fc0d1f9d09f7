package git

import (
	"testing"

	"github.com/aviator-co/pstack/internal/utils/errutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeTreeError(t *testing.T) {
	assert.NoError(t, mergeTreeError(0, ""))
	assert.NoError(t, mergeTreeError(1, ""))

	err := mergeTreeError(129, "error: unknown option `merge-base=abc'\nusage: git merge-tree ...")
	unsupported, ok := errutils.As[ErrUnsupportedGit](err)
	require.True(t, ok, "expected ErrUnsupportedGit, got %v", err)
	assert.Equal(t, MinMergeTreeVersion, unsupported.Required)
	assert.Equal(t, "error: unknown option `merge-base=abc'", unsupported.Output)
	assert.Contains(t, err.Error(), "requires git 2.40 or newer")

	err = mergeTreeError(128, "fatal: not a valid object name")
	_, ok = errutils.As[ErrUnsupportedGit](err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "exit 128")
}
