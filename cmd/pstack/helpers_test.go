package main

import (
	"strings"
	"testing"

	"github.com/aviator-co/pstack/internal/meta"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/aviator-co/pstack/internal/stack"
	"github.com/stretchr/testify/require"
)

// testSnapshot returns a stack with applied patches "alpha", "bravo" and
// "charlie", unapplied "delta" and "echo", and hidden "hotel".
func testSnapshot(t *testing.T) *stack.Snapshot {
	t.Helper()
	commits := map[patchname.Name]string{}
	for i, n := range []patchname.Name{"alpha", "bravo", "charlie", "delta", "echo", "hotel"} {
		commits[n] = strings.Repeat(string(rune('1'+i)), 40)
	}
	state, err := meta.NewState(
		commits["charlie"],
		[]patchname.Name{"alpha", "bravo", "charlie"},
		[]patchname.Name{"delta", "echo"},
		[]patchname.Name{"hotel"},
		commits,
	)
	require.NoError(t, err)
	return &stack.Snapshot{
		State:  state,
		Branch: "main",
		Base:   strings.Repeat("0", 40),
	}
}
