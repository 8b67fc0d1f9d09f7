package stringutils_test

import (
	"testing"

	"github.com/aviator-co/pstack/internal/utils/stringutils"
	"github.com/stretchr/testify/assert"
)

func TestParseSubjectBody(t *testing.T) {
	for _, tt := range []struct {
		input   string
		subject string
		body    string
	}{
		{"", "", ""},
		{"subject", "subject", ""},
		{"\nsubject\n", "subject", ""},
		{"subject\n\n\nbody\n\n", "subject", "body"},
		{"subject\n\nbody\nmore body\n", "subject", "body\nmore body"},
	} {
		subject, body := stringutils.ParseSubjectBody(tt.input)
		assert.Equal(t, tt.subject, subject, "input %q", tt.input)
		assert.Equal(t, tt.body, body, "input %q", tt.input)
	}
}

func TestRemoveLines(t *testing.T) {
	input := `Auto-merging README.md
CONFLICT (content): Merge conflict in README.md
error: could not apply 2f5e0a1... two
hint: after resolving the conflicts, mark the corrected paths
hint: with 'git add <paths>' or 'git rm <paths>'
`
	expected := `Auto-merging README.md
CONFLICT (content): Merge conflict in README.md
error: could not apply 2f5e0a1... two
`
	assert.Equal(t, expected, stringutils.RemoveLines(input, "hint: "))
	assert.Equal(t, "a", stringutils.RemoveLines("a\nhint: b", "hint: "))
}
