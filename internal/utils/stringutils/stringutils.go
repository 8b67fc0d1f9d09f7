package stringutils

import "strings"

// ParseSubjectBody splits a message into its first line and the rest.
// Blank lines around both parts are dropped.
func ParseSubjectBody(s string) (subject string, body string) {
	subject, body, _ = strings.Cut(strings.Trim(s, "\n"), "\n")
	return subject, strings.Trim(body, "\n")
}

// RemoveLines drops every line of s that starts with prefix.
func RemoveLines(s string, prefix string) string {
	var kept []string
	for _, line := range strings.Split(s, "\n") {
		if !strings.HasPrefix(line, prefix) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
