package patchname

import (
	"fmt"
	"strings"

	"emperror.dev/errors"
)

// Name is the name of a patch within a stack.
// Names are non-empty and contain only ASCII letters, digits, dashes, and
// underscores.
type Name string

// ErrInvalidName is returned by Parse when a string is not a valid patch name.
type ErrInvalidName struct {
	Input  string
	Reason string
}

func (e ErrInvalidName) Error() string {
	return fmt.Sprintf("invalid patch name %q: %s", e.Input, e.Reason)
}

// Parse validates s and returns it as a Name.
func Parse(s string) (Name, error) {
	if s == "" {
		return "", ErrInvalidName{s, "name must not be empty"}
	}
	for _, r := range s {
		if !isNameRune(r) {
			return "", ErrInvalidName{
				s,
				fmt.Sprintf("character %q is not allowed (use letters, digits, '-' and '_')", r),
			}
		}
	}
	return Name(s), nil
}

// MustParse is like Parse but panics if s is invalid.
func MustParse(s string) Name {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Name) String() string {
	return string(n)
}

func isNameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' || r == '_'
}

// FromMessage generates a patch name from the subject line of a commit
// message. Runs of characters that aren't allowed in names are collapsed into a
// single dash and the result is truncated to at most maxLen characters (on a
// word boundary if possible).
func FromMessage(msg string, maxLen int) (Name, error) {
	subject, _, _ := strings.Cut(strings.TrimSpace(msg), "\n")
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(subject) {
		if isNameRune(r) && r != '-' {
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			dash = false
			sb.WriteRune(r)
		} else {
			dash = true
		}
	}
	s := sb.String()
	if maxLen > 0 && len(s) > maxLen {
		cutMidWord := s[maxLen] != '-'
		s = s[:maxLen]
		if i := strings.LastIndexByte(s, '-'); cutMidWord && i > 0 {
			s = s[:i]
		}
	}
	if s == "" {
		return "", errors.New("cannot generate a patch name from an empty message")
	}
	return Parse(s)
}

// Uniquify returns base if exists(base) is false, otherwise the first of
// base-1, base-2, ... that doesn't exist.
func Uniquify(base Name, exists func(Name) bool) Name {
	if !exists(base) {
		return base
	}
	for i := 1; ; i++ {
		n := Name(fmt.Sprintf("%s-%d", base, i))
		if !exists(n) {
			return n
		}
	}
}
