package stack

import (
	"strings"

	"github.com/aviator-co/pstack/internal/meta"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/xrash/smetrics"
)

// SimilarityThreshold is the Jaro-Winkler score above which a name is
// considered a possible match for the user's input.
const SimilarityThreshold = 0.75

// minCommitPrefix is the shortest input that is tried as a commit id prefix.
const minCommitPrefix = 4

// Resolve resolves user input to a single patch of the stack.
//
// Input that exactly matches a patch name resolves to that patch. Otherwise,
// if the input is similar to any patch name, ErrAmbiguousName is returned with
// all the similar names; a best match is never picked. Finally, hex input of
// at least four characters is looked up as a commit id prefix.
func Resolve(input string, snap *Snapshot) (patchname.Name, error) {
	names := snap.Names()

	if p, ok := snap.Patch(patchname.Name(input)); ok {
		if p.Status == meta.StatusHidden {
			return "", ErrHiddenPatch{patchname.Name(input)}
		}
		return patchname.Name(input), nil
	}

	var similar []patchname.Name
	for _, n := range names {
		if smetrics.JaroWinkler(input, string(n), 0.7, 4) > SimilarityThreshold {
			similar = append(similar, n)
		}
	}
	if len(similar) > 0 {
		return "", ErrAmbiguousName{Input: input, Candidates: similar}
	}

	if len(input) >= minCommitPrefix && isHex(input) {
		prefix := strings.ToLower(input)
		var matches []patchname.Name
		for _, n := range names {
			p, _ := snap.Patch(n)
			if strings.HasPrefix(p.Commit, prefix) {
				matches = append(matches, n)
			}
		}
		switch len(matches) {
		case 0:
		case 1:
			if p, _ := snap.Patch(matches[0]); p.Status == meta.StatusHidden {
				return "", ErrHiddenPatch{matches[0]}
			}
			return matches[0], nil
		default:
			return "", ErrAmbiguousCommitPrefix{Input: input, Candidates: matches}
		}
	}

	return "", ErrNotFound{input}
}

func isHex(s string) bool {
	for _, c := range s {
		if !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'f') && !(c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
