package git

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// HashObject writes data to the object database as a blob and returns its id.
func (r *Repo) HashObject(ctx context.Context, data []byte) (string, error) {
	out, err := r.Run(ctx, &RunOpts{
		Args:      []string{"hash-object", "-w", "--stdin"},
		Stdin:     bytes.NewReader(data),
		ExitError: true,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out.Stdout)), nil
}

type TreeEntry struct {
	Mode string
	Type string
	Oid  string
	Name string
}

// MkTree writes a (single-level) tree object with the given entries.
func (r *Repo) MkTree(ctx context.Context, entries []TreeEntry) (string, error) {
	var input bytes.Buffer
	for _, e := range entries {
		_, _ = fmt.Fprintf(&input, "%s %s %s\t%s\n", e.Mode, e.Type, e.Oid, e.Name)
	}
	out, err := r.Run(ctx, &RunOpts{
		Args:      []string{"mktree"},
		Stdin:     &input,
		ExitError: true,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out.Stdout)), nil
}
