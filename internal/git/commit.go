package git

import (
	"context"
	"fmt"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/go-git/go-git/v5/plumbing"
)

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Commit is the subset of a commit object that pstack cares about.
type Commit struct {
	Hash    string
	Tree    string
	Parents []string
	Author  Signature
	Message string
}

// ShortSha abbreviates an object id for display.
func ShortSha(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// Parent returns the first parent of the commit, or the empty string for root
// commits.
func (c *Commit) Parent() string {
	if len(c.Parents) == 0 {
		return ""
	}
	return c.Parents[0]
}

// Subject returns the first line of the commit message.
func (c *Commit) Subject() string {
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return subject
}

// Commit reads the commit object named by rev.
func (r *Repo) Commit(ctx context.Context, rev string) (*Commit, error) {
	oid := rev
	if !plumbing.IsHash(rev) {
		var err error
		oid, err = r.RevParse(ctx, &RevParse{Rev: rev + "^{commit}", Verify: true})
		if err != nil {
			return nil, errors.WrapIff(err, "failed to resolve commit %q", rev)
		}
	}
	c, err := r.gogit.CommitObject(plumbing.NewHash(oid))
	if err != nil {
		return nil, errors.WrapIff(err, "failed to read commit %s", ShortSha(oid))
	}
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}
	return &Commit{
		Hash:    c.Hash.String(),
		Tree:    c.TreeHash.String(),
		Parents: parents,
		Author: Signature{
			Name:  c.Author.Name,
			Email: c.Author.Email,
			When:  c.Author.When,
		},
		Message: c.Message,
	}, nil
}

type CommitTree struct {
	// The tree object the commit points to.
	Tree    string
	Parents []string
	// The commit message, written verbatim.
	Message string
	// If nil, git's configured author identity is used.
	Author *Signature
}

// CommitTree creates a new commit object (equivalent to `git commit-tree`).
// No refs are updated.
func (r *Repo) CommitTree(ctx context.Context, opts *CommitTree) (string, error) {
	args := []string{"commit-tree", opts.Tree}
	for _, p := range opts.Parents {
		args = append(args, "-p", p)
	}
	var env []string
	if opts.Author != nil {
		env = append(env,
			"GIT_AUTHOR_NAME="+opts.Author.Name,
			"GIT_AUTHOR_EMAIL="+opts.Author.Email,
			"GIT_AUTHOR_DATE="+formatDate(opts.Author.When),
		)
	}
	out, err := r.Run(ctx, &RunOpts{
		Args:      args,
		Env:       env,
		Stdin:     strings.NewReader(opts.Message),
		ExitError: true,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out.Stdout)), nil
}

// formatDate formats t in git's internal date format.
func formatDate(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Unix(), t.Format("-0700"))
}
