package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/aviator-co/pstack/internal/stack"
	"github.com/aviator-co/pstack/internal/utils/colors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var seriesFlags struct {
	All     bool
	Verbose bool
}

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "list the patches of the stack",
	Long: `List the patches of the stack, bottom first.

Applied patches are marked with '+' and the top patch with '>'. Unapplied
patches are marked with '-' and hidden patches (shown with --all) with '!'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, _, snap, err := loadStack(ctx, stack.LoadOpts{SkipRepositoryChecks: true})
		if err != nil {
			return err
		}
		var lookup commitLookup
		if seriesFlags.Verbose {
			lookup = func(oid string) (*git.Commit, error) {
				return repo.Commit(ctx, oid)
			}
		}
		return renderSeries(os.Stdout, snap, seriesFlags.All, lookup)
	},
}

type commitLookup func(oid string) (*git.Commit, error)

// renderSeries writes one line per patch. If lookup is non-nil, each line
// also shows the commit id, subject and author date of the patch.
func renderSeries(w io.Writer, snap *stack.Snapshot, all bool, lookup commitLookup) error {
	top, _ := snap.Top()
	line := func(marker string, name patchname.Name, style func(...any) string) error {
		p, _ := snap.Patch(name)
		if lookup == nil {
			_, err := fmt.Fprintf(w, "%s %s\n", marker, style(name))
			return err
		}
		c, err := lookup(p.Commit)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s %s %s %s %s\n",
			marker,
			colors.Faint(git.ShortSha(c.Hash)),
			style(name),
			c.Subject(),
			colors.Faint("("+humanize.Time(c.Author.When)+")"),
		)
		return err
	}

	for _, n := range snap.Applied() {
		marker, style := "+", fmt.Sprint
		if n == top {
			marker, style = ">", colors.Bold
		}
		if err := line(marker, n, style); err != nil {
			return err
		}
	}
	for _, n := range snap.Unapplied() {
		if err := line("-", n, fmt.Sprint); err != nil {
			return err
		}
	}
	if all {
		for _, n := range snap.Hidden() {
			if err := line("!", n, colors.Faint); err != nil {
				return err
			}
		}
	}
	return nil
}

func init() {
	seriesCmd.Flags().BoolVarP(&seriesFlags.All, "all", "a", false, "also show hidden patches")
	seriesCmd.Flags().BoolVarP(&seriesFlags.Verbose, "verbose", "v", false, "show the commit of each patch")
}
