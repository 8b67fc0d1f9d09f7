package main

import (
	"fmt"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/meta/refmeta"
	"github.com/aviator-co/pstack/internal/utils/colors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var logFlags struct {
	Number int
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "show the history of the stack",
	Long: `Show the transactions that modified the stack of the current branch,
most recent first. History is only recorded by the "refs" storage backend.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, err := getRepo(ctx)
		if err != nil {
			return err
		}
		db, err := getDB(repo)
		if err != nil {
			return err
		}
		refs, ok := db.(*refmeta.DB)
		if !ok {
			return errors.New("stack history is only recorded by the refs storage backend")
		}
		branch, err := repo.CurrentBranchName(ctx)
		if err != nil {
			return errors.WrapIf(err, "failed to determine current branch")
		}
		entries, err := refs.History(ctx, branch, logFlags.Number)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No stack history for", colors.UserInput(branch))
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s %s %s\n",
				colors.Faint(git.ShortSha(e.Commit)),
				e.Label,
				colors.Faint("("+humanize.Time(e.When)+")"),
			)
		}
		return nil
	},
}

func init() {
	logCmd.Flags().IntVarP(&logFlags.Number, "number", "n", 0, "show at most this many entries")
}
