package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/config"
	"github.com/aviator-co/pstack/internal/editor"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/aviator-co/pstack/internal/stack"
	"github.com/aviator-co/pstack/internal/utils/colors"
	"github.com/aviator-co/pstack/internal/utils/stringutils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type newOpts struct {
	refreshOpts
	Message      string
	Refresh      bool
	SaveTemplate string
}

var newFlags newOpts

const newMessageHelp = `
# Please enter the message for the new patch. Lines starting
# with '#' will be ignored, and an empty message aborts.
`

var newCmd = &cobra.Command{
	Use:   "new [name] [-- <path>...]",
	Short: "create a new patch on top of the stack",
	Long: `Create a new patch on top of the stack.

The new patch is empty unless --refresh is given (or paths are), in which case
the local changes are moved into it. If the name is omitted, one is generated
from the subject of the message.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		opts := newFlags
		nameArgs := args
		if dash := cmd.ArgsLenAtDash(); dash >= 0 {
			nameArgs, opts.Paths = args[:dash], args[dash:]
		}
		if len(nameArgs) > 1 {
			return errors.New("at most one patch name may be given (use -- to separate paths)")
		}
		if err := opts.validate(); err != nil {
			return err
		}

		var name patchname.Name
		if len(nameArgs) == 1 {
			var err error
			if name, err = patchname.Parse(nameArgs[0]); err != nil {
				return err
			}
		}

		repo, db, snap, err := loadStack(ctx, stack.LoadOpts{})
		if err != nil {
			return err
		}
		if name != "" {
			if _, exists := snap.Patch(name); exists {
				return errors.Errorf("patch %q already exists", name)
			}
		}

		msg, err := newPatchMessage(ctx, repo, opts)
		if err != nil {
			return err
		}
		if opts.SaveTemplate != "" {
			if err := os.WriteFile(opts.SaveTemplate, []byte(msg), 0o644); err != nil {
				return errors.WrapIff(err, "failed to save template to %q", opts.SaveTemplate)
			}
			fmt.Println("Saved template to", opts.SaveTemplate)
			return nil
		}
		if name == "" {
			base, err := patchname.FromMessage(msg, config.Pstack.New.NameLength)
			if err != nil {
				return err
			}
			name = patchname.Uniquify(base, func(n patchname.Name) bool {
				_, ok := snap.Patch(n)
				return ok
			})
		}

		head := snap.TopCommit()
		headCommit, err := repo.Commit(ctx, head)
		if err != nil {
			return err
		}
		tree := headCommit.Tree
		var refreshed *refreshedTree
		if opts.refreshing() {
			if refreshed, err = buildRefreshTree(ctx, repo, head, opts.refreshOpts); err != nil {
				return err
			}
			tree = refreshed.Tree
		}
		commit, err := repo.CommitTree(ctx, &git.CommitTree{
			Tree:    tree,
			Parents: []string{head},
			Message: msg,
		})
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"patch":  name,
			"commit": git.ShortSha(commit),
		}).Debug("created patch commit")

		tx := stack.NewTransaction(repo, db, snap, stack.Options{})
		if err := tx.NewApplied(name, commit); err != nil {
			return err
		}
		if _, err := tx.Execute(ctx, "new: "+string(name)); err != nil {
			return err
		}
		resetRefreshedIndex(ctx, repo, refreshed)
		fmt.Println("Now at patch", colors.UserInput(name))
		return nil
	},
}

func (o newOpts) refreshing() bool {
	return o.Refresh || len(o.Paths) > 0
}

func (o newOpts) validate() error {
	if !o.refreshing() {
		flags := []struct {
			name string
			set  bool
		}{
			{"--index", o.Index},
			{"--force", o.Force},
			{"--submodules", o.Submodules},
			{"--no-submodules", o.NoSubmodules},
		}
		for _, f := range flags {
			if f.set {
				return errors.Errorf("%s requires --refresh", f.name)
			}
		}
	}
	return o.refreshOpts.validate()
}

// newPatchMessage returns the message given with -m, or asks for one in the
// editor. The message is normalized to a subject and an optional body.
func newPatchMessage(ctx context.Context, repo *git.Repo, opts newOpts) (string, error) {
	msg := opts.Message
	if msg == "" {
		template, err := readTemplate(config.Pstack.New.Template)
		if err != nil {
			return "", err
		}
		msg, err = editor.Launch(ctx, repo, editor.Config{
			Text:           template + newMessageHelp,
			TmpFilePattern: "PSTACK_PATCHMSG-*",
			CommentPrefix:  "#",
			Command:        config.Pstack.Editor,
		})
		if err != nil {
			return "", errors.WrapIf(err, "failed to edit the patch message")
		}
	}
	subject, body := stringutils.ParseSubjectBody(strings.TrimSpace(msg))
	if subject == "" {
		return "", errors.New("aborting due to empty patch message")
	}
	if body == "" {
		return subject + "\n", nil
	}
	return subject + "\n\n" + body + "\n", nil
}

func readTemplate(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logrus.WithField("path", path).Debug("patch template does not exist")
		return "", nil
	}
	if err != nil {
		return "", errors.WrapIff(err, "failed to read template %q", path)
	}
	return string(data), nil
}

func init() {
	newCmd.Flags().StringVarP(&newFlags.Message, "message", "m", "", "the patch message")
	newCmd.Flags().BoolVarP(&newFlags.Refresh, "refresh", "r", false, "move the local changes into the new patch")
	newCmd.Flags().StringVar(&newFlags.SaveTemplate, "save-template", "", "save the message to a file instead of creating a patch")
	addRefreshFlags(newCmd, &newFlags.refreshOpts)
}
