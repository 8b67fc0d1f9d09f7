package main

import (
	"fmt"
	"os"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/config"
	"github.com/aviator-co/pstack/internal/utils/colors"
	"github.com/aviator-co/pstack/internal/utils/errutils"
	"github.com/kr/text"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootFlags struct {
	Debug     bool
	Directory string
	Color     string
}

var RootCmd = &cobra.Command{
	Use:   "pstack",
	Short: "manage a stack of patches on top of a git branch",

	// Don't automatically print errors or usage information (we handle that ourselves).
	// Cobra still prints usage if you return cmd.Usage() from RunE.
	SilenceErrors: true,
	SilenceUsage:  true,

	// Don't show "completion" command in help menu
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},

	// Run setup before invoking any child commands.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if rootFlags.Debug {
			logrus.SetLevel(logrus.DebugLevel)
			logrus.WithField("pstack_version", config.Version).Debug("enabled debug logging")
		}

		var configDirs []string
		repo, err := getRepo(cmd.Context())
		// If we weren't able to load the Git repo, that probably just means the
		// command isn't being run from inside a repo. That's fine, we just
		// don't need to bother reading repo-local config.
		if err != nil {
			logrus.WithError(err).Debug("unable to load Git repo (probably not inside a repo)")
		} else {
			configDirs = append(configDirs, repoConfigDir(repo))
			logrus.WithField("git_dir", repo.GitDir()).Debug("loaded Git repo")
		}

		// Note: this only returns an error if config exists and it can't be
		// read/parsed. It doesn't return an error if no config file exists.
		didLoadConfig, err := config.Load(configDirs)
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}
		if didLoadConfig {
			logrus.Debug("loaded configuration")
		} else {
			logrus.Debug("no configuration found")
		}

		mode := config.Pstack.Color
		if cmd.Flags().Changed("color") {
			mode = rootFlags.Color
		}
		return colors.Setup(mode)
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(
		&rootFlags.Debug, "debug", false,
		"enable verbose debug logging",
	)
	RootCmd.PersistentFlags().StringVarP(
		&rootFlags.Directory, "repo", "C", "",
		"directory to use for git repository",
	)
	RootCmd.PersistentFlags().StringVar(
		&rootFlags.Color, "color", "auto",
		"when to use colors (auto, always or never)",
	)
	RootCmd.AddCommand(
		gotoCmd,
		hideCmd,
		initCmd,
		logCmd,
		newCmd,
		popCmd,
		pushCmd,
		refreshCmd,
		seriesCmd,
		unhideCmd,
		versionCmd,
	)
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		if exitErr, ok := errutils.As[ErrExitSilently](err); ok {
			os.Exit(exitErr.ExitCode)
		}

		// In debug mode, show more detailed information about the error
		// (including the stack trace if using emperror).
		if rootFlags.Debug {
			stackTrace := fmt.Sprintf("%+v", err)
			_, _ = fmt.Fprintf(os.Stderr, "error: %s\n%s\n", err, text.Indent(stackTrace, "\t"))
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}

		os.Exit(1)
	}
}
