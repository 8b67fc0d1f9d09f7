package colors

import (
	"os"

	"emperror.dev/errors"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	CliCmdC          = color.New(color.FgMagenta)
	SuccessC         = color.New(color.FgGreen)
	WarningC         = color.New(color.FgYellow)
	FailureC         = color.New(color.FgRed)
	TroubleshootingC = color.New(color.Faint)
	UserInputC       = color.New(color.FgCyan)
	FaintC           = color.New(color.Faint)
	BoldC            = color.New(color.Bold)
)

var (
	CliCmd          = CliCmdC.Sprint
	Success         = SuccessC.Sprint
	Warning         = WarningC.Sprint
	Failure         = FailureC.Sprint
	Troubleshooting = TroubleshootingC.Sprint
	UserInput       = UserInputC.Sprint
	Faint           = FaintC.Sprint
	Bold            = BoldC.Sprint
)

// Setup enables or disables colored output. mode is one of "auto", "always"
// or "never"; "auto" enables colors only if stdout is a terminal and NO_COLOR
// is not set.
func Setup(mode string) error {
	switch mode {
	case "", "auto":
		color.NoColor = os.Getenv("NO_COLOR") != "" ||
			!(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		return errors.Errorf("invalid color mode %q (expected auto, always or never)", mode)
	}
	return nil
}
