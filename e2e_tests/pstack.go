package e2e_tests

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/git"
	"github.com/kr/text"
	"github.com/stretchr/testify/require"
)

var pstackCmdPath string

func init() {
	// Never launch an interactive editor or read the user's configuration.
	for k, v := range map[string]string{
		"PSTACK_EDITOR": ":",
		"GIT_EDITOR":    ":",
		"PSTACK_HOME":   os.TempDir(),
		"NO_COLOR":      "1",
	} {
		if err := os.Setenv(k, v); err != nil {
			panic(err)
		}
	}

	cmd := exec.Command("go", "build", "../cmd/pstack")
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		panic(err)
	}
	var err error
	pstackCmdPath, err = filepath.Abs("./pstack")
	if err != nil {
		panic(err)
	}
}

type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func Cmd(t *testing.T, exe string, args ...string) Output {
	t.Helper()
	cmd := exec.Command(exe, args...)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	var exitError *exec.ExitError
	if err != nil && !errors.As(err, &exitError) {
		t.Fatal(err)
	}

	output := Output{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	t.Logf("Running %s\n"+
		"args: %v\n"+
		"exit code: %v\n"+
		"stdout:\n"+
		"%s"+
		"stderr:\n"+
		"%s",
		filepath.Base(exe),
		args,
		cmd.ProcessState.ExitCode(),
		text.Indent(stdout.String(), "  "),
		text.Indent(stderr.String(), "  "),
	)
	return output
}

func RequireCmd(t *testing.T, exe string, args ...string) Output {
	t.Helper()
	output := Cmd(t, exe, args...)
	require.Equal(t, 0, output.ExitCode, "%s %s: exited with %v", exe, args, output.ExitCode)
	return output
}

func Pstack(t *testing.T, args ...string) Output {
	t.Helper()
	args = append([]string{"--debug"}, args...)
	return Cmd(t, pstackCmdPath, args...)
}

func RequirePstack(t *testing.T, args ...string) Output {
	t.Helper()
	output := Pstack(t, args...)
	require.Equal(t, 0, output.ExitCode, "pstack %s: exited with %v", args, output.ExitCode)
	return output
}

func Chdir(t *testing.T, dir string) {
	t.Helper()
	t.Chdir(dir)
}

// RequireSeries checks the output of `pstack series`.
func RequireSeries(t *testing.T, expected string, args ...string) {
	t.Helper()
	output := RequirePstack(t, append([]string{"series"}, args...)...)
	require.Equal(t, expected, output.Stdout)
}

func RequireCurrentBranchName(t *testing.T, repo *git.Repo, name string) {
	t.Helper()
	currentBranch, err := repo.CurrentBranchName(context.Background())
	require.NoError(t, err, "failed to determine current branch name")
	require.Equal(t, name, currentBranch, "expected current branch to be %q, got %q", name, currentBranch)
}
