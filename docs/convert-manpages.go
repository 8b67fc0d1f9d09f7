// Binary convert-manpages converts the pstack man pages from Markdown to roff.
//
//	go run ./docs --output-dir out/man        # convert every page in docs/
//	go run ./docs --preview pstack-goto.1.md  # show one page with man(1)
package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/docs/internal/md2man"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

var (
	preview    = pflag.Bool("preview", false, "Preview the converted man page")
	previewRaw = pflag.Bool("preview-raw", false, "Print the converted man page as roff")
	inputDir   = pflag.String("input-dir", ".", "Directory containing the Markdown pages")
	outputDir  = pflag.String("output-dir", "", "Output directory")
	version    = pflag.String("version", "", "The manual version")
)

// Pages are named <name>.<section>.md.
var pagePattern = regexp.MustCompile(`^(.+)[.](\d)[.]md$`)

func main() {
	pflag.Parse()

	var err error
	switch {
	case *preview || *previewRaw || *outputDir == "":
		if pflag.NArg() != 1 {
			pflag.Usage()
			os.Exit(1)
		}
		err = previewPage(pflag.Arg(0))
	default:
		err = convertDir(*inputDir, *outputDir)
	}
	if err != nil {
		logrus.WithError(err).Fatal("failed to convert man pages")
	}
}

// convertDir writes every page in dir to outDir/man<section>/<name>.<section>.
func convertDir(dir, outDir string) error {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, ent := range ents {
		if ent.IsDir() || !pagePattern.MatchString(ent.Name()) {
			continue
		}
		roff, section, err := convertPage(filepath.Join(dir, ent.Name()))
		if err != nil {
			return err
		}
		out := filepath.Join(
			outDir,
			"man"+strconv.Itoa(section),
			strings.TrimSuffix(ent.Name(), ".md"),
		)
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return errors.WrapIff(err, "cannot create the output directory")
		}
		if err := os.WriteFile(out, roff, 0o644); err != nil {
			return errors.WrapIff(err, "cannot write %q", out)
		}
		logrus.WithField("page", out).Info("converted man page")
	}
	return nil
}

func convertPage(path string) ([]byte, int, error) {
	m := pagePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return nil, 0, errors.Errorf("%q is not named <name>.<section>.md", path)
	}
	section, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, 0, err
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	page := md2man.Page{Section: section, Version: *version, Source: "pstack", Volume: "pstack Manual"}
	roff, err := page.Render(bs)
	if err != nil {
		return nil, 0, errors.WrapIff(err, "cannot convert %q", path)
	}
	return roff, section, nil
}

func previewPage(path string) error {
	roff, _, err := convertPage(path)
	if err != nil {
		return err
	}
	if *previewRaw {
		_, err := os.Stdout.Write(roff)
		return err
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin", "freebsd":
		cmd = exec.Command("mandoc", "-a")
	case "linux":
		cmd = exec.Command("man", "-l", "-")
	default:
		return errors.New("operating system not supported for preview")
	}
	cmd.Stdin = bytes.NewReader(roff)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
