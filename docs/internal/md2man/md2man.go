// Package md2man converts Markdown man pages to roff.
package md2man

import (
	"strings"

	"emperror.dev/errors"
	"github.com/russross/blackfriday/v2"
)

// Page describes the man page being rendered.
type Page struct {
	Section int
	Version string
	Source  string
	Volume  string
}

// Render renders a Markdown man page. The first level-one heading is the page
// title and is required; level-two headings become sections.
func (p Page) Render(text []byte) ([]byte, error) {
	renderer := NewRoffRenderer(p.Section, p.Version, p.Source, p.Volume)
	bs := blackfriday.Run(text,
		blackfriday.WithRenderer(renderer),
		blackfriday.WithExtensions(renderer.GetExtensions()),
	)
	if !renderer.titled {
		return nil, errors.New("man page has no title (a level-one heading)")
	}
	return []byte(squeezeBlankLines(string(bs))), nil
}

// squeezeBlankLines drops the empty lines roff would print as vertical space,
// except inside no-fill (.nf/.fi) blocks where they are part of the text.
func squeezeBlankLines(roff string) string {
	var sb strings.Builder
	noFill := false
	for _, line := range strings.Split(roff, "\n") {
		switch {
		case line == ".nf":
			noFill = true
		case line == ".fi":
			noFill = false
		case line == "" && !noFill:
			continue
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}
