package md2man

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/russross/blackfriday/v2"
)

// RoffRenderer is a blackfriday renderer that writes man(7) roff.
type RoffRenderer struct {
	section int
	version string
	source  string
	volume  string
	// Item counters of the enclosing ordered lists.
	counters []int
	// Set once the .TH line has been written.
	titled bool
}

func NewRoffRenderer(section int, version, source, volume string) *RoffRenderer {
	return &RoffRenderer{
		section: section,
		version: version,
		source:  source,
		volume:  volume,
	}
}

func (r *RoffRenderer) GetExtensions() blackfriday.Extensions {
	return blackfriday.NoIntraEmphasis |
		blackfriday.FencedCode |
		blackfriday.Autolink |
		blackfriday.SpaceHeadings |
		blackfriday.BackslashLineBreak
}

func (r *RoffRenderer) RenderHeader(w io.Writer, _ *blackfriday.Node) {
	// Disable hyphenation and justification.
	_, _ = io.WriteString(w, ".nh\n.ad l\n")
}

func (r *RoffRenderer) RenderFooter(io.Writer, *blackfriday.Node) {}

func (r *RoffRenderer) RenderNode(w io.Writer, node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
	out := func(s string) { _, _ = io.WriteString(w, s) }
	switch node.Type {
	case blackfriday.Heading:
		if !entering {
			out("\n")
			return blackfriday.GoToNext
		}
		switch node.Level {
		case 1:
			r.titled = true
			out(fmt.Sprintf(".TH %q \"%d\" \"\" %q %q\n",
				strings.ToUpper(plainText(node)), r.section,
				strings.TrimSpace(r.source+" "+r.version), r.volume,
			))
			return blackfriday.SkipChildren
		case 2:
			out(".SH ")
		default:
			out(".SS ")
		}
	case blackfriday.Paragraph:
		if entering {
			// The first paragraph of a list item continues the .IP line.
			if node.Parent.Type != blackfriday.Item || node.Prev != nil {
				out(".PP\n")
			}
		} else {
			out("\n")
		}
	case blackfriday.List:
		if entering {
			r.counters = append(r.counters, 0)
			if node.Parent.Type == blackfriday.Item {
				out(".RS\n")
			}
		} else {
			r.counters = r.counters[:len(r.counters)-1]
			if node.Parent.Type == blackfriday.Item {
				out(".RE\n")
			}
		}
	case blackfriday.Item:
		if entering {
			if node.Parent.ListFlags&blackfriday.ListTypeOrdered != 0 {
				r.counters[len(r.counters)-1]++
				out(fmt.Sprintf(".IP \"%d.\" 4\n", r.counters[len(r.counters)-1]))
			} else {
				out(".IP \\(bu 2\n")
			}
		}
	case blackfriday.CodeBlock:
		out(".PP\n.RS\n.nf\n")
		out(escape(node.Literal, false))
		out(".fi\n.RE\n")
	case blackfriday.BlockQuote:
		if entering {
			out(".RS\n")
		} else {
			out(".RE\n")
		}
	case blackfriday.HorizontalRule:
		out(".ti 0\n\\l'\\n(.lu'\n")
	case blackfriday.Emph:
		font(out, entering, `\fI`)
	case blackfriday.Strong:
		font(out, entering, `\fB`)
	case blackfriday.Code:
		out(`\fB` + escape(node.Literal, true) + `\fP`)
	case blackfriday.Link:
		if !entering {
			dest := string(node.LinkData.Destination)
			if dest != plainText(node) {
				out(` \[la]` + escape([]byte(dest), true) + `\[ra]`)
			}
		}
	case blackfriday.Text:
		out(escape(node.Literal, true))
	case blackfriday.Softbreak:
		out("\n")
	case blackfriday.Hardbreak:
		out("\n.br\n")
	}
	return blackfriday.GoToNext
}

func font(out func(string), entering bool, start string) {
	if entering {
		out(start)
	} else {
		out(`\fP`)
	}
}

// plainText returns the text of the children of node without markup.
func plainText(node *blackfriday.Node) string {
	var buf bytes.Buffer
	node.Walk(func(n *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if entering && (n.Type == blackfriday.Text || n.Type == blackfriday.Code) {
			buf.Write(n.Literal)
		}
		return blackfriday.GoToNext
	})
	return buf.String()
}

// escape escapes roff control characters. Inline text also escapes dashes so
// that flags render as minus signs.
func escape(text []byte, inline bool) string {
	var sb strings.Builder
	lineStart := true
	for _, c := range string(text) {
		if lineStart && (c == '.' || c == '\'') {
			sb.WriteString(`\&`)
		}
		switch {
		case c == '\\':
			sb.WriteString(`\e`)
		case c == '-' && inline:
			sb.WriteString(`\-`)
		default:
			sb.WriteRune(c)
		}
		lineStart = c == '\n'
	}
	return sb.String()
}
