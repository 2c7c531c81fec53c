// Package render turns highlighted documents into ANSI text.
package render

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"

	"github.com/zjrosen/pyedit/internal/document"
	"github.com/zjrosen/pyedit/internal/highlight"
)

// TabWidth is how many columns a tab expands to.
const TabWidth = 4

// Renderer paints document lines with lipgloss styles.
type Renderer struct {
	r           *lipgloss.Renderer
	fallback    highlight.StyleLookup
	lineNumbers bool
	width       int
	gutter      lipgloss.Style
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLineNumbers prefixes each line with its 1-based number.
func WithLineNumbers(on bool) Option {
	return func(r *Renderer) { r.lineNumbers = on }
}

// WithWidth truncates lines wider than n columns. 0 means no limit.
func WithWidth(n int) Option {
	return func(r *Renderer) { r.width = n }
}

// WithColorProfile forces a color profile instead of detecting one from
// the output.
func WithColorProfile(p termenv.Profile) Option {
	return func(r *Renderer) { r.r.SetColorProfile(p) }
}

// WithStyles sets the lookup used for blocks whose formatting carries none.
func WithStyles(lookup highlight.StyleLookup) Option {
	return func(r *Renderer) { r.fallback = lookup }
}

// New creates a Renderer that detects color support from w. A nil w
// means os.Stdout.
func New(w io.Writer, opts ...Option) *Renderer {
	if w == nil {
		w = os.Stdout
	}
	r := &Renderer{
		r:        lipgloss.NewRenderer(w),
		fallback: highlight.Default().StyleLookup(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.gutter = r.r.NewStyle().Foreground(lipgloss.Color("#808080"))
	return r
}

// Style converts a descriptor to a lipgloss style. Font family and size
// have no terminal equivalent and are ignored.
func (r *Renderer) Style(d highlight.StyleDescriptor) lipgloss.Style {
	s := r.r.NewStyle().Bold(d.Bold).Italic(d.Italic)
	if d.Foreground != "" {
		s = s.Foreground(lipgloss.Color(d.Foreground))
	}
	return s
}

// Line paints text using f. Gaps between spans are written unstyled.
func (r *Renderer) Line(text string, f document.Formatting) string {
	lookup := f.Styles
	if lookup == nil {
		lookup = r.fallback
	}

	var b strings.Builder
	pos := 0
	for _, sp := range f.Spans {
		if sp.Offset > len(text) {
			break
		}
		if sp.Offset > pos {
			b.WriteString(expandTabs(text[pos:sp.Offset]))
		}
		end := min(sp.End(), len(text))
		b.WriteString(r.Style(lookup(sp.Category)).Render(expandTabs(text[sp.Offset:end])))
		pos = end
	}
	if pos < len(text) {
		b.WriteString(expandTabs(text[pos:]))
	}
	return b.String()
}

// Document renders every block of d. Blocks are painted with whatever
// formatting they currently hold, so callers highlight first.
func (r *Renderer) Document(d *document.Document) (string, error) {
	lines := make([]string, d.BlockCount())
	for i := range lines {
		line, err := r.Block(d, highlight.BlockHandle(i))
		if err != nil {
			return "", err
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n"), nil
}

// Block renders block h with its gutter and width limit applied.
func (r *Renderer) Block(d *document.Document, h highlight.BlockHandle) (string, error) {
	text, err := d.BlockText(h)
	if err != nil {
		return "", err
	}
	f, err := d.Formatting(h)
	if err != nil {
		return "", err
	}

	line := r.Line(text, f)
	if r.lineNumbers {
		line = r.Gutter(int(h)+1, d.BlockCount()) + line
	}
	if r.width > 0 {
		line = truncate.StringWithTail(line, uint(r.width), "…")
	}
	return line, nil
}

// Gutter returns the right-aligned line number prefix for line n of total.
func (r *Renderer) Gutter(n, total int) string {
	w := runewidth.StringWidth(strconv.Itoa(total))
	return r.gutter.Render(runewidth.FillLeft(strconv.Itoa(n), w) + " │ ")
}

// WriteSpans dumps each block's flattened spans, one per line, as
// "line:start-end category".
func WriteSpans(w io.Writer, d *document.Document) error {
	for i := 0; i < d.BlockCount(); i++ {
		f, err := d.Formatting(highlight.BlockHandle(i))
		if err != nil {
			return err
		}
		for _, sp := range f.Spans {
			if _, err := fmt.Fprintf(w, "%d:%d-%d %s\n", i+1, sp.Offset, sp.End(), sp.Category); err != nil {
				return err
			}
		}
	}
	return nil
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", TabWidth))
}
