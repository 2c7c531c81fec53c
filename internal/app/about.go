package app

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const aboutMarkdown = `# About Syntax Highlighter

The **Syntax Highlighter** shows how to perform simple syntax highlighting
by describing highlighting rules using regular expressions.

Edits are re-highlighted incrementally: only the changed lines and the
lines whose triple-quoted string state changed are repainted.

Press ` + "`esc`" + ` or ` + "`?`" + ` to close.
`

// noMarginStyle removes glamour's document margins.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

var aboutBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#50621A")).
	Padding(0, 1)

// aboutBox renders the about box for a screen width columns wide.
// style is a glamour standard style: "dark", "light" or "notty".
func aboutBox(width int, style string) (string, error) {
	if style == "" {
		style = "dark"
	}
	wrap := min(60, max(width-6, 20))

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return "", err
	}
	body, err := r.Render(aboutMarkdown)
	if err != nil {
		return "", err
	}
	return aboutBoxStyle.Render(strings.Trim(body, "\n")), nil
}
