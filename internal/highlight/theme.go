package highlight

import (
	"fmt"
	"regexp"
	"sort"
)

// StyleDescriptor is the visual treatment of one category.
type StyleDescriptor struct {
	Foreground string // hex color, "#RRGGBB"
	Bold       bool
	Italic     bool
	FontFamily string
	FontSize   int // points
}

// StyleLookup resolves a category to its style. Hosts receive one alongside
// the spans for a block so they never need the whole RuleTable.
type StyleLookup func(Category) StyleDescriptor

const (
	defaultFontFamily = "courier"
	defaultFontSize   = 10
)

// Preset names.
const (
	PresetClassic = "classic"
	PresetDark    = "dark"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func style(fg string, bold, italic bool) StyleDescriptor {
	return StyleDescriptor{
		Foreground: fg,
		Bold:       bold,
		Italic:     italic,
		FontFamily: defaultFontFamily,
		FontSize:   defaultFontSize,
	}
}

var presets = map[string]map[Category]StyleDescriptor{
	PresetClassic: {
		CategoryNormal:    style("#000000", false, false),
		CategoryKeyword:   style("#000080", true, false),
		CategoryBuiltin:   style("#0000A0", false, false),
		CategoryConstant:  style("#0000C0", false, false),
		CategoryDecorator: style("#0000E0", false, false),
		CategoryComment:   style("#007F00", false, true),
		CategoryString:    style("#808000", false, false),
		CategoryNumber:    style("#924900", false, false),
		CategoryError:     style("#FF0000", false, false),
		CategoryToolkit:   style("#50621A", false, false),
	},
	// Same weights as classic, colors lifted for dark terminals.
	PresetDark: {
		CategoryNormal:    style("#D0D0D0", false, false),
		CategoryKeyword:   style("#7AA2F7", true, false),
		CategoryBuiltin:   style("#7DCFFF", false, false),
		CategoryConstant:  style("#BB9AF7", false, false),
		CategoryDecorator: style("#E0AF68", false, false),
		CategoryComment:   style("#5F8F5F", false, true),
		CategoryString:    style("#C3C36A", false, false),
		CategoryNumber:    style("#FF9E64", false, false),
		CategoryError:     style("#F7768E", false, false),
		CategoryToolkit:   style("#9ECE6A", false, false),
	},
}

// Presets returns the available preset names, sorted.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetStyles returns a copy of the named preset's style map.
func PresetStyles(name string) (map[Category]StyleDescriptor, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q", name)
	}
	out := make(map[Category]StyleDescriptor, len(p))
	for c, s := range p {
		out[c] = s
	}
	return out, nil
}

// ValidColor reports whether s is a "#RRGGBB" color.
func ValidColor(s string) bool {
	return hexColor.MatchString(s)
}
