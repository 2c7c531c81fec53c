package highlight

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

var keywords = []string{
	"and", "as", "assert", "break", "class", "continue",
	"def", "del", "elif", "else", "except", "exec", "finally",
	"for", "from", "global", "if", "import", "in", "is", "lambda",
	"not", "or", "pass", "print", "raise", "return", "try",
	"while", "with", "yield",
}

var builtins = []string{
	"abs", "all", "any", "basestring", "bool", "callable",
	"chr", "classmethod", "cmp", "compile", "complex", "delattr",
	"dict", "dir", "divmod", "enumerate", "eval", "execfile",
	"exit", "file", "filter", "float", "frozenset", "getattr",
	"globals", "hasattr", "hex", "id", "int", "isinstance",
	"issubclass", "iter", "len", "list", "locals", "long", "map",
	"max", "min", "object", "oct", "open", "ord", "pow",
	"property", "range", "reduce", "repr", "reversed", "round",
	"set", "setattr", "slice", "sorted", "staticmethod", "str",
	"sum", "super", "tuple", "type", "unichr", "unicode", "vars",
	"xrange", "zip",
}

var constants = []string{"False", "True", "None", "NotImplemented", "Ellipsis"}

const (
	// DefaultToolkitPattern matches PyQt4 and Qt-style class names.
	DefaultToolkitPattern = `\bPyQt4\b|\bQt?[A-Z][a-z]\w+\b`

	numberPattern = `\b[+-]?[0-9]+[lL]?\b` +
		`|\b[+-]?0[xX][0-9A-Fa-f]+[lL]?\b` +
		`|\b[+-]?[0-9]+(?:\.[0-9]+)?(?:[eE][+-]?[0-9]+)?\b`
	decoratorPattern    = `@\w+`
	commentPattern      = `#.*`
	stringPattern       = `'[^']*?'|"[^"]*?"`
	tripleStringPattern = `'''[\s\S]*?'''|"""[\s\S]*?"""`

	// DefaultMatchTimeout bounds a single regex evaluation.
	DefaultMatchTimeout = 250 * time.Millisecond
)

// Rule pairs a compiled pattern with the category it paints.
type Rule struct {
	Category Category
	Pattern  string
	re       *regexp2.Regexp
}

// RuleTable is the ordered rule list plus the style map. It is read-only
// once built and safe for concurrent use.
type RuleTable struct {
	rules  []Rule
	styles map[Category]StyleDescriptor
}

type buildOptions struct {
	toolkitPattern string
	preset         string
	styles         map[Category]StyleDescriptor
	matchTimeout   time.Duration
}

// Option customizes BuildRules.
type Option func(*buildOptions)

// WithToolkitPattern replaces the toolkit identifier pattern.
func WithToolkitPattern(pattern string) Option {
	return func(o *buildOptions) { o.toolkitPattern = pattern }
}

// WithPreset selects the base style preset.
func WithPreset(name string) Option {
	return func(o *buildOptions) { o.preset = name }
}

// WithStyles overrides individual category styles on top of the preset.
func WithStyles(styles map[Category]StyleDescriptor) Option {
	return func(o *buildOptions) { o.styles = styles }
}

// WithMatchTimeout sets the per-evaluation regex timeout. Zero disables it.
func WithMatchTimeout(d time.Duration) Option {
	return func(o *buildOptions) { o.matchTimeout = d }
}

func wordAlternation(words []string) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = `\b` + w + `\b`
	}
	return strings.Join(parts, "|")
}

// BuildRules compiles the rule table. Pattern failures surface here as a
// *PatternError so a highlight pass never sees a broken rule.
func BuildRules(opts ...Option) (*RuleTable, error) {
	o := buildOptions{
		toolkitPattern: DefaultToolkitPattern,
		preset:         PresetClassic,
		matchTimeout:   DefaultMatchTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	styles, err := PresetStyles(o.preset)
	if err != nil {
		return nil, err
	}
	for c, s := range o.styles {
		if !c.Valid() {
			return nil, fmt.Errorf("style for unknown category %d", int(c))
		}
		if s.Foreground != "" && !ValidColor(s.Foreground) {
			return nil, fmt.Errorf("style %s: invalid color %q", c, s.Foreground)
		}
		styles[c] = mergeStyle(styles[c], s)
	}

	specs := []struct {
		cat     Category
		pattern string
	}{
		{CategoryKeyword, wordAlternation(keywords)},
		{CategoryBuiltin, wordAlternation(builtins)},
		{CategoryConstant, wordAlternation(constants)},
		{CategoryNumber, numberPattern},
		{CategoryToolkit, o.toolkitPattern},
		{CategoryDecorator, decoratorPattern},
		{CategoryComment, commentPattern},
		{CategoryString, stringPattern},
		{CategoryString, tripleStringPattern},
	}

	rules := make([]Rule, 0, len(specs))
	for _, s := range specs {
		if s.pattern == "" {
			continue
		}
		re, err := regexp2.Compile(s.pattern, regexp2.None)
		if err != nil {
			return nil, &PatternError{Category: s.cat, Pattern: s.pattern, Err: err}
		}
		if o.matchTimeout > 0 {
			re.MatchTimeout = o.matchTimeout
		}
		rules = append(rules, Rule{Category: s.cat, Pattern: s.pattern, re: re})
	}

	return &RuleTable{rules: rules, styles: styles}, nil
}

// mergeStyle applies the non-zero fields of override to base. Bold and
// Italic always come from override since false is meaningful there.
func mergeStyle(base, override StyleDescriptor) StyleDescriptor {
	if override.Foreground != "" {
		base.Foreground = override.Foreground
	}
	base.Bold = override.Bold
	base.Italic = override.Italic
	if override.FontFamily != "" {
		base.FontFamily = override.FontFamily
	}
	if override.FontSize > 0 {
		base.FontSize = override.FontSize
	}
	return base
}

var defaultTable = sync.OnceValue(func() *RuleTable {
	t, err := BuildRules()
	if err != nil {
		panic(fmt.Sprintf("highlight: building default rules: %v", err))
	}
	return t
})

// Default returns the process-wide rule table with the classic preset.
func Default() *RuleTable {
	return defaultTable()
}

// Rules returns a copy of the ordered rules.
func (t *RuleTable) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Style returns the style for c, falling back to the normal style.
func (t *RuleTable) Style(c Category) StyleDescriptor {
	if s, ok := t.styles[c]; ok {
		return s
	}
	return t.styles[CategoryNormal]
}

// Styles returns a copy of the category style map.
func (t *RuleTable) Styles() map[Category]StyleDescriptor {
	out := make(map[Category]StyleDescriptor, len(t.styles))
	for c, s := range t.styles {
		out[c] = s
	}
	return out
}

// StyleLookup returns t.Style as a StyleLookup.
func (t *RuleTable) StyleLookup() StyleLookup {
	return t.Style
}
