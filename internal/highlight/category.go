package highlight

import "fmt"

// Category is the lexical class assigned to a span of source text.
// The set is closed: every span carries one of the constants below.
type Category int

const (
	CategoryNormal Category = iota
	CategoryKeyword
	CategoryBuiltin
	CategoryConstant
	CategoryDecorator
	CategoryComment
	CategoryString
	CategoryNumber
	CategoryError
	CategoryToolkit // host-API identifiers (framework class names)
)

var categoryNames = [...]string{
	CategoryNormal:    "normal",
	CategoryKeyword:   "keyword",
	CategoryBuiltin:   "builtin",
	CategoryConstant:  "constant",
	CategoryDecorator: "decorator",
	CategoryComment:   "comment",
	CategoryString:    "string",
	CategoryNumber:    "number",
	CategoryError:     "error",
	CategoryToolkit:   "toolkit",
}

// String returns the name used for the category in styles and config files.
func (c Category) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return categoryNames[c]
}

// Valid reports whether c is a member of the category set.
func (c Category) Valid() bool {
	return c >= CategoryNormal && int(c) < len(categoryNames)
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, len(categoryNames))
	for i := range categoryNames {
		out[i] = Category(i)
	}
	return out
}

// ParseCategory maps a config name back to its Category.
func ParseCategory(name string) (Category, error) {
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return CategoryNormal, fmt.Errorf("unknown category %q", name)
}
