package highlight

// BlockState is the carry-over state between consecutive blocks.
type BlockState int

const (
	StateNone         BlockState = iota
	StateSingleTriple            // inside an unterminated '''
	StateDoubleTriple            // inside an unterminated """
)

func (s BlockState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateSingleTriple:
		return "single-triple"
	case StateDoubleTriple:
		return "double-triple"
	default:
		return "unknown"
	}
}

// delimiter returns the triple quote that closes s, or "" for StateNone.
func (s BlockState) delimiter() string {
	switch s {
	case StateSingleTriple:
		return `'''`
	case StateDoubleTriple:
		return `"""`
	default:
		return ""
	}
}

// Span paints Length bytes starting at Offset with Category.
type Span struct {
	Offset   int
	Length   int
	Category Category
}

// End returns the exclusive end offset.
func (s Span) End() int { return s.Offset + s.Length }

// Resolve applies spans in order to a per-byte category slice of length
// textLen. Later spans overwrite earlier ones; bytes no span covers stay
// CategoryNormal.
func Resolve(spans []Span, textLen int) []Category {
	cats := make([]Category, textLen)
	for _, sp := range spans {
		start := max(sp.Offset, 0)
		end := min(sp.End(), textLen)
		for i := start; i < end; i++ {
			cats[i] = sp.Category
		}
	}
	return cats
}

// CategoryAt returns the category painted at byte offset pos after applying
// spans in order.
func CategoryAt(spans []Span, pos int) Category {
	c := CategoryNormal
	for _, sp := range spans {
		if pos >= sp.Offset && pos < sp.End() {
			c = sp.Category
		}
	}
	return c
}

// Flatten resolves overlaps with last-writer-wins and returns sorted,
// non-overlapping spans. Unpainted gaps are omitted.
func Flatten(spans []Span, textLen int) []Span {
	if len(spans) == 0 || textLen <= 0 {
		return nil
	}
	painted := make([]bool, textLen)
	for _, sp := range spans {
		for i := max(sp.Offset, 0); i < min(sp.End(), textLen); i++ {
			painted[i] = true
		}
	}
	cats := Resolve(spans, textLen)

	var out []Span
	for i := 0; i < textLen; {
		if !painted[i] {
			i++
			continue
		}
		j := i + 1
		for j < textLen && painted[j] && cats[j] == cats[i] {
			j++
		}
		out = append(out, Span{Offset: i, Length: j - i, Category: cats[i]})
		i = j
	}
	return out
}
