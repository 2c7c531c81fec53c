package highlight

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zjrosen/pyedit/internal/cachemanager"
	"github.com/zjrosen/pyedit/internal/log"
)

// BlockResult is the output of highlighting one block.
type BlockResult struct {
	Spans []Span
	State BlockState
}

type blockInput struct {
	text     string
	incoming BlockState
}

// Highlighter applies a RuleTable to single blocks of text. It holds no
// per-block state, so one Highlighter can serve any number of documents.
type Highlighter struct {
	table    *RuleTable
	cached   *cachemanager.ReadThroughCache[string, BlockResult, blockInput]
	cacheTTL time.Duration
}

// HighlighterOption configures a Highlighter.
type HighlighterOption func(*Highlighter)

// WithCache memoizes block results keyed by (incoming state, text).
func WithCache(cache cachemanager.CacheManager[string, BlockResult], ttl time.Duration) HighlighterOption {
	return func(h *Highlighter) {
		h.cacheTTL = ttl
		h.cached = cachemanager.NewReadThroughCache(cache,
			func(_ context.Context, in blockInput) (BlockResult, error) {
				spans, state := highlightBlock(h.table, in.text, in.incoming)
				return BlockResult{Spans: spans, State: state}, nil
			}, false)
	}
}

// NewHighlighter returns a Highlighter over table. A nil table uses Default().
func NewHighlighter(table *RuleTable, opts ...HighlighterOption) *Highlighter {
	if table == nil {
		table = Default()
	}
	h := &Highlighter{table: table}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Table returns the rule table the highlighter applies.
func (h *Highlighter) Table() *RuleTable {
	return h.table
}

// HighlightBlock classifies text given the state carried in from the
// previous block. Spans are in application order: later spans win where
// they overlap earlier ones.
func (h *Highlighter) HighlightBlock(text string, incoming BlockState) ([]Span, BlockState) {
	if h.cached == nil {
		return highlightBlock(h.table, text, incoming)
	}
	res, _ := h.cached.GetWithRefresh(context.Background(), cacheKey(text, incoming), blockInput{text: text, incoming: incoming}, h.cacheTTL)
	spans := make([]Span, len(res.Spans))
	copy(spans, res.Spans)
	return spans, res.State
}

// HighlightBlock is the stateless form of (*Highlighter).HighlightBlock.
func HighlightBlock(table *RuleTable, text string, incoming BlockState) ([]Span, BlockState) {
	if table == nil {
		table = Default()
	}
	return highlightBlock(table, text, incoming)
}

func cacheKey(text string, incoming BlockState) string {
	return string(rune('0'+int(incoming))) + "\x00" + text
}

func highlightBlock(table *RuleTable, text string, incoming BlockState) ([]Span, BlockState) {
	var spans []Span
	resume := 0

	if delim := incoming.delimiter(); delim != "" {
		idx := strings.Index(text, delim)
		if idx < 0 {
			if len(text) > 0 {
				spans = append(spans, Span{Offset: 0, Length: len(text), Category: CategoryString})
			}
			return spans, incoming
		}
		resume = idx + len(delim)
		spans = append(spans, Span{Offset: 0, Length: resume, Category: CategoryString})
	}

	if resume < len(text) {
		spans = append(spans, table.match(text, resume)...)
	}

	outgoing := StateNone
	if open, state := scanDelimiters(text, resume); state != StateNone {
		outgoing = state
		spans = append(spans, Span{Offset: open, Length: len(text) - open, Category: CategoryString})
	}
	return spans, outgoing
}

// match runs every rule over text from byte offset start. regexp2 reports
// rune positions, so matching happens on a rune slice and results are
// mapped back to byte offsets.
func (t *RuleTable) match(text string, start int) []Span {
	runes := []rune(text)
	offsets := byteOffsets(text, len(runes))
	startRune := utf8.RuneCountInString(text[:start])

	var spans []Span
	for _, r := range t.rules {
		pos := startRune
		for pos <= len(runes) {
			m, err := r.re.FindRunesMatchStartingAt(runes, pos)
			if err != nil {
				log.Warn(log.CatHighlight, "rule scan aborted", "category", r.Category.String(), "error", err)
				break
			}
			if m == nil {
				break
			}
			if m.Length == 0 {
				pos = m.Index + 1
				continue
			}
			begin, end := offsets[m.Index], offsets[m.Index+m.Length]
			spans = append(spans, Span{Offset: begin, Length: end - begin, Category: r.Category})
			pos = m.Index + m.Length
		}
	}
	return spans
}

// byteOffsets maps rune index i to its byte offset; entry n is len(text).
func byteOffsets(text string, n int) []int {
	offsets := make([]int, 0, n+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}

// scanDelimiters walks text from start looking for a triple quote left open
// at the end of the block. Closed strings are skipped and a comment ends the
// scan. It returns the byte offset of the open delimiter and the state it
// leaves, or StateNone.
func scanDelimiters(text string, start int) (int, BlockState) {
	for i := start; i < len(text); {
		c := text[i]
		switch c {
		case '#':
			return 0, StateNone
		case '\'', '"':
			triple := strings.Repeat(string(c), 3)
			if strings.HasPrefix(text[i:], triple) {
				end := strings.Index(text[i+3:], triple)
				if end < 0 {
					if c == '\'' {
						return i, StateSingleTriple
					}
					return i, StateDoubleTriple
				}
				i += 3 + end + 3
				continue
			}
			end := strings.IndexByte(text[i+1:], c)
			if end < 0 {
				i++
				continue
			}
			i += 1 + end + 1
		default:
			i++
		}
	}
	return 0, StateNone
}
