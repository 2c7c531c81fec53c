package highlight

import (
	"fmt"
	"strings"
)

// lineDoc is a minimal Document over a slice of lines, recording which
// blocks were formatted and in what order.
type lineDoc struct {
	lines     []string
	states    []BlockState
	spans     map[BlockHandle][]Span
	formatted []BlockHandle
}

func newLineDoc(text string) *lineDoc {
	lines := strings.Split(text, "\n")
	return &lineDoc{
		lines:  lines,
		states: make([]BlockState, len(lines)),
		spans:  make(map[BlockHandle][]Span),
	}
}

func (d *lineDoc) valid(h BlockHandle) bool {
	return h >= 0 && int(h) < len(d.lines)
}

// start returns the character offset of block h.
func (d *lineDoc) start(h BlockHandle) int {
	off := 0
	for i := 0; i < int(h); i++ {
		off += len(d.lines[i]) + 1
	}
	return off
}

func (d *lineDoc) FindBlock(offset int) (BlockHandle, error) {
	if offset < 0 {
		return 0, fmt.Errorf("offset %d: %w", offset, ErrInvalidBlock)
	}
	off := 0
	for i, line := range d.lines {
		if offset <= off+len(line) {
			return BlockHandle(i), nil
		}
		off += len(line) + 1
	}
	return 0, fmt.Errorf("offset %d: %w", offset, ErrInvalidBlock)
}

func (d *lineDoc) NextBlock(h BlockHandle) (BlockHandle, bool) {
	if !d.valid(h + 1) {
		return 0, false
	}
	return h + 1, true
}

func (d *lineDoc) PreviousBlock(h BlockHandle) (BlockHandle, bool) {
	if !d.valid(h - 1) {
		return 0, false
	}
	return h - 1, true
}

func (d *lineDoc) BlockText(h BlockHandle) (string, error) {
	if !d.valid(h) {
		return "", ErrInvalidBlock
	}
	return d.lines[h], nil
}

func (d *lineDoc) BlockState(h BlockHandle) (BlockState, error) {
	if !d.valid(h) {
		return StateNone, ErrInvalidBlock
	}
	return d.states[h], nil
}

func (d *lineDoc) SetBlockState(h BlockHandle, s BlockState) error {
	if !d.valid(h) {
		return ErrInvalidBlock
	}
	d.states[h] = s
	return nil
}

func (d *lineDoc) ApplyFormatting(h BlockHandle, spans []Span, _ StyleLookup) error {
	if !d.valid(h) {
		return ErrInvalidBlock
	}
	d.spans[h] = spans
	d.formatted = append(d.formatted, h)
	return nil
}

// categories resolves block h's recorded spans per byte.
func (d *lineDoc) categories(h BlockHandle) []Category {
	return Resolve(d.spans[h], len(d.lines[h]))
}
