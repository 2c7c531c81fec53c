// Package document is the line-based text buffer the highlighter runs
// against. It implements highlight.Document: each line is a block with a
// state slot and a formatting slot, and every edit is reported to
// registered observers (normally a highlight.Scheduler).
//
// Offsets are byte offsets into the full text. The newline that ends a
// line belongs to that line's block.
package document

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/zjrosen/pyedit/internal/highlight"
	"github.com/zjrosen/pyedit/internal/log"
)

// ErrOffsetOutOfRange is returned for offsets outside [0, len(text)]. It
// matches highlight.ErrInvalidBlock under errors.Is.
var ErrOffsetOutOfRange = fmt.Errorf("offset out of range: %w", highlight.ErrInvalidBlock)

// EditObserver is notified after every edit. *highlight.Scheduler
// satisfies it.
type EditObserver interface {
	OnEdit(ctx context.Context, position, removed, added int) (highlight.BlockRange, error)
}

// Formatting is what the highlighter last pushed into a block: sorted,
// non-overlapping spans plus the lookup that styles them.
type Formatting struct {
	Spans  []highlight.Span
	Styles highlight.StyleLookup
}

// Document holds the text as lines along with per-line highlight state.
type Document struct {
	id        uuid.UUID
	path      string
	lines     []string
	starts    []int // byte offset of each line
	states    []highlight.BlockState
	formats   []Formatting
	version   int
	observers []EditObserver
}

var _ highlight.Document = (*Document)(nil)

// New creates a document holding text.
func New(text string) *Document {
	d := &Document{id: uuid.New()}
	d.lines = strings.Split(text, "\n")
	d.states = make([]highlight.BlockState, len(d.lines))
	d.formats = make([]Formatting, len(d.lines))
	d.reindex()
	return d
}

func (d *Document) reindex() {
	d.starts = d.starts[:0]
	off := 0
	for _, line := range d.lines {
		d.starts = append(d.starts, off)
		off += len(line) + 1
	}
}

func (d *Document) ID() uuid.UUID { return d.id }

// Path is the file the document was loaded from, if any.
func (d *Document) Path() string { return d.path }

// Version increments on every edit.
func (d *Document) Version() int { return d.version }

func (d *Document) BlockCount() int { return len(d.lines) }

// Len returns the text length in bytes.
func (d *Document) Len() int {
	last := len(d.lines) - 1
	return d.starts[last] + len(d.lines[last])
}

// Text returns the full document text.
func (d *Document) Text() string {
	return strings.Join(d.lines, "\n")
}

// Lines returns a copy of the document's lines.
func (d *Document) Lines() []string {
	out := make([]string, len(d.lines))
	copy(out, d.lines)
	return out
}

// Observe registers o for edit notifications and returns a function that
// removes it.
func (d *Document) Observe(o EditObserver) func() {
	d.observers = append(d.observers, o)
	return func() {
		for i, existing := range d.observers {
			if existing == o {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

// locate maps a byte offset to (line, column).
func (d *Document) locate(offset int) (int, int, error) {
	if offset < 0 || offset > d.Len() {
		return 0, 0, fmt.Errorf("offset %d of %d: %w", offset, d.Len(), ErrOffsetOutOfRange)
	}
	line := sort.Search(len(d.starts), func(i int) bool { return d.starts[i] > offset }) - 1
	return line, offset - d.starts[line], nil
}

// Edit replaces removed bytes at position with inserted and notifies
// observers. A replacement is applied as a deletion followed by an
// insertion, so each notification names exactly the blocks it touched.
func (d *Document) Edit(ctx context.Context, position, removed int, inserted string) error {
	if removed < 0 {
		return fmt.Errorf("edit at %d: negative removal %d", position, removed)
	}
	if removed > 0 && inserted != "" {
		if err := d.apply(ctx, position, removed, ""); err != nil {
			return err
		}
		return d.apply(ctx, position, 0, inserted)
	}
	return d.apply(ctx, position, removed, inserted)
}

// apply performs one edit and notifies observers with (position, removed,
// len(inserted)). Blocks before the edit keep their state. Replaced blocks
// keep their old states by index and the last new block takes over the
// state of the last replaced block, so the scheduler can tell whether the
// edit changed what flows downstream.
func (d *Document) apply(ctx context.Context, position, removed int, inserted string) error {
	firstLine, firstCol, err := d.locate(position)
	if err != nil {
		return fmt.Errorf("edit start: %w", err)
	}
	lastLine, lastCol, err := d.locate(position + removed)
	if err != nil {
		return fmt.Errorf("edit end: %w", err)
	}

	merged := d.lines[firstLine][:firstCol] + inserted + d.lines[lastLine][lastCol:]
	replacement := strings.Split(merged, "\n")

	oldStates := d.states[firstLine : lastLine+1]
	newStates := make([]highlight.BlockState, len(replacement))
	tail := oldStates[len(oldStates)-1]
	for i := range newStates {
		newStates[i] = tail
		if i < len(oldStates) && i < len(newStates)-1 {
			newStates[i] = oldStates[i]
		}
	}

	d.lines = splice(d.lines, firstLine, lastLine+1, replacement)
	d.states = splice(d.states, firstLine, lastLine+1, newStates)
	d.formats = splice(d.formats, firstLine, lastLine+1, make([]Formatting, len(replacement)))
	d.reindex()
	d.version++

	log.Debug(log.CatDocument, "edit",
		"doc", d.id.String(),
		"position", position,
		"removed", removed,
		"added", len(inserted),
		"blocks", len(d.lines),
		"version", d.version)

	for _, o := range d.observers {
		if _, err := o.OnEdit(ctx, position, removed, len(inserted)); err != nil {
			return fmt.Errorf("notifying edit observer: %w", err)
		}
	}
	return nil
}

// Insert is Edit with nothing removed.
func (d *Document) Insert(ctx context.Context, position int, text string) error {
	return d.Edit(ctx, position, 0, text)
}

// Delete is Edit with nothing inserted.
func (d *Document) Delete(ctx context.Context, position, n int) error {
	return d.Edit(ctx, position, n, "")
}

func splice[T any](s []T, from, to int, with []T) []T {
	out := make([]T, 0, len(s)-(to-from)+len(with))
	out = append(out, s[:from]...)
	out = append(out, with...)
	return append(out, s[to:]...)
}

func (d *Document) valid(h highlight.BlockHandle) bool {
	return h >= 0 && int(h) < len(d.lines)
}

func (d *Document) FindBlock(offset int) (highlight.BlockHandle, error) {
	line, _, err := d.locate(offset)
	if err != nil {
		return 0, err
	}
	return highlight.BlockHandle(line), nil
}

func (d *Document) NextBlock(h highlight.BlockHandle) (highlight.BlockHandle, bool) {
	if !d.valid(h) || !d.valid(h+1) {
		return 0, false
	}
	return h + 1, true
}

func (d *Document) PreviousBlock(h highlight.BlockHandle) (highlight.BlockHandle, bool) {
	if !d.valid(h) || !d.valid(h-1) {
		return 0, false
	}
	return h - 1, true
}

func (d *Document) BlockText(h highlight.BlockHandle) (string, error) {
	if !d.valid(h) {
		return "", fmt.Errorf("block %d: %w", h, highlight.ErrInvalidBlock)
	}
	return d.lines[h], nil
}

// BlockStart returns the byte offset at which block h begins.
func (d *Document) BlockStart(h highlight.BlockHandle) (int, error) {
	if !d.valid(h) {
		return 0, fmt.Errorf("block %d: %w", h, highlight.ErrInvalidBlock)
	}
	return d.starts[h], nil
}

func (d *Document) BlockState(h highlight.BlockHandle) (highlight.BlockState, error) {
	if !d.valid(h) {
		return highlight.StateNone, fmt.Errorf("block %d: %w", h, highlight.ErrInvalidBlock)
	}
	return d.states[h], nil
}

func (d *Document) SetBlockState(h highlight.BlockHandle, s highlight.BlockState) error {
	if !d.valid(h) {
		return fmt.Errorf("block %d: %w", h, highlight.ErrInvalidBlock)
	}
	d.states[h] = s
	return nil
}

// ApplyFormatting stores spans for block h, flattened so later spans win.
func (d *Document) ApplyFormatting(h highlight.BlockHandle, spans []highlight.Span, styles highlight.StyleLookup) error {
	if !d.valid(h) {
		return fmt.Errorf("block %d: %w", h, highlight.ErrInvalidBlock)
	}
	d.formats[h] = Formatting{
		Spans:  highlight.Flatten(spans, len(d.lines[h])),
		Styles: styles,
	}
	return nil
}

// Formatting returns what was last applied to block h. Blocks an edit
// replaced have zero Formatting until they are highlighted again.
func (d *Document) Formatting(h highlight.BlockHandle) (Formatting, error) {
	if !d.valid(h) {
		return Formatting{}, fmt.Errorf("block %d: %w", h, highlight.ErrInvalidBlock)
	}
	return d.formats[h], nil
}
