package highlight

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/pyedit/internal/log"
)

// BlockHandle identifies one block (line) of a Document.
type BlockHandle int

// Document is the host buffer the scheduler drives. Implementations own the
// text, the per-block state slot and the formatting slot.
type Document interface {
	// FindBlock returns the block containing character offset. An offset
	// equal to the document length names the final block.
	FindBlock(offset int) (BlockHandle, error)
	NextBlock(h BlockHandle) (BlockHandle, bool)
	PreviousBlock(h BlockHandle) (BlockHandle, bool)
	BlockText(h BlockHandle) (string, error)
	BlockState(h BlockHandle) (BlockState, error)
	SetBlockState(h BlockHandle, s BlockState) error
	ApplyFormatting(h BlockHandle, spans []Span, styles StyleLookup) error
}

// BlockRange is the inclusive run of blocks a pass re-highlighted.
type BlockRange struct {
	First  BlockHandle
	Last   BlockHandle
	Blocks int
}

// Scheduler turns edit notifications into re-highlight passes.
type Scheduler struct {
	doc    Document
	hl     *Highlighter
	full   bool
	tracer trace.Tracer
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithFullRehighlight makes every edit repaint the whole document.
func WithFullRehighlight(enabled bool) SchedulerOption {
	return func(s *Scheduler) { s.full = enabled }
}

// WithTracer wraps each pass in a span.
func WithTracer(t trace.Tracer) SchedulerOption {
	return func(s *Scheduler) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewScheduler binds a highlighter to doc. A nil hl uses the default rules.
func NewScheduler(doc Document, hl *Highlighter, opts ...SchedulerOption) *Scheduler {
	if hl == nil {
		hl = NewHighlighter(nil)
	}
	s := &Scheduler{
		doc:    doc,
		hl:     hl,
		tracer: noop.NewTracerProvider().Tracer("pyedit/highlight"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnEdit re-highlights after removed characters were replaced by added
// characters at position. Blocks from the one containing position through
// the one containing the end of the inserted text are repainted; after that
// the pass continues downstream while block states keep changing.
func (s *Scheduler) OnEdit(ctx context.Context, position, removed, added int) (BlockRange, error) {
	if position < 0 || removed < 0 || added < 0 {
		return BlockRange{}, fmt.Errorf("edit at %d (-%d +%d): negative argument", position, removed, added)
	}
	if err := ctx.Err(); err != nil {
		return BlockRange{}, err
	}

	ctx, span := s.tracer.Start(ctx, "highlight.OnEdit", trace.WithAttributes(
		attribute.Int("edit.position", position),
		attribute.Int("edit.removed", removed),
		attribute.Int("edit.added", added),
		attribute.Bool("full", s.full),
	))
	defer span.End()

	if s.full {
		r, err := s.passAll(ctx)
		return r, recordErr(span, err)
	}

	first, err := s.doc.FindBlock(position)
	if err != nil {
		return BlockRange{}, recordErr(span, fmt.Errorf("finding first block at %d: %w", position, err))
	}
	last := first
	if added > removed {
		end := position + max(removed, added)
		if last, err = s.doc.FindBlock(end); err != nil {
			return BlockRange{}, recordErr(span, fmt.Errorf("finding last block at %d: %w", end, err))
		}
	}

	r, err := s.run(ctx, first, last, false)
	if err == nil {
		span.SetAttributes(attribute.Int("blocks.first", int(r.First)), attribute.Int("blocks.last", int(r.Last)))
	}
	return r, recordErr(span, err)
}

// HighlightAll paints every block from the top of the document.
func (s *Scheduler) HighlightAll(ctx context.Context) (BlockRange, error) {
	if err := ctx.Err(); err != nil {
		return BlockRange{}, err
	}
	ctx, span := s.tracer.Start(ctx, "highlight.HighlightAll")
	defer span.End()

	r, err := s.passAll(ctx)
	return r, recordErr(span, err)
}

func (s *Scheduler) passAll(ctx context.Context) (BlockRange, error) {
	first, err := s.doc.FindBlock(0)
	if err != nil {
		return BlockRange{}, fmt.Errorf("finding first block: %w", err)
	}
	return s.run(ctx, first, first, true)
}

// run highlights first..last and then keeps going while outgoing states
// differ from what was recorded. toEnd disables the early stop.
func (s *Scheduler) run(ctx context.Context, first, last BlockHandle, toEnd bool) (BlockRange, error) {
	incoming := StateNone
	if prev, ok := s.doc.PreviousBlock(first); ok {
		st, err := s.doc.BlockState(prev)
		if err != nil {
			return BlockRange{}, fmt.Errorf("reading state of block %d: %w", prev, err)
		}
		incoming = st
	}

	styles := s.hl.Table().StyleLookup()
	r := BlockRange{First: first, Last: first}
	reachedLast := false

	for h := first; ; {
		text, err := s.doc.BlockText(h)
		if err != nil {
			return r, fmt.Errorf("reading block %d: %w", h, err)
		}
		previous, err := s.doc.BlockState(h)
		if err != nil {
			return r, fmt.Errorf("reading state of block %d: %w", h, err)
		}

		spans, outgoing := s.hl.HighlightBlock(text, incoming)
		if err := s.doc.ApplyFormatting(h, spans, styles); err != nil {
			return r, fmt.Errorf("formatting block %d: %w", h, err)
		}
		if err := s.doc.SetBlockState(h, outgoing); err != nil {
			return r, fmt.Errorf("recording state of block %d: %w", h, err)
		}
		r.Last = h
		r.Blocks++

		if h == last {
			reachedLast = true
		}
		next, ok := s.doc.NextBlock(h)
		if !ok {
			break
		}
		if reachedLast && !toEnd && outgoing == previous {
			break
		}
		if reachedLast && outgoing != previous {
			log.Debug(log.CatSchedule, "state changed, propagating", "block", int(h), "from", previous, "to", outgoing)
		}
		incoming = outgoing
		h = next
	}

	log.Debug(log.CatSchedule, "rehighlighted", "first", int(r.First), "last", int(r.Last), "blocks", r.Blocks)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("blocks.count", r.Blocks))
	return r, nil
}

func recordErr(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
