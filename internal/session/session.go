// Package session ties an open source file to its highlighter. It loads
// the document, wires the scheduler as an edit observer, and turns file
// changes on disk into minimal edits that re-highlight only what moved.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/pyedit/internal/cachemanager"
	"github.com/zjrosen/pyedit/internal/config"
	"github.com/zjrosen/pyedit/internal/document"
	"github.com/zjrosen/pyedit/internal/flags"
	"github.com/zjrosen/pyedit/internal/highlight"
	"github.com/zjrosen/pyedit/internal/log"
	"github.com/zjrosen/pyedit/internal/pubsub"
	"github.com/zjrosen/pyedit/internal/watcher"
)

// Update is the payload of every session event.
type Update struct {
	Path    string
	Version int
	Edits   int                  // ReloadedEvent: edits applied by the sync
	Range   highlight.BlockRange // RehighlightedEvent: blocks repainted
	Err     error                // ErrorEvent
}

// Options configures Open. Config is normally config.Defaults() with the
// user's file merged in. A nil Fs means the OS filesystem.
type Options struct {
	Config config.Config
	Flags  *flags.Registry
	Tracer trace.Tracer
	Fs     afero.Fs

	// Force opens files without a Python extension.
	Force bool
}

// Session owns one document and everything that keeps it highlighted.
type Session struct {
	mu     sync.Mutex
	fs     afero.Fs
	cfg    config.Config
	doc    *document.Document
	table  *highlight.RuleTable
	sched  *highlight.Scheduler
	cache  *cachemanager.InMemoryCacheManager[string, highlight.BlockResult]
	broker *pubsub.Broker[Update]

	watchOnce sync.Once
	stopWatch func()
}

// Open loads path and highlights it in full.
func Open(ctx context.Context, path string, opts Options) (*Session, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if !opts.Force {
		if err := document.CheckExtension(path); err != nil {
			return nil, err
		}
	}

	ruleOpts, err := opts.Config.RuleOptions()
	if err != nil {
		return nil, fmt.Errorf("theme: %w", err)
	}
	table, err := highlight.BuildRules(ruleOpts...)
	if err != nil {
		return nil, fmt.Errorf("building rules: %w", err)
	}

	doc, err := document.Load(fs, path)
	if err != nil {
		return nil, err
	}

	s := &Session{
		fs:     fs,
		cfg:    opts.Config,
		doc:    doc,
		table:  table,
		broker: pubsub.NewBroker[Update](),
	}

	var hlOpts []highlight.HighlighterOption
	if opts.Flags.Enabled(flags.FlagSpanCache) {
		ttl := opts.Config.Highlight.CacheTTL
		if ttl <= 0 {
			ttl = cachemanager.DefaultExpiration
		}
		s.cache = cachemanager.NewInMemoryCacheManager[string, highlight.BlockResult]("spans", ttl, cachemanager.DefaultCleanupInterval)
		hlOpts = append(hlOpts, highlight.WithCache(s.cache, ttl))
	}

	schedOpts := []highlight.SchedulerOption{
		highlight.WithFullRehighlight(opts.Flags.Enabled(flags.FlagFullRehighlight)),
	}
	if opts.Tracer != nil {
		schedOpts = append(schedOpts, highlight.WithTracer(opts.Tracer))
	}
	s.sched = highlight.NewScheduler(doc, highlight.NewHighlighter(table, hlOpts...), schedOpts...)
	doc.Observe(&publishingObserver{s: s})

	r, err := s.sched.HighlightAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("highlighting %s: %w", path, err)
	}
	log.Info(log.CatHighlight, "Highlighted document", "path", path, "blocks", r.Blocks)
	return s, nil
}

// publishingObserver runs the scheduler and announces each pass.
type publishingObserver struct {
	s *Session
}

func (o *publishingObserver) OnEdit(ctx context.Context, position, removed, added int) (highlight.BlockRange, error) {
	r, err := o.s.sched.OnEdit(ctx, position, removed, added)
	if err != nil {
		return r, err
	}
	o.s.broker.Publish(pubsub.RehighlightedEvent, Update{
		Path:    o.s.doc.Path(),
		Version: o.s.doc.Version(),
		Range:   r,
	})
	return r, nil
}

// Path is the file the session was opened on.
func (s *Session) Path() string { return s.doc.Path() }

// Table is the rule table built from the session's configuration.
func (s *Session) Table() *highlight.RuleTable { return s.table }

// Subscribe returns a channel of session events, closed when ctx ends.
func (s *Session) Subscribe(ctx context.Context) <-chan pubsub.Event[Update] {
	return s.broker.Subscribe(ctx)
}

// Broker exposes the event broker for Bubble Tea listeners.
func (s *Session) Broker() *pubsub.Broker[Update] { return s.broker }

// CacheStats reports span cache hits and misses. ok is false when the
// span cache is disabled.
func (s *Session) CacheStats() (stats cachemanager.Stats, ok bool) {
	if s.cache == nil {
		return cachemanager.Stats{}, false
	}
	return s.cache.Stats(), true
}

// View calls fn with the document while holding the session lock.
func (s *Session) View(fn func(*document.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.doc)
}

// Edit applies an edit under the session lock. The scheduler repaints
// before Edit returns.
func (s *Session) Edit(ctx context.Context, position, removed int, inserted string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Edit(ctx, position, removed, inserted)
}

// Reload re-reads the file and applies the difference as edits. It
// returns the number of edits applied.
func (s *Session) Reload(ctx context.Context) (int, error) {
	text, err := document.ReadText(s.fs, s.doc.Path())
	if err != nil {
		s.publishErr(err)
		return 0, err
	}

	s.mu.Lock()
	n, err := s.doc.Sync(ctx, text)
	version := s.doc.Version()
	s.mu.Unlock()
	if err != nil {
		s.publishErr(err)
		return n, fmt.Errorf("syncing %s: %w", s.doc.Path(), err)
	}

	log.Debug(log.CatDocument, "Reloaded", "path", s.doc.Path(), "edits", n, "version", version)
	s.broker.Publish(pubsub.ReloadedEvent, Update{Path: s.doc.Path(), Version: version, Edits: n})
	return n, nil
}

func (s *Session) publishErr(err error) {
	log.ErrorErr(log.CatDocument, "Reload failed", err, "path", s.doc.Path())
	s.broker.Publish(pubsub.ErrorEvent, Update{Path: s.doc.Path(), Err: err})
}

// ErrWatching is returned by Watch when the session is already watching.
var ErrWatching = errors.New("session is already watching")

// Watch reloads the file whenever it changes on disk until ctx ends or
// Close is called. It needs a session opened on the OS filesystem.
func (s *Session) Watch(ctx context.Context) error {
	if _, ok := s.fs.(*afero.OsFs); !ok {
		return fmt.Errorf("watching requires the OS filesystem")
	}

	started := false
	var startErr error
	s.watchOnce.Do(func() {
		started = true
		debounce := s.cfg.Watch.Debounce
		if debounce <= 0 {
			debounce = watcher.DefaultConfig("").DebounceDur
		}
		w, err := watcher.New(watcher.Config{Path: s.doc.Path(), DebounceDur: debounce})
		if err != nil {
			startErr = err
			return
		}
		changes, err := w.Start()
		if err != nil {
			_ = w.Stop()
			startErr = err
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		s.stopWatch = func() {
			cancel()
			<-done
		}
		go func() {
			defer close(done)
			defer func() { _ = w.Stop() }()
			for {
				select {
				case <-ctx.Done():
					return
				case <-changes:
					if _, err := s.Reload(ctx); err != nil {
						log.Warn(log.CatWatcher, "Reload after change failed", "path", s.doc.Path(), "error", err)
					}
				}
			}
		}()
	})
	if !started {
		return ErrWatching
	}
	return startErr
}

// Close stops watching and closes the event broker.
func (s *Session) Close() {
	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.broker.Close()
}
