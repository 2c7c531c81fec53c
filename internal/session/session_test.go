package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/pyedit/internal/config"
	"github.com/zjrosen/pyedit/internal/document"
	"github.com/zjrosen/pyedit/internal/flags"
	"github.com/zjrosen/pyedit/internal/highlight"
	"github.com/zjrosen/pyedit/internal/pubsub"
)

const source = "import os\n\ndef main():\n    return 1\n"

func openMem(t *testing.T, text string, opts Options) (*Session, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/main.py", []byte(text), 0644))

	opts.Fs = fs
	if opts.Config.Theme.Preset == "" {
		opts.Config = config.Defaults()
	}
	s, err := Open(context.Background(), "/src/main.py", opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, fs
}

func categoryAt(t *testing.T, s *Session, block int, col int) highlight.Category {
	t.Helper()
	var c highlight.Category
	require.NoError(t, s.View(func(d *document.Document) error {
		f, err := d.Formatting(highlight.BlockHandle(block))
		c = highlight.CategoryAt(f.Spans, col)
		return err
	}))
	return c
}

func TestOpen_HighlightsDocument(t *testing.T) {
	s, _ := openMem(t, source, Options{})

	require.Equal(t, "/src/main.py", s.Path())
	require.Equal(t, highlight.CategoryKeyword, categoryAt(t, s, 0, 0))
	require.Equal(t, highlight.CategoryKeyword, categoryAt(t, s, 2, 0))
	require.Equal(t, highlight.CategoryNumber, categoryAt(t, s, 3, 11))

	_, ok := s.CacheStats()
	require.False(t, ok)
}

func TestOpen_RejectsNonPython(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/notes.txt", []byte("x = 1"), 0644))

	_, err := Open(context.Background(), "/notes.txt", Options{Fs: fs, Config: config.Defaults()})
	require.ErrorIs(t, err, document.ErrUnsupportedFile)

	s, err := Open(context.Background(), "/notes.txt", Options{Fs: fs, Config: config.Defaults(), Force: true})
	require.NoError(t, err)
	s.Close()
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(context.Background(), "/nope.py", Options{Fs: afero.NewMemMapFs(), Config: config.Defaults()})
	require.Error(t, err)
}

func TestOpen_BadTheme(t *testing.T) {
	cfg := config.Defaults()
	cfg.Theme.Colors = map[string]string{"keyword": "blue"}
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.py", nil, 0644))

	_, err := Open(context.Background(), "/a.py", Options{Fs: fs, Config: cfg})
	require.Error(t, err)
	require.Contains(t, err.Error(), "theme")
}

func TestReload_AppliesMinimalEdits(t *testing.T) {
	s, fs := openMem(t, source, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Subscribe(ctx)

	updated := "import os\n\ndef main():\n    return '''1\n"
	require.NoError(t, afero.WriteFile(fs, "/src/main.py", []byte(updated), 0644))

	n, err := s.Reload(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, s.View(func(d *document.Document) error {
		require.Equal(t, updated, d.Text())
		state, err := d.BlockState(3)
		require.Equal(t, highlight.StateSingleTriple, state)
		return err
	}))
	require.Equal(t, highlight.CategoryString, categoryAt(t, s, 3, 11))

	var types []pubsub.EventType
	for len(types) < 2 {
		select {
		case ev := <-events:
			types = append(types, ev.Type)
		case <-time.After(time.Second):
			t.Fatalf("timed out, got %v", types)
		}
	}
	require.Equal(t, []pubsub.EventType{pubsub.RehighlightedEvent, pubsub.ReloadedEvent}, types)
}

func TestReload_Unchanged(t *testing.T) {
	s, _ := openMem(t, source, Options{})
	n, err := s.Reload(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestReload_PublishesErrors(t *testing.T) {
	s, fs := openMem(t, source, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Subscribe(ctx)

	require.NoError(t, fs.Remove("/src/main.py"))
	_, err := s.Reload(ctx)
	require.Error(t, err)

	select {
	case ev := <-events:
		require.Equal(t, pubsub.ErrorEvent, ev.Type)
		require.Error(t, ev.Payload.Err)
	case <-time.After(time.Second):
		t.Fatal("expected an error event")
	}
}

func TestEdit_RepaintsAffectedBlocks(t *testing.T) {
	s, _ := openMem(t, "x = 1\ny = 2", Options{})
	require.NoError(t, s.Edit(context.Background(), 0, 0, "# "))
	require.Equal(t, highlight.CategoryComment, categoryAt(t, s, 0, 6))
	require.Equal(t, highlight.CategoryNumber, categoryAt(t, s, 1, 4))
}

func TestSpanCacheFlag(t *testing.T) {
	s, fs := openMem(t, "a = 1\nb = 2\n", Options{Flags: flags.New(map[string]bool{flags.FlagSpanCache: true})})

	stats, ok := s.CacheStats()
	require.True(t, ok)
	require.Equal(t, uint64(0), stats.Hits)

	// Reordering lines reuses the cached results for both.
	require.NoError(t, afero.WriteFile(fs, "/src/main.py", []byte("b = 2\na = 1\n"), 0644))
	_, err := s.Reload(context.Background())
	require.NoError(t, err)

	stats, _ = s.CacheStats()
	require.Positive(t, stats.Hits)
	require.Equal(t, highlight.CategoryNumber, categoryAt(t, s, 0, 4))
}

func TestTracerIsUsed(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	s, _ := openMem(t, "pass", Options{Tracer: tp.Tracer("test")})
	require.NoError(t, s.Edit(context.Background(), 0, 0, "# "))

	var names []string
	for _, span := range rec.Ended() {
		names = append(names, span.Name())
	}
	require.Equal(t, []string{"highlight.HighlightAll", "highlight.OnEdit"}, names)
}

func TestWatch_RequiresOsFs(t *testing.T) {
	s, _ := openMem(t, source, Options{})
	require.Error(t, s.Watch(context.Background()))
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))

	cfg := config.Defaults()
	cfg.Watch.Debounce = 20 * time.Millisecond
	s, err := Open(context.Background(), path, Options{Config: cfg})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Subscribe(ctx)

	require.NoError(t, s.Watch(ctx))
	require.ErrorIs(t, s.Watch(ctx), ErrWatching)

	require.NoError(t, os.WriteFile(path, []byte("x = 1\ny = 'a'\n"), 0644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type != pubsub.ReloadedEvent {
				continue
			}
			require.Positive(t, ev.Payload.Edits)
			require.Equal(t, highlight.CategoryString, categoryAt(t, s, 1, 4))
			return
		case <-deadline:
			t.Fatal("expected a reload after the file changed")
		}
	}
}
