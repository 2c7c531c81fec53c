package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pyedit/internal/config"
	"github.com/zjrosen/pyedit/internal/pubsub"
	"github.com/zjrosen/pyedit/internal/render"
	"github.com/zjrosen/pyedit/internal/session"
)

const source = "import os\n\nclass Window(QWidget):\n    pass\n"

func newTestModel(t *testing.T) (Model, *session.Session, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/main.py", []byte(source), 0644))

	cfg := config.Defaults()
	cfg.UI.AboutStyle = "notty"
	s, err := session.Open(context.Background(), "/src/main.py", session.Options{Config: cfg, Fs: fs})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	m := New(s, cfg, WithRenderOptions(render.WithColorProfile(termenv.Ascii)))
	t.Cleanup(m.Close)
	return m, s, fs
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 10})
	return m
}

func TestView_BeforeSize(t *testing.T) {
	m, _, _ := newTestModel(t)
	require.Equal(t, "Loading…", m.View())
}

func TestView_RendersDocument(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = sized(t, m)

	view := ansi.Strip(m.View())
	require.Contains(t, view, "1 │ import os")
	require.Contains(t, view, "3 │ class Window(QWidget):")
	require.Contains(t, view, "main.py")
	require.Len(t, strings.Split(view, "\n"), 10)
}

func TestToggleLineNumbers(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = sized(t, m)

	m, _ = update(t, m, runes("n"))
	view := ansi.Strip(m.View())
	require.NotContains(t, view, "│")
	require.True(t, strings.HasPrefix(view, "import os"))
}

func TestAboutOverlay(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = sized(t, m)

	m, _ = update(t, m, runes("?"))
	require.True(t, m.showAbout)
	require.Contains(t, ansi.Strip(m.View()), "Syntax Highlighter")

	// Keys other than close are swallowed while the box is open.
	m, _ = update(t, m, runes("n"))
	require.True(t, m.lineNumbers)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, m.showAbout)
	require.NotContains(t, ansi.Strip(m.View()), "Syntax Highlighter")
}

func TestRehighlightEventRefreshes(t *testing.T) {
	m, s, _ := newTestModel(t)
	m = sized(t, m)

	require.NoError(t, s.Edit(context.Background(), 0, 0, "# "))
	m, cmd := update(t, m, pubsub.Event[session.Update]{
		Type:    pubsub.RehighlightedEvent,
		Payload: session.Update{Version: 1},
	})
	require.NotNil(t, cmd, "the viewer keeps listening")

	view := ansi.Strip(m.View())
	require.Contains(t, view, "1 │ # import os")
	require.Contains(t, view, "v1")
	require.Contains(t, view, "repainted lines 1-1")
}

func TestErrorEventShownInStatus(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = sized(t, m)

	m, _ = update(t, m, pubsub.Event[session.Update]{
		Type:    pubsub.ErrorEvent,
		Payload: session.Update{Err: context.DeadlineExceeded},
	})
	require.Contains(t, ansi.Strip(m.View()), "error: context deadline exceeded")
}

func TestReloadKey(t *testing.T) {
	m, _, fs := newTestModel(t)
	m = sized(t, m)

	require.NoError(t, afero.WriteFile(fs, "/src/main.py", []byte(source+"x = 1\n"), 0644))
	m, cmd := update(t, m, runes("r"))
	require.NotNil(t, cmd)

	msg := cmd()
	require.Equal(t, reloadedMsg{edits: 1}, msg)
	m, _ = update(t, m, msg)
	require.Contains(t, ansi.Strip(m.View()), "reloaded (1 edits)")
}

func TestQuitKey(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = sized(t, m)

	_, cmd := update(t, m, runes("q"))
	require.NotNil(t, cmd)
	require.Equal(t, tea.QuitMsg{}, cmd())
}

func TestProgram_ShowsFileAndQuits(t *testing.T) {
	m, _, _ := newTestModel(t)

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 10))
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("QWidget"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(runes("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))
}
