// Package app contains the Bubble Tea viewer for a highlighted file.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/zjrosen/pyedit/internal/config"
	"github.com/zjrosen/pyedit/internal/document"
	"github.com/zjrosen/pyedit/internal/keys"
	"github.com/zjrosen/pyedit/internal/log"
	"github.com/zjrosen/pyedit/internal/pubsub"
	"github.com/zjrosen/pyedit/internal/render"
	"github.com/zjrosen/pyedit/internal/session"
)

var statusStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#FFFFFF")).
	Background(lipgloss.Color("#000080"))

// reloadedMsg reports a manual reload.
type reloadedMsg struct {
	edits int
	err   error
}

// Model is the viewer state.
type Model struct {
	session *session.Session
	cfg     config.Config
	keys    keys.KeyMap
	help    help.Model

	viewport    viewport.Model
	renderOpts  []render.Option
	lineNumbers bool

	width  int
	height int
	ready  bool

	showAbout bool
	about     string

	version int
	status  string
	err     error

	ctx      context.Context
	cancel   context.CancelFunc
	listener *pubsub.ContinuousListener[session.Update]
}

// Option configures the viewer.
type Option func(*Model)

// WithRenderOptions passes extra options to the line renderer, such as a
// fixed color profile.
func WithRenderOptions(opts ...render.Option) Option {
	return func(m *Model) { m.renderOpts = append(m.renderOpts, opts...) }
}

// New creates a viewer for s. The viewer subscribes to session events
// until Close is called.
func New(s *session.Session, cfg config.Config, opts ...Option) Model {
	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		session:     s,
		cfg:         cfg,
		keys:        keys.DefaultKeyMap(),
		help:        help.New(),
		lineNumbers: cfg.UI.LineNumbers,
		ctx:         ctx,
		cancel:      cancel,
		listener:    pubsub.NewContinuousListener(ctx, s.Broker()),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Close stops listening for session events.
func (m Model) Close() {
	m.cancel()
}

func (m Model) Init() tea.Cmd {
	return m.listener.Listen()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, max(msg.Height-1, 1))
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = max(msg.Height-1, 1)
		}
		m.refresh()
		if m.showAbout {
			m.renderAbout()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pubsub.Event[session.Update]:
		m.handleEvent(msg)
		return m, m.listener.Listen()

	case reloadedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.status = fmt.Sprintf("reloaded (%d edits)", msg.edits)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.About):
		m.showAbout = !m.showAbout
		if m.showAbout {
			m.renderAbout()
		}
		return m, nil
	case key.Matches(msg, m.keys.Escape):
		m.showAbout = false
		return m, nil
	}

	if m.showAbout {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.LineNumbers):
		m.lineNumbers = !m.lineNumbers
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		s, ctx := m.session, m.ctx
		return m, func() tea.Msg {
			n, err := s.Reload(ctx)
			return reloadedMsg{edits: n, err: err}
		}
	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleEvent(ev pubsub.Event[session.Update]) {
	switch ev.Type {
	case pubsub.ErrorEvent:
		m.err = ev.Payload.Err
	case pubsub.ReloadedEvent:
		m.err = nil
		m.status = fmt.Sprintf("reloaded (%d edits)", ev.Payload.Edits)
		m.refresh()
	case pubsub.RehighlightedEvent:
		r := ev.Payload.Range
		m.status = fmt.Sprintf("repainted lines %d-%d", r.First+1, r.Last+1)
		m.refresh()
	}
}

// refresh re-renders the document into the viewport.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	opts := append([]render.Option{
		render.WithLineNumbers(m.lineNumbers),
		render.WithWidth(m.viewport.Width),
	}, m.renderOpts...)
	r := render.New(nil, opts...)

	var content string
	err := m.session.View(func(d *document.Document) error {
		m.version = d.Version()
		var err error
		content, err = r.Document(d)
		return err
	})
	if err != nil {
		log.ErrorErr(log.CatUI, "Render failed", err)
		m.err = err
		return
	}
	m.viewport.SetContent(content)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	screen := m.viewport.View() + "\n" + m.statusLine()
	if !m.showAbout || m.about == "" {
		return screen
	}
	return render.Overlay(m.width, m.height, m.about, screen)
}

func (m *Model) renderAbout() {
	about, err := aboutBox(m.width, m.cfg.UI.AboutStyle)
	if err != nil {
		log.ErrorErr(log.CatUI, "About render failed", err)
		m.err = err
		m.showAbout = false
		return
	}
	m.about = about
}

func (m Model) statusLine() string {
	left := fmt.Sprintf(" %s  v%d  %3.f%%", filepath.Base(m.session.Path()), m.version, m.viewport.ScrollPercent()*100)
	msg := m.status
	if m.err != nil {
		msg = "error: " + m.err.Error()
	}

	// Messages take the place of the key hints.
	var right string
	if msg != "" {
		left += "  " + msg
	} else {
		right = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	rightWidth := lipgloss.Width(right)
	room := m.width - rightWidth
	if room < 10 {
		right, rightWidth, room = "", 0, m.width
	}
	left = runewidth.Truncate(left, room, "…")
	gap := max(m.width-runewidth.StringWidth(left)-rightWidth, 0)
	return statusStyle.Render(left+strings.Repeat(" ", gap)) + right
}
