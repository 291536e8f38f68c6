// Package tui renders the dashboard in the terminal.
package tui

import (
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"time"

	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/newthinker/signaldeck/internal/app"
	"github.com/newthinker/signaldeck/internal/core"
	"github.com/newthinker/signaldeck/internal/view"
)

// Controller is the part of *app.App the dashboard drives.
type Controller interface {
	State() app.State
	Updates() <-chan struct{}
	SetMarket(market string) error
	SetSystem(system string) error
	Refresh() bool
	ToggleWatchlist(symbol string) core.Watchlist
	SetDarkMode(dark bool)
	DismissError()
}

// Clipboard receives copied text.
type Clipboard interface {
	Copy(text string) error
}

// osc52Clipboard sets the terminal clipboard with an OSC 52 escape sequence,
// which also works over SSH.
type osc52Clipboard struct {
	out io.Writer
}

func (c osc52Clipboard) Copy(text string) error {
	_, err := osc52.New(text).WriteTo(c.out)
	return err
}

// stateChangedMsg is sent when the controller reports new state.
type stateChangedMsg struct{}

// clearCopiedMsg expires the "Copied!" indicator.
type clearCopiedMsg struct{}

// flashMsg is a transient footer message.
type flashMsg string

// Option configures a Model.
type Option func(*Model)

// WithClipboard replaces the OSC 52 clipboard.
func WithClipboard(c Clipboard) Option {
	return func(m *Model) { m.clipboard = c }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

// WithCopiedFor sets how long the "Copied!" indicator stays up.
func WithCopiedFor(d time.Duration) Option {
	return func(m *Model) { m.copied = view.NewCopyIndicator(d) }
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctl       Controller
	clipboard Clipboard
	logger    *zap.Logger

	state   app.State
	query   view.Query
	visible []core.Signal
	summary view.Summary

	selectedID string
	searching  bool
	search     textinput.Model
	copied     *view.CopyIndicator
	flash      string

	viewport viewport.Model
	ready    bool
	width    int
	height   int
}

// New creates the dashboard model.
func New(ctl Controller, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "symbol"
	ti.Prompt = "/"
	ti.CharLimit = 32

	m := Model{
		ctl:       ctl,
		clipboard: osc52Clipboard{out: os.Stderr},
		logger:    zap.NewNop(),
		search:    ti,
		copied:    view.NewCopyIndicator(view.DefaultCopiedFor),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.refreshState()
	return m
}

// Run starts the dashboard on the alternate screen and blocks until the user
// quits or ctx is done.
func Run(ctx context.Context, ctl Controller, opts ...Option) error {
	return run(ctx, New(ctl, opts...), tea.WithAltScreen(), tea.WithMouseCellMotion())
}

func run(ctx context.Context, m tea.Model, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// waitForUpdate blocks until the controller signals a change.
func waitForUpdate(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return stateChangedMsg{}
	}
}

func clearCopiedAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearCopiedMsg{}
	})
}

func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.ctl.Updates())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := max(m.height-headerLines-footerLines, 1)
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.syncViewport()
		return m, nil

	case stateChangedMsg:
		m.refreshState()
		return m, waitForUpdate(m.ctl.Updates())

	case clearCopiedMsg:
		m.syncViewport()
		return m, nil

	case flashMsg:
		m.flash = string(msg)
		return m, nil
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "m":
		m.setFilter(m.ctl.SetMarket, core.Markets, m.state.Filters.Market)
	case "y":
		m.setFilter(m.ctl.SetSystem, core.Systems, m.state.Filters.System)

	case "tab":
		m.query.Scope = m.query.Scope.Next()
		m.reproject()
	case "s":
		m.query.SortKey = m.query.SortKey.Next()
		m.reproject()
	case "o":
		m.query.SortDir = m.query.SortDir.Toggle()
		m.reproject()

	case "/":
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd

	case " ":
		if sig, ok := m.selected(); ok {
			m.ctl.ToggleWatchlist(sig.Symbol)
			m.refreshState()
		}

	case "c":
		sig, ok := m.selected()
		if !ok {
			break
		}
		if err := m.clipboard.Copy(view.ClipboardLine(sig)); err != nil {
			m.logger.Debug("clipboard copy failed", zap.Error(err))
			m.flash = "Copy failed"
			break
		}
		m.copied.Mark(sig.ID)
		m.syncViewport()
		return m, clearCopiedAfter(m.copied.Duration())

	case "r":
		if !m.ctl.Refresh() {
			m.flash = "Refresh already in progress"
		}
		m.refreshState()

	case "d":
		m.ctl.SetDarkMode(!m.state.Preferences.DarkMode)
		m.refreshState()

	case "esc":
		if m.state.Error == "" && m.query.Search != "" {
			m.search.SetValue("")
			m.query.Search = ""
			m.reproject()
			break
		}
		m.ctl.DismissError()
		m.refreshState()

	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)
	case "home", "g":
		m.moveSelection(-len(m.visible))
	case "end", "G":
		m.moveSelection(len(m.visible))

	default:
		if m.ready {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.search.SetValue("")
		fallthrough
	case "enter":
		m.searching = false
		m.search.Blur()
		m.query.Search = m.search.Value()
		m.reproject()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.query.Search = m.search.Value()
	m.reproject()
	return m, cmd
}

// setFilter advances a filter to the next value in values.
func (m *Model) setFilter(set func(string) error, values []string, current string) {
	next := values[(slices.Index(values, current)+1)%len(values)]
	if err := set(next); err != nil {
		m.logger.Debug("filter change rejected", zap.String("value", next), zap.Error(err))
		m.flash = err.Error()
	}
	m.refreshState()
}

// refreshState pulls a fresh copy of the controller's state and reprojects.
func (m *Model) refreshState() {
	m.state = m.ctl.State()
	m.reproject()
}

func (m *Model) reproject() {
	var signals []core.Signal
	if m.state.Snapshot != nil {
		signals = m.state.Snapshot.Signals
	}
	m.visible = view.Project(signals, m.query, m.state.Preferences.Watchlist)
	m.summary = view.Summarize(signals)

	if m.selectedIndex() < 0 {
		m.selectedID = ""
		if len(m.visible) > 0 {
			m.selectedID = m.visible[0].ID
		}
	}
	m.syncViewport()
}

func (m *Model) selectedIndex() int {
	if m.selectedID == "" {
		return -1
	}
	return slices.IndexFunc(m.visible, func(s core.Signal) bool { return s.ID == m.selectedID })
}

func (m *Model) selected() (core.Signal, bool) {
	i := m.selectedIndex()
	if i < 0 {
		return core.Signal{}, false
	}
	return m.visible[i], true
}

func (m *Model) moveSelection(delta int) {
	if len(m.visible) == 0 {
		return
	}
	i := min(max(m.selectedIndex()+delta, 0), len(m.visible)-1)
	m.selectedID = m.visible[i].ID
	m.syncViewport()
}

// syncViewport re-renders the scrolling body and keeps the selected row in
// view.
func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	content, line := m.renderBody()
	m.viewport.SetContent(content)
	if line < 0 {
		return
	}
	if line < m.viewport.YOffset {
		m.viewport.SetYOffset(line)
	} else if line >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(line - m.viewport.Height + 1)
	}
}
