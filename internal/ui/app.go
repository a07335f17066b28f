package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/logsift/internal/config"
	"github.com/five82/logsift/internal/export"
	"github.com/five82/logsift/internal/filter"
	"github.com/five82/logsift/internal/logentry"
	"github.com/five82/logsift/internal/session"
)

// View represents the current active view.
type View int

const (
	ViewLogs View = iota
	ViewExport
)

const eventBuffer = 32

// Options configures the UI.
type Options struct {
	Context    context.Context
	Controller *session.Controller
	Config     *config.Config
	// SourceName is shown in the header.
	SourceName string
	// Clipboard receives copies; nil uses the system clipboard.
	Clipboard export.Destination
	Now       func() time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx        context.Context
	controller *session.Controller
	keys       keyMap
	now        func() time.Time
	clipboard  export.Destination
	identifier string
	exportDir  string
	sourceName string

	events      <-chan session.Event
	unsubscribe func()

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool

	// Data state, refreshed from the controller by reload
	snapshot session.Snapshot
	records  []logentry.Record
	criteria filter.Criteria

	// Log state
	logViewport viewport.Model
	logState    logState

	// Export state
	exportState exportState
	exportType  export.FileType

	// Overlays
	showHelp bool
	modal    Modal

	// Messages
	toast    string
	toastSeq int
	alert    string
}

// New creates a new Bubble Tea model subscribed to the controller's events.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	clip := opts.Clipboard
	if clip == nil {
		clip = export.Clipboard{}
	}

	m := Model{
		ctx:         ctx,
		controller:  opts.Controller,
		keys:        DefaultKeyMap(),
		now:         now,
		clipboard:   clip,
		identifier:  cfg.Identifier,
		exportDir:   cfg.ExportDir,
		sourceName:  opts.SourceName,
		theme:       GetTheme(cfg.Theme),
		currentView: ViewLogs,
		exportType:  cfg.ExportType,
	}
	m.events, m.unsubscribe = opts.Controller.Subscribe(eventBuffer)
	m.initLogState()
	m.reload()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchCmd(),
		waitForEvent(m.events),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.initLogViewport()
		}
		m.ready = true
		m.logState.contentVersion++
		m.updateLogViewport()
		return m, nil

	case fetchDoneMsg:
		m.handleFetchError(msg.err)
		m.reload()
		return m, nil

	case eventMsg:
		if msg.Kind == session.EventFetchFailed {
			m.handleFetchError(msg.Err)
		}
		m.reload()
		return m, waitForEvent(m.events)

	case applySelectionMsg:
		cmd := m.updateCriteria(func(c *filter.Criteria) {
			c.Categories = msg.categories
			c.Levels = msg.levels
		})
		return m, cmd

	case exportDoneMsg:
		return m.handleExportDone(msg)

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		modal, cmd, closed := m.modal.Update(msg, m.keys)
		m.modal = modal
		if closed {
			m.modal = nil
		}
		return m, cmd
	}

	// The search line owns the keyboard while open.
	if m.currentView == ViewLogs && m.logState.searchActive {
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleLogSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.logState.contentVersion++
		m.updateLogViewport()
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		if m.currentView == ViewLogs {
			m.currentView = ViewExport
		} else {
			m.currentView = ViewLogs
		}
		return m, nil
	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		return m, nil
	case key.Matches(msg, m.keys.ViewExport):
		m.currentView = ViewExport
		return m, nil
	}

	switch m.currentView {
	case ViewExport:
		if key.Matches(msg, m.keys.Escape) {
			m.currentView = ViewLogs
			return m, nil
		}
		return m.handleExportKey(msg)
	default:
		return m.handleLogsKey(msg)
	}
}

// handleFetchError surfaces fetch failures that the user did not cause.
func (m *Model) handleFetchError(err error) {
	switch {
	case err == nil:
		m.alert = ""
	case errors.Is(err, session.ErrFetchSuperseded), errors.Is(err, context.Canceled):
	default:
		m.alert = err.Error()
	}
}

// reload pulls the current view from the controller.
func (m *Model) reload() {
	m.snapshot = m.controller.Snapshot()
	m.criteria = m.controller.Criteria()
	m.records = m.controller.FilteredView()
	m.logState.contentVersion++
	if m.ready {
		m.updateLogViewport()
	}
}

// updateCriteria applies fn to the live criteria, returning a fetch command
// when the change moved the fetch boundary.
func (m *Model) updateCriteria(fn func(*filter.Criteria)) tea.Cmd {
	refetch := m.controller.UpdateCriteria(fn)
	m.reload()
	if refetch {
		return m.fetchCmd()
	}
	return nil
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewExport:
		return m.renderExport()
	default:
		return m.renderLogs()
	}
}

// Messages

type fetchDoneMsg struct {
	err error
}

type eventMsg session.Event

// Commands

func (m Model) fetchCmd() tea.Cmd {
	ctx := m.ctx
	ctrl := m.controller
	return func() tea.Msg {
		return fetchDoneMsg{err: ctrl.Fetch(ctx)}
	}
}

// waitForEvent returns the next controller event, or nil once the
// subscription is closed.
func waitForEvent(events <-chan session.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(evt)
	}
}

// Run starts the Bubble Tea program and blocks until it exits or ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	opts.Context = ctx
	m := New(opts)
	defer m.unsubscribe()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
