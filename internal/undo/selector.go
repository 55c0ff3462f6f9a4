package undo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/untoldecay/Branchless/internal/eventlog"
	"github.com/untoldecay/Branchless/internal/git"
	"github.com/untoldecay/Branchless/internal/mergebase"
	"github.com/untoldecay/Branchless/internal/metadata"
	"github.com/untoldecay/Branchless/internal/smartlog"
	"github.com/untoldecay/Branchless/internal/ui"
)

// Message is the selector's input alphabet. Key presses are translated
// into these messages; each Update consumes at most one and a repaint
// follows immediately.
type Message int

const (
	MsgInit Message = iota
	MsgNext
	MsgPrevious
	MsgGoToEvent
	MsgHelp
	MsgQuit
	MsgAccept
)

// SetCursorMsg jumps the selector to a specific event id.
type SetCursorMsg struct {
	EventID int
}

const helpMarkdown = `# How to use

Use ` + "`git undo`" + ` to view and revert to previous states of the repository.

- **h/?**: Show this help.
- **q**: Quit.
- **p/n** or **left/right**: View previous/next state.
- **g**: Go to a provided event ID.
- **enter**: Revert the repository to the given state (requires confirmation).

You can also copy a commit hash from the past and manually run ` +
	"`git unhide`" + ` or ` + "`git rebase`" + ` on it.
`

// Selector is the interactive chooser for a past event cursor.
type Selector struct {
	Ctx      context.Context
	Repo     *git.Repo
	MBCache  *mergebase.Cache
	Replayer *eventlog.Replayer
	Glyphs   smartlog.Glyphs
	Now      time.Time
}

// Select runs the TUI and returns the accepted cursor. accepted is
// false when the user quit without choosing.
func (s *Selector) Select() (eventlog.Cursor, bool, error) {
	model := NewModel(s)
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return eventlog.Cursor{}, false, fmt.Errorf("running undo selector: %w", err)
	}
	m := final.(Model)
	if m.err != nil {
		return eventlog.Cursor{}, false, m.err
	}
	return m.cursor, m.accepted, nil
}

// Model is the bubbletea model for the selector. It is exported so
// tests can drive the event loop one message at a time.
type Model struct {
	sel    *Selector
	cursor eventlog.Cursor

	viewport viewport.Model
	info     string
	showHelp bool
	helpView string

	gotoMode  bool
	gotoInput string
	gotoErr   string

	accepted bool
	err      error
	ready    bool
	width    int
	height   int
}

// NewModel builds the selector model positioned at the present.
func NewModel(s *Selector) Model {
	return Model{
		sel:    s,
		cursor: s.Replayer.MakeDefaultCursor(),
	}
}

// Cursor exposes the current cursor for tests.
func (m Model) Cursor() eventlog.Cursor {
	return m.cursor
}

// Accepted reports whether the user confirmed a selection.
func (m Model) Accepted() bool {
	return m.accepted
}

// Info exposes the info-panel contents for tests.
func (m Model) Info() string {
	return m.info
}

func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return MsgInit }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		infoHeight := strings.Count(m.info, "\n") + 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, max(1, msg.Height-infoHeight))
			m.ready = true
			m.redraw()
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = max(1, msg.Height-infoHeight)
		}
		return m, nil

	case tea.KeyMsg:
		if m.gotoMode {
			return m.updateGoTo(msg)
		}
		if translated, ok := translateKey(msg); ok {
			return m.Update(translated)
		}
		// Unbound keys (arrows, page up/down) drive viewport
		// scrolling.
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case Message:
		return m.applyMessage(msg)

	case SetCursorMsg:
		m.cursor = m.sel.Replayer.MakeCursor(msg.EventID)
		m.redraw()
		return m, nil
	}
	return m, nil
}

func translateKey(msg tea.KeyMsg) (tea.Msg, bool) {
	switch msg.String() {
	case "n", "N", "right":
		return MsgNext, true
	case "p", "P", "left":
		return MsgPrevious, true
	case "h", "H", "?":
		return MsgHelp, true
	case "g", "G":
		return MsgGoToEvent, true
	case "q", "Q", "ctrl+c":
		return MsgQuit, true
	case "enter":
		return MsgAccept, true
	case "up", "down", "pgup", "pgdown":
		// Scrolling is handled by the viewport.
		return nil, false
	}
	return nil, false
}

func (m Model) applyMessage(msg Message) (tea.Model, tea.Cmd) {
	switch msg {
	case MsgInit:
		m.redraw()

	case MsgNext:
		m.cursor = m.sel.Replayer.AdvanceByTransaction(m.cursor, 1)
		m.redraw()

	case MsgPrevious:
		m.cursor = m.sel.Replayer.AdvanceByTransaction(m.cursor, -1)
		m.redraw()

	case MsgGoToEvent:
		m.gotoMode = true
		m.gotoInput = ""
		m.gotoErr = ""

	case MsgHelp:
		m.showHelp = !m.showHelp
		if m.showHelp && m.helpView == "" {
			rendered, err := glamour.Render(helpMarkdown, "auto")
			if err != nil {
				rendered = helpMarkdown
			}
			m.helpView = rendered
		}

	case MsgQuit:
		return m, tea.Quit

	case MsgAccept:
		m.accepted = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateGoTo(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.gotoMode = false
	case "enter":
		eventID, err := strconv.Atoi(m.gotoInput)
		if err != nil {
			m.gotoErr = fmt.Sprintf("Invalid event ID: %s", m.gotoInput)
			return m, nil
		}
		m.gotoMode = false
		return m.Update(SetCursorMsg{EventID: eventID})
	case "backspace":
		if len(m.gotoInput) > 0 {
			m.gotoInput = m.gotoInput[:len(m.gotoInput)-1]
		}
	default:
		for _, r := range msg.String() {
			if r >= '0' && r <= '9' || r == '-' {
				m.gotoInput += string(r)
			}
		}
	}
	return m, nil
}

// redraw recomputes the smartlog and info panel for the current
// cursor. Mutates the model in place; callers hold it by value.
func (m *Model) redraw() {
	rendered, err := smartlog.RenderAtCursor(
		m.sel.Ctx, m.sel.Repo, m.sel.MBCache, m.sel.Replayer,
		m.cursor, m.sel.Glyphs, m.sel.Now, true,
	)
	if err != nil {
		m.err = err
		return
	}
	if m.ready {
		m.viewport.SetContent(rendered)
	} else {
		// No WindowSizeMsg yet (e.g. in tests): size to the terminal.
		m.viewport = viewport.New(ui.GetWidth(), 24)
		m.viewport.SetContent(rendered)
		m.ready = true
	}
	m.info = m.renderInfo()
}

// renderInfo describes the transaction that ends at the cursor.
func (m *Model) renderInfo() string {
	eventID, events, ok := m.sel.Replayer.GetTxEventsBeforeCursor(m.cursor)
	if !ok {
		return "There are no previous available events."
	}
	relativeTime := fmt.Sprintf(
		" (%s ago)",
		metadata.DescribeTimeDelta(m.sel.Now, time.Unix(int64(events[0].Timestamp()), 0)),
	)
	header := fmt.Sprintf(
		"Repo after transaction %d (event %d)%s. Press 'h' for help, 'q' to quit.",
		events[0].TransactionID(), eventID, relativeTime,
	)
	lines := append(
		[]string{ui.SelectorTitle.Render(header)},
		DescribeEventsNumbered(m.sel.Ctx, m.sel.Repo, events)...,
	)
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n"
	}
	if m.showHelp {
		return m.helpView
	}
	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.info)
	if m.gotoMode {
		b.WriteString("\nGo to event: ")
		b.WriteString(m.gotoInput)
		if m.gotoErr != "" {
			b.WriteString("\n")
			b.WriteString(ui.WarningStyle.Render(m.gotoErr))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
