// Package tui is the interactive kanban view of the deal pipeline.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/pipeline"
	"github.com/Veraticus/the-deals-must-flow/internal/tui/themes"
)

// Mode is what the keyboard currently drives.
type Mode int

const (
	// ModeBoard navigates the columns.
	ModeBoard Mode = iota
	// ModeSearch edits the search term.
	ModeSearch
	// ModeConfirmDelete waits for a yes or no.
	ModeConfirmDelete
)

// Status bar texts that do not come from the board.
const (
	msgMoveInFlight = "A move is already in progress. Please wait."
	msgFirstStage   = "Deal is already in the first stage."
	msgLastStage    = "Deal is already in the last stage."
	msgDeleteCancel = "Delete canceled."
)

// Model holds the TUI state. The deals themselves live in the board.
type Model struct {
	ctx           context.Context
	board         *pipeline.Board
	theme         themes.Theme
	keymap        KeyMap
	help          help.Model
	search        textinput.Model
	spinner       spinner.Model
	status        statusMsg
	stages        []model.StageID
	config        Config
	statusSeq     int
	col           int
	row           int
	selected      int
	pendingDelete int
	movingID      int
	width         int
	height        int
	mode          Mode
	moving        bool
	ready         bool
	quitting      bool
}

func newModel(ctx context.Context, board *pipeline.Board, cfg Config) Model {
	search := textinput.New()
	search.Placeholder = "title, company or description"
	search.Prompt = "/ "
	search.CharLimit = 80

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	h := help.New()
	h.Width = cfg.Width

	return Model{
		ctx:     ctx,
		board:   board,
		theme:   cfg.Theme,
		keymap:  DefaultKeyMap(),
		help:    h,
		search:  search,
		spinner: spin,
		stages:  model.StageIDs(),
		config:  cfg,
		width:   cfg.Width,
		height:  cfg.Height,
	}
}

// Init loads the board.
func (m Model) Init() tea.Cmd {
	return loadBoard(m.ctx, m.board)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case boardLoadedMsg:
		m.ready = true
		if errors.Is(msg.err, common.ErrDragDisabled) {
			cmd = m.setStatus(msgMoveInFlight, statusWarning)
		}

	case moveFinishedMsg:
		m.moving = false
		m.movingID = 0
		if errors.Is(msg.err, common.ErrDragDisabled) {
			cmd = m.setStatus(msgMoveInFlight, statusWarning)
		}

	case deleteFinishedMsg:
		if msg.err == nil && m.selected == msg.dealID {
			m.selected = 0
		}
		if errors.Is(msg.err, common.ErrDragDisabled) {
			cmd = m.setStatus(msgMoveInFlight, statusWarning)
		}

	case statusMsg:
		cmd = m.setStatus(msg.text, msg.kind)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = statusMsg{}
		}

	case spinner.TickMsg:
		if m.moving {
			m.spinner, cmd = m.spinner.Update(msg)
		}

	case tea.KeyMsg:
		cmd = m.handleKey(msg)
	}

	m.syncCursor()
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keymap.ForceQuit) {
		m.quitting = true
		return tea.Quit
	}

	switch m.mode {
	case ModeSearch:
		return m.handleSearchKey(msg)
	case ModeConfirmDelete:
		return m.handleConfirmKey(msg)
	default:
		return m.handleBoardKey(msg)
	}
}

func (m *Model) handleBoardKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keymap.Up):
		m.moveRow(-1)

	case key.Matches(msg, m.keymap.Down):
		m.moveRow(1)

	case key.Matches(msg, m.keymap.MoveLeft):
		return m.startMove(model.PreviousStage, msgFirstStage)

	case key.Matches(msg, m.keymap.MoveRight):
		return m.startMove(model.NextStage, msgLastStage)

	case key.Matches(msg, m.keymap.Left):
		m.moveCol(-1)

	case key.Matches(msg, m.keymap.Right):
		m.moveCol(1)

	case key.Matches(msg, m.keymap.Search):
		m.mode = ModeSearch
		m.search.SetValue(m.board.Search())
		m.search.CursorEnd()
		return m.search.Focus()

	case key.Matches(msg, m.keymap.Delete):
		if m.moving {
			return m.setStatus(msgMoveInFlight, statusWarning)
		}
		if m.selected != 0 {
			m.pendingDelete = m.selected
			m.mode = ModeConfirmDelete
		}

	case key.Matches(msg, m.keymap.Reload):
		if m.moving {
			return m.setStatus(msgMoveInFlight, statusWarning)
		}
		return loadBoard(m.ctx, m.board)

	case msg.Type == tea.KeyEsc && m.board.Search() != "":
		m.board.SetSearch("")
	}
	return nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		m.mode = ModeBoard
		m.search.Blur()
		return nil
	case tea.KeyEsc:
		m.mode = ModeBoard
		m.search.Blur()
		m.search.SetValue("")
		m.board.SetSearch("")
		return nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.board.SetSearch(m.search.Value())
	m.row = 0
	m.selected = 0
	return cmd
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keymap.Confirm):
		id := m.pendingDelete
		m.pendingDelete = 0
		m.mode = ModeBoard
		return deleteDeal(m.ctx, m.board, id)
	case key.Matches(msg, m.keymap.Cancel):
		m.pendingDelete = 0
		m.mode = ModeBoard
		return m.setStatus(msgDeleteCancel, statusInfo)
	}
	return nil
}

// startMove sends the selected deal one stage along. next picks the
// neighbouring stage; edge is shown when there is none.
func (m *Model) startMove(next func(model.StageID) (model.StageID, bool), edge string) tea.Cmd {
	if m.selected == 0 {
		return nil
	}
	if m.moving || m.board.DragDisabled() {
		return m.setStatus(msgMoveInFlight, statusWarning)
	}

	target, ok := next(m.stages[m.col])
	if !ok {
		return m.setStatus(edge, statusInfo)
	}
	ev, ok := m.board.MoveEvent(m.selected, target)
	if !ok {
		return nil
	}

	m.moving = true
	m.movingID = ev.DealID
	return tea.Batch(moveDeal(m.ctx, m.board, ev), m.spinner.Tick)
}

func (m *Model) moveRow(delta int) {
	deals := m.board.Column(m.stages[m.col])
	if len(deals) == 0 {
		return
	}
	m.row = min(max(m.row+delta, 0), len(deals)-1)
	m.selected = deals[m.row].ID
}

func (m *Model) moveCol(delta int) {
	m.col = min(max(m.col+delta, 0), len(m.stages)-1)
	m.selected = 0
}

// syncCursor keeps the cursor on the selected deal, following it across
// columns, or picks the nearest deal of the focused column when it is gone.
func (m *Model) syncCursor() {
	if m.selected != 0 {
		if pos, ok := m.board.PositionOf(m.selected); ok {
			m.col = stageIndex(m.stages, pos.Stage)
			m.row = pos.Index
			return
		}
	}

	deals := m.board.Column(m.stages[m.col])
	if len(deals) == 0 {
		m.selected = 0
		m.row = 0
		return
	}
	m.row = min(m.row, len(deals)-1)
	m.selected = deals[m.row].ID
}

func (m *Model) setStatus(text string, kind statusKind) tea.Cmd {
	m.statusSeq++
	m.status = statusMsg{text: text, kind: kind}
	return clearStatusAfter(m.config.StatusTimeout, m.statusSeq)
}

func stageIndex(stages []model.StageID, id model.StageID) int {
	for i, s := range stages {
		if s == id {
			return i
		}
	}
	return 0
}

// Mode returns what the keyboard currently drives.
func (m Model) Mode() Mode {
	return m.mode
}

// Selected returns the id of the deal under the cursor, or 0.
func (m Model) Selected() int {
	return m.selected
}

// FocusedStage returns the stage of the focused column.
func (m Model) FocusedStage() model.StageID {
	return m.stages[m.col]
}

// StatusText returns the status bar text.
func (m Model) StatusText() string {
	return m.status.text
}
