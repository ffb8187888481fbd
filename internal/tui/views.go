package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/the-deals-must-flow/internal/analytics"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/tui/components"
)

const (
	headerHeight  = 2
	footerHeight  = 2
	minColumnSize = 14
)

// View renders the board.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.renderLoading()
	}

	footer := m.renderFooter()
	columnHeight := max(m.height-headerHeight-lipgloss.Height(footer), 8)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderColumns(columnHeight),
		footer,
	)
}

func (m Model) renderLoading() string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		m.theme.Title.Render("Deal Pipeline"),
		"",
		m.theme.Faint.Render("Loading deals..."),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderHeader() string {
	summary := m.board.Summary()
	title := m.theme.Title.Render("Deal Pipeline")
	stats := m.theme.Subtitle.Render(fmt.Sprintf("  %d deals · %s",
		summary.TotalDeals, analytics.FormatCurrency(summary.TotalValue)))

	line := title + stats
	if term := m.board.Search(); term != "" && m.mode != ModeSearch {
		line += m.theme.Faint.Render(fmt.Sprintf("  filtered by %q", term))
	}
	if m.moving {
		line += "  " + m.spinner.View() + m.theme.Faint.Render(" saving")
	}
	return line + "\n"
}

func (m Model) renderColumns(height int) string {
	stats := m.board.Analytics()
	width := max(m.width/len(m.stages), minColumnSize)

	cols := make([]string, 0, len(m.stages))
	for i, stage := range model.Stages() {
		col := components.Column{
			Deals:     m.board.Column(stage.ID),
			Theme:     m.theme,
			Stats:     stats.Stage(stage.ID),
			Stage:     stage,
			Width:     width,
			Height:    height,
			Selected:  m.selected,
			PendingID: m.movingID,
			Focused:   i == m.col,
		}
		cols = append(cols, col.View())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) renderFooter() string {
	var line string
	switch m.mode {
	case ModeSearch:
		line = m.search.View()
	case ModeConfirmDelete:
		line = m.theme.StatusWarning.Render(m.confirmPrompt())
	default:
		line = m.renderStatus()
	}
	return lipgloss.JoinVertical(lipgloss.Left, line, m.help.View(m.keymap))
}

func (m Model) confirmPrompt() string {
	title := fmt.Sprintf("deal %d", m.pendingDelete)
	if pos, ok := m.board.PositionOf(m.pendingDelete); ok {
		deals := m.board.Column(pos.Stage)
		title = fmt.Sprintf("%q", deals[pos.Index].Title)
	}
	return fmt.Sprintf("Delete %s? [y/N]", title)
}

func (m Model) renderStatus() string {
	if m.status.text == "" {
		return ""
	}
	style := m.theme.StatusInfo
	switch m.status.kind {
	case statusSuccess:
		style = m.theme.StatusSuccess
	case statusWarning:
		style = m.theme.StatusWarning
	case statusError:
		style = m.theme.StatusError
	}
	return style.Render(m.status.text)
}
