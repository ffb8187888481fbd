// Package components renders the pieces of the pipeline board.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Veraticus/the-deals-must-flow/internal/analytics"
	"github.com/Veraticus/the-deals-must-flow/internal/cli"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/tui/themes"
)

// CardHeight is the number of lines a card occupies.
const CardHeight = 3

// CardState selects how a card is highlighted.
type CardState int

const (
	// CardNormal is an unselected card.
	CardNormal CardState = iota
	// CardSelected is the card under the cursor.
	CardSelected
	// CardPending is a card whose move is awaiting the store.
	CardPending
)

// RenderCard draws one deal in width columns.
func RenderCard(d model.AgedDeal, width int, state CardState, theme themes.Theme) string {
	inner := max(width-2, 4)

	title := theme.Bold.Render(Truncate(d.Title, inner))

	company := d.Company
	if company == "" {
		company = "-"
	}
	value := analytics.FormatCurrency(d.Value)
	companyWidth := max(inner-runewidth.StringWidth(value)-1, 1)
	line2 := fmt.Sprintf("%-*s %s",
		companyWidth, Truncate(company, companyWidth),
		theme.Normal.Render(value))

	priority := lipgloss.NewStyle().Foreground(cli.PriorityColor(d.Priority)).
		Render(cli.PriorityIcon(d.Priority) + " " + string(d.Priority))
	age := lipgloss.NewStyle().Foreground(cli.AgeColor(d.Age)).
		Render(cli.AgeDot + " " + string(d.Age))
	line3 := priority + "  " + age

	style := theme.Card
	switch state {
	case CardSelected:
		style = theme.CardSelected
	case CardPending:
		style = theme.CardPending
	}
	return style.Width(inner + 1).Render(lipgloss.JoinVertical(lipgloss.Left, title, line2, line3))
}

// Truncate shortens s to width display cells, ending in an ellipsis when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}
