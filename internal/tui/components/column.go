package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/the-deals-must-flow/internal/analytics"
	"github.com/Veraticus/the-deals-must-flow/internal/cli"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/tui/themes"
)

// columnChrome is the border plus the header block of a column; one more
// line is kept for the overflow marker.
const columnChrome = 2 + 4

// Column is everything needed to draw one stage column.
type Column struct {
	Deals     []model.AgedDeal
	Theme     themes.Theme
	Stats     analytics.StageAnalytics
	Stage     model.Stage
	Width     int
	Height    int
	Selected  int
	PendingID int
	Focused   bool
}

// VisibleCards returns how many cards fit in a column of the given height.
func VisibleCards(height int) int {
	return max((height-columnChrome-1)/CardHeight, 1)
}

// View renders the column. Cards scroll so the selected one stays visible.
func (c Column) View() string {
	inner := max(c.Width-4, 8)

	accent := lipgloss.NewStyle().Bold(true).Foreground(cli.StageColor(c.Stage.ID))
	header := []string{
		accent.Render(Truncate(fmt.Sprintf("%s (%d)", c.Stage.Name, c.Stats.TotalDeals), inner)),
		c.Theme.Normal.Render(analytics.FormatCompact(float64(c.Stats.TotalValue))),
		c.Theme.Faint.Render(Truncate(fmt.Sprintf("avg %s · conv %s",
			analytics.FormatCompact(c.Stats.AvgDealSize),
			analytics.FormatRate(c.Stats.ConversionRate)), inner)),
		c.Theme.Faint.Render(strings.Repeat("─", inner)),
	}

	visible := VisibleCards(c.Height)
	selectedIdx := -1
	for i, d := range c.Deals {
		if d.ID == c.Selected {
			selectedIdx = i
			break
		}
	}
	offset := 0
	if selectedIdx >= visible {
		offset = selectedIdx - visible + 1
	}
	end := min(offset+visible, len(c.Deals))

	body := make([]string, 0, end-offset+1)
	if len(c.Deals) == 0 {
		body = append(body, c.Theme.Faint.Render("No deals"))
	}
	for i := offset; i < end; i++ {
		d := c.Deals[i]
		state := CardNormal
		switch {
		case d.ID == c.PendingID:
			state = CardPending
		case c.Focused && d.ID == c.Selected:
			state = CardSelected
		}
		body = append(body, RenderCard(d, inner, state, c.Theme))
	}
	if hidden := len(c.Deals) - end; hidden > 0 {
		body = append(body, c.Theme.Faint.Render(fmt.Sprintf("+%d more", hidden)))
	}

	style := c.Theme.Column
	if c.Focused {
		style = c.Theme.ColumnFocused
	}
	return style.
		Width(c.Width - 2).
		Height(max(c.Height-2, 1)).
		Render(lipgloss.JoinVertical(lipgloss.Left, append(header, body...)...))
}
