package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/the-deals-must-flow/internal/cli"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
)

// CLIFormatter renders pipeline data for terminal display.
type CLIFormatter struct {
	header lipgloss.Style
	cell   lipgloss.Style
	subtle lipgloss.Style
}

// NewCLIFormatter creates a formatter with the default styles.
func NewCLIFormatter() *CLIFormatter {
	return &CLIFormatter{
		header: cli.TableHeaderStyle,
		cell:   cli.TableCellStyle,
		subtle: cli.SubtleStyle,
	}
}

// FormatPipeline renders one row of analytics per stage followed by the
// summary of deals.
func (f *CLIFormatter) FormatPipeline(p Pipeline, summary Summary) string {
	const (
		stageWidth = 14
		numWidth   = 8
		moneyWidth = 12
		rateWidth  = 12
	)

	var b strings.Builder
	b.WriteString(cli.FormatTitle("Pipeline"))
	b.WriteString("\n")

	header := fmt.Sprintf("%-*s %*s %*s %*s %*s",
		stageWidth, "Stage",
		numWidth, "Deals",
		moneyWidth, "Total",
		moneyWidth, "Avg size",
		rateWidth, "Conversion")
	b.WriteString(f.header.Render(header))
	b.WriteString("\n")

	for _, stage := range model.Stages() {
		a := p.Stage(stage.ID)
		name := lipgloss.NewStyle().Foreground(cli.StageColor(stage.ID)).Render(fmt.Sprintf("%-*s", stageWidth, stage.Name))
		fmt.Fprintf(&b, "%s %*d %*s %*s %*s\n",
			name,
			numWidth, a.TotalDeals,
			moneyWidth, FormatCompact(float64(a.TotalValue)),
			moneyWidth, FormatCompact(a.AvgDealSize),
			rateWidth, FormatRate(a.ConversionRate))
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Total deals: %s   Pipeline value: %s\n",
		cli.BoldStyle.Render(fmt.Sprint(summary.TotalDeals)),
		cli.BoldStyle.Render(FormatCurrency(summary.TotalValue)))
	b.WriteString(f.subtle.Render("Conversion counts deals currently in any later stage."))
	return b.String()
}

// FormatDeals renders a compact table of deals.
func (f *CLIFormatter) FormatDeals(deals []model.AgedDeal) string {
	if len(deals) == 0 {
		return f.subtle.Render("No deals found")
	}

	const (
		idWidth      = 5
		titleWidth   = 28
		companyWidth = 18
		stageWidth   = 12
		valueWidth   = 12
	)

	var b strings.Builder
	header := fmt.Sprintf("%*s  %-*s %-*s %-*s %*s  %s",
		idWidth, "ID",
		titleWidth, "Title",
		companyWidth, "Company",
		stageWidth, "Stage",
		valueWidth, "Value",
		"Priority / Age")
	b.WriteString(f.header.Render(header))
	b.WriteString("\n")

	for _, d := range deals {
		fmt.Fprintf(&b, "%*d  %-*s %-*s %-*s %*s  %s  %s\n",
			idWidth, d.ID,
			titleWidth, truncate(d.Title, titleWidth),
			companyWidth, truncate(d.Company, companyWidth),
			stageWidth, d.Stage.Name(),
			valueWidth, FormatCurrency(d.Value),
			cli.FormatPriority(d.Priority),
			cli.FormatAge(d.Age))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatDeal renders every field of one deal in a box.
func (f *CLIFormatter) FormatDeal(d model.AgedDeal) string {
	lines := []string{
		fmt.Sprintf("Company:     %s", orDash(d.Company)),
		fmt.Sprintf("Contact:     %s", orDash(d.Contact)),
		fmt.Sprintf("Value:       %s", FormatCurrency(d.Value)),
		fmt.Sprintf("Stage:       %s", cli.FormatStage(d.Stage)),
		fmt.Sprintf("Priority:    %s", cli.FormatPriority(d.Priority)),
		fmt.Sprintf("Age:         %s", cli.FormatAge(d.Age)),
	}
	if d.ExpectedCloseDate != nil {
		lines = append(lines, fmt.Sprintf("Close date:  %s", d.ExpectedCloseDate.Format("Jan 2, 2006")))
	}
	lines = append(lines,
		fmt.Sprintf("Created:     %s", d.CreatedAt.Local().Format(time.RFC1123)),
		fmt.Sprintf("Updated:     %s", d.UpdatedAt.Local().Format(time.RFC1123)),
	)
	if d.Description != "" {
		lines = append(lines, "", d.Description)
	}
	return cli.RenderBox(fmt.Sprintf("#%d %s", d.ID, d.Title), strings.Join(lines, "\n"))
}

// FormatHistory renders the stage moves of a deal, oldest first.
func (f *CLIFormatter) FormatHistory(dealID int, moves []model.StageTransition) string {
	if len(moves) == 0 {
		return f.subtle.Render(fmt.Sprintf("No stage moves recorded for deal %d", dealID))
	}

	var b strings.Builder
	b.WriteString(cli.FormatTitle(fmt.Sprintf("Stage history for deal %d", dealID)))
	b.WriteString("\n")
	for _, m := range moves {
		arrow := "→"
		if m.IsBackward() {
			arrow = cli.WarningStyle.Render("←")
		}
		fmt.Fprintf(&b, "%s  %s %s %s\n",
			m.At.Local().Format("2006-01-02 15:04"),
			cli.FormatStage(m.From), arrow, cli.FormatStage(m.To))
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
