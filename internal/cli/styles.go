// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/the-deals-must-flow/internal/model"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#5B8DEF")
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#4ECDC4") // Teal
	// WarningColor indicates warnings or caution messages.
	WarningColor = lipgloss.Color("#FFE66D") // Yellow
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#FF6B6B") // Red
	// InfoColor indicates informational messages.
	InfoColor = lipgloss.Color("#95E1D3") // Light teal
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666") // Gray

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SubtitleStyle is used for secondary headings.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	// BoxStyle is used for bordered content boxes.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)

	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(lipgloss.Color("#333"))

	// TableCellStyle formats table cells with appropriate padding.
	TableCellStyle = lipgloss.NewStyle().
			PaddingRight(2)
)

// Stage accents, one per column.
var stageColors = map[model.StageID]lipgloss.Color{
	model.StageLead:        lipgloss.Color("#3B82F6"), // blue
	model.StageQualified:   lipgloss.Color("#A855F7"), // purple
	model.StageProposal:    lipgloss.Color("#F59E0B"), // amber
	model.StageNegotiation: lipgloss.Color("#F97316"), // orange
	model.StageClosed:      lipgloss.Color("#22C55E"), // green
}

var priorityColors = map[model.Priority]lipgloss.Color{
	model.PriorityHigh:   lipgloss.Color("#DC2626"),
	model.PriorityMedium: lipgloss.Color("#CA8A04"),
	model.PriorityLow:    lipgloss.Color("#16A34A"),
}

var ageColors = map[model.DealAge]lipgloss.Color{
	model.AgeNew:   lipgloss.Color("#22C55E"),
	model.AgeAging: lipgloss.Color("#EAB308"),
	model.AgeStale: lipgloss.Color("#EF4444"),
}

// StageColor returns the accent of a stage.
func StageColor(id model.StageID) lipgloss.Color {
	if c, ok := stageColors[id]; ok {
		return c
	}
	return SubtleColor
}

// PriorityColor returns the colour of a priority.
func PriorityColor(p model.Priority) lipgloss.Color {
	if c, ok := priorityColors[p]; ok {
		return c
	}
	return SubtleColor
}

// AgeColor returns the colour of an age bucket. Anything unknown is
// treated as stale.
func AgeColor(a model.DealAge) lipgloss.Color {
	if c, ok := ageColors[a]; ok {
		return c
	}
	return ageColors[model.AgeStale]
}

// Icons.
const (
	SuccessIcon  = "✓"
	ErrorIcon    = "✗"
	WarningIcon  = "⚠️"
	InfoIcon     = "ℹ️"
	PipelineIcon = "💼"
	ChartIcon    = "📊"
	AgeDot       = "●"
)

// PriorityIcon returns a short marker for a priority.
func PriorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "▲"
	case model.PriorityMedium:
		return "◆"
	case model.PriorityLow:
		return "▼"
	default:
		return "○"
	}
}

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a title with the pipeline icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(PipelineIcon + " " + title)
}

// FormatStage renders a stage name in its accent colour.
func FormatStage(id model.StageID) string {
	return lipgloss.NewStyle().Bold(true).Foreground(StageColor(id)).Render(id.Name())
}

// FormatPriority renders a priority with its marker.
func FormatPriority(p model.Priority) string {
	return lipgloss.NewStyle().Foreground(PriorityColor(p)).Render(PriorityIcon(p) + " " + string(p))
}

// FormatAge renders an age bucket as a coloured dot and label.
func FormatAge(a model.DealAge) string {
	return lipgloss.NewStyle().Foreground(AgeColor(a)).Render(AgeDot + " " + string(a))
}

// RenderBox renders content in a styled box.
func RenderBox(title, content string) string {
	boxTitle := TitleStyle.
		UnsetMargins().
		Render(title)

	boxContent := lipgloss.JoinVertical(
		lipgloss.Left,
		boxTitle,
		content,
	)

	return BoxStyle.Render(boxContent)
}
