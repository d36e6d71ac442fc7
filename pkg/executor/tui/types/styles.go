package types

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Color palette shared by the toolbar and its overlays.
var (
	SalmonPink  = lipgloss.Color("#FFB3BA")
	CoralPink   = lipgloss.Color("#FFCCCB")
	MintGreen   = lipgloss.Color("#A8E6CF")
	MutedGray   = lipgloss.Color("#6B7280")
	BrightWhite = lipgloss.Color("#F9FAFB")
)

var (
	// OverlayTitleStyle is used for main overlay titles
	OverlayTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(SalmonPink)

	// OverlaySubtitleStyle is used for overlay subtitles and secondary text
	OverlaySubtitleStyle = lipgloss.NewStyle().
				Foreground(MutedGray)

	// OverlayHelpStyle is used for help text and hints
	OverlayHelpStyle = lipgloss.NewStyle().
				Foreground(MutedGray).
				Italic(true)
)

// CreateOverlayContainerStyle returns the bordered box every overlay is drawn
// in. Border and padding add six columns to width.
func CreateOverlayContainerStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(SalmonPink).
		Padding(1, 2).
		Width(width)
}

// Overlay is a modal view drawn over the toolbar. Update returns nil once the
// overlay has closed itself.
type Overlay interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Overlay, tea.Cmd)
	View() string
}
