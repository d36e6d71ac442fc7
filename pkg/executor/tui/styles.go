package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bananameter/playtabq/pkg/executor/tui/types"
)

// Common Styles
// These are pre-configured styles for the toolbar screen. Colors come from
// the shared palette in the types package.
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(types.SalmonPink).
			Bold(true)

	tipsStyle = lipgloss.NewStyle().
			Foreground(types.MutedGray)

	iconEnabledStyle = lipgloss.NewStyle().
				Foreground(types.MintGreen).
				Bold(true)

	iconDisabledStyle = lipgloss.NewStyle().
				Foreground(types.MutedGray)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(types.BrightWhite).
			Bold(true)

	tabStyle = lipgloss.NewStyle().
			Foreground(types.MutedGray)

	videoMarkStyle = lipgloss.NewStyle().
			Foreground(types.CoralPink)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(types.MutedGray).
			Padding(0, 1)
)
