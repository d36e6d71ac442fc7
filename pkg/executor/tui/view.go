package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bananameter/playtabq/pkg/controller"
)

const iconLabel = "● PlayTabQ"

// View renders the toolbar screen.
func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	base := lipgloss.JoinVertical(lipgloss.Left,
		m.buildToolbar(),
		"",
		m.buildTabStrip(),
		"",
		m.buildBottomBar(),
	)

	if m.overlay.isActive() {
		return renderOverlay(base, m.overlay.overlay, m.width, m.height)
	}
	return base
}

// buildToolbar renders the icon on the first row. Clicks on it land in
// onIcon.
func (m *model) buildToolbar() string {
	icon := iconDisabledStyle.Render(iconLabel)
	state := "auto-advance off"
	if m.icon == controller.IconEnabled {
		icon = iconEnabledStyle.Render(iconLabel)
		state = "auto-advance on"
	}
	return icon + "  " + tipsStyle.Render(state)
}

// onIcon reports whether a cell belongs to the icon.
func (m *model) onIcon(x, y int) bool {
	return y == 0 && x >= 0 && x < lipgloss.Width(iconLabel)
}

func (m *model) buildTabStrip() string {
	if len(m.tabs) == 0 {
		return tipsStyle.Render("  No tabs open")
	}

	var out strings.Builder
	out.WriteString(headerStyle.Render("Tabs"))
	for _, tab := range m.tabs {
		out.WriteString("\n")
		out.WriteString(m.renderTab(tab.Index, tab.Title, tab.URL, tab.Active))
	}
	return out.String()
}

func (m *model) renderTab(index int, title, url string, active bool) string {
	name := title
	if name == "" {
		name = url
	}
	if name == "" {
		name = "New Tab"
	}
	if m.width > 12 {
		name = truncate(name, m.width-12)
	}

	marker := "  "
	if m.exec.cfg.Matcher.IsVideoPage(url) {
		marker = videoMarkStyle.Render("▶ ")
	}
	line := fmt.Sprintf("%2d %s", index+1, name)
	if active {
		return "➜ " + marker + activeTabStyle.Render(line)
	}
	return "  " + marker + tabStyle.Render(line)
}

func (m *model) buildBottomBar() string {
	return statusBarStyle.Render(m.help.View(m.keys))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
