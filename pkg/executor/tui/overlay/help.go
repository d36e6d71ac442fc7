package overlay

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bananameter/playtabq/pkg/executor/tui/types"
)

// HelpOverlay lists the toolbar and popup keys.
type HelpOverlay struct {
	box *textOverlay
}

// NewHelpOverlay builds the help screen for the given toolbar bindings.
func NewHelpOverlay(toolbar []key.Binding, width, height int) *HelpOverlay {
	boxWidth := width - 10
	if boxWidth > 70 {
		boxWidth = 70
	}
	boxHeight := height - 10
	body := helpBody(toolbar)
	if lines := strings.Count(body, "\n") + 1; boxHeight <= 0 || lines < boxHeight {
		boxHeight = lines
	}
	return &HelpOverlay{
		box: newTextOverlay("PlayTabQ Help", body, "Press ESC or Enter to close", boxWidth, boxHeight, keyEnter, "?"),
	}
}

func helpBody(toolbar []key.Binding) string {
	var b strings.Builder
	section := func(title string, bindings []key.Binding) {
		b.WriteString(types.OverlaySubtitleStyle.Render(title))
		b.WriteString("\n")
		for _, k := range bindings {
			h := k.Help()
			fmt.Fprintf(&b, "  %-20s %s\n", h.Key, h.Desc)
		}
		b.WriteString("\n")
	}

	section("Toolbar", toolbar)
	section("Settings popup", popupKeys.ShortHelp())

	b.WriteString(types.OverlaySubtitleStyle.Render("Auto-advance"))
	b.WriteString("\n")
	b.WriteString("  When a video ends, the next tab is activated and its video\n")
	b.WriteString("  starts. ▶ marks the tabs that hold a video page.")
	return b.String()
}

// Init implements types.Overlay.
func (h *HelpOverlay) Init() tea.Cmd {
	return nil
}

// Update implements types.Overlay. It returns nil once closed.
func (h *HelpOverlay) Update(msg tea.Msg) (types.Overlay, tea.Cmd) {
	open, cmd := h.box.update(msg)
	if !open {
		return nil, cmd
	}
	return h, cmd
}

// View implements types.Overlay.
func (h *HelpOverlay) View() string {
	return h.box.view()
}

var _ types.Overlay = (*HelpOverlay)(nil)
