package overlay

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bananameter/playtabq/pkg/executor/tui/types"
)

// textOverlay is a bordered box with a title, a scrollable body and a footer
// line. Esc or ctrl+c closes it.
type textOverlay struct {
	viewport viewport.Model
	width    int
	title    string
	footer   string
	closeOn  []string
}

func newTextOverlay(title, body, footer string, width, height int, closeOn ...string) *textOverlay {
	if width <= 0 {
		width = 60
	}
	if height <= 0 {
		height = 16
	}
	vp := viewport.New(width-4, height)
	vp.SetContent(body)
	return &textOverlay{
		viewport: vp,
		width:    width,
		title:    title,
		footer:   footer,
		closeOn:  append([]string{keyEsc, keyCtrlC}, closeOn...),
	}
}

// update returns false once the overlay should close.
func (o *textOverlay) update(msg tea.Msg) (bool, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		for _, k := range o.closeOn {
			if keyMsg.String() == k {
				return false, nil
			}
		}
	}
	var cmd tea.Cmd
	o.viewport, cmd = o.viewport.Update(msg)
	return true, cmd
}

func (o *textOverlay) view() string {
	header := types.OverlayTitleStyle.Render(o.title)
	footer := types.OverlayHelpStyle.Render(o.footer)
	content := lipgloss.JoinVertical(lipgloss.Left, header, "", o.viewport.View(), "", footer)
	return types.CreateOverlayContainerStyle(o.width).Render(content)
}
