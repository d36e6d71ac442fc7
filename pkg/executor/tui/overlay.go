package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bananameter/playtabq/pkg/executor/tui/types"
)

// overlayState tracks the active overlay and the click waiting for it to close
type overlayState struct {
	mode    types.OverlayMode
	overlay types.Overlay
	done    chan struct{}
}

// newOverlayState creates a new overlay state
func newOverlayState() *overlayState {
	return &overlayState{
		mode: types.OverlayModeNone,
	}
}

// activate shows an overlay; done is closed when it goes away
func (o *overlayState) activate(mode types.OverlayMode, overlay types.Overlay, done chan struct{}) {
	o.mode = mode
	o.overlay = overlay
	o.done = done
}

// deactivate closes the current overlay and releases its waiter
func (o *overlayState) deactivate() {
	if o.done != nil {
		close(o.done)
		o.done = nil
	}
	o.mode = types.OverlayModeNone
	o.overlay = nil
}

// isActive returns whether any overlay is currently active
func (o *overlayState) isActive() bool {
	if o.mode == types.OverlayModeNone {
		return false
	}
	// Mode set without an overlay is inconsistent; reset it.
	if o.overlay == nil {
		o.deactivate()
		return false
	}
	return true
}

// renderOverlay renders an overlay centered on a clean background
func renderOverlay(baseView string, overlay types.Overlay, width, height int) string {
	if overlay == nil {
		return baseView
	}
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay.View(),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color("0")),
	)
}
