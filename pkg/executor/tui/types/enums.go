package types

// OverlayMode represents the current overlay state
type OverlayMode int

const (
	// OverlayModeNone indicates no overlay is active
	OverlayModeNone OverlayMode = iota
	// OverlayModePopup shows the settings popup
	OverlayModePopup
	// OverlayModeHelp shows the key reference
	OverlayModeHelp
)
