package overlay

// Key names shared by the overlays.
const (
	keyCtrlC = "ctrl+c"
	keyTab   = "tab"
	keyEnter = "enter"
	keyEsc   = "esc"
)
