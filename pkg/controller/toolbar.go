package controller

import (
	"context"
	"errors"
	"slices"
)

// IconState is the visual state of the toolbar icon.
type IconState int

const (
	IconDisabled IconState = iota
	IconEnabled
)

// String returns the icon's name.
func (s IconState) String() string {
	if s == IconEnabled {
		return "enabled"
	}
	return "disabled"
}

// Modifier is a key held during a toolbar click.
type Modifier string

const (
	ModifierShift   Modifier = "Shift"
	ModifierAlt     Modifier = "Alt"
	ModifierCtrl    Modifier = "Ctrl"
	ModifierCommand Modifier = "Command"
)

// PopupSettings names the settings popup.
const PopupSettings = "settings"

// ErrNoPopup is returned by OpenPopup when no popup is set or the surface has
// no way to show one.
var ErrNoPopup = errors.New("popup unavailable")

// Toolbar is the extension's toolbar button.
type Toolbar interface {
	SetIcon(state IconState)
	// SetPopup sets the popup opened by the next OpenPopup; "" clears it.
	SetPopup(popup string)
	// OpenPopup shows the current popup and returns once it is closed.
	OpenPopup(ctx context.Context) error
}

func isToggleClick(mods []Modifier) bool {
	return slices.Contains(mods, ModifierCtrl) || slices.Contains(mods, ModifierCommand)
}
