package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bananameter/playtabq/pkg/controller"
	"github.com/bananameter/playtabq/pkg/executor/tui/overlay"
	"github.com/bananameter/playtabq/pkg/executor/tui/types"
	"github.com/bananameter/playtabq/pkg/host"
)

// Init implements tea.Model.
func (m *model) Init() tea.Cmd {
	return nil
}

// Update handles all state updates for the toolbar.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		if m.overlay.isActive() {
			return m, m.updateOverlay(msg)
		}
		return m, nil

	case types.RefreshMsg:
		m.refresh()
		return m, nil

	case openPopupMsg:
		return m, m.openPopup(msg)
	}

	if m.overlay.isActive() {
		return m, m.updateOverlay(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.MouseMsg:
		return m, m.handleMouse(msg)
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Click):
		return m.click(nil)
	case key.Matches(msg, m.keys.ToggleClick):
		return m.click([]controller.Modifier{controller.ModifierCtrl})
	case key.Matches(msg, m.keys.Help):
		help := overlay.NewHelpOverlay(m.keys.ShortHelp(), m.width, m.height)
		m.overlay.activate(types.OverlayModeHelp, help, nil)
		return help.Init()
	}
	return nil
}

func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return nil
	}
	if !m.onIcon(msg.X, msg.Y) {
		return nil
	}
	var mods []controller.Modifier
	if msg.Ctrl {
		mods = append(mods, controller.ModifierCtrl)
	}
	if msg.Alt {
		mods = append(mods, controller.ModifierAlt)
	}
	if msg.Shift {
		mods = append(mods, controller.ModifierShift)
	}
	return m.click(mods)
}

// click forwards a toolbar click. HandleClick may block until a popup is
// closed, so it runs as a command.
func (m *model) click(mods []controller.Modifier) tea.Cmd {
	if m.clicks == nil {
		return nil
	}
	var tab *host.Tab
	if m.activeTab != nil {
		t := *m.activeTab
		tab = &t
	}
	ctx, clicks := m.ctx, m.clicks
	return func() tea.Msg {
		clicks.HandleClick(ctx, tab, mods)
		return types.RefreshMsg{}
	}
}

func (m *model) openPopup(msg openPopupMsg) tea.Cmd {
	if m.overlay.mode == types.OverlayModeHelp {
		m.overlay.deactivate()
	}
	if m.overlay.isActive() || msg.name != controller.PopupSettings {
		close(msg.done)
		return nil
	}

	popup := overlay.NewPopupOverlay(m.ctx, overlay.PopupConfig{
		Settings: m.exec.cfg.Settings,
		Tabs:     m.exec.cfg.Tabs,
		Matcher:  m.exec.cfg.Matcher,
		Width:    m.width,
		Height:   m.height,
		Logger:   m.exec.log.With("popup"),
	})
	m.overlay.activate(types.OverlayModePopup, popup, msg.done)
	return popup.Init()
}

func (m *model) updateOverlay(msg tea.Msg) tea.Cmd {
	next, cmd := m.overlay.overlay.Update(msg)
	if next == nil {
		m.overlay.deactivate()
		m.refresh()
		return cmd
	}
	m.overlay.overlay = next
	return cmd
}
