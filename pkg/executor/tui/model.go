package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"

	"github.com/bananameter/playtabq/pkg/controller"
	"github.com/bananameter/playtabq/pkg/host"
)

// model represents the state of the toolbar screen.
type model struct {
	ctx    context.Context
	exec   *Executor
	clicks ClickHandler

	keys keyMap
	help help.Model

	// Tab state, refreshed on host events
	tabs      []host.Tab
	activeTab *host.Tab
	icon      controller.IconState

	overlay *overlayState

	// Window dimensions
	width  int
	height int
	ready  bool
}

// openPopupMsg asks the model to show a popup; done is closed once the popup
// is dismissed.
type openPopupMsg struct {
	name string
	done chan struct{}
}

type keyMap struct {
	Click       key.Binding
	ToggleClick key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Click, k.ToggleClick, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Click:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter/click", "settings")),
		ToggleClick: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e/ctrl+click", "on/off")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func newModel(ctx context.Context, exec *Executor, clicks ClickHandler) *model {
	m := &model{
		ctx:     ctx,
		exec:    exec,
		clicks:  clicks,
		keys:    defaultKeyMap(),
		help:    help.New(),
		overlay: newOverlayState(),
	}
	m.refresh()
	return m
}

// refresh re-reads the icon and the tabs of the current window.
func (m *model) refresh() {
	m.icon = m.exec.Icon()

	tabs, err := m.exec.cfg.Tabs.Query(m.ctx, host.Query{CurrentWindow: true})
	if err != nil {
		m.exec.log.Warnf("listing tabs failed: %v", err)
		return
	}
	m.tabs = tabs
	m.activeTab = nil
	for i := range tabs {
		if tabs[i].Active {
			tab := tabs[i]
			m.activeTab = &tab
			break
		}
	}
}
