package tui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bananameter/playtabq/pkg/controller"
	"github.com/bananameter/playtabq/pkg/executor/tui/types"
	"github.com/bananameter/playtabq/pkg/host"
	"github.com/bananameter/playtabq/pkg/host/hosttest"
	"github.com/bananameter/playtabq/pkg/settings"
)

type recordedClick struct {
	tab  *host.Tab
	mods []controller.Modifier
}

type fakeClicks struct {
	mu     sync.Mutex
	clicks []recordedClick
}

func (f *fakeClicks) HandleClick(_ context.Context, tab *host.Tab, mods []controller.Modifier) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, recordedClick{tab: tab, mods: mods})
}

func newTestModel(t *testing.T) (*model, *fakeClicks, []host.TabID) {
	t.Helper()
	browser, _, ids := hosttest.NewWindow(1,
		hosttest.TabSpec{URL: "https://example.com/"},
		hosttest.TabSpec{URL: "https://www.youtube.com/watch?v=1"},
	)
	exec := NewExecutor(Config{
		Tabs:     browser,
		Settings: settings.NewManager(settings.NewMemoryStore()),
	})
	clicks := &fakeClicks{}
	m := newModel(context.Background(), exec, clicks)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, clicks, ids
}

func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	return cmd()
}

func TestExecutor_IconBeforeRun(t *testing.T) {
	exec := NewExecutor(Config{Tabs: host.NewBrowser(nil)})

	exec.SetIcon(controller.IconEnabled)
	assert.Equal(t, controller.IconEnabled, exec.Icon())
	exec.SetIcon(controller.IconDisabled)
	assert.Equal(t, controller.IconDisabled, exec.Icon())
}

func TestExecutor_OpenPopupUnavailable(t *testing.T) {
	exec := NewExecutor(Config{Tabs: host.NewBrowser(nil)})

	err := exec.OpenPopup(context.Background())
	assert.ErrorIs(t, err, controller.ErrNoPopup, "no popup set")

	exec.SetPopup(controller.PopupSettings)
	err = exec.OpenPopup(context.Background())
	assert.ErrorIs(t, err, controller.ErrNoPopup, "program not running")
}

func TestModel_RefreshPicksActiveTab(t *testing.T) {
	m, _, ids := newTestModel(t)

	require.NotNil(t, m.activeTab)
	assert.Equal(t, ids[1], m.activeTab.ID)
	assert.Len(t, m.tabs, 2)
}

func TestModel_KeyboardClicks(t *testing.T) {
	m, clicks, ids := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.IsType(t, types.RefreshMsg{}, run(t, cmd))

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	run(t, cmd)

	require.Len(t, clicks.clicks, 2)
	assert.Empty(t, clicks.clicks[0].mods)
	require.NotNil(t, clicks.clicks[0].tab)
	assert.Equal(t, ids[1], clicks.clicks[0].tab.ID)
	assert.Equal(t, []controller.Modifier{controller.ModifierCtrl}, clicks.clicks[1].mods)
}

func TestModel_MouseClicks(t *testing.T) {
	m, clicks, _ := newTestModel(t)

	press := func(x, y int, ctrl bool) tea.Cmd {
		_, cmd := m.Update(tea.MouseMsg{
			X: x, Y: y, Ctrl: ctrl,
			Action: tea.MouseActionPress,
			Button: tea.MouseButtonLeft,
		})
		return cmd
	}

	run(t, press(2, 0, false))
	run(t, press(2, 0, true))
	assert.Nil(t, press(40, 0, false), "right of the icon")
	assert.Nil(t, press(2, 3, false), "below the toolbar")

	_, cmd := m.Update(tea.MouseMsg{X: 2, Y: 0, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	assert.Nil(t, cmd)

	require.Len(t, clicks.clicks, 2)
	assert.Empty(t, clicks.clicks[0].mods)
	assert.Equal(t, []controller.Modifier{controller.ModifierCtrl}, clicks.clicks[1].mods)
}

func TestModel_PopupLifecycle(t *testing.T) {
	m, clicks, _ := newTestModel(t)

	done := make(chan struct{})
	_, cmd := m.Update(openPopupMsg{name: controller.PopupSettings, done: done})
	require.True(t, m.overlay.isActive())
	m.Update(run(t, cmd))

	assert.Contains(t, m.View(), "Close tabs automatically")

	// Keys go to the popup, not to the toolbar.
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, clicks.clicks)

	select {
	case <-done:
		t.Fatal("popup closed too early")
	default:
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.overlay.isActive())
	select {
	case <-done:
	default:
		t.Fatal("closing the popup must release the waiter")
	}
}

func TestModel_SecondPopupIsRejected(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.Update(openPopupMsg{name: controller.PopupSettings, done: make(chan struct{})})
	second := make(chan struct{})
	m.Update(openPopupMsg{name: controller.PopupSettings, done: second})

	select {
	case <-second:
	default:
		t.Fatal("second popup request must be released")
	}
}

func TestModel_View(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.exec.SetIcon(controller.IconEnabled)
	m.Update(types.RefreshMsg{})

	view := m.View()
	assert.Contains(t, view, "PlayTabQ")
	assert.Contains(t, view, "auto-advance on")
	assert.Contains(t, view, "example.com")
	assert.Contains(t, view, "▶")
}

func TestModel_Quit(t *testing.T) {
	m, _, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_HelpOverlay(t *testing.T) {
	m, clicks, _ := newTestModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	require.True(t, m.overlay.isActive())
	assert.Equal(t, types.OverlayModeHelp, m.overlay.mode)
	assert.Contains(t, m.View(), "PlayTabQ Help")

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.overlay.isActive())
	assert.Empty(t, clicks.clicks, "enter closes help without clicking")
}

func TestModel_PopupReplacesHelp(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})

	m.Update(openPopupMsg{name: controller.PopupSettings, done: make(chan struct{})})
	assert.Equal(t, types.OverlayModePopup, m.overlay.mode)
}
