package controller

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bananameter/playtabq/pkg/host"
	"github.com/bananameter/playtabq/pkg/host/bridge"
	"github.com/bananameter/playtabq/pkg/host/hosttest"
	"github.com/bananameter/playtabq/pkg/messaging"
	"github.com/bananameter/playtabq/pkg/settings"
)

const (
	videoA = "https://www.youtube.com/watch?v=a"
	videoB = "https://www.youtube.com/watch?v=b"
	videoC = "https://youtube.com/watch?v=c"
	other  = "https://example.com/"
)

type fakeToolbar struct {
	mu      sync.Mutex
	icons   []IconState
	popups  []string
	opened  []string
	openErr error
	popup   string
}

func (f *fakeToolbar) SetIcon(state IconState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.icons = append(f.icons, state)
}

func (f *fakeToolbar) SetPopup(popup string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.popup = popup
	f.popups = append(f.popups, popup)
}

func (f *fakeToolbar) OpenPopup(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, f.popup)
	return f.openErr
}

func (f *fakeToolbar) lastIcon(t *testing.T) IconState {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.icons, "icon was never set")
	return f.icons[len(f.icons)-1]
}

type fixture struct {
	browser  *host.Browser
	driver   *hosttest.Driver
	ids      []host.TabID
	settings *settings.Manager
	toolbar  *fakeToolbar
	bus      *messaging.Bus
	ctrl     *Controller
}

func newFixture(t *testing.T, active int, specs ...hosttest.TabSpec) *fixture {
	t.Helper()
	browser, driver, ids := hosttest.NewWindow(active, specs...)
	f := &fixture{
		browser:  browser,
		driver:   driver,
		ids:      ids,
		settings: settings.NewManager(settings.NewMemoryStore()),
		toolbar:  &fakeToolbar{},
		bus:      messaging.NewBus(),
	}
	f.ctrl = New(Config{
		Tabs:     browser,
		Runtime:  f.bus,
		Settings: f.settings,
		Toolbar:  f.toolbar,
	})
	return f
}

func (f *fixture) set(t *testing.T, values map[string]any) {
	t.Helper()
	require.NoError(t, f.settings.Set(values))
}

func (f *fixture) tab(t *testing.T, i int) host.Tab {
	t.Helper()
	tab, err := f.browser.Get(context.Background(), f.ids[i])
	require.NoError(t, err)
	return tab
}

func threeTabs(t *testing.T, active int) *fixture {
	return newFixture(t, active,
		hosttest.TabSpec{URL: videoA},
		hosttest.TabSpec{URL: videoB},
		hosttest.TabSpec{URL: videoC},
	)
}

func TestUpdateIconState(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		enabled any
		want    IconState
	}{
		{"video page, unset", videoA, nil, IconEnabled},
		{"video page, enabled", videoA, true, IconEnabled},
		{"video page, disabled", videoA, false, IconDisabled},
		{"video page without www", videoC, nil, IconEnabled},
		{"other page, unset", other, nil, IconDisabled},
		{"other page, enabled", other, true, IconDisabled},
		{"channel page", "https://www.youtube.com/@someone", true, IconDisabled},
		{"empty url", "", true, IconDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 0)
			if tt.enabled != nil {
				f.set(t, map[string]any{settings.KeyIsEnabled: tt.enabled})
			}

			f.ctrl.UpdateIconState(context.Background(), &host.Tab{URL: tt.url})
			assert.Equal(t, tt.want, f.toolbar.lastIcon(t))
		})
	}

	t.Run("nil tab", func(t *testing.T) {
		f := newFixture(t, 0)
		f.ctrl.UpdateIconState(context.Background(), nil)
		assert.Equal(t, IconDisabled, f.toolbar.lastIcon(t))
	})
}

func TestVideoEndedInTab_Direction(t *testing.T) {
	ctx := context.Background()

	t.Run("left to right activates the right neighbor", func(t *testing.T) {
		f := threeTabs(t, 1)
		f.set(t, map[string]any{settings.KeyIsEnabled: true})

		f.ctrl.VideoEndedInTab(ctx, f.tab(t, 1))

		assert.Equal(t, []host.TabID{f.ids[2]}, f.driver.ActivatedTabs())
		assert.True(t, f.tab(t, 2).Active)
	})

	t.Run("right to left activates the left neighbor", func(t *testing.T) {
		f := threeTabs(t, 1)
		f.set(t, map[string]any{settings.KeyIsEnabled: true, settings.KeyRightToLeft: true})

		f.ctrl.VideoEndedInTab(ctx, f.tab(t, 1))

		assert.Equal(t, []host.TabID{f.ids[0]}, f.driver.ActivatedTabs())
	})
}

func TestVideoEndedInTab_Boundaries(t *testing.T) {
	ctx := context.Background()

	t.Run("last tab moving right", func(t *testing.T) {
		f := threeTabs(t, 2)
		f.set(t, map[string]any{settings.KeyIsEnabled: true})

		assert.NotPanics(t, func() { f.ctrl.VideoEndedInTab(ctx, f.tab(t, 2)) })
		assert.Empty(t, f.driver.ActivatedTabs())
		assert.Empty(t, f.driver.Evaluations())
	})

	t.Run("first tab moving left", func(t *testing.T) {
		f := threeTabs(t, 0)
		f.set(t, map[string]any{settings.KeyIsEnabled: true, settings.KeyRightToLeft: true})

		assert.NotPanics(t, func() { f.ctrl.VideoEndedInTab(ctx, f.tab(t, 0)) })
		assert.Empty(t, f.driver.ActivatedTabs())
	})
}

func TestVideoEndedInTab_EnabledGateIsStrict(t *testing.T) {
	ctx := context.Background()

	for name, values := range map[string]map[string]any{
		"unset":    {},
		"false":    {settings.KeyIsEnabled: false},
		"non-bool": {settings.KeyIsEnabled: "yes"},
	} {
		t.Run(name, func(t *testing.T) {
			f := threeTabs(t, 1)
			if len(values) > 0 {
				f.set(t, values)
			}
			f.set(t, map[string]any{settings.KeyCloseTabsAutomatically: true})

			f.ctrl.VideoEndedInTab(ctx, f.tab(t, 1))

			assert.Empty(t, f.driver.ActivatedTabs())
			assert.Empty(t, f.driver.ClosedTabs())
		})
	}
}

func TestVideoEndedInTab_UserSwitchedTabs(t *testing.T) {
	ctx := context.Background()
	f := threeTabs(t, 1)
	f.set(t, map[string]any{settings.KeyIsEnabled: true, settings.KeyCloseTabsAutomatically: true})

	ended := f.tab(t, 1)
	f.browser.SetActive(f.ids[0])

	f.ctrl.VideoEndedInTab(ctx, ended)

	assert.Empty(t, f.driver.ActivatedTabs())
	assert.Empty(t, f.driver.ClosedTabs())
	assert.Empty(t, f.driver.Evaluations())
}

func TestVideoEndedInTab_CloseTabs(t *testing.T) {
	ctx := context.Background()

	t.Run("closes origin after advancing", func(t *testing.T) {
		f := threeTabs(t, 1)
		f.set(t, map[string]any{settings.KeyIsEnabled: true, settings.KeyCloseTabsAutomatically: true})

		f.ctrl.VideoEndedInTab(ctx, f.tab(t, 1))

		assert.Equal(t, []host.TabID{f.ids[2]}, f.driver.ActivatedTabs())
		assert.Equal(t, []host.TabID{f.ids[1]}, f.driver.ClosedTabs())
		_, err := f.browser.Get(ctx, f.ids[1])
		assert.ErrorIs(t, err, host.ErrTabNotFound)
	})

	t.Run("closes origin without a neighbor", func(t *testing.T) {
		f := threeTabs(t, 2)
		f.set(t, map[string]any{settings.KeyIsEnabled: true, settings.KeyCloseTabsAutomatically: true})

		f.ctrl.VideoEndedInTab(ctx, f.tab(t, 2))

		assert.Empty(t, f.driver.ActivatedTabs())
		assert.Equal(t, []host.TabID{f.ids[2]}, f.driver.ClosedTabs())
	})

	t.Run("keeps origin by default", func(t *testing.T) {
		f := threeTabs(t, 1)
		f.set(t, map[string]any{settings.KeyIsEnabled: true})

		f.ctrl.VideoEndedInTab(ctx, f.tab(t, 1))

		assert.Empty(t, f.driver.ClosedTabs())
	})

	t.Run("close failure is swallowed", func(t *testing.T) {
		f := threeTabs(t, 1)
		f.driver.CloseErr = errors.New("target closed")
		f.set(t, map[string]any{settings.KeyIsEnabled: true, settings.KeyCloseTabsAutomatically: true})

		assert.NotPanics(t, func() { f.ctrl.VideoEndedInTab(ctx, f.tab(t, 1)) })
		assert.Equal(t, []host.TabID{f.ids[2]}, f.driver.ActivatedTabs())
	})
}

func TestVideoEndedInTab_PlayCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("loaded video neighbor plays immediately", func(t *testing.T) {
		f := threeTabs(t, 0)
		f.set(t, map[string]any{settings.KeyIsEnabled: true})

		f.ctrl.VideoEndedInTab(ctx, f.tab(t, 0))

		require.Len(t, f.driver.Evaluations(), 1)
		assert.Equal(t, hosttest.Evaluation{Tab: f.ids[1], Code: bridge.PlayScript}, f.driver.Evaluations()[0])
		assert.Equal(t, 0, f.browser.UpdatedListenerCount())
	})

	t.Run("non-video neighbor is only activated", func(t *testing.T) {
		f := newFixture(t, 0, hosttest.TabSpec{URL: videoA}, hosttest.TabSpec{URL: other})
		f.set(t, map[string]any{settings.KeyIsEnabled: true})

		f.ctrl.VideoEndedInTab(ctx, f.tab(t, 0))

		assert.Equal(t, []host.TabID{f.ids[1]}, f.driver.ActivatedTabs())
		assert.Empty(t, f.driver.Evaluations())
		assert.Equal(t, 0, f.browser.UpdatedListenerCount())
	})

	t.Run("injection failure is swallowed", func(t *testing.T) {
		f := threeTabs(t, 0)
		f.driver.EvaluateErr = errors.New("no frame")
		f.set(t, map[string]any{settings.KeyIsEnabled: true})

		assert.NotPanics(t, func() { f.ctrl.VideoEndedInTab(ctx, f.tab(t, 0)) })
		assert.Len(t, f.driver.Evaluations(), 1)
	})
}

func TestVideoEndedInTab_DeferredPlay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0,
		hosttest.TabSpec{URL: videoA},
		hosttest.TabSpec{URL: videoB, Loading: true},
		hosttest.TabSpec{URL: videoC, Loading: true},
	)
	f.set(t, map[string]any{settings.KeyIsEnabled: true})

	f.ctrl.VideoEndedInTab(ctx, f.tab(t, 0))

	assert.Equal(t, []host.TabID{f.ids[1]}, f.driver.ActivatedTabs())
	assert.Empty(t, f.driver.Evaluations(), "must wait for the load to complete")
	assert.Equal(t, 1, f.browser.UpdatedListenerCount())

	// Another tab completing does not trigger it.
	f.browser.Loaded(f.ids[2])
	assert.Empty(t, f.driver.Evaluations())

	// A navigation (loading) on the target does not trigger it.
	f.browser.Navigated(f.ids[1], videoB+"&t=1")
	assert.Empty(t, f.driver.Evaluations())

	f.browser.Loaded(f.ids[1])
	require.Len(t, f.driver.Evaluations(), 1)
	assert.Equal(t, f.ids[1], f.driver.Evaluations()[0].Tab)
	assert.Equal(t, 0, f.browser.UpdatedListenerCount(), "listener must remove itself")

	// Later loads of the same tab do not replay.
	f.browser.Navigated(f.ids[1], videoB)
	f.browser.Loaded(f.ids[1])
	assert.Len(t, f.driver.Evaluations(), 1)
}

func TestVideoEndedInTab_RepeatedDeferredPlaysDoNotLeak(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0,
		hosttest.TabSpec{URL: videoA},
		hosttest.TabSpec{URL: videoB, Loading: true},
	)
	f.set(t, map[string]any{settings.KeyIsEnabled: true})

	for i := 0; i < 3; i++ {
		f.browser.SetActive(f.ids[0])
		f.browser.Navigated(f.ids[1], videoB)
		f.ctrl.VideoEndedInTab(ctx, f.tab(t, 0))
		f.browser.Loaded(f.ids[1])
	}

	assert.Len(t, f.driver.Evaluations(), 3)
	assert.Equal(t, 0, f.browser.UpdatedListenerCount())
}

func TestHandleClick_ModifiedTogglesEnabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0, hosttest.TabSpec{URL: videoA})
	tab := f.tab(t, 0)

	f.ctrl.HandleClick(ctx, &tab, []Modifier{ModifierCtrl})
	values, err := f.settings.Values()
	require.NoError(t, err)
	require.NotNil(t, values.IsEnabled)
	assert.False(t, *values.IsEnabled, "unset counts as enabled, so the first toggle disables")

	f.ctrl.HandleClick(ctx, &tab, []Modifier{ModifierCommand})
	values, err = f.settings.Values()
	require.NoError(t, err)
	assert.True(t, values.EnabledExplicitly())

	assert.Empty(t, f.toolbar.opened, "modified clicks never open the popup")
}

func TestHandleClick_UnmodifiedOpensPopup(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newFixture(t, 0, hosttest.TabSpec{URL: videoA})
		tab := f.tab(t, 0)

		f.ctrl.HandleClick(ctx, &tab, nil)

		assert.Equal(t, []string{PopupSettings}, f.toolbar.opened)
		assert.Equal(t, []string{PopupSettings, ""}, f.toolbar.popups)
	})

	t.Run("failure still clears the popup", func(t *testing.T) {
		f := newFixture(t, 0, hosttest.TabSpec{URL: videoA})
		f.toolbar.openErr = ErrNoPopup
		tab := f.tab(t, 0)

		f.ctrl.HandleClick(ctx, &tab, []Modifier{ModifierShift})

		assert.Equal(t, []string{PopupSettings, ""}, f.toolbar.popups)
		values, err := f.settings.Values()
		require.NoError(t, err)
		assert.Nil(t, values.IsEnabled, "shift is not a toggle modifier")
	})
}

func TestStart_InitialIcon(t *testing.T) {
	f := threeTabs(t, 1)
	stop := f.ctrl.Start(context.Background())
	defer stop()

	assert.Equal(t, IconEnabled, f.toolbar.lastIcon(t))
}

func TestStart_NoActiveTabLeavesIconAlone(t *testing.T) {
	f := newFixture(t, -1)
	stop := f.ctrl.Start(context.Background())
	defer stop()

	assert.Empty(t, f.toolbar.icons)
}

func TestStart_EventWiring(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0,
		hosttest.TabSpec{URL: other},
		hosttest.TabSpec{URL: videoB},
	)
	stop := f.ctrl.Start(ctx)
	defer stop()
	assert.Equal(t, IconDisabled, f.toolbar.lastIcon(t))

	// activation
	f.browser.SetActive(f.ids[1])
	assert.Equal(t, IconEnabled, f.toolbar.lastIcon(t))

	// settings change touching isEnabled
	f.set(t, map[string]any{settings.KeyIsEnabled: false})
	assert.Equal(t, IconDisabled, f.toolbar.lastIcon(t))
	f.set(t, map[string]any{settings.KeyIsEnabled: true})
	assert.Equal(t, IconEnabled, f.toolbar.lastIcon(t))

	// settings change not touching isEnabled
	count := len(f.toolbar.icons)
	f.set(t, map[string]any{settings.KeyRightToLeft: true})
	assert.Len(t, f.toolbar.icons, count)

	// navigation to a new URL
	f.browser.Navigated(f.ids[1], other)
	assert.Equal(t, IconDisabled, f.toolbar.lastIcon(t))

	// status-only updates are ignored
	count = len(f.toolbar.icons)
	f.browser.Loaded(f.ids[1])
	assert.Len(t, f.toolbar.icons, count)
}

func TestStart_VideoEndedMessage(t *testing.T) {
	ctx := context.Background()
	f := threeTabs(t, 1)
	f.set(t, map[string]any{settings.KeyIsEnabled: true})
	stop := f.ctrl.Start(ctx)
	defer stop()

	sender := f.tab(t, 1)
	f.bus.Send(ctx, messaging.Message{Type: messaging.TypePlayVideo}, messaging.Sender{Tab: &sender})
	assert.Empty(t, f.driver.ActivatedTabs(), "only VIDEO_ENDED advances")

	f.bus.Send(ctx, messaging.Message{Type: messaging.TypeVideoEnded}, messaging.Sender{})
	assert.Empty(t, f.driver.ActivatedTabs(), "a sender without a tab is ignored")

	f.bus.Send(ctx, messaging.Message{Type: messaging.TypeVideoEnded}, messaging.Sender{Tab: &sender})
	assert.Equal(t, []host.TabID{f.ids[2]}, f.driver.ActivatedTabs())
	assert.Equal(t, IconEnabled, f.toolbar.lastIcon(t))
}

func TestStart_StopRemovesListeners(t *testing.T) {
	ctx := context.Background()
	f := threeTabs(t, 1)
	f.set(t, map[string]any{settings.KeyIsEnabled: true})

	stop := f.ctrl.Start(ctx)
	assert.Equal(t, 1, f.browser.UpdatedListenerCount())
	stop()
	assert.Equal(t, 0, f.browser.UpdatedListenerCount())

	count := len(f.toolbar.icons)
	f.browser.SetActive(f.ids[0])
	f.set(t, map[string]any{settings.KeyIsEnabled: false})
	assert.Len(t, f.toolbar.icons, count)

	sender := f.tab(t, 1)
	f.bus.Send(ctx, messaging.Message{Type: messaging.TypeVideoEnded}, messaging.Sender{Tab: &sender})
	assert.Empty(t, f.driver.ActivatedTabs())
}
