// Package controller is the background hub of PlayTabQ. It owns the toolbar
// icon state, runs the advance sequence when a video ends, and routes tab,
// settings and toolbar events.
package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/lo"

	"github.com/bananameter/playtabq/pkg/host"
	"github.com/bananameter/playtabq/pkg/host/bridge"
	"github.com/bananameter/playtabq/pkg/logging"
	"github.com/bananameter/playtabq/pkg/match"
	"github.com/bananameter/playtabq/pkg/messaging"
	"github.com/bananameter/playtabq/pkg/settings"
)

// Runtime is the page-to-background half of the message channel.
type Runtime interface {
	OnMessage(fn messaging.Listener) (remove func())
}

// Config holds the controller's collaborators.
type Config struct {
	Tabs     host.Tabs
	Runtime  Runtime
	Settings *settings.Manager
	Matcher  *match.Matcher
	Toolbar  Toolbar
	Logger   *logging.Logger
}

// Controller reacts to host events. All methods are safe to call from
// backend goroutines; concurrent icon updates are last-write-wins.
type Controller struct {
	tabs     host.Tabs
	runtime  Runtime
	settings *settings.Manager
	matcher  *match.Matcher
	toolbar  Toolbar
	log      *logging.Logger
}

// New creates a controller. A nil Matcher matches the default video host.
func New(cfg Config) *Controller {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard("controller")
	}
	matcher := cfg.Matcher
	if matcher == nil {
		matcher = match.MustNew(match.DefaultVideoHost)
	}
	return &Controller{
		tabs:     cfg.Tabs,
		runtime:  cfg.Runtime,
		settings: cfg.Settings,
		matcher:  matcher,
		toolbar:  cfg.Toolbar,
		log:      log,
	}
}

// UpdateIconState sets the icon to enabled iff tab is a video page and
// isEnabled is not false.
func (c *Controller) UpdateIconState(_ context.Context, tab *host.Tab) {
	if tab == nil || tab.URL == "" {
		c.toolbar.SetIcon(IconDisabled)
		return
	}

	values, err := c.settings.Values()
	if err != nil {
		c.log.Warnf("reading settings for icon failed: %v", err)
		c.toolbar.SetIcon(IconDisabled)
		return
	}

	if c.matcher.IsVideoPage(tab.URL) && values.Enabled() {
		c.toolbar.SetIcon(IconEnabled)
	} else {
		c.toolbar.SetIcon(IconDisabled)
	}
}

// VideoEndedInTab runs the advance sequence for the tab whose video ended.
func (c *Controller) VideoEndedInTab(ctx context.Context, current host.Tab) {
	values, err := c.settings.Values()
	if err != nil {
		c.log.Warnf("reading settings failed: %v", err)
		return
	}
	// Unlike the icon, advancing requires isEnabled to be stored as true.
	if !values.EnabledExplicitly() {
		return
	}

	active, err := c.tabs.Query(ctx, host.Query{Active: true, WindowID: current.WindowID})
	if err != nil {
		c.log.Warnf("querying active tab of window %d failed: %v", current.WindowID, err)
		return
	}
	if len(active) == 0 || active[0].ID != current.ID {
		c.log.Infof("User switched tabs before video ended action could complete. Aborting auto-switch.")
		return
	}

	tabs, err := c.tabs.Query(ctx, host.Query{WindowID: current.WindowID})
	if err != nil {
		c.log.Warnf("listing tabs of window %d failed: %v", current.WindowID, err)
		return
	}

	if next, ok := neighbor(tabs, current.ID, values.Leftward()); ok {
		c.advanceTo(ctx, next)
	}

	if values.CloseTabs() {
		if err := c.tabs.Remove(ctx, current.ID); err != nil {
			c.log.Warnf("closing tab %d failed: %v", current.ID, err)
		}
	}
}

func (c *Controller) advanceTo(ctx context.Context, next host.Tab) {
	if err := c.tabs.Activate(ctx, next.ID); err != nil {
		c.log.Warnf("activating tab %d failed: %v", next.ID, err)
		return
	}
	c.log.Infof("advanced to tab %d", next.ID)

	if !c.matcher.IsVideoPage(next.URL) {
		return
	}
	if next.Status == host.StatusComplete {
		c.tellTabToPlay(ctx, next.ID)
		return
	}
	c.tellTabToPlayOnceItLoads(context.WithoutCancel(ctx), next.ID)
}

// neighbor returns the tab next to id in display order: one to the right,
// or one to the left when leftward is set.
func neighbor(tabs []host.Tab, id host.TabID, leftward bool) (host.Tab, bool) {
	_, index, found := lo.FindIndexOf(tabs, func(t host.Tab) bool { return t.ID == id })
	if !found {
		return host.Tab{}, false
	}
	if leftward {
		index--
	} else {
		index++
	}
	if index < 0 || index >= len(tabs) {
		return host.Tab{}, false
	}
	return tabs[index], true
}

func (c *Controller) tellTabToPlay(ctx context.Context, id host.TabID) {
	c.log.Debugf("injecting play script into tab %d", id)
	if err := c.tabs.ExecuteScript(ctx, id, bridge.PlayScript); err != nil {
		c.log.Errorf("Failed to execute script in tab %d: %v", id, err)
	}
}

// tellTabToPlayOnceItLoads plays the tab on its next transition to complete.
// The listener removes itself when it fires.
func (c *Controller) tellTabToPlayOnceItLoads(ctx context.Context, id host.TabID) {
	c.log.Debugf("tab %d is still loading, waiting for it to complete", id)

	var (
		mu     sync.Mutex
		fired  bool
		remove func()
	)
	r := c.tabs.OnUpdated(func(tabID host.TabID, change host.ChangeInfo, _ host.Tab) {
		if tabID != id || change.Status != host.StatusComplete {
			return
		}
		mu.Lock()
		if fired {
			mu.Unlock()
			return
		}
		fired = true
		unsubscribe := remove
		mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		c.tellTabToPlay(ctx, id)
	})

	mu.Lock()
	remove = r
	late := fired
	mu.Unlock()
	// The load completed before OnUpdated returned.
	if late {
		r()
	}
}

// HandleClick reacts to a toolbar click. Ctrl or Command toggles isEnabled;
// any other click opens the settings popup.
func (c *Controller) HandleClick(ctx context.Context, tab *host.Tab, mods []Modifier) {
	if tab != nil {
		c.log.Debugf("toolbar icon clicked on tab %d with modifiers %v", tab.ID, mods)
	}

	if isToggleClick(mods) {
		values, err := c.settings.Values()
		if err != nil {
			c.log.Warnf("reading settings failed: %v", err)
			return
		}
		if err := c.settings.SetBool(settings.KeyIsEnabled, !values.Enabled()); err != nil {
			c.log.Warnf("toggling isEnabled failed: %v", err)
		}
		return
	}

	c.toolbar.SetPopup(PopupSettings)
	err := c.toolbar.OpenPopup(ctx)
	// Cleared either way so the next click checks its modifiers again.
	c.toolbar.SetPopup("")
	if err != nil && !errors.Is(err, context.Canceled) {
		c.log.Errorf("Failed to open popup: %v", err)
	}
}

// Start wires the controller to its event sources, sets the initial icon,
// and returns a func that removes every listener.
func (c *Controller) Start(ctx context.Context) (stop func()) {
	removers := []func(){
		c.runtime.OnMessage(func(ctx context.Context, msg messaging.Message, sender messaging.Sender) {
			if msg.Type != messaging.TypeVideoEnded {
				return
			}
			if sender.Tab == nil {
				c.log.Warnf("%s from a sender without a tab", msg.Type)
				return
			}
			c.VideoEndedInTab(ctx, *sender.Tab)
		}),
		c.tabs.OnActivated(func(info host.ActiveInfo) {
			tab, err := c.tabs.Get(ctx, info.TabID)
			if err != nil {
				c.log.Debugf("activated tab %d: %v", info.TabID, err)
				return
			}
			c.UpdateIconState(ctx, &tab)
		}),
		c.tabs.OnUpdated(func(_ host.TabID, change host.ChangeInfo, tab host.Tab) {
			if change.URL != "" {
				c.UpdateIconState(ctx, &tab)
			}
		}),
		c.settings.OnChanged(func(changes map[string]settings.Change, area string) {
			if _, ok := changes[settings.KeyIsEnabled]; area == settings.AreaLocal && ok {
				c.refreshActiveIcon(ctx)
			}
		}),
	}

	c.refreshActiveIcon(ctx)

	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

func (c *Controller) refreshActiveIcon(ctx context.Context) {
	tabs, err := c.tabs.Query(ctx, host.Query{Active: true, CurrentWindow: true})
	if err != nil {
		c.log.Warnf("querying active tab failed: %v", err)
		return
	}
	if len(tabs) > 0 {
		c.UpdateIconState(ctx, &tabs[0])
	}
}
