// Package headless implements the toolbar for runs without a terminal UI.
//
// The icon is reported on the console whenever it changes. Popups cannot be
// shown, so every OpenPopup fails and the controller falls back to its
// cleared-popup state. Clicks can still be issued as lines on an input
// stream:
//
//	click        unmodified click (tries to open the popup)
//	ctrl-click   toggles auto-advance
//	status       prints the icon state
package headless

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bananameter/playtabq/pkg/controller"
	"github.com/bananameter/playtabq/pkg/host"
	"github.com/bananameter/playtabq/pkg/logging"
)

// ClickHandler receives toolbar clicks.
type ClickHandler interface {
	HandleClick(ctx context.Context, tab *host.Tab, mods []controller.Modifier)
}

// Stats summarizes a headless session.
type Stats struct {
	IconChanges int
	Clicks      int
	LastIcon    string
}

// Executor is the console toolbar.
type Executor struct {
	tabs    host.Tabs
	console *Logger
	log     *logging.Logger

	mu    sync.Mutex
	icon  controller.IconState
	known bool
	popup string
	stats Stats
}

// NewExecutor creates a headless toolbar. tabs resolves the active tab for
// clicks read from the input stream.
func NewExecutor(tabs host.Tabs, console *Logger, log *logging.Logger) *Executor {
	if console == nil {
		console = NewLogger(LogLevelNormal)
	}
	if log == nil {
		log = logging.Discard("headless")
	}
	return &Executor{tabs: tabs, console: console, log: log}
}

// SetIcon reports the icon when it changes.
func (e *Executor) SetIcon(state controller.IconState) {
	e.mu.Lock()
	changed := !e.known || e.icon != state
	e.icon = state
	e.known = true
	if changed {
		e.stats.IconChanges++
		e.stats.LastIcon = state.String()
	}
	e.mu.Unlock()

	if changed {
		e.console.Icon(state == controller.IconEnabled)
		e.log.Infof("icon %s", state)
	}
}

// SetPopup records the popup name.
func (e *Executor) SetPopup(popup string) {
	e.mu.Lock()
	e.popup = popup
	e.mu.Unlock()
	e.console.Debugf("popup set to %q", popup)
}

// OpenPopup always fails: there is no surface to draw a popup on.
func (e *Executor) OpenPopup(context.Context) error {
	e.mu.Lock()
	popup := e.popup
	e.mu.Unlock()

	e.console.Warningf("popups are not available in headless mode")
	if popup == "" {
		return controller.ErrNoPopup
	}
	return fmt.Errorf("headless toolbar cannot show %q: %w", popup, controller.ErrNoPopup)
}

// Stats returns the session counters.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Run blocks until ctx is done, executing click commands from input when it
// is non-nil, then prints the session summary.
func (e *Executor) Run(ctx context.Context, clicks ClickHandler, input io.Reader) error {
	e.console.Header("PlayTabQ (headless)")
	e.console.Verbosef("commands: click, ctrl-click, status")

	if input != nil && clicks != nil {
		go e.readCommands(ctx, clicks, input)
	}

	<-ctx.Done()
	e.console.Summary(e.Stats())
	return nil
}

func (e *Executor) readCommands(ctx context.Context, clicks ClickHandler, input io.Reader) {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		e.handleCommand(ctx, clicks, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		e.log.Warnf("reading commands failed: %v", err)
	}
}

func (e *Executor) handleCommand(ctx context.Context, clicks ClickHandler, line string) {
	cmd := strings.ToLower(strings.TrimSpace(line))
	if cmd == "" {
		return
	}

	switch cmd {
	case "click":
		e.click(ctx, clicks, nil)
	case "ctrl-click", "toggle":
		e.click(ctx, clicks, []controller.Modifier{controller.ModifierCtrl})
	case "status":
		e.mu.Lock()
		state := e.icon
		e.mu.Unlock()
		e.console.Icon(state == controller.IconEnabled)
	default:
		e.console.Warningf("unknown command %q", cmd)
	}
}

func (e *Executor) click(ctx context.Context, clicks ClickHandler, mods []controller.Modifier) {
	e.mu.Lock()
	e.stats.Clicks++
	e.mu.Unlock()

	var tab *host.Tab
	if e.tabs != nil {
		active, err := e.tabs.Query(ctx, host.Query{Active: true, CurrentWindow: true})
		if err != nil {
			e.log.Warnf("querying active tab failed: %v", err)
		} else if len(active) > 0 {
			tab = &active[0]
		}
	}
	e.console.Verbosef("click %v", mods)
	clicks.HandleClick(ctx, tab, mods)
}

var _ controller.Toolbar = (*Executor)(nil)
