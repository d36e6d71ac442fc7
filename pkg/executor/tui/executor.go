// Package tui provides the terminal toolbar for PlayTabQ: the extension icon,
// the tabs of the current window, and the settings popup.
//
// The TUI codebase is split into multiple files:
// - executor.go: Toolbar implementation and program lifecycle
// - model.go: Core model structure and state
// - update.go: Bubble Tea Update function and message handling
// - view.go: Bubble Tea View function and rendering
// - overlay.go: Overlay state and layering
// - styles.go: Color schemes and styling
package tui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bananameter/playtabq/pkg/controller"
	"github.com/bananameter/playtabq/pkg/executor/tui/types"
	"github.com/bananameter/playtabq/pkg/host"
	"github.com/bananameter/playtabq/pkg/logging"
	"github.com/bananameter/playtabq/pkg/match"
	"github.com/bananameter/playtabq/pkg/settings"
)

// ClickHandler receives toolbar clicks.
type ClickHandler interface {
	HandleClick(ctx context.Context, tab *host.Tab, mods []controller.Modifier)
}

// Config wires the executor to the daemon.
type Config struct {
	Tabs     host.Tabs
	Settings *settings.Manager
	Matcher  *match.Matcher
	Logger   *logging.Logger
}

// Executor is the terminal toolbar. It implements controller.Toolbar; the
// icon and popup state can be set before Run starts the program.
type Executor struct {
	cfg Config
	log *logging.Logger

	mu      sync.Mutex
	icon    controller.IconState
	popup   string
	program *tea.Program
}

// NewExecutor creates a TUI executor.
func NewExecutor(cfg Config) *Executor {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard("tui")
	}
	if cfg.Matcher == nil {
		cfg.Matcher = match.MustNew(match.DefaultVideoHost)
	}
	return &Executor{cfg: cfg, log: log}
}

// SetIcon records the icon state and redraws.
func (e *Executor) SetIcon(state controller.IconState) {
	e.mu.Lock()
	e.icon = state
	e.mu.Unlock()
	e.send(types.RefreshMsg{})
}

// Icon returns the current icon state.
func (e *Executor) Icon() controller.IconState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.icon
}

// SetPopup sets the popup shown by OpenPopup.
func (e *Executor) SetPopup(popup string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.popup = popup
}

// OpenPopup shows the popup and blocks until the user closes it.
func (e *Executor) OpenPopup(ctx context.Context) error {
	e.mu.Lock()
	popup, program := e.popup, e.program
	e.mu.Unlock()

	if popup == "" {
		return controller.ErrNoPopup
	}
	if program == nil {
		return fmt.Errorf("toolbar not running: %w", controller.ErrNoPopup)
	}

	done := make(chan struct{})
	e.send(openPopupMsg{name: popup, done: done})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// send delivers msg to the running program without blocking the caller.
func (e *Executor) send(msg tea.Msg) {
	e.mu.Lock()
	program := e.program
	e.mu.Unlock()
	if program != nil {
		go program.Send(msg)
	}
}

// Run starts the TUI and blocks until the user quits or ctx is done.
func (e *Executor) Run(ctx context.Context, clicks ClickHandler) error {
	e.log.Infof("toolbar starting")

	m := newModel(ctx, e, clicks)
	program := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	e.mu.Lock()
	e.program = program
	e.mu.Unlock()

	removers := []func(){
		e.cfg.Tabs.OnActivated(func(host.ActiveInfo) { e.send(types.RefreshMsg{}) }),
		e.cfg.Tabs.OnUpdated(func(host.TabID, host.ChangeInfo, host.Tab) { e.send(types.RefreshMsg{}) }),
	}
	defer func() {
		for _, remove := range removers {
			remove()
		}
		e.mu.Lock()
		e.program = nil
		e.mu.Unlock()
		m.overlay.deactivate()
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to run TUI program: %w", err)
	}
	e.log.Infof("toolbar stopped")
	return nil
}

var _ controller.Toolbar = (*Executor)(nil)
