package overlay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bananameter/playtabq/pkg/executor/tui/types"
	"github.com/bananameter/playtabq/pkg/host"
	"github.com/bananameter/playtabq/pkg/logging"
	"github.com/bananameter/playtabq/pkg/match"
	"github.com/bananameter/playtabq/pkg/settings"
)

const (
	knobFrame    = 16 * time.Millisecond
	knobStep     = 0.25
	trackCells   = 5
	popupMinWide = 52
)

// layoutFlushMsg arrives after the first render of the popup and re-enables
// knob transitions.
type layoutFlushMsg struct{}

// knobFrameMsg advances knob animations by one frame.
type knobFrameMsg struct{}

type popupKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Close  key.Binding
}

func (k popupKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Close}
}

func (k popupKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var popupKeys = popupKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j", keyTab), key.WithHelp("↓/j", "down")),
	Toggle: key.NewBinding(key.WithKeys(" ", keyEnter), key.WithHelp("space", "toggle")),
	Close:  key.NewBinding(key.WithKeys(keyEsc, "q", keyCtrlC), key.WithHelp("esc", "close")),
}

// toggle is one switch of the popup. When inverted, checked means the
// stored value is false.
type toggle struct {
	key      string
	label    string
	inverted bool
	checked  bool
	knob     float64 // 0 = left (off), 1 = right (on)
}

func (t toggle) target() float64 {
	if t.checked {
		return 1
	}
	return 0
}

func (t toggle) stored() bool {
	return t.checked != t.inverted
}

// PopupConfig wires the popup to the settings and the active tab.
type PopupConfig struct {
	Settings *settings.Manager
	Tabs     host.Tabs
	Matcher  *match.Matcher
	Width    int
	Height   int
	Logger   *logging.Logger
}

// PopupOverlay is the settings popup: three switches plus an advisory line
// when the active tab is not a video page.
type PopupOverlay struct {
	settings *settings.Manager
	log      *logging.Logger
	help     help.Model

	width  int
	height int

	toggles      []toggle
	selected     int
	advisory     string
	noTransition bool
	animating    bool
	err          error
}

// NewPopupOverlay builds the popup and applies the stored settings with
// transitions disabled. Init re-enables them after the first render.
func NewPopupOverlay(ctx context.Context, cfg PopupConfig) *PopupOverlay {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard("popup")
	}
	matcher := cfg.Matcher
	if matcher == nil {
		matcher = match.MustNew(match.DefaultVideoHost)
	}

	p := &PopupOverlay{
		settings:     cfg.Settings,
		log:          log,
		help:         help.New(),
		width:        cfg.Width,
		height:       cfg.Height,
		noTransition: true,
		toggles: []toggle{
			{key: settings.KeyIsEnabled, label: "Enable"},
			{key: settings.KeyCloseTabsAutomatically, label: "Close tabs automatically"},
			{key: settings.KeyRightToLeft, label: "Left to right", inverted: true},
		},
	}

	if !p.onVideoPage(ctx, cfg.Tabs, matcher) {
		p.advisory = fmt.Sprintf("This extension is only active on %s video pages.", siteName(matcher.Host()))
	}
	p.load()
	return p
}

func (p *PopupOverlay) onVideoPage(ctx context.Context, tabs host.Tabs, matcher *match.Matcher) bool {
	if tabs == nil {
		return false
	}
	active, err := tabs.Query(ctx, host.Query{Active: true, CurrentWindow: true})
	if err != nil {
		p.log.Warnf("querying active tab failed: %v", err)
		return false
	}
	return len(active) > 0 && matcher.IsVideoPage(active[0].URL)
}

func (p *PopupOverlay) load() {
	values, err := p.settings.Values()
	if err != nil {
		p.err = err
		p.log.Warnf("loading settings failed: %v", err)
	}

	for i := range p.toggles {
		t := &p.toggles[i]
		switch t.key {
		case settings.KeyIsEnabled:
			t.checked = values.Enabled()
		case settings.KeyCloseTabsAutomatically:
			t.checked = values.CloseTabs()
		case settings.KeyRightToLeft:
			t.checked = !values.Leftward()
		}
		p.applyKnob(t)
	}
}

// applyKnob moves the knob to its target when transitions are disabled.
func (p *PopupOverlay) applyKnob(t *toggle) {
	if p.noTransition {
		t.knob = t.target()
	}
}

// Init schedules the layout flush that ends the initial paint.
func (p *PopupOverlay) Init() tea.Cmd {
	return func() tea.Msg { return layoutFlushMsg{} }
}

// Update handles keys, the layout flush and animation frames.
func (p *PopupOverlay) Update(msg tea.Msg) (types.Overlay, tea.Cmd) {
	switch msg := msg.(type) {
	case layoutFlushMsg:
		p.noTransition = false
		return p, nil
	case knobFrameMsg:
		return p, p.stepKnobs()
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil
	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return p, nil
}

func (p *PopupOverlay) handleKey(msg tea.KeyMsg) (types.Overlay, tea.Cmd) {
	switch {
	case key.Matches(msg, popupKeys.Close):
		return nil, nil
	case key.Matches(msg, popupKeys.Up):
		if p.selected > 0 {
			p.selected--
		}
	case key.Matches(msg, popupKeys.Down):
		if p.selected < len(p.toggles)-1 {
			p.selected++
		}
	case key.Matches(msg, popupKeys.Toggle):
		return p, p.flip(p.selected)
	}
	return p, nil
}

// flip changes one switch and writes its single key.
func (p *PopupOverlay) flip(i int) tea.Cmd {
	t := &p.toggles[i]
	t.checked = !t.checked
	p.applyKnob(t)

	if err := p.settings.SetBool(t.key, t.stored()); err != nil {
		p.err = err
		p.log.Errorf("saving %s failed: %v", t.key, err)
	} else {
		p.err = nil
	}

	if p.noTransition || p.animating {
		return nil
	}
	p.animating = true
	return tea.Tick(knobFrame, func(time.Time) tea.Msg { return knobFrameMsg{} })
}

func (p *PopupOverlay) stepKnobs() tea.Cmd {
	moving := false
	for i := range p.toggles {
		t := &p.toggles[i]
		target := t.target()
		switch {
		case t.knob < target:
			t.knob = min(target, t.knob+knobStep)
		case t.knob > target:
			t.knob = max(target, t.knob-knobStep)
		}
		if t.knob != target {
			moving = true
		}
	}
	if !moving {
		p.animating = false
		return nil
	}
	return tea.Tick(knobFrame, func(time.Time) tea.Msg { return knobFrameMsg{} })
}

// View renders the popup box centered in the available space.
func (p *PopupOverlay) View() string {
	var content strings.Builder

	content.WriteString(types.OverlayTitleStyle.Render("PlayTabQ"))
	content.WriteString("\n\n")

	for i, t := range p.toggles {
		content.WriteString(p.renderToggle(t, i == p.selected))
		content.WriteString("\n")
	}

	if p.advisory != "" {
		content.WriteString("\n")
		content.WriteString(lipgloss.NewStyle().Foreground(types.SalmonPink).Render(p.advisory))
		content.WriteString("\n")
	}
	if p.err != nil {
		content.WriteString("\n")
		content.WriteString(lipgloss.NewStyle().Foreground(types.SalmonPink).Bold(true).Render("✗ " + p.err.Error()))
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(p.help.View(popupKeys))

	boxWidth := max(popupMinWide, min(p.width-6, 64))
	box := types.CreateOverlayContainerStyle(boxWidth).Render(content.String())
	if p.width <= 0 || p.height <= 0 {
		return box
	}
	return lipgloss.Place(p.width, p.height, lipgloss.Center, lipgloss.Center, box)
}

func (p *PopupOverlay) renderToggle(t toggle, focused bool) string {
	prefix := "  "
	if focused {
		prefix = "➜ "
	}

	pos := int(t.knob*float64(trackCells-1) + 0.5)
	var track strings.Builder
	for i := 0; i < trackCells; i++ {
		if i == pos {
			track.WriteString("●")
		} else {
			track.WriteString("─")
		}
	}

	trackStyle := lipgloss.NewStyle().Foreground(types.MutedGray)
	if t.checked {
		trackStyle = trackStyle.Foreground(types.MintGreen)
	}
	labelStyle := lipgloss.NewStyle().Foreground(types.MutedGray)
	if focused {
		labelStyle = labelStyle.Foreground(types.BrightWhite).Bold(true)
	} else if t.checked {
		labelStyle = labelStyle.Foreground(types.BrightWhite)
	}

	return fmt.Sprintf("%s%s %s", prefix, trackStyle.Render("["+track.String()+"]"), labelStyle.Render(t.label))
}

// siteName returns the display name of a video host.
func siteName(videoHost string) string {
	switch strings.TrimPrefix(strings.ToLower(videoHost), "www.") {
	case "youtube.com":
		return "YouTube"
	default:
		return videoHost
	}
}
