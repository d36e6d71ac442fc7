// Package cdp drives Chromium over the DevTools protocol with chromedp. It
// attaches to a running browser at a DevTools URL, or launches one with a
// persistent profile, and follows every page target. Tabs belong to the
// browser window reported for their target.
package cdp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	cdpproto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/bananameter/playtabq/pkg/detector"
	"github.com/bananameter/playtabq/pkg/host"
	"github.com/bananameter/playtabq/pkg/host/bridge"
	"github.com/bananameter/playtabq/pkg/logging"
)

const closeTimeout = 5 * time.Second

// Config configures the DevTools backend. With an empty URL the backend
// launches Chromium itself using UserDataDir.
type Config struct {
	URL         string
	UserDataDir string
	Headless    bool
	StartURLs   []string

	Browser  *host.Browser
	Channel  detector.Channel
	Settings detector.SettingsReader
	Logger   *logging.Logger
}

// Backend follows the page targets of one browser.
type Backend struct {
	cfg Config
	log *logging.Logger

	ctx           context.Context
	cancel        context.CancelFunc
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	events        *host.Queue
	tabs          *registry

	mu       sync.Mutex
	shutdown bool
}

// New creates a backend. Start connects it.
func New(cfg Config) *Backend {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard("cdp")
	}
	return &Backend{cfg: cfg, log: log, tabs: newRegistry()}
}

// Start connects to the browser, enables target discovery and opens the
// start URLs.
func (b *Backend) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.events = host.NewQueue(b.ctx)

	var allocCtx context.Context
	if b.cfg.URL != "" {
		b.log.Infof("connecting to Chrome at %s", b.cfg.URL)
		allocCtx, b.allocCancel = chromedp.NewRemoteAllocator(b.ctx, b.cfg.URL)
	} else {
		b.log.Infof("launching Chrome (profile: %s, headless: %v)", b.cfg.UserDataDir, b.cfg.Headless)
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserDataDir(b.cfg.UserDataDir),
			chromedp.Flag("no-first-run", true),
			chromedp.Flag("disable-popup-blocking", true),
			chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
		)
		if !b.cfg.Headless {
			opts = append(opts, chromedp.Flag("headless", false))
		}
		allocCtx, b.allocCancel = chromedp.NewExecAllocator(b.ctx, opts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(b.log.Debugf),
		chromedp.WithErrorf(b.log.Warnf),
	)
	b.browserCancel = browserCancel
	if err := chromedp.Run(browserCtx); err != nil {
		b.Shutdown()
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	b.browserCtx = browserCtx
	b.cfg.Browser.SetDriver(b)

	chromedp.ListenBrowser(browserCtx, b.onBrowserEvent)
	if err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return target.SetDiscoverTargets(true).Do(b.browserExecutor(ctx))
	})); err != nil {
		b.Shutdown()
		return fmt.Errorf("failed to enable target discovery: %w", err)
	}

	for _, url := range b.cfg.StartURLs {
		url := url
		b.events.Push(func() { b.open(url) })
	}
	return nil
}

func (b *Backend) browserExecutor(ctx context.Context) context.Context {
	return cdpproto.WithExecutor(ctx, chromedp.FromContext(b.browserCtx).Browser)
}

func (b *Backend) open(url string) {
	if _, err := target.CreateTarget(url).Do(b.browserExecutor(b.ctx)); err != nil {
		b.log.Warnf("opening tab for %s failed: %v", url, err)
	}
}

// onBrowserEvent runs on chromedp's event loop and must not block on the
// browser; work is pushed to the event queue.
func (b *Backend) onBrowserEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *target.EventTargetCreated:
		if !isPage(ev.TargetInfo) {
			return
		}
		info := *ev.TargetInfo
		b.events.Push(func() { b.attach(info) })
	case *target.EventTargetInfoChanged:
		if !isPage(ev.TargetInfo) {
			return
		}
		info := *ev.TargetInfo
		b.events.Push(func() {
			if t, ok := b.tabs.lookup(info.TargetID); ok {
				b.cfg.Browser.SetTitle(t.id, info.Title)
			}
		})
	case *target.EventTargetDestroyed:
		id := ev.TargetID
		b.events.Push(func() { b.detach(id) })
	}
}

// attach registers a page target as a tab and installs the bridge in it.
func (b *Backend) attach(info target.Info) {
	if !b.tabs.claim(info.TargetID) {
		return
	}

	window := host.WindowID(1)
	windowID, _, err := browser.GetWindowForTarget().WithTargetID(info.TargetID).Do(b.browserExecutor(b.ctx))
	if err != nil {
		b.log.Debugf("window for target %s unknown: %v", info.TargetID, err)
	} else {
		window = host.WindowID(windowID)
	}

	tctx, tcancel := chromedp.NewContext(b.browserCtx, chromedp.WithTargetID(info.TargetID))
	if err := chromedp.Run(tctx); err != nil {
		tcancel()
		b.tabs.release(info.TargetID)
		b.log.Warnf("attaching to target %s failed: %v", info.TargetID, err)
		return
	}
	exec := chromedp.FromContext(tctx).Target

	status := host.StatusComplete
	if info.URL == "" || info.URL == "about:blank" {
		status = host.StatusLoading
	}
	id := b.cfg.Browser.AddTab(window, info.URL, status)
	b.cfg.Browser.SetTitle(id, info.Title)

	t := &tab{id: id, target: info.TargetID, ctx: tctx, cancel: tcancel}
	t.session = bridge.NewSession(b.ctx, bridge.SessionConfig{
		Tab:       id,
		Eval:      targetEvaluator{exec: exec},
		Channel:   b.cfg.Channel,
		Settings:  b.cfg.Settings,
		Tabs:      b.cfg.Browser,
		OnVisible: b.cfg.Browser.SetActive,
		Logger:    b.log,
	})
	b.tabs.add(t)
	chromedp.ListenTarget(tctx, func(ev interface{}) { b.onTargetEvent(t, ev) })

	if err := chromedp.Run(tctx,
		page.Enable(),
		runtime.AddBinding(bridge.BindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(bridge.Script).Do(ctx)
			return err
		}),
		// The current document predates the script above.
		chromedp.Evaluate(bridge.Script, nil),
	); err != nil {
		b.log.Warnf("tab %d: installing bridge failed: %v", id, err)
	}

	b.log.Debugf("tab %d attached to target %s in window %d", id, info.TargetID, window)
}

func (b *Backend) onTargetEvent(t *tab, ev interface{}) {
	switch ev := ev.(type) {
	case *runtime.EventBindingCalled:
		if ev.Name == bridge.BindingName {
			t.session.Emit(ev.Payload)
		}
	case *page.EventFrameNavigated:
		if ev.Frame == nil || ev.Frame.ParentID != "" {
			return
		}
		url := frameURL(ev.Frame)
		b.events.Push(func() { b.cfg.Browser.Navigated(t.id, url) })
	case *page.EventNavigatedWithinDocument:
		if !isMainFrame(t.target, ev.FrameID) {
			return
		}
		url := ev.URL
		b.events.Push(func() {
			b.cfg.Browser.Navigated(t.id, url)
			// Same-document navigations never fire load.
			b.cfg.Browser.Loaded(t.id)
		})
	case *page.EventLoadEventFired:
		b.events.Push(func() { b.cfg.Browser.Loaded(t.id) })
	}
}

func (b *Backend) detach(id target.ID) {
	t, ok := b.tabs.remove(id)
	if !ok {
		return
	}
	t.session.Close()
	t.cancel()
	b.cfg.Browser.RemoveTab(t.id)
	b.log.Debugf("tab %d detached", t.id)
}

func (b *Backend) lookupTab(id host.TabID) (*tab, error) {
	t, ok := b.tabs.byTab(id)
	if !ok {
		return nil, fmt.Errorf("tab %d: %w", id, host.ErrTabNotFound)
	}
	return t, nil
}

// Activate focuses the tab's target.
func (b *Backend) Activate(ctx context.Context, id host.TabID) error {
	t, err := b.lookupTab(id)
	if err != nil {
		return err
	}
	return target.ActivateTarget(t.target).Do(b.browserExecutor(ctx))
}

// Close closes the tab's target.
func (b *Backend) Close(ctx context.Context, id host.TabID) error {
	t, err := b.lookupTab(id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()
	return target.CloseTarget(t.target).Do(b.browserExecutor(ctx))
}

// Evaluate runs code in the tab's page and discards the result.
func (b *Backend) Evaluate(ctx context.Context, id host.TabID, code string) error {
	t, err := b.lookupTab(id)
	if err != nil {
		return err
	}
	return targetEvaluator{exec: chromedp.FromContext(t.ctx).Target}.Evaluate(ctx, code, nil)
}

// Shutdown detaches from every target and releases the browser connection.
// A launched browser is closed; a remote one keeps running.
func (b *Backend) Shutdown() {
	b.mu.Lock()
	if b.shutdown {
		b.mu.Unlock()
		return
	}
	b.shutdown = true
	b.mu.Unlock()

	for _, t := range b.tabs.all() {
		t.session.Close()
		t.cancel()
	}
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
}

var _ host.Driver = (*Backend)(nil)
