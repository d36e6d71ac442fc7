// Package playwright drives a Chromium instance launched by Playwright. The
// browser runs with a persistent profile; every page of its context is a tab
// of window 1, in creation order. Playwright reports no tab activation, so
// the active tab is the one whose document last reported itself visible, or
// the one PlayTabQ brought to the front.
package playwright

import (
	"context"
	"fmt"
	"io"
	"sync"

	pw "github.com/playwright-community/playwright-go"

	"github.com/bananameter/playtabq/pkg/detector"
	"github.com/bananameter/playtabq/pkg/host"
	"github.com/bananameter/playtabq/pkg/host/bridge"
	"github.com/bananameter/playtabq/pkg/logging"
)

// window is the only window of a persistent context.
const window host.WindowID = 1

// Config configures the Playwright backend.
type Config struct {
	UserDataDir string
	Headless    bool
	StartURLs   []string
	// SkipInstall skips downloading the driver and browsers.
	SkipInstall bool

	Browser  *host.Browser
	Channel  detector.Channel
	Settings detector.SettingsReader
	Logger   *logging.Logger
}

type tab struct {
	id      host.TabID
	page    pw.Page
	session *bridge.Session
}

// Backend owns the Playwright driver, the browser context and one bridge
// session per page.
type Backend struct {
	cfg Config
	log *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events *host.Queue

	playwright *pw.Playwright
	context    pw.BrowserContext

	mu    sync.RWMutex
	byID  map[host.TabID]*tab
	pages map[pw.Page]*tab
}

// New creates a backend. Start connects it.
func New(cfg Config) *Backend {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard("playwright")
	}
	return &Backend{
		cfg:   cfg,
		log:   log,
		byID:  make(map[host.TabID]*tab),
		pages: make(map[pw.Page]*tab),
	}
}

// Start installs and runs Playwright, launches the browser with the bridge
// installed, registers the existing pages and opens the start URLs.
func (b *Backend) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.events = host.NewQueue(b.ctx)

	// Keep Playwright quiet so it does not draw over the TUI
	opts := &pw.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if !b.cfg.SkipInstall {
		if err := pw.Install(opts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	instance, err := pw.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	b.playwright = instance

	browserCtx, err := instance.Chromium.LaunchPersistentContext(b.cfg.UserDataDir, pw.BrowserTypeLaunchPersistentContextOptions{
		Headless:   pw.Bool(b.cfg.Headless),
		NoViewport: pw.Bool(true),
	})
	if err != nil {
		_ = instance.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	b.context = browserCtx

	if err := browserCtx.ExposeBinding(bridge.BindingName, b.onBinding); err != nil {
		b.Shutdown()
		return fmt.Errorf("failed to expose bridge binding: %w", err)
	}
	if err := browserCtx.AddInitScript(pw.Script{Content: pw.String(bridge.Script)}); err != nil {
		b.Shutdown()
		return fmt.Errorf("failed to add bridge script: %w", err)
	}

	b.cfg.Browser.SetDriver(b)
	browserCtx.OnPage(func(page pw.Page) {
		b.events.Push(func() { b.addPage(page, host.StatusLoading) })
	})

	existing := browserCtx.Pages()
	for _, page := range existing {
		b.addPage(page, host.StatusComplete)
	}
	if len(existing) > 0 {
		b.cfg.Browser.SetActive(b.idOf(existing[0]))
	}

	b.openStartURLs(existing)
	b.log.Infof("browser launched with profile %s", b.cfg.UserDataDir)
	return nil
}

func (b *Backend) openStartURLs(existing []pw.Page) {
	for i, url := range b.cfg.StartURLs {
		var page pw.Page
		if i == 0 && len(existing) == 1 && existing[0].URL() == "about:blank" {
			page = existing[0]
		} else {
			p, err := b.context.NewPage()
			if err != nil {
				b.log.Warnf("opening tab for %s failed: %v", url, err)
				continue
			}
			page = p
		}
		if _, err := page.Goto(url); err != nil {
			b.log.Warnf("navigating to %s failed: %v", url, err)
		}
	}
}

// addPage registers a page as a tab and subscribes to its lifecycle. It is
// idempotent because pages created by NewPage are also reported by OnPage.
func (b *Backend) addPage(page pw.Page, status host.Status) {
	b.mu.Lock()
	if _, ok := b.pages[page]; ok {
		b.mu.Unlock()
		return
	}
	id := b.cfg.Browser.AddTab(window, page.URL(), status)
	t := &tab{id: id, page: page}
	t.session = bridge.NewSession(b.ctx, bridge.SessionConfig{
		Tab:       id,
		Eval:      pageEvaluator{page: page},
		Channel:   b.cfg.Channel,
		Settings:  b.cfg.Settings,
		Tabs:      b.cfg.Browser,
		OnVisible: b.cfg.Browser.SetActive,
		Logger:    b.log,
	})
	b.byID[id] = t
	b.pages[page] = t
	b.mu.Unlock()

	b.log.Debugf("tab %d added: %s", id, page.URL())

	page.OnFrameNavigated(func(frame pw.Frame) {
		if frame.ParentFrame() != nil {
			return
		}
		url := frame.URL()
		b.events.Push(func() {
			b.cfg.Browser.Navigated(id, url)
			// Same-document navigations never fire load.
			go b.settle(id, page)
		})
	})
	page.OnLoad(func(pw.Page) {
		b.events.Push(func() {
			b.cfg.Browser.Loaded(id)
			go b.settle(id, page)
		})
	})
	page.OnClose(func(pw.Page) {
		b.events.Push(func() { b.removePage(page) })
	})
}

// settle marks the tab complete when its document already finished loading
// and refreshes its title.
func (b *Backend) settle(id host.TabID, page pw.Page) {
	var state string
	if err := (pageEvaluator{page: page}).Evaluate(b.ctx, "document.readyState", &state); err != nil {
		b.log.Debugf("tab %d: reading readyState failed: %v", id, err)
		return
	}
	title, err := page.Title()
	if err == nil {
		b.cfg.Browser.SetTitle(id, title)
	}
	if state == "complete" {
		b.events.Push(func() { b.cfg.Browser.Loaded(id) })
	}
}

func (b *Backend) removePage(page pw.Page) {
	b.mu.Lock()
	t, ok := b.pages[page]
	if ok {
		delete(b.pages, page)
		delete(b.byID, t.id)
	}
	b.mu.Unlock()
	if !ok {
		return
	}

	t.session.Close()
	b.cfg.Browser.RemoveTab(t.id)
	b.log.Debugf("tab %d closed", t.id)
}

func (b *Backend) onBinding(source *pw.BindingSource, args ...interface{}) interface{} {
	payload, err := payloadOf(args)
	if err != nil {
		b.log.Warnf("bridge: %v", err)
		return nil
	}

	b.mu.RLock()
	t, ok := b.pages[source.Page]
	b.mu.RUnlock()
	if !ok {
		// Binding calls can race OnPage for a brand new page.
		b.events.Push(func() {
			b.mu.RLock()
			t, ok := b.pages[source.Page]
			b.mu.RUnlock()
			if ok {
				t.session.Emit(payload)
			}
		})
		return nil
	}
	t.session.Emit(payload)
	return nil
}

func (b *Backend) idOf(page pw.Page) host.TabID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if t, ok := b.pages[page]; ok {
		return t.id
	}
	return 0
}

func (b *Backend) page(id host.TabID) (pw.Page, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.byID[id]
	if !ok {
		return nil, fmt.Errorf("tab %d: %w", id, host.ErrTabNotFound)
	}
	return t.page, nil
}

// Activate brings the tab's page to the front.
func (b *Backend) Activate(ctx context.Context, id host.TabID) error {
	page, err := b.page(id)
	if err != nil {
		return err
	}
	return withContext(ctx, page.BringToFront)
}

// Close closes the tab's page.
func (b *Backend) Close(ctx context.Context, id host.TabID) error {
	page, err := b.page(id)
	if err != nil {
		return err
	}
	return withContext(ctx, func() error { return page.Close() })
}

// Evaluate runs code in the tab's page and discards the result.
func (b *Backend) Evaluate(ctx context.Context, id host.TabID, code string) error {
	page, err := b.page(id)
	if err != nil {
		return err
	}
	return pageEvaluator{page: page}.Evaluate(ctx, code, nil)
}

// Shutdown stops every session, closes the browser and stops Playwright. It
// is safe to call more than once.
func (b *Backend) Shutdown() {
	if b.cancel != nil {
		b.cancel()
	}

	var errs []error
	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, err)
		}
		b.context = nil
	}
	if b.playwright != nil {
		if err := b.playwright.Stop(); err != nil {
			errs = append(errs, err)
		}
		b.playwright = nil
	}
	if len(errs) > 0 {
		b.log.Warnf("errors closing browser: %v", errs)
	}
}

var _ host.Driver = (*Backend)(nil)
