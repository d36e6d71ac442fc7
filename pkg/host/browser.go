package host

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Browser is the tab registry shared by all backends. Backends report what
// they observe (AddTab, Navigated, Loaded, SetActive, RemoveTab); consumers
// use it through the Tabs interface. Commands are forwarded to the Driver and
// the registry is updated once the driver succeeds.
type Browser struct {
	driver Driver

	mu            sync.RWMutex
	tabs          map[TabID]*Tab
	order         map[WindowID][]TabID
	currentWindow WindowID
	nextID        TabID

	activated listeners[ActivatedListener]
	updated   listeners[UpdatedListener]
}

// NewBrowser creates an empty registry backed by driver.
func NewBrowser(driver Driver) *Browser {
	return &Browser{
		driver: driver,
		tabs:   make(map[TabID]*Tab),
		order:  make(map[WindowID][]TabID),
		nextID: 1,
	}
}

// SetDriver replaces the driver. Backends call it once they are connected.
func (b *Browser) SetDriver(d Driver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.driver = d
}

// AddTab registers a tab at the end of window's tab strip and returns its ID.
func (b *Browser) AddTab(window WindowID, url string, status Status) TabID {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	b.order[window] = append(b.order[window], id)
	b.tabs[id] = &Tab{
		ID:       id,
		WindowID: window,
		Index:    len(b.order[window]) - 1,
		URL:      url,
		Status:   status,
	}
	if b.currentWindow == NoWindow {
		b.currentWindow = window
	}
	return id
}

// RemoveTab forgets a tab and reindexes its window.
func (b *Browser) RemoveTab(id TabID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(id)
}

func (b *Browser) removeLocked(id TabID) {
	tab, ok := b.tabs[id]
	if !ok {
		return
	}
	delete(b.tabs, id)

	ids := slices.DeleteFunc(b.order[tab.WindowID], func(other TabID) bool { return other == id })
	if len(ids) == 0 {
		delete(b.order, tab.WindowID)
	} else {
		b.order[tab.WindowID] = ids
	}
	b.reindexLocked(tab.WindowID)

	if b.currentWindow == tab.WindowID && len(ids) == 0 {
		b.currentWindow = NoWindow
		for w := range b.order {
			b.currentWindow = w
			break
		}
	}
}

func (b *Browser) reindexLocked(window WindowID) {
	for i, id := range b.order[window] {
		b.tabs[id].Index = i
	}
}

// Navigated records a main-frame navigation: new URL, status loading.
func (b *Browser) Navigated(id TabID, url string) {
	b.update(id, ChangeInfo{URL: url, Status: StatusLoading})
}

// Loaded records that the tab finished loading.
func (b *Browser) Loaded(id TabID) {
	b.update(id, ChangeInfo{Status: StatusComplete})
}

// SetTitle records a title change. Title changes emit no update event.
func (b *Browser) SetTitle(id TabID, title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tab, ok := b.tabs[id]; ok {
		tab.Title = title
	}
}

func (b *Browser) update(id TabID, change ChangeInfo) {
	b.mu.Lock()
	tab, ok := b.tabs[id]
	if !ok {
		b.mu.Unlock()
		return
	}

	effective := ChangeInfo{}
	if change.URL != "" && change.URL != tab.URL {
		tab.URL = change.URL
		effective.URL = change.URL
	}
	if change.Status != "" && change.Status != tab.Status {
		tab.Status = change.Status
		effective.Status = change.Status
	}
	snapshot := *tab
	b.mu.Unlock()

	if effective == (ChangeInfo{}) {
		return
	}
	for _, fn := range b.updated.snapshot() {
		fn(id, effective, snapshot)
	}
}

// SetActive marks id as the active tab of its window and makes that window
// current. An activation event is emitted only when something changed.
func (b *Browser) SetActive(id TabID) {
	b.mu.Lock()
	tab, ok := b.tabs[id]
	if !ok {
		b.mu.Unlock()
		return
	}

	changed := !tab.Active
	for _, other := range b.order[tab.WindowID] {
		b.tabs[other].Active = other == id
	}
	b.currentWindow = tab.WindowID
	info := ActiveInfo{TabID: id, WindowID: tab.WindowID}
	b.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range b.activated.snapshot() {
		fn(info)
	}
}

// Query returns matching tabs ordered by window, then by index.
func (b *Browser) Query(_ context.Context, q Query) ([]Tab, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	window := q.WindowID
	if q.CurrentWindow {
		window = b.currentWindow
		if window == NoWindow {
			return nil, nil
		}
	}

	windows := lo.Keys(b.order)
	slices.Sort(windows)

	var out []Tab
	for _, w := range windows {
		if window != NoWindow && w != window {
			continue
		}
		for _, id := range b.order[w] {
			tab := b.tabs[id]
			if q.Active && !tab.Active {
				continue
			}
			out = append(out, *tab)
		}
	}
	return out, nil
}

// Get returns a snapshot of one tab.
func (b *Browser) Get(_ context.Context, id TabID) (Tab, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tab, ok := b.tabs[id]
	if !ok {
		return Tab{}, fmt.Errorf("tab %d: %w", id, ErrTabNotFound)
	}
	return *tab, nil
}

func (b *Browser) lookup(id TabID) (Driver, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, ok := b.tabs[id]; !ok {
		return nil, fmt.Errorf("tab %d: %w", id, ErrTabNotFound)
	}
	if b.driver == nil {
		return nil, fmt.Errorf("no browser connection")
	}
	return b.driver, nil
}

// Activate focuses a tab in the browser and records it as active.
func (b *Browser) Activate(ctx context.Context, id TabID) error {
	driver, err := b.lookup(id)
	if err != nil {
		return err
	}
	if err := driver.Activate(ctx, id); err != nil {
		return fmt.Errorf("activate tab %d: %w", id, err)
	}
	b.SetActive(id)
	return nil
}

// Remove closes a tab in the browser and forgets it.
func (b *Browser) Remove(ctx context.Context, id TabID) error {
	driver, err := b.lookup(id)
	if err != nil {
		return err
	}
	if err := driver.Close(ctx, id); err != nil {
		return fmt.Errorf("close tab %d: %w", id, err)
	}
	b.RemoveTab(id)
	return nil
}

// ExecuteScript runs code in the tab's page context.
func (b *Browser) ExecuteScript(ctx context.Context, id TabID, code string) error {
	driver, err := b.lookup(id)
	if err != nil {
		return err
	}
	if err := driver.Evaluate(ctx, id, code); err != nil {
		return fmt.Errorf("execute script in tab %d: %w", id, err)
	}
	return nil
}

// OnActivated registers an activation listener.
func (b *Browser) OnActivated(fn ActivatedListener) func() {
	return b.activated.add(fn)
}

// OnUpdated registers an update listener.
func (b *Browser) OnUpdated(fn UpdatedListener) func() {
	return b.updated.add(fn)
}

// UpdatedListenerCount reports how many update listeners are registered.
func (b *Browser) UpdatedListenerCount() int {
	return b.updated.len()
}

var _ Tabs = (*Browser)(nil)
