// Package messaging is the extension-scoped channel between page detectors and
// the background controller.
package messaging

import (
	"context"
	"sort"
	"sync"

	"github.com/bananameter/playtabq/pkg/host"
)

// Message types exchanged on the channel.
const (
	TypeVideoEnded = "VIDEO_ENDED"
	TypePlayVideo  = "PLAY_VIDEO"
)

// Message is the wire shape {type: "..."}.
type Message struct {
	Type string `json:"type"`
}

// Sender identifies where a message came from. Tab is nil for messages sent
// by the background controller.
type Sender struct {
	Tab *host.Tab
}

// Listener handles a runtime message.
type Listener func(ctx context.Context, msg Message, sender Sender)

// TabListener handles a message addressed to one tab.
type TabListener func(ctx context.Context, msg Message)

// Bus delivers runtime messages (page → background) to every runtime
// listener, and tab messages (background → page) to the listeners of the
// addressed tab. Delivery is synchronous on the caller's goroutine.
type Bus struct {
	mu      sync.Mutex
	runtime map[int]Listener
	tabs    map[host.TabID]map[int]TabListener
	nextID  int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		runtime: make(map[int]Listener),
		tabs:    make(map[host.TabID]map[int]TabListener),
	}
}

// OnMessage registers a runtime listener.
func (b *Bus) OnMessage(fn Listener) (remove func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.runtime[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.runtime, id)
	}
}

// Send delivers msg to every runtime listener.
func (b *Bus) Send(ctx context.Context, msg Message, sender Sender) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.runtime))
	for id := range b.runtime {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.runtime[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ctx, msg, sender)
	}
}

// OnTabMessage registers a listener for messages addressed to tab.
func (b *Bus) OnTabMessage(tab host.TabID, fn TabListener) (remove func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tabs[tab] == nil {
		b.tabs[tab] = make(map[int]TabListener)
	}
	id := b.nextID
	b.nextID++
	b.tabs[tab][id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.tabs[tab], id)
		if len(b.tabs[tab]) == 0 {
			delete(b.tabs, tab)
		}
	}
}

// SendToTab delivers msg to the listeners of tab and reports whether any
// listener received it.
func (b *Bus) SendToTab(ctx context.Context, tab host.TabID, msg Message) bool {
	b.mu.Lock()
	fns := make([]TabListener, 0, len(b.tabs[tab]))
	for _, fn := range b.tabs[tab] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ctx, msg)
	}
	return len(fns) > 0
}
