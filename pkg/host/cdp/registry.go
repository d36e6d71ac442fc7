package cdp

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/target"

	"github.com/bananameter/playtabq/pkg/host"
	"github.com/bananameter/playtabq/pkg/host/bridge"
)

type tab struct {
	id      host.TabID
	target  target.ID
	ctx     context.Context
	cancel  context.CancelFunc
	session *bridge.Session
}

// registry maps DevTools targets to tab IDs.
type registry struct {
	mu       sync.RWMutex
	byTarget map[target.ID]*tab
	byID     map[host.TabID]*tab
	pending  map[target.ID]bool
}

func newRegistry() *registry {
	return &registry{
		byTarget: make(map[target.ID]*tab),
		byID:     make(map[host.TabID]*tab),
		pending:  make(map[target.ID]bool),
	}
}

// claim reserves a target for attachment. It fails when the target is known
// or already being attached.
func (r *registry) claim(id target.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTarget[id]; ok || r.pending[id] {
		return false
	}
	r.pending[id] = true
	return true
}

// release drops a claim that did not end in add.
func (r *registry) release(id target.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
}

func (r *registry) add(t *tab) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, t.target)
	r.byTarget[t.target] = t
	r.byID[t.id] = t
}

func (r *registry) remove(id target.ID) (*tab, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
	t, ok := r.byTarget[id]
	if !ok {
		return nil, false
	}
	delete(r.byTarget, id)
	delete(r.byID, t.id)
	return t, true
}

func (r *registry) byTab(id host.TabID) (*tab, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

func (r *registry) lookup(id target.ID) (*tab, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byTarget[id]
	return t, ok
}

func (r *registry) all() []*tab {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*tab, 0, len(r.byTarget))
	for _, t := range r.byTarget {
		out = append(out, t)
	}
	return out
}
