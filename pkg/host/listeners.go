package host

import (
	"sort"
	"sync"
)

// listeners is a registry of callbacks with removal handles. Emission works on
// a snapshot, so a listener may remove itself while being called.
type listeners[F any] struct {
	mu     sync.Mutex
	fns    map[int]F
	nextID int
}

func (l *listeners[F]) add(fn F) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[int]F)
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.fns, id)
		})
	}
}

// snapshot returns the registered callbacks in registration order.
func (l *listeners[F]) snapshot() []F {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]F, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.fns[id])
	}
	return out
}

func (l *listeners[F]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}
