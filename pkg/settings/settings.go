// Package settings holds the user's PlayTabQ preferences: a flat key-value
// record of three optional booleans, persisted through a Store, with change
// notifications fanned out to subscribers.
package settings

import (
	"fmt"
	"reflect"
	"sync"
)

// Keys of the settings record.
const (
	KeyIsEnabled              = "isEnabled"
	KeyCloseTabsAutomatically = "closeTabsAutomatically"
	KeyRightToLeft            = "rightToLeft"
)

// AreaLocal is the only storage area PlayTabQ writes to.
const AreaLocal = "local"

// AllKeys lists every key of the record.
var AllKeys = []string{KeyIsEnabled, KeyCloseTabsAutomatically, KeyRightToLeft}

// Values is a typed view of the record. A nil field means the key is unset.
type Values struct {
	IsEnabled              *bool
	CloseTabsAutomatically *bool
	RightToLeft            *bool
}

// Enabled reports whether the extension counts as enabled: unset or true.
func (v Values) Enabled() bool {
	return v.IsEnabled == nil || *v.IsEnabled
}

// EnabledExplicitly reports whether isEnabled is stored as exactly true.
func (v Values) EnabledExplicitly() bool {
	return v.IsEnabled != nil && *v.IsEnabled
}

// CloseTabs reports whether closeTabsAutomatically is exactly true.
func (v Values) CloseTabs() bool {
	return v.CloseTabsAutomatically != nil && *v.CloseTabsAutomatically
}

// Leftward reports whether rightToLeft is exactly true.
func (v Values) Leftward() bool {
	return v.RightToLeft != nil && *v.RightToLeft
}

// Change describes one key's transition. OldValue or NewValue is nil when the
// key was or became unset.
type Change struct {
	OldValue any
	NewValue any
}

// ChangeListener receives the changed keys and the storage area.
type ChangeListener func(changes map[string]Change, area string)

// Manager is the shared settings object: explicit get/set plus subscriptions.
type Manager struct {
	store Store

	mu        sync.Mutex
	listeners map[int]ChangeListener
	nextID    int
}

// NewManager wraps a store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:     store,
		listeners: make(map[int]ChangeListener),
	}
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}

// Get returns the raw stored values for keys.
func (m *Manager) Get(keys ...string) (map[string]any, error) {
	return m.store.Get(keys...)
}

// Values returns the typed record. Non-boolean stored values count as unset.
func (m *Manager) Values() (Values, error) {
	raw, err := m.store.Get(AllKeys...)
	if err != nil {
		return Values{}, fmt.Errorf("read settings: %w", err)
	}
	return Values{
		IsEnabled:              boolPtr(raw[KeyIsEnabled]),
		CloseTabsAutomatically: boolPtr(raw[KeyCloseTabsAutomatically]),
		RightToLeft:            boolPtr(raw[KeyRightToLeft]),
	}, nil
}

// Set writes values, persists the store, and notifies listeners of the keys
// whose value actually changed. Concurrent writers race; the last write wins.
func (m *Manager) Set(values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	before, err := m.store.Get(keys...)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	if err := m.store.Set(values); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := m.store.Save(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	changes := make(map[string]Change)
	for k, v := range values {
		old, existed := before[k]
		if existed && reflect.DeepEqual(old, v) {
			continue
		}
		changes[k] = Change{OldValue: old, NewValue: v}
	}
	if len(changes) > 0 {
		m.notify(changes)
	}
	return nil
}

// SetBool writes a single boolean key.
func (m *Manager) SetBool(key string, value bool) error {
	return m.Set(map[string]any{key: value})
}

// OnChanged registers a listener and returns a func that removes it.
func (m *Manager) OnChanged(fn ChangeListener) (remove func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) notify(changes map[string]Change) {
	m.mu.Lock()
	snapshot := make([]ChangeListener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		snapshot = append(snapshot, fn)
	}
	m.mu.Unlock()

	for _, fn := range snapshot {
		fn(changes, AreaLocal)
	}
}

func boolPtr(v any) *bool {
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}
