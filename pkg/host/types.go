// Package host models the browser-side collaborators PlayTabQ drives: tabs
// grouped into windows, their load status, activation and update events, and
// script injection. Backends in the playwright and cdp sub-packages feed a
// Browser with what they observe and carry out its commands through a Driver.
package host

import (
	"context"
	"errors"
)

// TabID identifies a tab for the lifetime of the daemon.
type TabID int

// WindowID identifies a browser window.
type WindowID int

// NoWindow selects the current window in a Query.
const NoWindow WindowID = 0

// Status is a tab's load status.
type Status string

const (
	StatusLoading  Status = "loading"
	StatusComplete Status = "complete"
)

// ErrTabNotFound is returned for tabs the host does not know.
var ErrTabNotFound = errors.New("tab not found")

// Tab is a snapshot of one tab. URL may be empty (new tab, internal pages).
type Tab struct {
	ID       TabID
	WindowID WindowID
	Index    int
	URL      string
	Title    string
	Status   Status
	Active   bool
}

// ActiveInfo describes an activation change.
type ActiveInfo struct {
	TabID    TabID
	WindowID WindowID
}

// ChangeInfo lists the properties that changed in an update. Empty fields did
// not change.
type ChangeInfo struct {
	URL    string
	Status Status
}

// Query filters tabs. The zero value matches every tab in every window.
type Query struct {
	Active        bool
	CurrentWindow bool
	WindowID      WindowID
}

// ActivatedListener is called after a tab becomes active.
type ActivatedListener func(info ActiveInfo)

// UpdatedListener is called after a tab's URL or status changes.
type UpdatedListener func(id TabID, change ChangeInfo, tab Tab)

// Tabs is the tab API consumed by the controller and the popup.
type Tabs interface {
	Query(ctx context.Context, q Query) ([]Tab, error)
	Get(ctx context.Context, id TabID) (Tab, error)
	Activate(ctx context.Context, id TabID) error
	Remove(ctx context.Context, id TabID) error
	ExecuteScript(ctx context.Context, id TabID, code string) error
	OnActivated(fn ActivatedListener) (remove func())
	OnUpdated(fn UpdatedListener) (remove func())
}

// Driver carries out tab commands against a real browser.
type Driver interface {
	Activate(ctx context.Context, id TabID) error
	Close(ctx context.Context, id TabID) error
	Evaluate(ctx context.Context, id TabID, code string) error
}
