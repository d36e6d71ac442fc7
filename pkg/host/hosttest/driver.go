// Package hosttest provides an in-memory host.Driver for tests.
package hosttest

import (
	"context"
	"sync"

	"github.com/bananameter/playtabq/pkg/host"
)

// Driver records every command it receives and can be told to fail.
type Driver struct {
	mu sync.Mutex

	Activated []host.TabID
	Closed    []host.TabID
	Evaluated []Evaluation

	ActivateErr error
	CloseErr    error
	EvaluateErr error
}

// Evaluation is one recorded script injection.
type Evaluation struct {
	Tab  host.TabID
	Code string
}

func (d *Driver) Activate(_ context.Context, id host.TabID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ActivateErr != nil {
		return d.ActivateErr
	}
	d.Activated = append(d.Activated, id)
	return nil
}

func (d *Driver) Close(_ context.Context, id host.TabID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.CloseErr != nil {
		return d.CloseErr
	}
	d.Closed = append(d.Closed, id)
	return nil
}

func (d *Driver) Evaluate(_ context.Context, id host.TabID, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Evaluated = append(d.Evaluated, Evaluation{Tab: id, Code: code})
	return d.EvaluateErr
}

// ActivatedTabs returns a copy of the activation log.
func (d *Driver) ActivatedTabs() []host.TabID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]host.TabID(nil), d.Activated...)
}

// ClosedTabs returns a copy of the close log.
func (d *Driver) ClosedTabs() []host.TabID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]host.TabID(nil), d.Closed...)
}

// Evaluations returns a copy of the injection log.
func (d *Driver) Evaluations() []Evaluation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Evaluation(nil), d.Evaluated...)
}

// TabSpec describes a tab to seed into a Browser.
type TabSpec struct {
	URL     string
	Loading bool
}

// NewWindow seeds window 1 with tabs in order, marks active (an index into
// specs, or -1 for none) as the active tab, and returns the browser, the driver
// and the tab IDs.
func NewWindow(active int, specs ...TabSpec) (*host.Browser, *Driver, []host.TabID) {
	d := &Driver{}
	b := host.NewBrowser(d)
	ids := make([]host.TabID, 0, len(specs))
	for _, s := range specs {
		status := host.StatusComplete
		if s.Loading {
			status = host.StatusLoading
		}
		ids = append(ids, b.AddTab(1, s.URL, status))
	}
	if active >= 0 && active < len(ids) {
		b.SetActive(ids[active])
	}
	return b, d, ids
}
