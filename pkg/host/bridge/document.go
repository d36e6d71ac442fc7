package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/bananameter/playtabq/pkg/detector"
)

// Evaluator runs a JavaScript expression in a page and decodes its JSON
// result into res (a pointer, or nil to discard it).
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, res any) error
}

// Document is the Go side of one page's bridge. It lives as long as the
// document does; backends create a fresh one per navigation.
type Document struct {
	eval Evaluator

	mu         sync.Mutex
	ended      map[int][]func()
	nodes      map[int]func(context.Context, []detector.Node)
	visibility map[int]func(context.Context, bool)
	nextID     int
}

// NewDocument wraps an evaluator bound to one page.
func NewDocument(eval Evaluator) *Document {
	return &Document{
		eval:       eval,
		ended:      make(map[int][]func()),
		nodes:      make(map[int]func(context.Context, []detector.Node)),
		visibility: make(map[int]func(context.Context, bool)),
	}
}

// QueryVideo returns the first video element of the document, or nil.
func (d *Document) QueryVideo(ctx context.Context) (detector.Video, error) {
	var key int
	if err := d.eval.Evaluate(ctx, "window.__playtabq.first()", &key); err != nil {
		return nil, fmt.Errorf("query video: %w", err)
	}
	if key == 0 {
		return nil, nil
	}
	return &video{doc: d, key: key}, nil
}

// OnNodesAdded subscribes to batches of added elements that carry a video.
func (d *Document) OnNodesAdded(fn func(ctx context.Context, nodes []detector.Node)) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.nodes[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.nodes, id)
	}, nil
}

// OnVisibilityChange subscribes to document visibility transitions.
func (d *Document) OnVisibilityChange(fn func(ctx context.Context, visible bool)) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.visibility[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.visibility, id)
	}, nil
}

// Dispatch routes a bridge event to the subscribers. Ready events carry no
// document work and are left to the backend.
func (d *Document) Dispatch(ctx context.Context, ev Event) {
	switch ev.Kind {
	case KindNodes:
		nodes := make([]detector.Node, 0, len(ev.Nodes))
		for _, info := range ev.Nodes {
			nodes = append(nodes, node{doc: d, info: info})
		}
		for _, fn := range d.nodeSubscribers() {
			fn(ctx, nodes)
		}
	case KindVisibility:
		for _, fn := range d.visibilitySubscribers() {
			fn(ctx, ev.Visible)
		}
	case KindEnded:
		d.mu.Lock()
		fns := append([]func(){}, d.ended[ev.Key]...)
		d.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
}

func (d *Document) nodeSubscribers() []func(context.Context, []detector.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]func(context.Context, []detector.Node), 0, len(d.nodes))
	for _, fn := range d.nodes {
		out = append(out, fn)
	}
	return out
}

func (d *Document) visibilitySubscribers() []func(context.Context, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]func(context.Context, bool), 0, len(d.visibility))
	for _, fn := range d.visibility {
		out = append(out, fn)
	}
	return out
}

type node struct {
	doc  *Document
	info NodeInfo
}

func (n node) NodeName() string { return n.info.Name }

func (n node) Video() detector.Video {
	if n.info.Key == 0 {
		return nil
	}
	return &video{doc: n.doc, key: n.info.Key}
}

// QueryVideo returns the descendant video the script found when it reported
// the node.
func (n node) QueryVideo(context.Context) (detector.Video, error) {
	if n.info.Key == 0 {
		return nil, nil
	}
	return &video{doc: n.doc, key: n.info.Key}, nil
}

type video struct {
	doc *Document
	key int
}

func (v *video) call(ctx context.Context, method string, res any) error {
	expr := fmt.Sprintf("window.__playtabq.%s(%d)", method, v.key)
	if err := v.doc.eval.Evaluate(ctx, expr, res); err != nil {
		return fmt.Errorf("video %d %s: %w", v.key, method, err)
	}
	return nil
}

func (v *video) Marked(ctx context.Context) (bool, error) {
	var marked bool
	err := v.call(ctx, "marked", &marked)
	return marked, err
}

func (v *video) Mark(ctx context.Context) error {
	var ok bool
	if err := v.call(ctx, "mark", &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("video %d is gone", v.key)
	}
	return nil
}

func (v *video) OnEnded(ctx context.Context, fn func()) error {
	var ok bool
	if err := v.call(ctx, "listen", &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("video %d is gone", v.key)
	}

	v.doc.mu.Lock()
	v.doc.ended[v.key] = append(v.doc.ended[v.key], fn)
	v.doc.mu.Unlock()
	return nil
}

func (v *video) Paused(ctx context.Context) (bool, error) {
	var paused bool
	err := v.call(ctx, "paused", &paused)
	return paused, err
}

func (v *video) Play(ctx context.Context) error {
	return v.call(ctx, "play", nil)
}

var _ detector.Document = (*Document)(nil)
