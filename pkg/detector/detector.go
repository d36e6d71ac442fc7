// Package detector finds the video element of a page and bridges it to the
// background controller. A page may have no video when the detector starts
// (single-page apps swap content in later), so discovery runs immediately, on
// every batch of added DOM nodes, and whenever the page becomes visible. All
// three paths end in the same idempotent attach step.
package detector

import (
	"context"
	"strings"
	"sync"

	"github.com/bananameter/playtabq/pkg/host"
	"github.com/bananameter/playtabq/pkg/logging"
	"github.com/bananameter/playtabq/pkg/messaging"
	"github.com/bananameter/playtabq/pkg/settings"
)

// Video is a handle to a page's video element.
type Video interface {
	// Marked reports whether listeners were already attached to the element.
	Marked(ctx context.Context) (bool, error)
	// Mark records on the element that listeners are attached.
	Mark(ctx context.Context) error
	// OnEnded registers fn for the element's "ended" event.
	OnEnded(ctx context.Context, fn func()) error
	Paused(ctx context.Context) (bool, error)
	Play(ctx context.Context) error
}

// Node is an element added to the document.
type Node interface {
	NodeName() string
	// Video returns the node itself as a video; only valid when NodeName is VIDEO.
	Video() Video
	// QueryVideo returns the first video below the node, or nil.
	QueryVideo(ctx context.Context) (Video, error)
}

// Document is the page-side collaborator: a video query plus subscriptions
// to child-list mutations (subtree) and visibility changes.
type Document interface {
	QueryVideo(ctx context.Context) (Video, error)
	OnNodesAdded(fn func(ctx context.Context, nodes []Node)) (remove func(), err error)
	OnVisibilityChange(fn func(ctx context.Context, visible bool)) (remove func(), err error)
}

// Channel is the slice of the message bus a detector uses.
type Channel interface {
	Send(ctx context.Context, msg messaging.Message, sender messaging.Sender)
	OnTabMessage(tab host.TabID, fn messaging.TabListener) (remove func())
}

// SettingsReader exposes the enabled flag.
type SettingsReader interface {
	Values() (settings.Values, error)
}

// TabGetter resolves the sender tab at send time.
type TabGetter interface {
	Get(ctx context.Context, id host.TabID) (host.Tab, error)
}

// Config wires a Detector to one tab.
type Config struct {
	Tab      host.TabID
	Document Document
	Channel  Channel
	Settings SettingsReader
	Tabs     TabGetter
	Logger   *logging.Logger
}

// Detector runs the page-side logic for one document.
type Detector struct {
	cfg Config
	log *logging.Logger

	mu          sync.Mutex
	attached    []Video
	attachments int
	stops       []func()
}

// New creates a detector. Call Start to begin discovery.
func New(cfg Config) *Detector {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard("detector")
	}
	return &Detector{cfg: cfg, log: log}
}

// Start runs the first discovery and installs the mutation watch, the
// visibility hook and the PLAY_VIDEO handler.
func (d *Detector) Start(ctx context.Context) error {
	d.discover(ctx)

	removeNodes, err := d.cfg.Document.OnNodesAdded(d.handleNodesAdded)
	if err != nil {
		return err
	}
	removeVisibility, err := d.cfg.Document.OnVisibilityChange(func(ctx context.Context, visible bool) {
		if visible {
			d.discover(ctx)
		}
	})
	if err != nil {
		removeNodes()
		return err
	}
	removeMessages := d.cfg.Channel.OnTabMessage(d.cfg.Tab, d.handleMessage)

	d.mu.Lock()
	d.stops = append(d.stops, removeNodes, removeVisibility, removeMessages)
	d.mu.Unlock()
	return nil
}

// Stop removes every subscription. Attached page listeners die with the page.
func (d *Detector) Stop() {
	d.mu.Lock()
	stops := d.stops
	d.stops = nil
	d.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}

// Attachments reports how many times listeners were attached to an element.
func (d *Detector) Attachments() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attachments
}

func (d *Detector) discover(ctx context.Context) {
	video, err := d.cfg.Document.QueryVideo(ctx)
	if err != nil {
		d.log.Debugf("tab %d: video query failed: %v", d.cfg.Tab, err)
		return
	}
	if video != nil {
		d.attach(ctx, video)
	}
}

func (d *Detector) handleNodesAdded(ctx context.Context, nodes []Node) {
	for _, node := range nodes {
		if strings.EqualFold(node.NodeName(), "VIDEO") {
			if v := node.Video(); v != nil {
				d.attach(ctx, v)
			}
			continue
		}
		video, err := node.QueryVideo(ctx)
		if err != nil {
			d.log.Debugf("tab %d: descendant video query failed: %v", d.cfg.Tab, err)
			continue
		}
		if video != nil {
			d.attach(ctx, video)
		}
	}
}

// attach wires the ended listener at most once per element.
func (d *Detector) attach(ctx context.Context, video Video) {
	d.mu.Lock()
	defer d.mu.Unlock()

	marked, err := video.Marked(ctx)
	if err != nil {
		d.log.Debugf("tab %d: reading listener mark failed: %v", d.cfg.Tab, err)
		return
	}
	if marked {
		return
	}

	d.log.Infof("tab %d: found video element, attaching listeners", d.cfg.Tab)
	if err := video.OnEnded(ctx, func() { d.handleEnded(context.WithoutCancel(ctx)) }); err != nil {
		d.log.Warnf("tab %d: attaching ended listener failed: %v", d.cfg.Tab, err)
		return
	}
	if err := video.Mark(ctx); err != nil {
		d.log.Warnf("tab %d: marking video failed: %v", d.cfg.Tab, err)
	}
	d.attached = append(d.attached, video)
	d.attachments++
}

func (d *Detector) handleEnded(ctx context.Context) {
	values, err := d.cfg.Settings.Values()
	if err != nil {
		d.log.Warnf("tab %d: reading settings failed: %v", d.cfg.Tab, err)
		return
	}
	if !values.Enabled() {
		return
	}

	sender := messaging.Sender{}
	if d.cfg.Tabs != nil {
		tab, err := d.cfg.Tabs.Get(ctx, d.cfg.Tab)
		if err != nil {
			d.log.Warnf("tab %d: video ended but tab is gone: %v", d.cfg.Tab, err)
			return
		}
		sender.Tab = &tab
	}

	d.log.Infof("tab %d: video ended, notifying background", d.cfg.Tab)
	d.cfg.Channel.Send(ctx, messaging.Message{Type: messaging.TypeVideoEnded}, sender)
}

func (d *Detector) handleMessage(ctx context.Context, msg messaging.Message) {
	if msg.Type != messaging.TypePlayVideo {
		return
	}

	d.mu.Lock()
	videos := append([]Video(nil), d.attached...)
	d.mu.Unlock()

	for _, video := range videos {
		paused, err := video.Paused(ctx)
		if err != nil || !paused {
			continue
		}
		if err := video.Play(ctx); err != nil {
			d.log.Warnf("tab %d: play() failed: %v", d.cfg.Tab, err)
		}
	}
}
