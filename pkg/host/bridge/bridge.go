// Package bridge connects a live page to the detector. Backends install
// Script in every document and expose a binding named BindingName; the script
// reports DOM, visibility and media events through it as JSON, and Document
// turns those events and a handful of evaluated expressions into the
// detector.Document and detector.Video interfaces.
package bridge

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

// BindingName is the page binding the bridge script calls.
const BindingName = "__playtabqEmit"

// Script is injected into every new document before page scripts run.
//
//go:embed bridge.js
var Script string

// PlayScript finds the first video of a page and starts it, logging a
// rejected play() to the page console.
//
//go:embed play.js
var PlayScript string

// Event kinds emitted by the bridge script.
const (
	KindReady      = "ready"
	KindNodes      = "nodes"
	KindVisibility = "visibility"
	KindEnded      = "ended"
)

// NodeInfo describes one added element that is, or contains, a video.
type NodeInfo struct {
	Name string `json:"name"`
	Key  int    `json:"key"`
}

// Event is one message from the bridge script.
type Event struct {
	Kind    string     `json:"kind"`
	Visible bool       `json:"visible,omitempty"`
	Key     int        `json:"key,omitempty"`
	Nodes   []NodeInfo `json:"nodes,omitempty"`
}

// ParseEvent decodes a binding payload.
func ParseEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("decode bridge event: %w", err)
	}
	switch ev.Kind {
	case KindReady, KindNodes, KindVisibility, KindEnded:
		return ev, nil
	default:
		return Event{}, fmt.Errorf("unknown bridge event kind %q", ev.Kind)
	}
}
