package bridge

import (
	"context"
	"sync"

	"github.com/bananameter/playtabq/pkg/detector"
	"github.com/bananameter/playtabq/pkg/host"
	"github.com/bananameter/playtabq/pkg/logging"
)

// SessionConfig wires a Session to one tab.
type SessionConfig struct {
	Tab      host.TabID
	Eval     Evaluator
	Channel  detector.Channel
	Settings detector.SettingsReader
	Tabs     detector.TabGetter
	// OnVisible is called when the page reports itself visible. Backends
	// without activation events use it to track the active tab.
	OnVisible func(id host.TabID)
	Logger    *logging.Logger
}

// Session owns the bridge of one tab across navigations. Binding payloads
// are queued by Emit and handled in order on the session's own goroutine, so
// the backend callback that delivered them never waits on page evaluation.
// Every ready event starts a fresh Document and Detector.
type Session struct {
	cfg    SessionConfig
	log    *logging.Logger
	ctx    context.Context
	cancel context.CancelFunc
	queue  *host.Queue
	done   chan struct{}

	// Owned by the queue goroutine.
	doc *Document
	det *detector.Detector

	mu      sync.Mutex
	current *detector.Detector
}

// NewSession starts the session goroutine. It stops when ctx is cancelled or
// Close is called.
func NewSession(ctx context.Context, cfg SessionConfig) *Session {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard("bridge")
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		queue:  host.NewQueue(ctx),
		done:   make(chan struct{}),
	}
	go func() {
		<-s.queue.Done()
		s.stopDetector()
		close(s.done)
	}()
	return s
}

// Emit queues one binding payload. It never blocks.
func (s *Session) Emit(payload string) {
	s.queue.Push(func() { s.handle(payload) })
}

// Close stops the session without waiting for in-flight work.
func (s *Session) Close() {
	s.cancel()
}

// Done is closed once the session has stopped its detector.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Detector returns the detector of the current document, or nil before the
// first ready event.
func (s *Session) Detector() *detector.Detector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) handle(payload string) {
	ev, err := ParseEvent(payload)
	if err != nil {
		s.log.Warnf("tab %d: %v", s.cfg.Tab, err)
		return
	}
	s.log.Debugf("tab %d: %s event", s.cfg.Tab, ev.Kind)

	switch ev.Kind {
	case KindReady:
		s.startDetector()
	default:
		if s.doc == nil {
			s.log.Debugf("tab %d: %s event before ready", s.cfg.Tab, ev.Kind)
			return
		}
		s.doc.Dispatch(s.ctx, ev)
	}

	if ev.Visible && (ev.Kind == KindReady || ev.Kind == KindVisibility) && s.cfg.OnVisible != nil {
		s.cfg.OnVisible(s.cfg.Tab)
	}
}

func (s *Session) startDetector() {
	s.stopDetector()

	s.doc = NewDocument(s.cfg.Eval)
	s.det = detector.New(detector.Config{
		Tab:      s.cfg.Tab,
		Document: s.doc,
		Channel:  s.cfg.Channel,
		Settings: s.cfg.Settings,
		Tabs:     s.cfg.Tabs,
		Logger:   s.log,
	})
	if err := s.det.Start(s.ctx); err != nil {
		s.log.Warnf("tab %d: starting detector failed: %v", s.cfg.Tab, err)
	}

	s.mu.Lock()
	s.current = s.det
	s.mu.Unlock()
}

func (s *Session) stopDetector() {
	if s.det == nil {
		return
	}
	s.det.Stop()
	s.det = nil
	s.doc = nil

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}
