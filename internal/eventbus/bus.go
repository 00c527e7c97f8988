package eventbus

import (
	"context"
	"sync"

	"pkt.systems/codecanvas/schema"
	"pkt.systems/pslog"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventTerminal carries terminal lines for a session.
	EventTerminal EventType = "terminal"
	// EventWorkspace carries file and active-file changes.
	EventWorkspace EventType = "workspace"
	// EventNotification carries a success or error notification.
	EventNotification EventType = "notification"
)

// Event represents a UI-facing event emitted by the core service.
type Event struct {
	Type         EventType
	Terminal     schema.TerminalEvent
	Workspace    schema.WorkspaceEvent
	Notification schema.NotificationEvent
}

// Bus fans events out to per-session subscribers. Slow subscribers lose
// events rather than blocking the publisher.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.SessionID]map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.SessionID]map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for the session and returns a channel + cancel.
func (b *Bus) Subscribe(sessionID schema.SessionID) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	sessionSubs := b.subs[sessionID]
	if sessionSubs == nil {
		sessionSubs = make(map[chan Event]struct{})
		b.subs[sessionID] = sessionSubs
	}
	sessionSubs[ch] = struct{}{}
	count := len(sessionSubs)
	b.mu.Unlock()
	b.log.With("session", sessionID).Debug("eventbus subscribe", "subs", count)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[sessionID]; subs != nil {
				if _, ok := subs[ch]; ok {
					delete(subs, ch)
					close(ch)
				}
				if len(subs) == 0 {
					delete(b.subs, sessionID)
				}
			}
			b.mu.Unlock()
			b.log.With("session", sessionID).Debug("eventbus unsubscribe")
		})
	}
}

// Subscribers returns the number of subscribers for a session.
func (b *Bus) Subscribers(sessionID schema.SessionID) int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}

// OnTerminal publishes a terminal event.
func (b *Bus) OnTerminal(event schema.TerminalEvent) {
	b.publish(event.SessionID, Event{Type: EventTerminal, Terminal: event})
}

// OnWorkspace publishes a workspace event.
func (b *Bus) OnWorkspace(event schema.WorkspaceEvent) {
	b.publish(event.SessionID, Event{Type: EventWorkspace, Workspace: event})
}

// OnNotification publishes a notification event.
func (b *Bus) OnNotification(event schema.NotificationEvent) {
	b.publish(event.SessionID, Event{Type: EventNotification, Notification: event})
}

// OnSessionClosed closes every subscriber of the session.
func (b *Bus) OnSessionClosed(sessionID schema.SessionID) {
	if b == nil {
		return
	}
	b.mu.Lock()
	subs := b.subs[sessionID]
	delete(b.subs, sessionID)
	for ch := range subs {
		close(ch)
	}
	b.mu.Unlock()
	if len(subs) > 0 {
		b.log.With("session", sessionID).Debug("eventbus session closed", "subs", len(subs))
	}
}

func (b *Bus) publish(sessionID schema.SessionID, event Event) {
	if b == nil {
		return
	}
	dropped := 0
	b.mu.Lock()
	for sub := range b.subs[sessionID] {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.With("session", sessionID).Trace("eventbus dropped", "count", dropped)
	}
}
