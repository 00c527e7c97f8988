package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/codecanvas/internal/logx"
	"pkt.systems/codecanvas/schema"
)

// Stream event types.
const (
	StreamSnapshot     = "snapshot"
	StreamTerminal     = "terminal"
	StreamWorkspace    = "workspace"
	StreamNotification = "notification"
)

// StreamEvent is sent to SSE and WebSocket clients.
type StreamEvent struct {
	Seq            uint64               `json:"seq"`
	Type           string               `json:"type"`
	Lines          []string             `json:"lines,omitempty"`
	Reset          bool                 `json:"reset,omitempty"`
	WorkspaceEvent string               `json:"workspace_event,omitempty"`
	File           *schema.FileSnapshot `json:"file,omitempty"`
	ActiveFile     schema.FileID        `json:"active_file,omitempty"`
	Notification   *schema.Notification `json:"notification,omitempty"`
	Snapshot       *SnapshotPayload     `json:"snapshot,omitempty"`
	Timestamp      time.Time            `json:"timestamp"`
}

// SnapshotPayload seeds client state on connect.
type SnapshotPayload struct {
	Workspace schema.WorkspaceSnapshot `json:"workspace"`
	Terminal  schema.TerminalSnapshot  `json:"terminal"`
	History   []string                 `json:"history"`
}

const defaultHubHistory = 1000

// Hub broadcasts events per session and keeps a sequenced history for
// replay after reconnects.
type Hub struct {
	mu          sync.Mutex
	sessions    map[schema.SessionID]*sessionHub
	historySize int
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = defaultHubHistory
	}
	return &Hub{
		sessions:    make(map[schema.SessionID]*sessionHub),
		historySize: historySize,
	}
}

// OnTerminal implements core.EventSink.
func (h *Hub) OnTerminal(event schema.TerminalEvent) {
	logx.WithSession(context.Background(), event.SessionID).Trace("hub terminal event", "lines", len(event.Lines), "reset", event.Reset)
	h.publish(event.SessionID, StreamEvent{
		Type:      StreamTerminal,
		Lines:     event.Lines,
		Reset:     event.Reset,
		Timestamp: time.Now(),
	})
}

// OnWorkspace implements core.EventSink.
func (h *Hub) OnWorkspace(event schema.WorkspaceEvent) {
	logx.WithSession(context.Background(), event.SessionID).Trace("hub workspace event", "type", event.Type, "file", event.File.ID, "active", event.ActiveFile)
	file := event.File
	stream := StreamEvent{
		Type:           StreamWorkspace,
		WorkspaceEvent: string(event.Type),
		ActiveFile:     event.ActiveFile,
		Timestamp:      time.Now(),
	}
	if file.ID != schema.NoFile {
		stream.File = &file
	}
	h.publish(event.SessionID, stream)
}

// OnNotification implements core.EventSink.
func (h *Hub) OnNotification(event schema.NotificationEvent) {
	logx.WithSession(context.Background(), event.SessionID).Trace("hub notification event", "kind", event.Notification.Kind)
	note := event.Notification
	h.publish(event.SessionID, StreamEvent{
		Type:         StreamNotification,
		Notification: &note,
		Timestamp:    time.Now(),
	})
}

// OnSessionClosed implements core.EventSink by dropping the session.
func (h *Hub) OnSessionClosed(sessionID schema.SessionID) {
	h.Drop(sessionID)
}

// Sessions returns the number of sessions with retained history.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Subscribe registers a subscriber for a session. It returns the channel,
// an idempotent unsubscribe func and the last sequence number published.
func (h *Hub) Subscribe(sessionID schema.SessionID) (<-chan StreamEvent, func(), uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.getOrCreateLocked(sessionID)
	ch := make(chan StreamEvent, 256)
	sh.subs[ch] = struct{}{}
	seq := sh.seq
	log := logx.WithSession(context.Background(), sessionID)
	log.Info("hub subscribe", "subs", len(sh.subs), "history", len(sh.history))
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := sh.subs[ch]; ok {
				delete(sh.subs, ch)
				close(ch)
			}
			remaining := len(sh.subs)
			h.mu.Unlock()
			log.Info("hub unsubscribe", "subs", remaining)
		})
	}
	return ch, unsub, seq
}

// Replay returns events after the provided seq.
func (h *Hub) Replay(sessionID schema.SessionID, after uint64) []StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.sessions[sessionID]
	if sh == nil {
		return nil
	}
	events := make([]StreamEvent, 0, len(sh.history))
	for _, event := range sh.history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	logx.WithSession(context.Background(), sessionID).Debug("hub replay", "after", after, "count", len(events))
	return events
}

// Drop forgets a session's history and closes its subscribers.
func (h *Hub) Drop(sessionID schema.SessionID) {
	h.mu.Lock()
	sh := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	if sh != nil {
		for ch := range sh.subs {
			delete(sh.subs, ch)
			close(ch)
		}
	}
	h.mu.Unlock()
	if sh != nil {
		logx.WithSession(context.Background(), sessionID).Debug("hub session dropped")
	}
}

func (h *Hub) publish(sessionID schema.SessionID, event StreamEvent) {
	h.mu.Lock()
	sh := h.getOrCreateLocked(sessionID)
	sh.seq++
	event.Seq = sh.seq
	sh.history = append(sh.history, event)
	if len(sh.history) > h.historySize {
		sh.history = sh.history[len(sh.history)-h.historySize:]
	}
	dropped := 0
	for sub := range sh.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	h.mu.Unlock()

	if dropped > 0 {
		logx.WithSession(context.Background(), sessionID).Warn("hub event dropped", "type", event.Type, "dropped", dropped)
	}
}

func (h *Hub) getOrCreateLocked(sessionID schema.SessionID) *sessionHub {
	sh := h.sessions[sessionID]
	if sh == nil {
		sh = &sessionHub{
			subs: make(map[chan StreamEvent]struct{}),
		}
		h.sessions[sessionID] = sh
	}
	return sh
}

type sessionHub struct {
	seq     uint64
	history []StreamEvent
	subs    map[chan StreamEvent]struct{}
}
