package core

import "pkt.systems/codecanvas/schema"

// EventSink receives workspace, terminal and notification events from the
// core service. OnSessionClosed is the last call for a session; sinks
// release any per-session state there.
type EventSink interface {
	OnWorkspace(event schema.WorkspaceEvent)
	OnTerminal(event schema.TerminalEvent)
	OnNotification(event schema.NotificationEvent)
	OnSessionClosed(sessionID schema.SessionID)
}
