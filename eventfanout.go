package codecanvas

import (
	"pkt.systems/codecanvas/core"
	"pkt.systems/codecanvas/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnWorkspace(event schema.WorkspaceEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnWorkspace(event)
	}
}

func (f eventFanout) OnTerminal(event schema.TerminalEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnTerminal(event)
	}
}

func (f eventFanout) OnNotification(event schema.NotificationEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnNotification(event)
	}
}

func (f eventFanout) OnSessionClosed(sessionID schema.SessionID) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnSessionClosed(sessionID)
	}
}
