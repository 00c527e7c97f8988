package sshserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/term"

	"pkt.systems/codecanvas/core"
	"pkt.systems/codecanvas/internal/eventbus"
	"pkt.systems/codecanvas/internal/logx"
	"pkt.systems/codecanvas/schema"
	"pkt.systems/pslog"
)

const (
	clearScreen   = "\x1b[H\x1b[2J"
	eraseLastLine = "\x1b[1A\x1b[2K\r"
)

// terminalSession is one interactive SSH connection. It reads lines with
// the x/term line editor and prints terminal events as they arrive, so the
// screen mirrors the session's terminal state.
type terminalSession struct {
	term      *term.Terminal
	service   core.Service
	handler   CommandHandler
	sessionID schema.SessionID
	events    <-chan eventbus.Event

	ctxMu sync.Mutex
	ctx   context.Context
}

func newTerminalSession(rw io.ReadWriter, service core.Service, handler CommandHandler, sessionID schema.SessionID, prompt string, events <-chan eventbus.Event) *terminalSession {
	t := &terminalSession{
		term:      term.NewTerminal(rw, prompt),
		service:   service,
		handler:   handler,
		sessionID: sessionID,
		events:    events,
		ctx:       context.Background(),
	}
	t.term.History = &serviceHistory{session: t}
	return t
}

func (t *terminalSession) context() context.Context {
	t.ctxMu.Lock()
	defer t.ctxMu.Unlock()
	return t.ctx
}

func (t *terminalSession) log() pslog.Logger {
	return logx.WithSession(t.context(), t.sessionID)
}

// SetSize updates the line editor's idea of the window size.
func (t *terminalSession) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	_ = t.term.SetSize(width, height)
}

// Run serves the connection until the client disconnects or ctx ends.
func (t *terminalSession) Run(ctx context.Context, winCh <-chan gliderssh.Window, initialLines int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t.ctxMu.Lock()
	t.ctx = ctx
	t.ctxMu.Unlock()

	t.writeLines(fmt.Sprintf("codecanvas session %s (commands: run, clear)", t.sessionID))
	if resp, err := t.service.GetTerminal(ctx, schema.GetTerminalRequest{SessionID: t.sessionID, Limit: initialLines}); err == nil {
		t.writeLines(resp.Terminal.Lines...)
	}

	done := make(chan struct{})
	defer close(done)
	go t.pump(ctx, winCh, done)

	for {
		line, err := t.term.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		// The echoed command arrives as a terminal event; drop the typed copy.
		_, _ = t.term.Write([]byte(eraseLastLine))
		if _, err := t.handler.Handle(ctx, t.sessionID, line); err != nil {
			t.log().Warn("ssh command failed", "err", err)
			t.writeLines("error: " + err.Error())
		}
	}
}

func (t *terminalSession) pump(ctx context.Context, winCh <-chan gliderssh.Window, done <-chan struct{}) {
	events := t.events
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case win, ok := <-winCh:
			if !ok {
				winCh = nil
				continue
			}
			t.SetSize(win.Width, win.Height)
		case ev, ok := <-events:
			if !ok {
				events = nil
				t.writeLines("[session] closed")
				continue
			}
			t.handleEvent(ev)
		}
	}
}

func (t *terminalSession) handleEvent(ev eventbus.Event) {
	switch ev.Type {
	case eventbus.EventTerminal:
		if ev.Terminal.Reset {
			_, _ = t.term.Write([]byte(clearScreen))
		}
		t.writeLines(ev.Terminal.Lines...)
	case eventbus.EventNotification:
		t.writeLines(formatNotification(ev.Notification.Notification))
	case eventbus.EventWorkspace:
		if line := formatWorkspace(ev.Workspace); line != "" {
			t.writeLines(line)
		}
	}
}

func (t *terminalSession) writeLines(lines ...string) {
	if len(lines) == 0 {
		return
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(strings.ReplaceAll(line, "\n", "\r\n"))
		b.WriteString("\r\n")
	}
	_, _ = t.term.Write([]byte(b.String()))
}

func formatNotification(n schema.Notification) string {
	return fmt.Sprintf("[%s] %s", n.Kind, n.Message)
}

func formatWorkspace(ev schema.WorkspaceEvent) string {
	if ev.Type != schema.WorkspaceEventSelected {
		return ""
	}
	if ev.ActiveFile == schema.NoFile {
		return "[workspace] no active file"
	}
	return fmt.Sprintf("[workspace] active file %s (%s)", ev.File.Name, ev.File.Language)
}

// serviceHistory backs the line editor's up/down recall with the session's
// command history. Entries are recorded by the command handler, so Add is
// a no-op.
type serviceHistory struct {
	session *terminalSession
}

func (h *serviceHistory) entries() []string {
	t := h.session
	resp, err := t.service.GetHistory(t.context(), schema.GetHistoryRequest{SessionID: t.sessionID})
	if err != nil {
		return nil
	}
	return resp.Entries
}

func (h *serviceHistory) Add(string) {}

func (h *serviceHistory) Len() int {
	return len(h.entries())
}

// At returns the idx-th most recent entry.
func (h *serviceHistory) At(idx int) string {
	entries := h.entries()
	if idx < 0 || idx >= len(entries) {
		return ""
	}
	return entries[len(entries)-1-idx]
}
