package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/codecanvas/internal/logx"
	"pkt.systems/codecanvas/schema"
	"pkt.systems/pslog"
)

const (
	wsPingInterval  = 30 * time.Second
	wsReadDeadline  = 60 * time.Second
	wsWriteDeadline = 10 * time.Second
	wsReadLimit     = 64 * 1024
)

// StreamError reports a command that failed on a WebSocket connection.
const StreamError = "error"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// handleWebSocket streams session events as JSON text frames. Each text
// frame received is interpreted as one terminal command line.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	log := logx.Ctx(r.Context())
	var header http.Header
	if cookies := w.Header().Values("Set-Cookie"); len(cookies) > 0 {
		header = http.Header{"Set-Cookie": cookies}
	}
	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		log.Warn("http websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe, _ := s.hub.Subscribe(sessionID)
	defer unsubscribe()

	snapshot := s.buildSnapshot(ctx, sessionID)
	replies := make(chan StreamEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer conn.Close()
		s.writePump(ctx, conn, snapshot, events, replies, log)
	}()

	log.Info("http websocket opened", "files", len(snapshot.Workspace.Files))
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("http websocket read failed", "err", err)
			}
			break
		}
		if msgType != websocket.TextMessage || s.cmdHandler == nil {
			continue
		}
		if _, err := s.cmdHandler.Handle(ctx, sessionID, string(data)); err != nil {
			log.Warn("http websocket command failed", "err", err)
			select {
			case replies <- StreamEvent{Type: StreamError, Lines: []string{err.Error()}, Timestamp: time.Now()}:
			default:
			}
		}
	}
	cancel()
	<-done
	log.Info("http websocket closed")
}

func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, snapshot SnapshotPayload, events <-chan StreamEvent, replies <-chan StreamEvent, log pslog.Logger) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	write := func(event StreamEvent) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
		if err := conn.WriteJSON(event); err != nil {
			log.Debug("http websocket write failed", "err", err)
			return false
		}
		return true
	}

	if !write(StreamEvent{Type: StreamSnapshot, Snapshot: &snapshot, Timestamp: time.Now()}) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteDeadline))
			return
		case event, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(wsWriteDeadline))
				return
			}
			if !write(event) {
				return
			}
		case event := <-replies:
			if !write(event) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
