package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pkt.systems/codecanvas/core"
	"pkt.systems/codecanvas/internal/logx"
	"pkt.systems/codecanvas/internal/markdown"
	"pkt.systems/codecanvas/internal/metrics"
	"pkt.systems/codecanvas/schema"
)

const shutdownTimeout = 5 * time.Second

const defaultSessionTTL = 24 * time.Hour

// CommandHandler interprets terminal lines.
type CommandHandler interface {
	Handle(ctx context.Context, sessionID schema.SessionID, input string) (schema.TerminalAction, error)
}

// ServerDeps captures optional dependencies for the HTTP server.
type ServerDeps struct {
	Metrics *metrics.Collectors
	// Gatherer backs /metrics; nil uses the prometheus default gatherer.
	Gatherer prometheus.Gatherer
}

// Server serves the HTTP API.
type Server struct {
	cfg        Config
	service    core.Service
	cmdHandler CommandHandler
	sessions   *sessionStore
	hub        *Hub
	metrics    *metrics.Collectors
	gatherer   prometheus.Gatherer
	basePath   string
	routes     map[string]struct{}
}

// NewServer constructs an HTTP server. Cookie sessions that expire close
// their playground session.
func NewServer(cfg Config, service core.Service, handler CommandHandler, hub *Hub, deps ServerDeps) *Server {
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if hub == nil {
		hub = NewHub(0)
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		cfg:        cfg,
		service:    service,
		cmdHandler: handler,
		hub:        hub,
		metrics:    deps.Metrics,
		gatherer:   gatherer,
		basePath:   normalizeBasePath(cfg.BasePath),
		routes:     make(map[string]struct{}),
	}
	s.sessions = newSessionStore(ttl, s.expireSession)
	return s
}

// Hub returns the server's event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "/healthz", s.handleHealth)
	s.handle(mux, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP)

	s.handle(mux, "/api/workspace", s.requireSession(s.handleWorkspace))
	s.handle(mux, "/api/files", s.requireSession(s.handleAddFile))
	s.handle(mux, "/api/files/rename", s.requireSession(s.handleRenameFile))
	s.handle(mux, "/api/files/delete", s.requireSession(s.handleDeleteFile))
	s.handle(mux, "/api/files/select", s.requireSession(s.handleSelectFile))
	s.handle(mux, "/api/files/content", s.requireSession(s.handleUpdateContent))
	s.handle(mux, "/api/files/preview", s.requireSession(s.handlePreview))
	s.handle(mux, "/api/terminal", s.requireSession(s.handleTerminal))
	s.handle(mux, "/api/terminal/command", s.requireSession(s.handleCommand))
	s.handle(mux, "/api/history", s.requireSession(s.handleHistory))
	s.handle(mux, "/api/run", s.requireSession(s.handleRun))
	s.handle(mux, "/api/submit", s.requireSession(s.handleSubmit))
	s.handle(mux, "/api/stream", s.requireSession(s.handleStream))
	s.handle(mux, "/api/ws", s.requireSession(s.handleWebSocket))

	return mountBasePath(s.basePath, withRequestLogging(mux, s.lookupSession, s.route, s.metrics))
}

func (s *Server) handle(mux *http.ServeMux, pattern string, handler http.HandlerFunc) {
	s.routes[pattern] = struct{}{}
	mux.HandleFunc(pattern, handler)
}

func (s *Server) route(r *http.Request) string {
	if _, ok := s.routes[r.URL.Path]; ok {
		return r.URL.Path
	}
	return "unmatched"
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleWorkspace(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp, err := s.service.GetWorkspace(r.Context(), schema.GetWorkspaceRequest{SessionID: sessionID})
	if err != nil {
		writeServiceError(w, r, "http workspace failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Workspace)
}

func (s *Server) handleAddFile(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Name string `json:"name"`
	}
	if !decodePayload(w, r, &payload) {
		return
	}
	resp, err := s.service.AddFile(r.Context(), schema.AddFileRequest{SessionID: sessionID, Name: payload.Name})
	if err != nil {
		writeServiceError(w, r, "http file add failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"file": resp.File})
}

func (s *Server) handleRenameFile(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		ID   schema.FileID `json:"id"`
		Name string        `json:"name"`
	}
	if !decodePayload(w, r, &payload) {
		return
	}
	resp, err := s.service.RenameFile(r.Context(), schema.RenameFileRequest{
		SessionID: sessionID,
		FileID:    payload.ID,
		Name:      payload.Name,
	})
	if err != nil {
		writeServiceError(w, r, "http file rename failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file": resp.File, "old_name": resp.OldName})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		ID schema.FileID `json:"id"`
	}
	if !decodePayload(w, r, &payload) {
		return
	}
	resp, err := s.service.DeleteFile(r.Context(), schema.DeleteFileRequest{SessionID: sessionID, FileID: payload.ID})
	if err != nil {
		writeServiceError(w, r, "http file delete failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file": resp.File, "active_file": resp.ActiveFile})
}

func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		ID  schema.FileID `json:"id"`
		Run bool          `json:"run"`
	}
	if !decodePayload(w, r, &payload) {
		return
	}
	resp, err := s.service.SelectFile(r.Context(), schema.SelectFileRequest{
		SessionID: sessionID,
		FileID:    payload.ID,
		Run:       payload.Run,
	})
	if err != nil {
		writeServiceError(w, r, "http file select failed", err)
		return
	}
	body := map[string]any{"active_file": resp.ActiveFile, "ran": resp.Ran}
	if resp.Ran {
		body["result"] = resp.Result
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		ID      schema.FileID `json:"id"`
		Content string        `json:"content"`
	}
	if !decodePayload(w, r, &payload) {
		return
	}
	resp, err := s.service.UpdateContent(r.Context(), schema.UpdateContentRequest{
		SessionID: sessionID,
		FileID:    payload.ID,
		Content:   payload.Content,
	})
	if err != nil {
		writeServiceError(w, r, "http file update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file": resp.File})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	fileID := schema.FileID(strings.TrimSpace(r.URL.Query().Get("id")))
	resp, err := s.service.GetWorkspace(r.Context(), schema.GetWorkspaceRequest{SessionID: sessionID})
	if err != nil {
		writeServiceError(w, r, "http preview failed", err)
		return
	}
	var file schema.FileSnapshot
	found := false
	for _, candidate := range resp.Workspace.Files {
		if candidate.ID == fileID {
			file = candidate
			found = true
			break
		}
	}
	if !found {
		writeServiceError(w, r, "http preview failed", schema.ErrFileNotFound)
		return
	}
	rendered, err := markdown.RenderFile(file)
	if err != nil {
		writeServiceError(w, r, "http preview render failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       file.ID,
		"name":     file.Name,
		"language": file.Language,
		"html":     rendered,
	})
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 0)
	resp, err := s.service.GetTerminal(r.Context(), schema.GetTerminalRequest{SessionID: sessionID, Limit: limit})
	if err != nil {
		writeServiceError(w, r, "http terminal failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Terminal)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Input string `json:"input"`
	}
	if !decodePayload(w, r, &payload) {
		return
	}
	if s.cmdHandler == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("command handler unavailable"))
		return
	}
	action, err := s.cmdHandler.Handle(r.Context(), sessionID, payload.Input)
	if err != nil {
		writeServiceError(w, r, "http command failed", err)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp, err := s.service.GetHistory(r.Context(), schema.GetHistoryRequest{SessionID: sessionID})
	if err != nil {
		writeServiceError(w, r, "http history failed", err)
		return
	}
	entries := resp.Entries
	if entries == nil {
		entries = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp, err := s.service.RunActive(r.Context(), schema.RunActiveRequest{SessionID: sessionID})
	if err != nil {
		writeServiceError(w, r, "http run failed", err)
		return
	}
	body := map[string]any{"ran": resp.Ran}
	if resp.Ran {
		body["file"] = resp.File
		body["result"] = resp.Result
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp, err := s.service.Submit(r.Context(), schema.SubmitRequest{SessionID: sessionID})
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		logx.Ctx(r.Context()).Warn("http submit failed", "err", err, "status", status)
		writeJSON(w, status, map[string]any{"error": err.Error(), "submission": resp.Submission})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submission": resp.Submission})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, sessionID schema.SessionID) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	log := logx.Ctx(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))
	if lastID == 0 {
		lastID = parseUint(r.URL.Query().Get("last_event_id"))
	}

	ch, unsubscribe, _ := s.hub.Subscribe(sessionID)
	defer unsubscribe()

	snapshot := s.buildSnapshot(r.Context(), sessionID)
	_ = writeSSEvent(w, StreamEvent{
		Type:      StreamSnapshot,
		Snapshot:  &snapshot,
		Timestamp: time.Now(),
	})
	flusher.Flush()

	var written uint64
	replayCount := 0
	if lastID > 0 {
		replay := s.hub.Replay(sessionID, lastID)
		replayCount = len(replay)
		for _, event := range replay {
			_ = writeSSEvent(w, event)
			written = event.Seq
		}
		flusher.Flush()
	}

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount, "files", len(snapshot.Workspace.Files))
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				log.Info("http stream ended")
				return
			}
			if event.Seq <= written {
				continue
			}
			written = event.Seq
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

func (s *Server) buildSnapshot(ctx context.Context, sessionID schema.SessionID) SnapshotPayload {
	snapshot := SnapshotPayload{
		Workspace: schema.WorkspaceSnapshot{Files: []schema.FileSnapshot{}},
		Terminal:  schema.TerminalSnapshot{Lines: []string{}},
		History:   []string{},
	}
	if resp, err := s.service.GetWorkspace(ctx, schema.GetWorkspaceRequest{SessionID: sessionID}); err == nil {
		snapshot.Workspace = resp.Workspace
	}
	if resp, err := s.service.GetTerminal(ctx, schema.GetTerminalRequest{
		SessionID: sessionID,
		Limit:     s.cfg.InitialTerminalLines,
	}); err == nil {
		snapshot.Terminal = resp.Terminal
	}
	if resp, err := s.service.GetHistory(ctx, schema.GetHistoryRequest{SessionID: sessionID}); err == nil && resp.Entries != nil {
		snapshot.History = resp.Entries
	}
	return snapshot
}

func (s *Server) requireSession(next func(http.ResponseWriter, *http.Request, schema.SessionID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logx.Ctx(r.Context()).With("remote", clientIP(r))
		entry, err := s.ensureSession(w, r)
		if err != nil {
			log.Warn("http session open failed", "err", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		log = log.With("session", entry.sessionID, "http_session", entry.id)
		ctx := logx.ContextWithSessionLogger(r.Context(), log, entry.sessionID)
		next(w, r.WithContext(ctx), entry.sessionID)
	}
}

// ensureSession resolves the cookie session, creating a playground session
// and cookie when none is present. A cookie whose playground session is gone
// reopens it under the same id.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (session, error) {
	ctx := r.Context()
	if token := s.sessionToken(r); token != "" {
		if entry, ok := s.sessions.get(token); ok {
			if _, err := s.service.OpenSession(ctx, schema.OpenSessionRequest{SessionID: entry.sessionID}); err != nil {
				return session{}, err
			}
			return entry, nil
		}
	}
	resp, err := s.service.OpenSession(ctx, schema.OpenSessionRequest{})
	if err != nil {
		return session{}, err
	}
	token, entry := s.sessions.create(resp.SessionID)
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    token,
		Path:     cookiePathFor(s.basePath),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  entry.expiresAt,
	})
	return entry, nil
}

func (s *Server) expireSession(sessionID schema.SessionID) {
	ctx := context.Background()
	if _, err := s.service.CloseSession(ctx, schema.CloseSessionRequest{SessionID: sessionID}); err != nil && !errors.Is(err, schema.ErrSessionNotFound) {
		logx.WithSession(ctx, sessionID).Warn("http session close failed", "err", err)
	}
	s.hub.Drop(sessionID)
}

func (s *Server) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(s.cfg.SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) lookupSession(r *http.Request) (schema.SessionID, string) {
	if s == nil || r == nil {
		return "", ""
	}
	token := s.sessionToken(r)
	if token == "" {
		return "", ""
	}
	entry, ok := s.sessions.get(token)
	if !ok {
		return "", ""
	}
	return entry.sessionID, entry.id
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, schema.ErrEmptyName),
		errors.Is(err, schema.ErrInvalidRequest),
		errors.Is(err, schema.ErrInvalidSession),
		errors.Is(err, schema.ErrSubmissionInvalid):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, schema.ErrFileNotFound), errors.Is(err, schema.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusForError(err)
	log := logx.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(msg, "err", err, "status", status)
	} else {
		log.Warn(msg, "err", err, "status", status)
	}
	writeError(w, status, err)
}

func decodePayload(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeJSON(r.Body, target); err != nil {
		logx.Ctx(r.Context()).Warn("http decode failed", "err", err)
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
		return false
	}
	return true
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
