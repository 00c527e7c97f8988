package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pkt.systems/codecanvas/internal/logx"
	"pkt.systems/codecanvas/internal/metrics"
	"pkt.systems/codecanvas/internal/script"
	"pkt.systems/codecanvas/internal/submit"
	"pkt.systems/codecanvas/schema"
	"pkt.systems/pslog"
)

// service implements the core service behavior.
type service struct {
	cfg         schema.ServiceConfig
	executor    Executor
	submissions SubmissionSink
	sink        EventSink
	metrics     *metrics.Collectors
	logger      pslog.Logger
	mu          sync.Mutex
	sessions    map[schema.SessionID]*sessionState
}

// sessionState is the in-memory state of one session. runMu serialises
// script runs so two runs of the same session never overlap.
type sessionState struct {
	workspace *workspace
	terminal  *terminal
	history   *commandLog
	runMu     sync.Mutex
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if deps.Executor == nil {
		deps.Executor = script.NewEngine()
	}
	if deps.Submissions == nil {
		deps.Submissions = submit.NewLogSink(logger)
	}
	return &service{
		cfg:         normalized,
		executor:    deps.Executor,
		submissions: deps.Submissions,
		sink:        deps.EventSink,
		metrics:     deps.Metrics,
		logger:      logger,
		sessions:    make(map[schema.SessionID]*sessionState),
	}, nil
}

func (s *service) newSessionState() *sessionState {
	state := &sessionState{
		workspace: newWorkspace(newFileID),
		terminal:  newTerminalWithMaxLines(s.cfg.TerminalMaxLines),
		history:   newCommandLog(defaultHistoryMax),
	}
	if !s.cfg.SkipSeedFiles {
		seedWorkspace(state.workspace)
	}
	return state
}

func (s *service) OpenSession(ctx context.Context, req schema.OpenSessionRequest) (schema.OpenSessionResponse, error) {
	if ctx == nil {
		return schema.OpenSessionResponse{}, errors.New("missing context")
	}
	sessionID := req.SessionID
	if sessionID != "" {
		if err := schema.ValidateSessionID(sessionID); err != nil {
			return schema.OpenSessionResponse{}, err
		}
	}

	s.mu.Lock()
	if sessionID != "" {
		if state := s.sessions[sessionID]; state != nil {
			snapshot := state.workspace.Snapshot()
			s.mu.Unlock()
			logx.WithSession(ctx, sessionID).Debug("service session attached")
			return schema.OpenSessionResponse{SessionID: sessionID, Workspace: snapshot}, nil
		}
	} else {
		sessionID = newSessionID()
	}
	state := s.newSessionState()
	s.sessions[sessionID] = state
	snapshot := state.workspace.Snapshot()
	s.mu.Unlock()

	s.metrics.SessionOpened()
	logx.WithSession(ctx, sessionID).Info("service session opened", "files", len(snapshot.Files))
	return schema.OpenSessionResponse{SessionID: sessionID, Created: true, Workspace: snapshot}, nil
}

func (s *service) CloseSession(ctx context.Context, req schema.CloseSessionRequest) (schema.CloseSessionResponse, error) {
	if ctx == nil {
		return schema.CloseSessionResponse{}, errors.New("missing context")
	}
	log := logx.WithSession(ctx, req.SessionID)
	s.mu.Lock()
	if _, ok := s.sessions[req.SessionID]; !ok {
		s.mu.Unlock()
		log.Warn("service session close failed", "err", schema.ErrSessionNotFound)
		return schema.CloseSessionResponse{}, schema.ErrSessionNotFound
	}
	delete(s.sessions, req.SessionID)
	s.mu.Unlock()
	if s.sink != nil {
		s.sink.OnSessionClosed(req.SessionID)
	}
	s.metrics.SessionClosed()
	log.Info("service session closed")
	return schema.CloseSessionResponse{}, nil
}

func (s *service) GetWorkspace(ctx context.Context, req schema.GetWorkspaceRequest) (schema.GetWorkspaceResponse, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.sessionLocked(req.SessionID)
	if err != nil {
		return schema.GetWorkspaceResponse{}, err
	}
	return schema.GetWorkspaceResponse{Workspace: state.workspace.Snapshot()}, nil
}

func (s *service) AddFile(ctx context.Context, req schema.AddFileRequest) (schema.AddFileResponse, error) {
	if ctx == nil {
		return schema.AddFileResponse{}, errors.New("missing context")
	}
	log := logx.WithSession(ctx, req.SessionID).With("name", req.Name)

	s.mu.Lock()
	state, err := s.sessionLocked(req.SessionID)
	if err != nil {
		s.mu.Unlock()
		return schema.AddFileResponse{}, err
	}
	file, err := state.workspace.add(req.Name)
	if err != nil {
		s.mu.Unlock()
		s.rejected(log, req.SessionID, "add", err)
		return schema.AddFileResponse{}, err
	}
	snapshot := file.Snapshot(true)
	s.mu.Unlock()

	s.metrics.FileOp("add", nil)
	s.emitWorkspace(schema.WorkspaceEvent{
		SessionID:  req.SessionID,
		Type:       schema.WorkspaceEventCreated,
		File:       snapshot,
		ActiveFile: snapshot.ID,
	})
	s.notify(req.SessionID, schema.NotificationSuccess, fmt.Sprintf("File \"%s\" created.", snapshot.Name))
	logx.WithFile(log.With("file", snapshot.ID), snapshot).Info("service file created")
	return schema.AddFileResponse{File: snapshot}, nil
}

func (s *service) DeleteFile(ctx context.Context, req schema.DeleteFileRequest) (schema.DeleteFileResponse, error) {
	if ctx == nil {
		return schema.DeleteFileResponse{}, errors.New("missing context")
	}
	log := logx.WithSessionFile(ctx, req.SessionID, req.FileID)

	s.mu.Lock()
	state, err := s.sessionLocked(req.SessionID)
	if err != nil {
		s.mu.Unlock()
		return schema.DeleteFileResponse{}, err
	}
	file, err := state.workspace.remove(req.FileID)
	if err != nil {
		s.mu.Unlock()
		s.rejected(log, req.SessionID, "delete", err)
		return schema.DeleteFileResponse{}, err
	}
	snapshot := file.Snapshot(false)
	active := state.workspace.active
	s.mu.Unlock()

	s.metrics.FileOp("delete", nil)
	s.emitWorkspace(schema.WorkspaceEvent{
		SessionID:  req.SessionID,
		Type:       schema.WorkspaceEventDeleted,
		File:       snapshot,
		ActiveFile: active,
	})
	s.notify(req.SessionID, schema.NotificationSuccess, fmt.Sprintf("File \"%s\" deleted.", snapshot.Name))
	logx.WithFile(log, snapshot).Info("service file deleted", "active", active)
	return schema.DeleteFileResponse{File: snapshot, ActiveFile: active}, nil
}

func (s *service) RenameFile(ctx context.Context, req schema.RenameFileRequest) (schema.RenameFileResponse, error) {
	if ctx == nil {
		return schema.RenameFileResponse{}, errors.New("missing context")
	}
	log := logx.WithSessionFile(ctx, req.SessionID, req.FileID).With("name", req.Name)

	s.mu.Lock()
	state, err := s.sessionLocked(req.SessionID)
	if err != nil {
		s.mu.Unlock()
		return schema.RenameFileResponse{}, err
	}
	file, oldName, err := state.workspace.rename(req.FileID, req.Name)
	if err != nil {
		s.mu.Unlock()
		s.rejected(log, req.SessionID, "rename", err)
		return schema.RenameFileResponse{}, err
	}
	active := state.workspace.active
	snapshot := file.Snapshot(file.ID == active)
	s.mu.Unlock()

	s.metrics.FileOp("rename", nil)
	s.emitWorkspace(schema.WorkspaceEvent{
		SessionID:  req.SessionID,
		Type:       schema.WorkspaceEventRenamed,
		File:       snapshot,
		ActiveFile: active,
	})
	s.notify(req.SessionID, schema.NotificationSuccess, fmt.Sprintf("Renamed \"%s\" to \"%s\".", oldName, snapshot.Name))
	logx.WithFile(log, snapshot).Info("service file renamed", "old_name", oldName)
	return schema.RenameFileResponse{File: snapshot, OldName: oldName}, nil
}

func (s *service) SelectFile(ctx context.Context, req schema.SelectFileRequest) (schema.SelectFileResponse, error) {
	if ctx == nil {
		return schema.SelectFileResponse{}, errors.New("missing context")
	}
	log := logx.WithSessionFile(ctx, req.SessionID, req.FileID)

	s.mu.Lock()
	state, err := s.sessionLocked(req.SessionID)
	if err != nil {
		s.mu.Unlock()
		return schema.SelectFileResponse{}, err
	}
	if err := state.workspace.selectFile(req.FileID); err != nil {
		s.mu.Unlock()
		s.rejected(log, req.SessionID, "select", err)
		return schema.SelectFileResponse{}, err
	}
	var snapshot schema.FileSnapshot
	if file := state.workspace.activeFile(); file != nil {
		snapshot = file.Snapshot(true)
	}
	s.mu.Unlock()

	s.metrics.FileOp("select", nil)
	s.emitWorkspace(schema.WorkspaceEvent{
		SessionID:  req.SessionID,
		Type:       schema.WorkspaceEventSelected,
		File:       snapshot,
		ActiveFile: req.FileID,
	})
	log.Debug("service file selected", "run", req.Run)

	resp := schema.SelectFileResponse{ActiveFile: req.FileID}
	if req.Run && snapshot.Language.Runnable() {
		runResp, err := s.RunActive(ctx, schema.RunActiveRequest{SessionID: req.SessionID})
		if err != nil {
			return resp, err
		}
		resp.Ran = runResp.Ran
		resp.Result = runResp.Result
	}
	return resp, nil
}

func (s *service) UpdateContent(ctx context.Context, req schema.UpdateContentRequest) (schema.UpdateContentResponse, error) {
	if ctx == nil {
		return schema.UpdateContentResponse{}, errors.New("missing context")
	}
	log := logx.WithSessionFile(ctx, req.SessionID, req.FileID)

	s.mu.Lock()
	state, err := s.sessionLocked(req.SessionID)
	if err != nil {
		s.mu.Unlock()
		return schema.UpdateContentResponse{}, err
	}
	file, err := state.workspace.updateContent(req.FileID, req.Content)
	if err != nil {
		s.mu.Unlock()
		s.rejected(log, req.SessionID, "update", err)
		return schema.UpdateContentResponse{}, err
	}
	active := state.workspace.active
	snapshot := file.Snapshot(file.ID == active)
	s.mu.Unlock()

	s.metrics.FileOp("update", nil)
	s.emitWorkspace(schema.WorkspaceEvent{
		SessionID:  req.SessionID,
		Type:       schema.WorkspaceEventUpdated,
		File:       snapshot,
		ActiveFile: active,
	})
	log.Trace("service file updated", "content_len", len(req.Content))
	return schema.UpdateContentResponse{File: snapshot}, nil
}

func (s *service) GetTerminal(ctx context.Context, req schema.GetTerminalRequest) (schema.GetTerminalResponse, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.sessionLocked(req.SessionID)
	if err != nil {
		return schema.GetTerminalResponse{}, err
	}
	return schema.GetTerminalResponse{Terminal: state.terminal.Snapshot(req.Limit)}, nil
}

func (s *service) AppendTerminal(ctx context.Context, req schema.AppendTerminalRequest) (schema.AppendTerminalResponse, error) {
	_ = ctx
	if len(req.Lines) == 0 {
		return schema.AppendTerminalResponse{}, nil
	}
	lines := append([]string(nil), req.Lines...)
	s.mu.Lock()
	state, err := s.sessionLocked(req.SessionID)
	if err != nil {
		s.mu.Unlock()
		return schema.AppendTerminalResponse{}, err
	}
	state.terminal.Append(lines...)
	s.mu.Unlock()
	s.emitTerminal(schema.TerminalEvent{SessionID: req.SessionID, Lines: lines})
	return schema.AppendTerminalResponse{}, nil
}

func (s *service) ClearTerminal(ctx context.Context, req schema.ClearTerminalRequest) (schema.ClearTerminalResponse, error) {
	s.mu.Lock()
	state, err := s.sessionLocked(req.SessionID)
	if err != nil {
		s.mu.Unlock()
		return schema.ClearTerminalResponse{}, err
	}
	state.terminal.Reset()
	s.mu.Unlock()
	s.emitTerminal(schema.TerminalEvent{SessionID: req.SessionID, Reset: true})
	logx.WithSession(ctx, req.SessionID).Debug("service terminal cleared")
	return schema.ClearTerminalResponse{}, nil
}

func (s *service) RunActive(ctx context.Context, req schema.RunActiveRequest) (schema.RunActiveResponse, error) {
	if ctx == nil {
		return schema.RunActiveResponse{}, errors.New("missing context")
	}
	log := logx.WithSession(ctx, req.SessionID)

	s.mu.Lock()
	state, err := s.sessionLocked(req.SessionID)
	s.mu.Unlock()
	if err != nil {
		return schema.RunActiveResponse{}, err
	}

	state.runMu.Lock()
	defer state.runMu.Unlock()

	s.mu.Lock()
	file := state.workspace.activeFile()
	var snapshot schema.FileSnapshot
	if file != nil {
		snapshot = file.Snapshot(true)
	}
	if file == nil || !file.Language.Runnable() {
		if req.Echo != "" {
			state.terminal.Append(req.Echo)
		}
		s.mu.Unlock()
		if req.Echo != "" {
			s.emitTerminal(schema.TerminalEvent{SessionID: req.SessionID, Lines: []string{req.Echo}})
		}
		log.Info("service run skipped", "active", snapshot.ID, "language", snapshot.Language)
		return schema.RunActiveResponse{File: snapshot}, nil
	}
	s.mu.Unlock()

	log = logx.WithFile(log.With("file", snapshot.ID), snapshot)
	log.Info("service run start", "content_len", len(snapshot.Content))
	start := time.Now()
	result := s.executor.Run(ctx, snapshot.Content)
	elapsed := time.Since(start)
	s.metrics.ScriptRun(result.Failed(), elapsed)

	lines := make([]string, 0, len(result.OutputLines)+2)
	if req.Echo != "" {
		lines = append(lines, req.Echo)
	}
	lines = append(lines, result.Lines()...)

	s.mu.Lock()
	if s.sessions[req.SessionID] != state {
		s.mu.Unlock()
		log.Info("service run discarded", "reason", "session closed")
		return schema.RunActiveResponse{File: snapshot, Result: result}, schema.ErrSessionNotFound
	}
	state.terminal.Reset(lines...)
	s.mu.Unlock()
	s.emitTerminal(schema.TerminalEvent{SessionID: req.SessionID, Lines: lines, Reset: true})
	log.Info("service run finished", "lines", len(result.OutputLines), "failed", result.Failed(), "duration_ms", elapsed.Milliseconds())
	return schema.RunActiveResponse{Ran: true, File: snapshot, Result: result}, nil
}

func (s *service) Submit(ctx context.Context, req schema.SubmitRequest) (schema.SubmitResponse, error) {
	if ctx == nil {
		return schema.SubmitResponse{}, errors.New("missing context")
	}
	log := logx.WithSession(ctx, req.SessionID)

	s.mu.Lock()
	state, err := s.sessionLocked(req.SessionID)
	if err != nil {
		s.mu.Unlock()
		return schema.SubmitResponse{}, err
	}
	doc := schema.Submission{
		Files:           state.workspace.submittedFiles(),
		TerminalContent: state.terminal.Lines(),
	}
	rendered, err := doc.Render()
	if err != nil {
		s.mu.Unlock()
		return schema.SubmitResponse{}, fmt.Errorf("render submission: %w", err)
	}
	lines := make([]string, 0, len(rendered)+2)
	lines = append(lines, schema.SubmissionHeader)
	lines = append(lines, rendered...)
	lines = append(lines, schema.SubmissionFooter)
	state.terminal.Append(lines...)
	s.mu.Unlock()
	s.emitTerminal(schema.TerminalEvent{SessionID: req.SessionID, Lines: lines})

	err = s.submissions.Submit(ctx, doc)
	s.metrics.Submission(err)
	if err != nil {
		log.Warn("service submission failed", "err", err)
		s.notify(req.SessionID, schema.NotificationError, "Submission failed.")
		return schema.SubmitResponse{Submission: doc}, fmt.Errorf("submit: %w", err)
	}
	log.Info("service submission sent", "files", len(doc.Files), "terminal_lines", len(doc.TerminalContent))
	return schema.SubmitResponse{Submission: doc}, nil
}

func (s *service) GetHistory(ctx context.Context, req schema.GetHistoryRequest) (schema.GetHistoryResponse, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.sessionLocked(req.SessionID)
	if err != nil {
		return schema.GetHistoryResponse{}, err
	}
	return schema.GetHistoryResponse{Entries: state.history.Lines()}, nil
}

func (s *service) AppendHistory(ctx context.Context, req schema.AppendHistoryRequest) (schema.AppendHistoryResponse, error) {
	s.mu.Lock()
	state, err := s.sessionLocked(req.SessionID)
	if err != nil {
		s.mu.Unlock()
		return schema.AppendHistoryResponse{}, err
	}
	added := state.history.Record(req.Entry)
	s.mu.Unlock()
	if added {
		logx.WithSession(ctx, req.SessionID).Trace("service history appended", "entry_len", len(req.Entry))
	}
	return schema.AppendHistoryResponse{}, nil
}

func (s *service) sessionLocked(sessionID schema.SessionID) (*sessionState, error) {
	state := s.sessions[sessionID]
	if state == nil {
		return nil, schema.ErrSessionNotFound
	}
	return state, nil
}

// rejected records a failed store mutation. State is unchanged; the error
// is surfaced as a notification.
func (s *service) rejected(log pslog.Logger, sessionID schema.SessionID, op string, err error) {
	s.metrics.FileOp(op, err)
	s.notify(sessionID, schema.NotificationError, notificationMessage(err))
	log.Warn("service file "+op+" rejected", "err", err)
}

func notificationMessage(err error) string {
	switch {
	case errors.Is(err, schema.ErrEmptyName):
		return "File name cannot be empty."
	case errors.Is(err, schema.ErrDuplicateName):
		return "A file with this name already exists."
	case errors.Is(err, schema.ErrFileNotFound):
		return "File not found."
	default:
		return err.Error()
	}
}

func (s *service) notify(sessionID schema.SessionID, kind schema.NotificationKind, message string) {
	if s.sink == nil {
		return
	}
	s.sink.OnNotification(schema.NotificationEvent{
		SessionID:    sessionID,
		Notification: schema.Notification{Kind: kind, Message: message},
	})
}

func (s *service) emitWorkspace(event schema.WorkspaceEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnWorkspace(event)
}

func (s *service) emitTerminal(event schema.TerminalEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnTerminal(event)
}
