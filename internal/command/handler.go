package command

import (
	"context"
	"errors"

	"pkt.systems/codecanvas/core"
	"pkt.systems/codecanvas/internal/logx"
	"pkt.systems/codecanvas/schema"
)

// HandlerConfig configures terminal command behavior.
type HandlerConfig struct {
	DisableAuditLogging bool
}

// Handler interprets terminal lines against the core service.
type Handler struct {
	service core.Service
	cfg     HandlerConfig
}

// NewHandler constructs a command handler.
func NewHandler(service core.Service, cfg HandlerConfig) *Handler {
	return &Handler{service: service, cfg: cfg}
}

// Handle interprets one terminal line for the session and reports what it
// did to the terminal. Blank input is ignored.
func (h *Handler) Handle(ctx context.Context, sessionID schema.SessionID, input string) (schema.TerminalAction, error) {
	if ctx == nil {
		return schema.TerminalAction{}, errors.New("missing context")
	}
	cmd := Parse(input)
	action := schema.TerminalAction{Kind: cmd.Kind, Input: cmd.Raw}
	if cmd.Kind == schema.CommandNone {
		return action, nil
	}
	baseLog := logx.WithSession(ctx, sessionID)
	ctx = logx.ContextWithSessionLogger(ctx, baseLog, sessionID)
	log := baseLog.With("input_len", len(input))
	if !h.cfg.DisableAuditLogging {
		log.Debug("audit command", "command_type", "terminal", "command", cmd.Raw)
	}
	if _, err := h.service.AppendHistory(ctx, schema.AppendHistoryRequest{SessionID: sessionID, Entry: cmd.Raw}); err != nil {
		log.Warn("command history append failed", "err", err)
		return action, err
	}
	log = log.With("command", string(cmd.Kind))
	log.Info("command terminal request")
	switch cmd.Kind {
	case schema.CommandRun:
		return h.handleRun(ctx, sessionID, cmd, action)
	case schema.CommandClear:
		return h.handleClear(ctx, sessionID, cmd, action)
	default:
		return h.handleUnknown(ctx, sessionID, cmd, action)
	}
}

func (h *Handler) handleRun(ctx context.Context, sessionID schema.SessionID, cmd Command, action schema.TerminalAction) (schema.TerminalAction, error) {
	echo := cmd.Echo()
	resp, err := h.service.RunActive(ctx, schema.RunActiveRequest{SessionID: sessionID, Echo: echo})
	if err != nil {
		logx.WithSession(ctx, sessionID).Warn("command run failed", "err", err)
		return action, err
	}
	if !resp.Ran {
		action.Lines = []string{echo}
		return action, nil
	}
	result := resp.Result
	action.Reset = true
	action.Lines = append([]string{echo}, result.Lines()...)
	action.Execution = &result
	return action, nil
}

func (h *Handler) handleClear(ctx context.Context, sessionID schema.SessionID, cmd Command, action schema.TerminalAction) (schema.TerminalAction, error) {
	if _, err := h.service.AppendTerminal(ctx, schema.AppendTerminalRequest{
		SessionID: sessionID,
		Lines:     []string{cmd.Echo()},
	}); err != nil {
		return action, err
	}
	if _, err := h.service.ClearTerminal(ctx, schema.ClearTerminalRequest{SessionID: sessionID}); err != nil {
		return action, err
	}
	action.Reset = true
	action.Lines = []string{}
	return action, nil
}

func (h *Handler) handleUnknown(ctx context.Context, sessionID schema.SessionID, cmd Command, action schema.TerminalAction) (schema.TerminalAction, error) {
	lines := []string{cmd.Echo(), schema.NotFoundPrefix + cmd.Raw}
	if _, err := h.service.AppendTerminal(ctx, schema.AppendTerminalRequest{SessionID: sessionID, Lines: lines}); err != nil {
		return action, err
	}
	logx.WithSession(ctx, sessionID).Warn("command terminal rejected", "reason", "unknown", "command", cmd.Raw)
	action.Lines = lines
	return action, nil
}
