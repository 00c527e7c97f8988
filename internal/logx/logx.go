package logx

import (
	"context"

	"pkt.systems/codecanvas/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	sessionKey contextKey = iota
	fileKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithSession annotates the logger with the session id if present.
func WithSession(ctx context.Context, sessionID schema.SessionID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if sessionID != "" {
		if current, ok := ctx.Value(sessionKey).(schema.SessionID); ok && current == sessionID {
			return log
		}
		log = log.With("session", sessionID)
	}
	return log
}

// WithSessionFile annotates the logger with session and file identifiers.
func WithSessionFile(ctx context.Context, sessionID schema.SessionID, fileID schema.FileID) pslog.Logger {
	log := WithSession(ctx, sessionID)
	if fileID != "" {
		if current, ok := ctx.Value(fileKey).(schema.FileID); ok && current == fileID {
			return log
		}
		log = log.With("file", fileID)
	}
	return log
}

// WithFile annotates the logger with file metadata when available.
func WithFile(log pslog.Logger, file schema.FileSnapshot) pslog.Logger {
	if file.Name != "" {
		log = log.With("file_name", file.Name)
	}
	if file.Language != "" {
		log = log.With("language", file.Language)
	}
	return log
}

// ContextWithSession stores the session marker on the context for log de-duplication.
func ContextWithSession(ctx context.Context, sessionID schema.SessionID) context.Context {
	if ctx == nil || sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}

// ContextWithFile stores the file marker on the context for log de-duplication.
func ContextWithFile(ctx context.Context, fileID schema.FileID) context.Context {
	if ctx == nil || fileID == "" {
		return ctx
	}
	return context.WithValue(ctx, fileKey, fileID)
}

// ContextWithSessionLogger attaches the logger and session marker to the context.
func ContextWithSessionLogger(ctx context.Context, log pslog.Logger, sessionID schema.SessionID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithSession(ctx, sessionID)
}

// CopyContextFields copies session/file markers from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if session, ok := src.Value(sessionKey).(schema.SessionID); ok && session != "" {
		dst = ContextWithSession(dst, session)
	}
	if file, ok := src.Value(fileKey).(schema.FileID); ok && file != "" {
		dst = ContextWithFile(dst, file)
	}
	return dst
}
