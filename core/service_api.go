package core

import (
	"context"

	"pkt.systems/codecanvas/schema"
)

// Service is the transport-agnostic API for playground sessions: the
// workspace store, the terminal, script runs and submissions.
type Service interface {
	OpenSession(ctx context.Context, req schema.OpenSessionRequest) (schema.OpenSessionResponse, error)
	CloseSession(ctx context.Context, req schema.CloseSessionRequest) (schema.CloseSessionResponse, error)
	GetWorkspace(ctx context.Context, req schema.GetWorkspaceRequest) (schema.GetWorkspaceResponse, error)
	AddFile(ctx context.Context, req schema.AddFileRequest) (schema.AddFileResponse, error)
	DeleteFile(ctx context.Context, req schema.DeleteFileRequest) (schema.DeleteFileResponse, error)
	RenameFile(ctx context.Context, req schema.RenameFileRequest) (schema.RenameFileResponse, error)
	SelectFile(ctx context.Context, req schema.SelectFileRequest) (schema.SelectFileResponse, error)
	UpdateContent(ctx context.Context, req schema.UpdateContentRequest) (schema.UpdateContentResponse, error)
	GetTerminal(ctx context.Context, req schema.GetTerminalRequest) (schema.GetTerminalResponse, error)
	AppendTerminal(ctx context.Context, req schema.AppendTerminalRequest) (schema.AppendTerminalResponse, error)
	ClearTerminal(ctx context.Context, req schema.ClearTerminalRequest) (schema.ClearTerminalResponse, error)
	RunActive(ctx context.Context, req schema.RunActiveRequest) (schema.RunActiveResponse, error)
	Submit(ctx context.Context, req schema.SubmitRequest) (schema.SubmitResponse, error)
	GetHistory(ctx context.Context, req schema.GetHistoryRequest) (schema.GetHistoryResponse, error)
	AppendHistory(ctx context.Context, req schema.AppendHistoryRequest) (schema.AppendHistoryResponse, error)
}
