package schema

// Session lifecycle.

// OpenSessionRequest opens a session. An empty or unknown SessionID creates
// a fresh session; a known id returns the existing one.
type OpenSessionRequest struct {
	SessionID SessionID
}

// OpenSessionResponse reports the session and whether it was created.
type OpenSessionResponse struct {
	SessionID SessionID
	Created   bool
	Workspace WorkspaceSnapshot
}

// CloseSessionRequest discards a session and its state.
type CloseSessionRequest struct {
	SessionID SessionID
}

// CloseSessionResponse is empty; the session is gone.
type CloseSessionResponse struct{}

// Workspace operations.

// GetWorkspaceRequest asks for the current workspace snapshot.
type GetWorkspaceRequest struct {
	SessionID SessionID
}

// GetWorkspaceResponse reports the workspace snapshot.
type GetWorkspaceResponse struct {
	Workspace WorkspaceSnapshot
}

// AddFileRequest creates a file named Name.
type AddFileRequest struct {
	SessionID SessionID
	Name      string
}

// AddFileResponse reports the created, now active, file.
type AddFileResponse struct {
	File FileSnapshot
}

// DeleteFileRequest removes a file.
type DeleteFileRequest struct {
	SessionID SessionID
	FileID    FileID
}

// DeleteFileResponse reports the removed file and the resulting active file.
type DeleteFileResponse struct {
	File       FileSnapshot
	ActiveFile FileID
}

// RenameFileRequest renames a file.
type RenameFileRequest struct {
	SessionID SessionID
	FileID    FileID
	Name      string
}

// RenameFileResponse reports the renamed file and its previous name.
type RenameFileResponse struct {
	File    FileSnapshot
	OldName FileName
}

// SelectFileRequest changes the active file. NoFile deselects.
// Run executes the newly active file when it is runnable.
type SelectFileRequest struct {
	SessionID SessionID
	FileID    FileID
	Run       bool
}

// SelectFileResponse reports the active file and whether a run happened.
type SelectFileResponse struct {
	ActiveFile FileID
	Ran        bool
	Result     ExecutionResult
}

// UpdateContentRequest replaces file content verbatim.
type UpdateContentRequest struct {
	SessionID SessionID
	FileID    FileID
	Content   string
}

// UpdateContentResponse reports the updated file.
type UpdateContentResponse struct {
	File FileSnapshot
}

// Terminal operations.

// GetTerminalRequest asks for the last Limit terminal lines (0 = all).
type GetTerminalRequest struct {
	SessionID SessionID
	Limit     int
}

// GetTerminalResponse reports the terminal snapshot.
type GetTerminalResponse struct {
	Terminal TerminalSnapshot
}

// AppendTerminalRequest appends lines to the terminal.
type AppendTerminalRequest struct {
	SessionID SessionID
	Lines     []string
}

// AppendTerminalResponse is empty.
type AppendTerminalResponse struct{}

// ClearTerminalRequest discards all terminal lines.
type ClearTerminalRequest struct {
	SessionID SessionID
}

// ClearTerminalResponse is empty.
type ClearTerminalResponse struct{}

// RunActiveRequest executes the active file. When Echo is set the terminal
// is reset to the echo line followed by the run output; otherwise it is
// reset to the run output alone. When nothing runnable is active, Echo (if
// any) is appended and the terminal is otherwise left alone.
type RunActiveRequest struct {
	SessionID SessionID
	Echo      string
}

// RunActiveResponse reports whether a run happened and its result.
type RunActiveResponse struct {
	Ran    bool
	File   FileSnapshot
	Result ExecutionResult
}

// SubmitRequest packages the workspace and terminal into a submission.
type SubmitRequest struct {
	SessionID SessionID
}

// SubmitResponse reports the dispatched submission document.
type SubmitResponse struct {
	Submission Submission
}

// Command interpretation.

// CommandKind classifies an interpreted terminal command.
type CommandKind string

const (
	// CommandNone indicates blank input that was ignored.
	CommandNone CommandKind = ""
	// CommandRun executes the active file.
	CommandRun CommandKind = "run"
	// CommandClear clears the terminal.
	CommandClear CommandKind = "clear"
	// CommandUnknown indicates an unrecognised command.
	CommandUnknown CommandKind = "unknown"
)

// TerminalAction describes what the interpreter did to the terminal.
type TerminalAction struct {
	Kind  CommandKind `json:"kind"`
	Input string      `json:"input"`
	// Reset reports that the terminal was cleared as part of the action.
	Reset bool `json:"reset"`
	// Lines are the lines the action left appended, in order.
	Lines []string `json:"lines"`
	// Execution is set when the action ran a script.
	Execution *ExecutionResult `json:"execution,omitempty"`
}

// Command history.

// GetHistoryRequest asks for the command history of a session.
type GetHistoryRequest struct {
	SessionID SessionID
}

// GetHistoryResponse reports history entries, oldest first.
type GetHistoryResponse struct {
	Entries []string
}

// AppendHistoryRequest records a submitted command line.
type AppendHistoryRequest struct {
	SessionID SessionID
	Entry     string
}

// AppendHistoryResponse is empty.
type AppendHistoryResponse struct{}
