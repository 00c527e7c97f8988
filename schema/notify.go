package schema

// NotificationKind distinguishes success from error notifications.
type NotificationKind string

const (
	// NotificationSuccess reports a completed store mutation.
	NotificationSuccess NotificationKind = "success"
	// NotificationError reports a rejected store mutation or a failed submission.
	NotificationError NotificationKind = "error"
)

// Notification is the two-field record handed to toast/banner sinks.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
}

// NotificationEvent carries a notification for a session.
type NotificationEvent struct {
	SessionID    SessionID
	Notification Notification
}

// TerminalEvent reports terminal changes. When Reset is set the terminal
// was cleared before Lines were appended.
type TerminalEvent struct {
	SessionID SessionID
	Lines     []string
	Reset     bool
}

// WorkspaceEventType describes a workspace change.
type WorkspaceEventType string

const (
	// WorkspaceEventCreated indicates a file was created.
	WorkspaceEventCreated WorkspaceEventType = "created"
	// WorkspaceEventDeleted indicates a file was deleted.
	WorkspaceEventDeleted WorkspaceEventType = "deleted"
	// WorkspaceEventRenamed indicates a file was renamed.
	WorkspaceEventRenamed WorkspaceEventType = "renamed"
	// WorkspaceEventSelected indicates the active file changed.
	WorkspaceEventSelected WorkspaceEventType = "selected"
	// WorkspaceEventUpdated indicates file content changed.
	WorkspaceEventUpdated WorkspaceEventType = "updated"
)

// WorkspaceEvent represents a change to a file or the active file.
type WorkspaceEvent struct {
	SessionID  SessionID
	Type       WorkspaceEventType
	File       FileSnapshot
	ActiveFile FileID
}
