package schema

// FileSnapshot is a read-only view of a file record for transports.
type FileSnapshot struct {
	ID       FileID   `json:"id"`
	Name     FileName `json:"name"`
	Language Language `json:"language"`
	Content  string   `json:"content"`
	Active   bool     `json:"active"`
}

// WorkspaceSnapshot lists files in insertion order and the active file.
// ActiveFile is NoFile when nothing is selected.
type WorkspaceSnapshot struct {
	Files      []FileSnapshot `json:"files"`
	ActiveFile FileID         `json:"active_file"`
}

// Active returns the active file snapshot, if any.
func (w WorkspaceSnapshot) Active() (FileSnapshot, bool) {
	if w.ActiveFile == NoFile {
		return FileSnapshot{}, false
	}
	for _, file := range w.Files {
		if file.ID == w.ActiveFile {
			return file, true
		}
	}
	return FileSnapshot{}, false
}

// TerminalSnapshot represents terminal lines, oldest first.
type TerminalSnapshot struct {
	Lines      []string `json:"lines"`
	TotalLines int      `json:"total_lines"`
}

// ExecutionResult is the captured outcome of one script run.
// Error is empty when the script completed, otherwise "Error: <message>".
type ExecutionResult struct {
	OutputLines []string `json:"output_lines"`
	Error       string   `json:"error,omitempty"`
}

// Failed reports whether the run ended with an uncaught error.
func (r ExecutionResult) Failed() bool {
	return r.Error != ""
}

// Lines returns output lines followed by the error line, if any.
func (r ExecutionResult) Lines() []string {
	lines := make([]string, 0, len(r.OutputLines)+1)
	lines = append(lines, r.OutputLines...)
	if r.Error != "" {
		lines = append(lines, r.Error)
	}
	return lines
}
