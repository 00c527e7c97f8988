package schema

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Submission separator lines bracket the rendered document in the terminal.
const (
	SubmissionHeader = "--- Submission ---"
	SubmissionFooter = "------------------"
)

// SubmittedFile is a file stripped of its id and language.
type SubmittedFile struct {
	Name    FileName `json:"name"`
	Content string   `json:"content"`
}

// Submission packages the workspace files and terminal lines.
type Submission struct {
	Files           []SubmittedFile `json:"files"`
	TerminalContent []string        `json:"terminalContent"`
}

// Render returns the indented JSON rendering of the submission split into
// terminal lines, without the separator lines. Characters such as '>' and
// '&' are kept literal, as JSON.stringify prints them.
func (s Submission) Render() ([]string, error) {
	if s.Files == nil {
		s.Files = []SubmittedFile{}
	}
	if s.TerminalContent == nil {
		s.TerminalContent = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n"), nil
}
