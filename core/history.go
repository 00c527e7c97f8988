package core

import "strings"

const defaultHistoryMax = 200

// commandLog is the per-session recall list behind the terminal prompt's
// up/down keys. Lines are stored trimmed; blank lines and a line equal to
// the previous one are not recorded. The oldest lines fall off past max.
type commandLog struct {
	lines []string
	max   int
}

func newCommandLog(max int) *commandLog {
	if max <= 0 {
		max = defaultHistoryMax
	}
	return &commandLog{max: max}
}

// Record stores line and reports whether it was kept.
func (l *commandLog) Record(line string) bool {
	if l == nil {
		return false
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if n := len(l.lines); n > 0 && l.lines[n-1] == line {
		return false
	}
	if len(l.lines) == l.max {
		copy(l.lines, l.lines[1:])
		l.lines[len(l.lines)-1] = line
		return true
	}
	l.lines = append(l.lines, line)
	return true
}

// Lines returns a copy, oldest first.
func (l *commandLog) Lines() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.lines...)
}
