package core

import "pkt.systems/codecanvas/schema"

const defaultMaxLines = schema.DefaultTerminalMaxLines

// terminal stores terminal lines in emission order. When maxLines is
// exceeded the oldest lines are dropped; survivors keep their order.
type terminal struct {
	lines    []string
	maxLines int
}

// Append adds lines to the end of the terminal.
func (t *terminal) Append(lines ...string) {
	if len(lines) == 0 {
		return
	}
	t.lines = append(t.lines, lines...)
	t.trim()
}

// Reset discards all lines and then appends lines.
func (t *terminal) Reset(lines ...string) {
	t.lines = append([]string(nil), lines...)
	t.trim()
}

// Lines returns a copy of all lines.
func (t *terminal) Lines() []string {
	return append([]string{}, t.lines...)
}

// Snapshot returns the last limit lines; limit <= 0 returns everything.
func (t *terminal) Snapshot(limit int) schema.TerminalSnapshot {
	total := len(t.lines)
	if limit <= 0 || limit > total {
		limit = total
	}
	lines := make([]string, limit)
	copy(lines, t.lines[total-limit:])
	return schema.TerminalSnapshot{
		Lines:      lines,
		TotalLines: total,
	}
}

func (t *terminal) trim() {
	maxLines := t.maxLines
	if maxLines <= 0 {
		maxLines = defaultMaxLines
	}
	if len(t.lines) > maxLines {
		t.lines = append([]string(nil), t.lines[len(t.lines)-maxLines:]...)
	}
}

// newTerminal returns a terminal with default limits applied.
func newTerminal() *terminal {
	return &terminal{maxLines: defaultMaxLines}
}

func newTerminalWithMaxLines(maxLines int) *terminal {
	t := newTerminal()
	if maxLines > 0 {
		t.maxLines = maxLines
	}
	return t
}
