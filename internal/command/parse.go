package command

import (
	"strings"

	"pkt.systems/codecanvas/schema"
)

// Command is a parsed terminal line.
type Command struct {
	Kind schema.CommandKind
	// Raw is the input with surrounding whitespace removed.
	Raw string
	// Name is Raw lower-cased; it is what keywords are matched against.
	Name string
}

// Parse classifies a terminal line. Keywords match the whole trimmed line,
// ignoring case; anything else is unknown. Blank input yields CommandNone.
func Parse(input string) Command {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{Kind: schema.CommandNone}
	}
	name := strings.ToLower(raw)
	kind := schema.CommandUnknown
	switch name {
	case string(schema.CommandRun):
		kind = schema.CommandRun
	case string(schema.CommandClear):
		kind = schema.CommandClear
	}
	return Command{Kind: kind, Raw: raw, Name: name}
}

// Echo returns the line echoed to the terminal for cmd. Keywords echo in
// their canonical spelling; unknown input echoes as typed.
func (c Command) Echo() string {
	if c.Kind == schema.CommandRun || c.Kind == schema.CommandClear {
		return schema.EchoLine(c.Name)
	}
	return schema.EchoLine(c.Raw)
}
