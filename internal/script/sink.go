package script

import "sync"

// Sink receives one line per console call, in call order.
type Sink interface {
	Print(line string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(line string)

// Print implements Sink.
func (f SinkFunc) Print(line string) {
	f(line)
}

// Capture collects printed lines in memory.
type Capture struct {
	mu    sync.Mutex
	lines []string
}

// Print implements Sink.
func (c *Capture) Print(line string) {
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
}

// Lines returns a copy of the captured lines.
func (c *Capture) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.lines...)
}
