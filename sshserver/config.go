package sshserver

// Config defines SSH server settings.
type Config struct {
	Addr        string
	HostKeyPath string
	// Prompt is shown before each input line; defaults to "> ".
	Prompt string
	// InitialLines is how many terminal lines are replayed on connect.
	InitialLines int
	// AllowAttach lets an SSH user name that equals a live session id join
	// that session. Off, every connection gets its own session.
	AllowAttach bool
}
