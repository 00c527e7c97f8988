package httpapi

// Config defines HTTP API settings.
type Config struct {
	Addr                 string
	SessionCookie        string
	SessionTTLHours      int
	BasePath             string
	InitialTerminalLines int
}
