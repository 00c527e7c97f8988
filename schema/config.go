package schema

import "errors"

// ServiceConfig defines defaults and limits for the core service.
type ServiceConfig struct {
	TerminalMaxLines int
	// SkipSeedFiles opens sessions with an empty workspace.
	SkipSeedFiles bool
}

// DefaultTerminalMaxLines is the default per-session terminal limit.
const DefaultTerminalMaxLines = 5000

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.TerminalMaxLines < 0 {
		return ServiceConfig{}, errors.New("terminal max lines must not be negative")
	}
	if cfg.TerminalMaxLines == 0 {
		cfg.TerminalMaxLines = DefaultTerminalMaxLines
	}
	return cfg, nil
}
