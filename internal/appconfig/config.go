package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/codecanvas/internal/submit"
	"pkt.systems/codecanvas/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	Service       ServiceConfig `mapstructure:"service" yaml:"service"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	SSH           SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
	Submit        SubmitConfig  `mapstructure:"submit" yaml:"submit"`
	Logging       LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ServiceConfig controls core service behavior.
type ServiceConfig struct {
	TerminalMaxLines int  `mapstructure:"terminal_max_lines" yaml:"terminal_max_lines"`
	SeedFiles        bool `mapstructure:"seed_files" yaml:"seed_files"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr                 string `mapstructure:"addr" yaml:"addr"`
	SessionCookie        string `mapstructure:"session_cookie" yaml:"session_cookie"`
	SessionTTLHours      int    `mapstructure:"session_ttl_hours" yaml:"session_ttl_hours"`
	BasePath             string `mapstructure:"base_path" yaml:"base_path"`
	InitialTerminalLines int    `mapstructure:"initial_terminal_lines" yaml:"initial_terminal_lines"`
	HubHistory           int    `mapstructure:"hub_history" yaml:"hub_history"`
}

// SSHConfig configures the SSH terminal pane.
type SSHConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr        string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath string `mapstructure:"host_key_path" yaml:"host_key_path"`
	// AllowAttach lets an SSH user name that is a live session id join it.
	AllowAttach bool `mapstructure:"allow_attach" yaml:"allow_attach"`
}

// SubmitConfig configures where submissions are delivered. Submissions are
// always logged; NATSURL additionally publishes them.
type SubmitConfig struct {
	NATSURL     string `mapstructure:"nats_url" yaml:"nats_url"`
	NATSSubject string `mapstructure:"nats_subject" yaml:"nats_subject"`
}

// LoggingConfig controls audit logging behavior.
type LoggingConfig struct {
	DisableAuditTrails bool `mapstructure:"disable_audit_trails" yaml:"disable_audit_trails"`
}

// ServiceConfig converts the config section to the core service config.
func (c Config) ServiceConfig() schema.ServiceConfig {
	return schema.ServiceConfig{
		TerminalMaxLines: c.Service.TerminalMaxLines,
		SkipSeedFiles:    !c.Service.SeedFiles,
	}
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Service: ServiceConfig{
			TerminalMaxLines: schema.DefaultTerminalMaxLines,
			SeedFiles:        true,
		},
		HTTP: HTTPConfig{
			Addr:                 "127.0.0.1:27480",
			SessionCookie:        "codecanvas_session",
			SessionTTLHours:      24,
			BasePath:             "",
			InitialTerminalLines: 200,
			HubHistory:           1000,
		},
		SSH: SSHConfig{
			Enabled:     true,
			Addr:        "127.0.0.1:27422",
			HostKeyPath: filepath.Join(home, ".codecanvas", "ssh_host_key"),
			AllowAttach: false,
		},
		Submit: SubmitConfig{
			NATSURL:     "",
			NATSSubject: submit.DefaultSubject,
		},
		Logging: LoggingConfig{
			DisableAuditTrails: false,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".codecanvas", "config.yaml"), nil
}
