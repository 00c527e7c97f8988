package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pkt.systems/codecanvas/internal/appconfig"
	"pkt.systems/codecanvas/sshserver"
)

// Options controls what bootstrap writes.
type Options struct {
	// ConfigPath defaults to appconfig.DefaultConfigPath.
	ConfigPath string
	// EnvPath, when set, receives a commented .env template.
	EnvPath   string
	Overwrite bool
	Overrides []ConfigOverride
}

// Paths reports where bootstrap wrote its outputs.
type Paths struct {
	ConfigPath  string
	EnvPath     string
	HostKeyPath string
	// HostKeyCreated is false when an existing key was kept.
	HostKeyCreated bool
}

// ConfigOverride sets a dotted config path, e.g. http.addr, to Value.
type ConfigOverride struct {
	Path  string
	Value any
}

// ParseOverride parses "path=value". The value is decoded as YAML so that
// numbers and booleans keep their type.
func ParseOverride(raw string) (ConfigOverride, error) {
	path, value, ok := strings.Cut(raw, "=")
	path = strings.TrimSpace(path)
	if !ok || path == "" {
		return ConfigOverride{}, fmt.Errorf("invalid override %q; expected path=value", raw)
	}
	var decoded any
	if err := yaml.Unmarshal([]byte(value), &decoded); err != nil {
		return ConfigOverride{}, fmt.Errorf("override %q: %w", path, err)
	}
	if decoded == nil {
		decoded = ""
	}
	return ConfigOverride{Path: path, Value: decoded}, nil
}

// DefaultConfigYAML renders the default config with overrides applied.
func DefaultConfigYAML(overrides ...ConfigOverride) ([]byte, appconfig.Config, error) {
	cfg, err := appconfig.DefaultConfig()
	if err != nil {
		return nil, appconfig.Config{}, err
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, appconfig.Config{}, err
	}
	if len(overrides) == 0 {
		return raw, cfg, nil
	}
	raw, err = applyOverridesToYAML(raw, overrides)
	if err != nil {
		return nil, appconfig.Config{}, err
	}
	var next appconfig.Config
	if err := yaml.Unmarshal(raw, &next); err != nil {
		return nil, appconfig.Config{}, err
	}
	return raw, next, nil
}

// Write writes the config file, the optional .env template and, when SSH is
// enabled, the host key.
func Write(opts Options) (Paths, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		defaultPath, err := appconfig.DefaultConfigPath()
		if err != nil {
			return Paths{}, err
		}
		configPath = defaultPath
	}
	if err := checkWritable(configPath, opts.Overwrite); err != nil {
		return Paths{}, err
	}
	if opts.EnvPath != "" {
		if err := checkWritable(opts.EnvPath, opts.Overwrite); err != nil {
			return Paths{}, err
		}
	}
	data, cfg, err := DefaultConfigYAML(opts.Overrides...)
	if err != nil {
		return Paths{}, err
	}
	if err := writeFile(configPath, data); err != nil {
		return Paths{}, err
	}
	paths := Paths{ConfigPath: configPath}
	if opts.EnvPath != "" {
		if err := writeFile(opts.EnvPath, envTemplate()); err != nil {
			return Paths{}, err
		}
		paths.EnvPath = opts.EnvPath
	}
	if cfg.SSH.Enabled {
		hostKey, err := sshserver.EnsureHostKey(cfg.SSH.HostKeyPath)
		if err != nil {
			return Paths{}, err
		}
		paths.HostKeyCreated = hostKey.Created
		paths.HostKeyPath = cfg.SSH.HostKeyPath
	}
	return paths, nil
}

func envTemplate() []byte {
	var b strings.Builder
	b.WriteString("# Environment overrides use the " + appconfig.EnvPrefix + "_ prefix and\n")
	b.WriteString("# the config path with dots replaced by underscores.\n")
	for _, key := range []string{"HTTP_ADDR", "SSH_ADDR", "SUBMIT_NATS_URL", "SUBMIT_NATS_SUBJECT"} {
		b.WriteString("#" + appconfig.EnvPrefix + "_" + key + "=\n")
	}
	return []byte(b.String())
}

func checkWritable(path string, overwrite bool) error {
	if overwrite {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func applyOverridesToYAML(configYAML []byte, overrides []ConfigOverride) ([]byte, error) {
	var data map[string]any
	if err := yaml.Unmarshal(configYAML, &data); err != nil {
		return nil, err
	}
	for _, override := range overrides {
		if err := setOverrideValue(data, override.Path, override.Value); err != nil {
			return nil, err
		}
	}
	return yaml.Marshal(data)
}

func setOverrideValue(root map[string]any, path string, value any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("config override path is required")
	}
	parts := strings.Split(path, ".")
	node := root
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return fmt.Errorf("invalid config override path %q", path)
		}
		if i == len(parts)-1 {
			node[part] = value
			return nil
		}
		next, ok := node[part]
		if !ok || next == nil {
			child := map[string]any{}
			node[part] = child
			node = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("config override %q: %q is not a map", path, part)
		}
		node = child
	}
	return nil
}
