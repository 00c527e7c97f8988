package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pkt.systems/codecanvas/internal/appconfig"
	"pkt.systems/codecanvas/schema"
)

func writeScript(t *testing.T, name, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestExecPrintsConsoleLines(t *testing.T) {
	path := writeScript(t, "hello.js", "console.log('hi'); console.log(1, 2)")
	var out bytes.Buffer
	if err := execFile(context.Background(), path, &out); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if diff := cmp.Diff("hi\n1 2\n", out.String()); diff != "" {
		t.Fatalf("unexpected output (-want +got):\n%s", diff)
	}
}

func TestExecReportsThrownError(t *testing.T) {
	path := writeScript(t, "boom.js", "console.log('before'); throw new Error('boom')")
	var out bytes.Buffer
	err := execFile(context.Background(), path, &out)
	if !errors.Is(err, errScriptFailed) {
		t.Fatalf("expected script failure, got %v", err)
	}
	if diff := cmp.Diff("before\nError: boom\n", out.String()); diff != "" {
		t.Fatalf("unexpected output (-want +got):\n%s", diff)
	}
}

func TestExecRejectsNonJavaScript(t *testing.T) {
	path := writeScript(t, "styles.css", "body {}")
	err := execFile(context.Background(), path, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "only javascript") {
		t.Fatalf("expected non-runnable error, got %v", err)
	}
}

func TestExecCommandViaCobra(t *testing.T) {
	path := writeScript(t, "main.js", "console.info('from cobra')")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"exec", path})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.String() != "from cobra\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if fields := strings.Fields(out.String()); len(fields) < 2 || fields[0] == "" {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func TestBootstrapCommandWritesConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	root := newRootCmd()
	root.SetArgs([]string{
		"bootstrap",
		"--config", configPath,
		"--set", "http.addr=127.0.0.1:9999",
		"--set", "ssh.enabled=false",
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg, err := appconfig.Load(configPath)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9999" || cfg.SSH.Enabled {
		t.Fatalf("expected overrides to apply, got %+v", cfg)
	}
}

func TestToServerConfig(t *testing.T) {
	cfg, err := appconfig.DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Service.SeedFiles = false
	cfg.Submit.NATSURL = "nats://example:4222"
	cfg.Logging.DisableAuditTrails = true
	cfg.SSH.AllowAttach = true

	got := toServerConfig(cfg)
	if !got.Service.SkipSeedFiles || got.Service.TerminalMaxLines != cfg.Service.TerminalMaxLines {
		t.Fatalf("unexpected service config: %+v", got.Service)
	}
	if got.HTTP.Addr != cfg.HTTP.Addr || got.HTTP.SessionCookie != cfg.HTTP.SessionCookie || got.HTTP.InitialTerminalLines != cfg.HTTP.InitialTerminalLines {
		t.Fatalf("unexpected http config: %+v", got.HTTP)
	}
	if got.SSH.Prompt != schema.PromptPrefix || got.SSH.InitialLines != cfg.HTTP.InitialTerminalLines || got.SSH.HostKeyPath != cfg.SSH.HostKeyPath || !got.SSH.AllowAttach {
		t.Fatalf("unexpected ssh config: %+v", got.SSH)
	}
	if got.Submit.NATSURL != "nats://example:4222" || got.Submit.NATSSubject != cfg.Submit.NATSSubject {
		t.Fatalf("unexpected submit config: %+v", got.Submit)
	}
	if !got.DisableAuditLogging || got.HubHistory != cfg.HTTP.HubHistory {
		t.Fatalf("unexpected flags: %+v", got)
	}
}
