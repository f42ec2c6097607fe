package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LogRoot != filepath.Join(home, "Logger/Master") {
		t.Fatalf("LogRoot = %q, want it under HOME %q", cfg.LogRoot, home)
	}
	if cfg.ImageRoot != filepath.Join(home, "Camera/Captures") {
		t.Fatalf("ImageRoot = %q, want it under HOME %q", cfg.ImageRoot, home)
	}
	if cfg.LogFile != defaultLogFile {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, defaultLogFile)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("PollInterval = %s, want 2s", cfg.PollInterval)
	}
	if cfg.TailLines != 100 {
		t.Fatalf("TailLines = %d, want 100", cfg.TailLines)
	}
	if cfg.Addr() != "0.0.0.0:9000" {
		t.Fatalf("Addr = %q, want 0.0.0.0:9000", cfg.Addr())
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Fatalf("Log = %+v, want info/text", cfg.Log)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(defaults) = %v", err)
	}
}

func TestLoad_FileEnvAndFlagPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`
log_root: /srv/logs
image_root: /srv/images
log_file: cam.log
poll_interval: 5s
tail_lines: 20
port: 8000
log_level: debug
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("STREAMLOG_TAIL_LINES", "50")
	t.Setenv("STREAMLOG_POLL_INTERVAL", "750ms")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", defaultPort, "")
	fs.Int("tail-lines", defaultTailLines, "")
	if err := fs.Parse([]string{"--port", "9100"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LogRoot != "/srv/logs" || cfg.ImageRoot != "/srv/images" {
		t.Fatalf("roots = %q, %q", cfg.LogRoot, cfg.ImageRoot)
	}
	if cfg.LogFile != "cam.log" {
		t.Fatalf("LogFile = %q, want cam.log", cfg.LogFile)
	}
	if cfg.Port != 9100 {
		t.Fatalf("Port = %d, want flag value 9100", cfg.Port)
	}
	if cfg.TailLines != 50 {
		t.Fatalf("TailLines = %d, want env value 50 over file and unset flag", cfg.TailLines)
	}
	if cfg.PollInterval != 750*time.Millisecond {
		t.Fatalf("PollInterval = %s, want 750ms", cfg.PollInterval)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if got := cfg.DefaultLogPath(); got != filepath.Join("/srv/logs", "cam.log") {
		t.Fatalf("DefaultLogPath = %q", got)
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	if err == nil {
		t.Fatalf("Load returned nil error, want read error")
	}
	if !strings.Contains(err.Error(), "read config") {
		t.Fatalf("Load error = %q, want it to mention read config", err.Error())
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`port = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path, nil); err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if want := filepath.Join(home, "a/b"); got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath(blank) returned nil error")
	}
}
