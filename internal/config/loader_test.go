package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromString_Defaults(t *testing.T) {
	cfg, err := LoadFromString("")
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	if cfg.DataDir == "" {
		t.Error("expected a default data_dir")
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("expected info/text logging defaults, got %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Probe.Timeout() != 30*time.Second {
		t.Errorf("probe timeout = %v", cfg.Probe.Timeout())
	}
	if cfg.Trigger.Interval() != 60*time.Second {
		t.Errorf("trigger interval = %v", cfg.Trigger.Interval())
	}
	if cfg.Log.File.MaxSizeMB != 10 || cfg.Log.File.MaxAgeDays != 14 || cfg.Log.File.MaxBackups != 3 {
		t.Errorf("unexpected file log defaults: %+v", cfg.Log.File)
	}
}

func TestLoadFromString_Overrides(t *testing.T) {
	cfg, err := LoadFromString(`
data_dir: /var/lib/regsync
log:
  level: debug
  format: json
  file:
    path: /var/log/regsync/regsync.log
    compress: true
probe:
  timeout_seconds: 5
trigger:
  interval_seconds: 15
`)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	if cfg.DataDir != "/var/lib/regsync" {
		t.Errorf("data_dir = %q", cfg.DataDir)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Log.File.Path != "/var/log/regsync/regsync.log" || !cfg.Log.File.Compress {
		t.Errorf("file log = %+v", cfg.Log.File)
	}
	// Unset file-log fields keep their defaults
	if cfg.Log.File.MaxBackups != 3 {
		t.Errorf("max_backups = %d", cfg.Log.File.MaxBackups)
	}
	if cfg.Probe.Timeout() != 5*time.Second {
		t.Errorf("probe timeout = %v", cfg.Probe.Timeout())
	}
	if cfg.Trigger.Interval() != 15*time.Second {
		t.Errorf("trigger interval = %v", cfg.Trigger.Interval())
	}
}

func TestLoadFromString_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty data_dir", "data_dir: \"\"", "data_dir"},
		{"bad log level", "log:\n  level: verbose", "log level"},
		{"bad log format", "log:\n  format: xml", "log format"},
		{"zero probe timeout", "probe:\n  timeout_seconds: 0", "probe timeout"},
		{"negative trigger interval", "trigger:\n  interval_seconds: -5", "trigger interval"},
		{"malformed yaml", "log: [unclosed", "invalid config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromString(tt.yaml)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "data_dir: " + dir + "\nlog:\n  level: warn\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.GetDataDir() != dir {
		t.Errorf("data dir = %q", cfg.GetDataDir())
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for explicit missing config file")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	if got := ExpandPath("~/.regsync"); got != filepath.Join(home, ".regsync") {
		t.Errorf("ExpandPath(~/.regsync) = %q", got)
	}
	if got := ExpandPath("~"); got != home {
		t.Errorf("ExpandPath(~) = %q", got)
	}

	t.Setenv("REGSYNC_TEST_DIR", "/opt/regsync")
	if got := ExpandPath("$REGSYNC_TEST_DIR/data"); got != "/opt/regsync/data" {
		t.Errorf("ExpandPath with env var = %q", got)
	}

	if got := ExpandPath("/a/b/../c"); got != "/a/c" {
		t.Errorf("ExpandPath cleans paths, got %q", got)
	}
}
