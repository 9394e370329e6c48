package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
listen:
  port: 9090
model:
  base_url: http://model-host:11434
  name: test-model
  timeout_sec: 5
mqtt:
  enabled: true
  broker: mqtt://broker:1883
  topic: caddie/test
data_dir: /tmp/caddie-test
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen.Port != 9090 {
		t.Errorf("Listen.Port = %d, want 9090", cfg.Listen.Port)
	}
	if cfg.Model.Name != "test-model" {
		t.Errorf("Model.Name = %q, want %q", cfg.Model.Name, "test-model")
	}
	if cfg.Model.TimeoutSec != 5 {
		t.Errorf("Model.TimeoutSec = %d, want 5", cfg.Model.TimeoutSec)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Topic != "caddie/test" {
		t.Errorf("MQTT = %+v, want enabled with topic caddie/test", cfg.MQTT)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadDefaultsPreserved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	// A partial config keeps defaults for everything unset.
	if err := os.WriteFile(path, []byte("listen:\n  port: 1234\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen.Port != 1234 {
		t.Errorf("Listen.Port = %d, want 1234", cfg.Listen.Port)
	}
	if cfg.Model.BaseURL != "http://localhost:11434" {
		t.Errorf("Model.BaseURL = %q, want default", cfg.Model.BaseURL)
	}
	if cfg.Model.TimeoutSec != 20 {
		t.Errorf("Model.TimeoutSec = %d, want default 20", cfg.Model.TimeoutSec)
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT enabled by default, want disabled")
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	t.Setenv("CADDIE_TEST_MODEL", "env-model")
	if err := os.WriteFile(path, []byte("model:\n  name: ${CADDIE_TEST_MODEL}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.Name != "env-model" {
		t.Errorf("Model.Name = %q, want %q", cfg.Model.Name, "env-model")
	}
}

func TestFindConfigExplicitMustExist(t *testing.T) {
	if _, err := FindConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("FindConfig(missing explicit path) succeeded, want error")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"trace", LevelTrace, false},
		{"debug", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLogLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestReplaceLogLevelNames(t *testing.T) {
	attr := ReplaceLogLevelNames(nil, slog.Any(slog.LevelKey, LevelTrace))
	if got := attr.Value.String(); got != "TRACE" {
		t.Errorf("trace level rendered as %q, want TRACE", got)
	}

	attr = ReplaceLogLevelNames(nil, slog.Any(slog.LevelKey, slog.LevelInfo))
	if got := attr.Value.Any().(slog.Level); got != slog.LevelInfo {
		t.Errorf("info level altered: %v", got)
	}
}
