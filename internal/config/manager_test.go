package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return NewManager(path)
}

const validYAML = `
logging:
  level: debug
  directory: ./logs
  rotate: true
  max_files: 3
  console: true
audio:
  global_volume: 60
schedules:
  - id: morning
    type: cron
    cron: "0 9 * * *"
    file: ./audios/morning.wav
    enabled: true
behavior:
  retry_on_fail: 2
  retry_delay_seconds: 10
`

func TestParseValidConfig(t *testing.T) {
	t.Parallel()
	cfg, err := writeConfig(t, validYAML).Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.MaxFiles != 3 {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Audio.GlobalVolume != 60 {
		t.Fatalf("global_volume = %d, want 60", cfg.Audio.GlobalVolume)
	}
	if len(cfg.Schedules) != 1 || cfg.Schedules[0].ID != "morning" || !cfg.Schedules[0].Enabled {
		t.Fatalf("schedules = %+v", cfg.Schedules)
	}
	if cfg.Behavior.RetryOnFail != 2 || cfg.Behavior.RetryDelaySeconds != 10 {
		t.Fatalf("behavior = %+v", cfg.Behavior)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "logging:\n  level: info\n  verbosity: high\n")
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "logging: [unclosed\n")
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestParseRejectsOutOfRangeVolume(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "audio:\n  global_volume: 150\n")
	_, err := m.Parse()
	if err == nil || !strings.Contains(err.Error(), "global_volume") {
		t.Fatalf("err = %v, want global_volume range error", err)
	}
}

func TestLoadOrCreateWritesDefault(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	m := NewManager(path)

	cfg, created, err := m.LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate error: %v", err)
	}
	if !created {
		t.Fatal("created = false on first run")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	if len(cfg.Schedules) != 1 {
		t.Fatalf("default schedules = %d, want 1", len(cfg.Schedules))
	}
	if cfg.Schedules[0].Enabled {
		t.Fatal("default sample schedule must start disabled")
	}

	// The generated file must parse back strictly.
	again, created, err := NewManager(path).LoadOrCreate()
	if err != nil {
		t.Fatalf("reload of generated file: %v", err)
	}
	if created {
		t.Fatal("created = true on second run")
	}
	if again.Audio.GlobalVolume != cfg.Audio.GlobalVolume {
		t.Fatalf("round-trip volume = %d, want %d", again.Audio.GlobalVolume, cfg.Audio.GlobalVolume)
	}
}

func TestBehaviorDurations(t *testing.T) {
	t.Parallel()
	b := BehaviorConfig{RetryDelaySeconds: 7}
	if b.RetryDelay().Seconds() != 7 {
		t.Fatalf("RetryDelay = %v", b.RetryDelay())
	}
	if b.ShutdownGrace().Seconds() != 5 {
		t.Fatalf("ShutdownGrace default = %v, want 5s", b.ShutdownGrace())
	}
	b.ShutdownGraceSeconds = 12
	if b.ShutdownGrace().Seconds() != 12 {
		t.Fatalf("ShutdownGrace = %v, want 12s", b.ShutdownGrace())
	}
}

func TestValidateBounds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative volume", func(c *Config) { c.Audio.GlobalVolume = -1 }},
		{"volume over 100", func(c *Config) { c.Audio.GlobalVolume = 101 }},
		{"negative retry", func(c *Config) { c.Behavior.RetryOnFail = -1 }},
		{"negative delay", func(c *Config) { c.Behavior.RetryDelaySeconds = -1 }},
		{"negative grace", func(c *Config) { c.Behavior.ShutdownGraceSeconds = -1 }},
		{"negative max_files", func(c *Config) { c.Logging.MaxFiles = -1 }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestResolvePathAbsolutePassthrough(t *testing.T) {
	t.Parallel()
	abs := string(filepath.Separator) + filepath.Join("tmp", "x.wav")
	if got := ResolvePath(abs); got != abs {
		t.Fatalf("ResolvePath(%q) = %q", abs, got)
	}
	if got := ResolvePath(""); got != "" {
		t.Fatalf("ResolvePath(\"\") = %q", got)
	}
	if rel := ResolvePath("audios/x.wav"); !filepath.IsAbs(rel) {
		t.Fatalf("ResolvePath relative = %q, want absolute", rel)
	}
}
