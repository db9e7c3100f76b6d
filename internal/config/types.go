package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	Logging   LoggingConfig    `json:"logging"`
	Audio     AudioConfig      `json:"audio"`
	Schedules []ScheduleConfig `json:"schedules"`
	Behavior  BehaviorConfig   `json:"behavior"`
}

type LoggingConfig struct {
	Level     string `json:"level"`
	Directory string `json:"directory"`
	Rotate    bool   `json:"rotate"`
	MaxFiles  int    `json:"max_files"`
	Console   bool   `json:"console,omitempty"`
}

type AudioConfig struct {
	// GlobalVolume is a linear scale 0..100 applied to every playback.
	GlobalVolume int `json:"global_volume"`
}

type ScheduleConfig struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Cron    string `json:"cron"`
	File    string `json:"file"`
	Enabled bool   `json:"enabled"`
}

// BehaviorConfig controls retry and shutdown behavior.
//
// RetryOnFail is the number of extra attempts after a device failure; 0
// means a single attempt. Asset failures are never retried.
type BehaviorConfig struct {
	RetryOnFail          int `json:"retry_on_fail"`
	RetryDelaySeconds    int `json:"retry_delay_seconds"`
	ShutdownGraceSeconds int `json:"shutdown_grace_seconds,omitempty"`
}

func (b BehaviorConfig) RetryDelay() time.Duration {
	return time.Duration(b.RetryDelaySeconds) * time.Second
}

func (b BehaviorConfig) ShutdownGrace() time.Duration {
	if b.ShutdownGraceSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(b.ShutdownGraceSeconds) * time.Second
}

// Validate checks file-level settings. Per-schedule validation (cron syntax,
// duplicate ids) happens at registry load so a single bad entry doesn't
// reject the whole file.
func (c *Config) Validate() error {
	if c.Audio.GlobalVolume < 0 || c.Audio.GlobalVolume > 100 {
		return fmt.Errorf("audio.global_volume: must be 0..100, got %d", c.Audio.GlobalVolume)
	}
	if c.Behavior.RetryOnFail < 0 {
		return fmt.Errorf("behavior.retry_on_fail: must be >= 0, got %d", c.Behavior.RetryOnFail)
	}
	if c.Behavior.RetryDelaySeconds < 0 {
		return fmt.Errorf("behavior.retry_delay_seconds: must be >= 0, got %d", c.Behavior.RetryDelaySeconds)
	}
	if c.Behavior.ShutdownGraceSeconds < 0 {
		return fmt.Errorf("behavior.shutdown_grace_seconds: must be >= 0, got %d", c.Behavior.ShutdownGraceSeconds)
	}
	if c.Logging.MaxFiles < 0 {
		return fmt.Errorf("logging.max_files: must be >= 0, got %d", c.Logging.MaxFiles)
	}
	return nil
}

// Default returns the config written on first run: one disabled sample
// schedule so a fresh install stays silent until the operator opts in.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:     "info",
			Directory: binaryRelative("logs"),
			Rotate:    true,
			MaxFiles:  7,
			Console:   true,
		},
		Audio: AudioConfig{GlobalVolume: 80},
		Schedules: []ScheduleConfig{
			{
				ID:      "hourly_chime",
				Type:    "cron",
				Cron:    "0 * * * *",
				File:    "./audios/chime.wav",
				Enabled: false,
			},
		},
		Behavior: BehaviorConfig{
			RetryOnFail:          0,
			RetryDelaySeconds:    5,
			ShutdownGraceSeconds: 5,
		},
	}
}

// ResolvePath resolves a config-supplied path against the binary's
// directory. Absolute paths pass through.
func ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(binaryDir(), p)
}

func binaryRelative(p string) string {
	return filepath.Join(binaryDir(), p)
}

func binaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}
