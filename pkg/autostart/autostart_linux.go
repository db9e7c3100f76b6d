//go:build linux

// Package autostart toggles starting chimed at login.
//
// On Linux this is a systemd *user* unit: the unit file is written under
// the user's config directory on first enable, and enable/disable go over
// the session D-Bus.
package autostart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/coreos/go-systemd/v22/dbus"
)

const unitName = "chimed.service"

const unitTemplate = `[Unit]
Description=chimed scheduled audio playback

[Service]
ExecStart=%s
Restart=on-failure

[Install]
WantedBy=default.target
`

// Manager toggles the chimed user unit. Safe for concurrent use; the D-Bus
// connection is dialed lazily and kept.
type Manager struct {
	mu   sync.Mutex
	conn *dbus.Conn
}

func New() *Manager { return &Manager{} }

func (m *Manager) connect(ctx context.Context) (*dbus.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		return m.conn, nil
	}
	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to user systemd: %w", err)
	}
	m.conn = conn
	return conn, nil
}

func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}

// Enabled reports whether the unit is currently enabled for login start.
func (m *Manager) Enabled(ctx context.Context) (bool, error) {
	conn, err := m.connect(ctx)
	if err != nil {
		return false, err
	}
	files, err := conn.ListUnitFilesByPatternsContext(ctx, nil, []string{unitName})
	if err != nil {
		return false, fmt.Errorf("query unit state: %w", err)
	}
	for _, f := range files {
		if filepath.Base(f.Path) == unitName {
			return strings.EqualFold(f.Type, "enabled"), nil
		}
	}
	return false, nil
}

// Toggle flips the autostart state and returns the new state.
func (m *Manager) Toggle(ctx context.Context) (bool, error) {
	enabled, err := m.Enabled(ctx)
	if err != nil {
		return false, err
	}
	if enabled {
		if err := m.disable(ctx); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := m.enable(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) enable(ctx context.Context) error {
	if err := writeUnitFile(); err != nil {
		return err
	}
	conn, err := m.connect(ctx)
	if err != nil {
		return err
	}
	if _, _, err := conn.EnableUnitFilesContext(ctx, []string{unitName}, false, true); err != nil {
		return fmt.Errorf("enable unit: %w", err)
	}
	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	return nil
}

func (m *Manager) disable(ctx context.Context) error {
	conn, err := m.connect(ctx)
	if err != nil {
		return err
	}
	if _, err := conn.DisableUnitFilesContext(ctx, []string{unitName}, false); err != nil {
		return fmt.Errorf("disable unit: %w", err)
	}
	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	return nil
}

func writeUnitFile() error {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	dir := filepath.Join(cfgDir, "systemd", "user")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, unitName)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf(unitTemplate, exe)), 0o644)
}
