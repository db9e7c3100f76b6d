//go:build !linux

package autostart

import (
	"context"
	"errors"
)

// ErrUnsupported is returned on platforms without a login-start integration.
var ErrUnsupported = errors.New("autostart: not supported on this platform")

type Manager struct{}

func New() *Manager { return &Manager{} }

func (m *Manager) Close() {}

func (m *Manager) Enabled(ctx context.Context) (bool, error) {
	return false, ErrUnsupported
}

func (m *Manager) Toggle(ctx context.Context) (bool, error) {
	return false, ErrUnsupported
}
