package engine

import "errors"

var (
	ErrStopped     = errors.New("dispatch engine stopped")
	ErrNoAutostart = errors.New("autostart manager not configured")
)
