package engine

import (
	"context"
	"time"

	"chimed/internal/audio"
	"chimed/internal/eventbus"
	"chimed/internal/schedule"

	logx "chimed/pkg/logx"
)

// Player executes one playback request including retries.
type Player interface {
	Play(ctx context.Context, path string) audio.Outcome
}

// Autostart is the login-autostart toggle the tray's command is forwarded to.
type Autostart interface {
	Toggle(ctx context.Context) (enabled bool, err error)
}

type Config struct {
	// ShutdownGrace bounds how long in-flight playback may finish during
	// shutdown before being abandoned.
	ShutdownGrace time.Duration
}

func (c Config) withDefaults() Config {
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 5 * time.Second
	}
	return c
}

type Deps struct {
	Registry  *schedule.Registry
	Player    Player
	Autostart Autostart // optional
	Bus       eventbus.Bus
	Log       logx.Logger

	// Now overrides the clock (tests). Defaults to time.Now.
	Now func() time.Time
}

// state is the loop's current phase, used for logging only; the loop itself
// is a single select.
type state int

const (
	stateIdle state = iota
	stateWaiting
	stateFiring
	stateShuttingDown
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateWaiting:
		return "waiting"
	case stateFiring:
		return "firing"
	case stateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// playbackDone flows back from a playback goroutine to the loop.
type playbackDone struct {
	scheduleID string
	scheduled  time.Time
	outcome    audio.Outcome
}

// ---- eventbus payloads ----

type FireEvent struct {
	ScheduleID string
	Scheduled  time.Time
	Dispatched time.Time
	Drift      time.Duration
}

type SkipEvent struct {
	ScheduleID string
	Scheduled  time.Time
	Reason     string
}

type PlaybackEvent struct {
	ScheduleID string
	Scheduled  time.Time
	Status     string
	Attempts   int
	Error      string
}

type ReloadEvent struct {
	Accepted int
	Rejected int
}
