package engine

import (
	"context"
	"sync"
	"time"

	"chimed/internal/audio"
	"chimed/internal/eventbus"
	"chimed/internal/schedule"

	logx "chimed/pkg/logx"
)

// Engine is the dispatch loop. Construct with New, then run the loop with
// Run on a dedicated goroutine; the command methods are safe from any
// goroutine.
type Engine struct {
	cfg Config

	log       logx.Logger
	bus       eventbus.Bus
	reg       *schedule.Registry
	player    Player
	autostart Autostart
	now       func() time.Time

	cmds     chan command
	playDone chan playbackDone
	stopped  chan struct{}
	stopOnce sync.Once

	// Loop-owned state. Never touched outside the loop goroutine.
	lastFired map[string]time.Time
	inflight  map[string]struct{}
	playWG    sync.WaitGroup
}

func New(cfg Config, deps Deps) *Engine {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:       cfg.withDefaults(),
		log:       deps.Log,
		bus:       deps.Bus,
		reg:       deps.Registry,
		player:    deps.Player,
		autostart: deps.Autostart,
		now:       now,
		cmds:      make(chan command),
		playDone:  make(chan playbackDone, 16),
		stopped:   make(chan struct{}),
		lastFired: map[string]time.Time{},
		inflight:  map[string]struct{}{},
	}
}

// Run executes the loop until ctx is canceled or a Shutdown command
// arrives. It always returns nil after the shutdown sequence completes.
func (e *Engine) Run(ctx context.Context) error {
	defer e.stopOnce.Do(func() { close(e.stopped) })

	// Playback is not bound to the loop context: shutdown grants it a grace
	// window before this context is canceled.
	playCtx, cancelPlay := context.WithCancel(context.Background())
	defer cancelPlay()

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false
	disarm := func() {
		if armed {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			armed = false
		}
	}

	st := stateIdle
	e.log.Info("dispatch loop started", logx.Int("schedules", e.reg.Len()))

	for {
		disarm()
		now := e.now()
		target, ok := e.nextTarget(now)

		var timerC <-chan time.Time
		switch {
		case ok:
			timer.Reset(target.Sub(now))
			armed = true
			timerC = timer.C
			if st != stateWaiting {
				st = stateWaiting
			}
			e.log.Debug("waiting for next fire",
				logx.Time("target", target),
				logx.Duration("in", target.Sub(now)),
			)
		default:
			if st != stateIdle {
				e.log.Debug("no enabled schedules; idle")
			}
			st = stateIdle
		}

		select {
		case <-ctx.Done():
			return e.shutdown(cancelPlay, nil)

		case c := <-e.cmds:
			if stop, resp := e.apply(c); stop {
				return e.shutdown(cancelPlay, resp)
			}

		case msg := <-e.playDone:
			e.finishPlayback(msg)

		case <-timerC:
			armed = false
			woke := e.now()
			if woke.Before(target) {
				// Wall clock moved backward across the wait. Never fire
				// early; recompute from the new now.
				e.log.Warn("clock anomaly: wall clock behind target after wait",
					logx.Time("target", target),
					logx.Time("now", woke),
				)
				continue
			}
			st = stateFiring
			e.fire(playCtx, target, woke)
		}
	}
}

// nextTarget computes the earliest next fire instant across all enabled
// schedules. The reference instant per schedule is max(now, last dispatched
// instant), which both preserves ties and prevents re-dispatching an
// already-fired instant after a backward clock jump.
func (e *Engine) nextTarget(now time.Time) (time.Time, bool) {
	var target time.Time
	for _, s := range e.reg.Snapshot() {
		if !s.Enabled {
			continue
		}
		next, err := e.nextFire(s, now)
		if err != nil {
			e.log.Warn("schedule excluded from dispatch",
				logx.String("schedule", s.ID),
				logx.Err(err),
			)
			continue
		}
		if target.IsZero() || next.Before(target) {
			target = next
		}
	}
	return target, !target.IsZero()
}

func (e *Engine) nextFire(s schedule.Schedule, now time.Time) (time.Time, error) {
	ref := now
	if last, ok := e.lastFired[s.ID]; ok && last.After(ref) {
		ref = last
	}
	return s.Expr().NextAfter(ref)
}

// fire dispatches every enabled schedule whose next instant equals target.
// The snapshot is id-ordered, so ties dispatch in ascending id order.
func (e *Engine) fire(playCtx context.Context, target, dispatched time.Time) {
	for _, s := range e.reg.Snapshot() {
		if !s.Enabled {
			continue
		}
		next, err := e.nextFire(s, target.Add(-time.Nanosecond))
		if err != nil || !next.Equal(target) {
			continue
		}

		if _, busy := e.inflight[s.ID]; busy {
			e.log.Warn("fire skipped: previous playback still in flight",
				logx.String("schedule", s.ID),
				logx.Time("scheduled", target),
			)
			e.publish(eventbus.TypeFireSkipped, SkipEvent{
				ScheduleID: s.ID,
				Scheduled:  target,
				Reason:     "in_flight",
			})
			// The instant is consumed either way; otherwise the loop would
			// re-arm for it immediately.
			e.lastFired[s.ID] = target
			continue
		}

		e.lastFired[s.ID] = target
		e.inflight[s.ID] = struct{}{}

		drift := dispatched.Sub(target)
		e.log.Info("schedule fired",
			logx.String("schedule", s.ID),
			logx.Time("scheduled", target),
			logx.Time("dispatched", dispatched),
			logx.Duration("drift", drift),
		)
		e.publish(eventbus.TypeFireDispatched, FireEvent{
			ScheduleID: s.ID,
			Scheduled:  target,
			Dispatched: dispatched,
			Drift:      drift,
		})

		sched := s
		e.playWG.Add(1)
		go func() {
			defer e.playWG.Done()
			out := e.player.Play(playCtx, sched.File)
			select {
			case e.playDone <- playbackDone{scheduleID: sched.ID, scheduled: target, outcome: out}:
			case <-e.stopped:
			}
		}()
	}
}

func (e *Engine) finishPlayback(msg playbackDone) {
	delete(e.inflight, msg.scheduleID)

	out := msg.outcome
	fields := []logx.Field{
		logx.String("schedule", msg.scheduleID),
		logx.Time("scheduled", msg.scheduled),
		logx.String("status", out.Status.String()),
		logx.Int("attempts", out.Attempts),
	}
	switch out.Status {
	case audio.StatusSuccess:
		e.log.Info("playback finished", fields...)
	case audio.StatusCancelled:
		e.log.Warn("playback cancelled", append(fields, logx.Err(out.Err))...)
	default:
		e.log.Error("playback failed", append(fields, logx.Err(out.Err))...)
	}

	errStr := ""
	if out.Err != nil {
		errStr = out.Err.Error()
	}
	e.publish(eventbus.TypePlaybackFinished, PlaybackEvent{
		ScheduleID: msg.scheduleID,
		Scheduled:  msg.scheduled,
		Status:     out.Status.String(),
		Attempts:   out.Attempts,
		Error:      errStr,
	})
}

// apply executes one command. It returns stop=true for shutdown, along with
// the response channel to signal once the shutdown sequence is done.
func (e *Engine) apply(c command) (stop bool, shutdownResp chan struct{}) {
	switch r := c.(type) {
	case reloadReq:
		report := e.reg.Load(r.scheds)
		e.pruneLastFired()
		for _, rej := range report.Rejected {
			e.log.Warn("schedule rejected",
				logx.String("schedule", rej.ID),
				logx.Err(rej.Err),
			)
		}
		e.log.Info("registry reloaded",
			logx.Int("accepted", report.Accepted),
			logx.Int("rejected", len(report.Rejected)),
		)
		e.publish(eventbus.TypeRegistryReloaded, ReloadEvent{
			Accepted: report.Accepted,
			Rejected: len(report.Rejected),
		})
		r.resp <- report

	case addReq:
		err := e.reg.Add(r.sched)
		if err != nil {
			e.log.Warn("schedule add rejected", logx.String("schedule", r.sched.ID), logx.Err(err))
		} else {
			e.log.Info("schedule added", logx.String("schedule", r.sched.ID), logx.String("cron", r.sched.Cron))
		}
		r.resp <- err

	case removeReq:
		err := e.reg.Remove(r.id)
		if err == nil {
			delete(e.lastFired, r.id)
			e.log.Info("schedule removed", logx.String("schedule", r.id))
		}
		r.resp <- err

	case setEnabledReq:
		err := e.reg.SetEnabled(r.id, r.enabled)
		if err == nil {
			e.log.Info("schedule toggled",
				logx.String("schedule", r.id),
				logx.Bool("enabled", r.enabled),
			)
		}
		r.resp <- err

	case autostartReq:
		if e.autostart == nil {
			r.resp <- autostartResult{err: ErrNoAutostart}
			break
		}
		// Forwarded, not a scheduling concern: the dbus round-trip must not
		// delay the next wait computation.
		mgr := e.autostart
		e.playWG.Add(1)
		go func() {
			defer e.playWG.Done()
			enabled, err := mgr.Toggle(context.Background())
			r.resp <- autostartResult{enabled: enabled, err: err}
		}()

	case shutdownReq:
		return true, r.resp
	}
	return false, nil
}

func (e *Engine) pruneLastFired() {
	ids := make(map[string]struct{})
	for _, s := range e.reg.Snapshot() {
		ids[s.ID] = struct{}{}
	}
	for id := range e.lastFired {
		if _, ok := ids[id]; !ok {
			delete(e.lastFired, id)
		}
	}
}

// shutdown lets in-flight playback finish within the grace window, then
// abandons it. Terminal; the loop never resumes after this.
func (e *Engine) shutdown(cancelPlay context.CancelFunc, resp chan struct{}) error {
	e.log.Info("dispatch loop shutting down",
		logx.Int("in_flight", len(e.inflight)),
		logx.Duration("grace", e.cfg.ShutdownGrace),
	)

	waitDone := make(chan struct{})
	go func() {
		e.playWG.Wait()
		close(waitDone)
	}()

	grace := time.NewTimer(e.cfg.ShutdownGrace)
	defer grace.Stop()
	graceC := grace.C

	for {
		select {
		case msg := <-e.playDone:
			e.finishPlayback(msg)

		case <-graceC:
			e.log.Warn("grace period expired; abandoning in-flight playback",
				logx.Int("in_flight", len(e.inflight)),
			)
			cancelPlay()
			graceC = nil

		case <-waitDone:
			// Drain any completions already queued.
			for {
				select {
				case msg := <-e.playDone:
					e.finishPlayback(msg)
					continue
				default:
				}
				break
			}
			e.publish(eventbus.TypeEngineStopped, nil)
			e.log.Info("dispatch loop stopped")
			e.stopOnce.Do(func() { close(e.stopped) })
			if resp != nil {
				resp <- struct{}{}
			}
			return nil
		}
	}
}

func (e *Engine) publish(typ string, data any) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventbus.Event{Type: typ, Data: data})
}
